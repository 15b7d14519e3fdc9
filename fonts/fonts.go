// Package fonts provides the Go font family for raster text: opentype faces
// for drawing and HarfBuzz shaping for measurement.
package fonts

import (
	"bytes"
	"fmt"
	"sync"

	gotext "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
)

// Weight selects a face of the family.
type Weight int

const (
	Regular Weight = iota
	Bold
)

// Library holds the parsed family. Faces returned by NewFace are not safe
// for concurrent use; Measure is.
type Library struct {
	draw  [2]*sfnt.Font
	shape [2]*gotext.Face

	mu     sync.Mutex
	shaper shaping.HarfbuzzShaper
}

var (
	defaultOnce sync.Once
	defaultLib  *Library
	defaultErr  error
)

// Default returns the process-wide Go font library.
func Default() (*Library, error) {
	defaultOnce.Do(func() {
		defaultLib, defaultErr = New(goregular.TTF, gobold.TTF)
	})
	return defaultLib, defaultErr
}

// New parses a regular and a bold TrueType font.
func New(regularTTF, boldTTF []byte) (*Library, error) {
	lib := &Library{}
	for i, data := range [][]byte{regularTTF, boldTTF} {
		f, err := opentype.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse font %d: %w", i, err)
		}
		lib.draw[i] = f
		face, err := gotext.ParseTTF(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parse shaping face %d: %w", i, err)
		}
		lib.shape[i] = face
	}
	return lib, nil
}

// NewFace returns a drawing face at size pixels. Hinting is disabled so
// advances scale linearly with size.
func (l *Library) NewFace(w Weight, size float64) (font.Face, error) {
	return opentype.NewFace(l.draw[index(w)], &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

func index(w Weight) int {
	if w == Bold {
		return 1
	}
	return 0
}
