// Package layout is a headless block layout engine. It lays out an HTML
// element tree in two passes (measure, paint) and paints it into an RGBA
// raster.
package layout

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/net/html"

	"github.com/MNasiifu/automobile-association-sub000/fonts"
)

// MaxPixels bounds the raster a single Render may allocate.
const MaxPixels = 64 << 20

// Engine handles the layout and painting of an element tree.
type Engine struct {
	fonts *fonts.Library
	sheet Stylesheet

	// Configuration
	Width           float64 // CSS pixels
	Scale           float64
	Background      color.Color
	DefaultFontSize float64
	LineHeight      float64 // Multiplier, e.g., 1.35
	TextColor       color.Color
	Margins         Margins
}

// Margins defines the space around the laid out tree in CSS pixels.
type Margins struct {
	Top, Bottom, Left, Right float64
}

// Option defines a configuration option for the Engine.
type Option func(*Engine)

// WithFonts sets the font library used to measure and draw text.
func WithFonts(lib *fonts.Library) Option {
	return func(e *Engine) {
		e.fonts = lib
	}
}

// WithStylesheet sets the class stylesheet.
func WithStylesheet(sheet Stylesheet) Option {
	return func(e *Engine) {
		e.sheet = sheet
	}
}

// WithWidth sets the layout width in CSS pixels.
func WithWidth(width float64) Option {
	return func(e *Engine) {
		e.Width = width
	}
}

// WithScale sets the device pixel ratio of the raster.
func WithScale(scale float64) Option {
	return func(e *Engine) {
		e.Scale = scale
	}
}

// WithBackground sets the page background. It is always painted opaque.
func WithBackground(c color.Color) Option {
	return func(e *Engine) {
		e.Background = c
	}
}

// WithDefaultFontSize sets the default font size.
func WithDefaultFontSize(size float64) Option {
	return func(e *Engine) {
		e.DefaultFontSize = size
	}
}

// WithLineHeight sets the line height multiplier.
func WithLineHeight(height float64) Option {
	return func(e *Engine) {
		e.LineHeight = height
	}
}

// WithMargins sets the margins around the tree.
func WithMargins(margins Margins) Option {
	return func(e *Engine) {
		e.Margins = margins
	}
}

// NewEngine creates a new layout engine with optional configuration.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		sheet:           Stylesheet{},
		Width:           800,
		Scale:           2,
		Background:      color.White,
		DefaultFontSize: 12,
		LineHeight:      1.35,
		TextColor:       color.RGBA{R: 0x1a, G: 0x1a, B: 0x1a, A: 0xff},
		Margins:         Margins{Top: 16, Bottom: 16, Left: 16, Right: 16},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ImageSource supplies decoded pixels for <img> elements. ok=false paints
// the broken-image placeholder.
type ImageSource interface {
	Image(n *html.Node) (img image.Image, ok bool)
}

// ImageFunc adapts a function to ImageSource.
type ImageFunc func(n *html.Node) (image.Image, bool)

func (f ImageFunc) Image(n *html.Node) (image.Image, bool) { return f(n) }

type noImages struct{}

func (noImages) Image(*html.Node) (image.Image, bool) { return nil, false }

var errNilRoot = errors.New("layout: nil root")

// Measure runs the layout pass and returns the laid out tree.
func (e *Engine) Measure(root *html.Node, imgs ImageSource) (*Box, error) {
	if root == nil {
		return nil, errNilRoot
	}
	lib, err := e.library()
	if err != nil {
		return nil, err
	}
	if imgs == nil {
		imgs = noImages{}
	}
	l := &layouter{e: e, lib: lib, imgs: imgs}
	base := Style{Color: e.TextColor, FontSize: e.DefaultFontSize, LineHeight: e.LineHeight}
	width := e.Width - e.Margins.Left - e.Margins.Right
	if width <= 0 {
		return nil, fmt.Errorf("layout: width %.0f leaves no room inside margins", e.Width)
	}
	return l.block(root, base, e.Margins.Left, e.Margins.Top, width), nil
}

// Render lays out root and paints it onto an opaque raster of
// Width*Scale pixels.
func (e *Engine) Render(ctx context.Context, root *html.Node, imgs ImageSource) (*image.RGBA, error) {
	tree, err := e.Measure(root, imgs)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scale := e.Scale
	if scale <= 0 {
		scale = 1
	}
	w := int(math.Ceil(e.Width * scale))
	h := int(math.Ceil((tree.Y + tree.H + tree.Style.MarginBottom + e.Margins.Bottom) * scale))
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("layout: empty raster %dx%d", w, h)
	}
	if w*h > MaxPixels {
		return nil, fmt.Errorf("layout: raster %dx%d exceeds %d pixels", w, h, MaxPixels)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(opaque(e.Background)), image.Point{}, draw.Src)

	lib, err := e.library()
	if err != nil {
		return nil, err
	}
	p := newPainter(dst, lib, scale)
	defer p.close()
	if err := p.paint(ctx, tree); err != nil {
		return nil, err
	}
	return dst, nil
}

func (e *Engine) library() (*fonts.Library, error) {
	if e.fonts != nil {
		return e.fonts, nil
	}
	lib, err := fonts.Default()
	if err != nil {
		return nil, fmt.Errorf("layout: load fonts: %w", err)
	}
	return lib, nil
}

// opaque drops any transparency from c.
func opaque(c color.Color) color.RGBA {
	if c == nil {
		return color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return color.RGBA{R: n.R, G: n.G, B: n.B, A: 0xff}
}
