package assets

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/MNasiifu/automobile-association-sub000/fonts"
)

// Canvas is the 2D drawing surface the fallback emblem is drawn on.
type Canvas interface {
	Size() (width, height int)
	FillCircle(cx, cy, r float64, c color.Color)
	StrokeCircle(cx, cy, r, width float64, c color.Color)
	// FillText draws text horizontally centred on cx with its baseline at y.
	FillText(text string, cx, y, size float64, bold bool, c color.Color)
	Image() image.Image
}

// CanvasFactory obtains a canvas of the given pixel size.
type CanvasFactory func(width, height int) (Canvas, error)

// RasterCanvas draws into an in-memory RGBA buffer.
type RasterCanvas struct {
	img *image.RGBA
	lib *fonts.Library
}

// NewRasterCanvas is the default CanvasFactory.
func NewRasterCanvas(width, height int) (Canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", width, height)
	}
	lib, err := fonts.Default()
	if err != nil {
		return nil, fmt.Errorf("load fonts: %w", err)
	}
	return &RasterCanvas{img: image.NewRGBA(image.Rect(0, 0, width, height)), lib: lib}, nil
}

func (c *RasterCanvas) Size() (int, int) {
	b := c.img.Bounds()
	return b.Dx(), b.Dy()
}

func (c *RasterCanvas) Image() image.Image { return c.img }

func (c *RasterCanvas) FillCircle(cx, cy, r float64, col color.Color) {
	z := c.rasterizer()
	circlePath(z, cx, cy, r, false)
	z.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{})
}

func (c *RasterCanvas) StrokeCircle(cx, cy, r, width float64, col color.Color) {
	z := c.rasterizer()
	circlePath(z, cx, cy, r+width/2, false)
	circlePath(z, cx, cy, r-width/2, true)
	z.Draw(c.img, c.img.Bounds(), image.NewUniform(col), image.Point{})
}

func (c *RasterCanvas) FillText(text string, cx, y, size float64, bold bool, col color.Color) {
	w := fonts.Regular
	if bold {
		w = fonts.Bold
	}
	face, err := c.lib.NewFace(w, size)
	if err != nil {
		return
	}
	defer face.Close()
	d := font.Drawer{Dst: c.img, Src: image.NewUniform(col), Face: face}
	adv := d.MeasureString(text)
	d.Dot = fixed.Point26_6{
		X: fixed.Int26_6(cx*64) - adv/2,
		Y: fixed.Int26_6(y * 64),
	}
	d.DrawString(text)
}

func (c *RasterCanvas) rasterizer() *vector.Rasterizer {
	w, h := c.Size()
	z := vector.NewRasterizer(w, h)
	z.DrawOp = draw.Over
	return z
}

// kappa places cubic control points for a quarter circle.
const kappa = 0.5522847498

func circlePath(z *vector.Rasterizer, cx, cy, r float64, reverse bool) {
	if r <= 0 {
		return
	}
	k := r * kappa
	f := func(v float64) float32 { return float32(v) }
	if !reverse {
		z.MoveTo(f(cx+r), f(cy))
		z.CubeTo(f(cx+r), f(cy+k), f(cx+k), f(cy+r), f(cx), f(cy+r))
		z.CubeTo(f(cx-k), f(cy+r), f(cx-r), f(cy+k), f(cx-r), f(cy))
		z.CubeTo(f(cx-r), f(cy-k), f(cx-k), f(cy-r), f(cx), f(cy-r))
		z.CubeTo(f(cx+k), f(cy-r), f(cx+r), f(cy-k), f(cx+r), f(cy))
	} else {
		z.MoveTo(f(cx+r), f(cy))
		z.CubeTo(f(cx+r), f(cy-k), f(cx+k), f(cy-r), f(cx), f(cy-r))
		z.CubeTo(f(cx-k), f(cy-r), f(cx-r), f(cy-k), f(cx-r), f(cy))
		z.CubeTo(f(cx-r), f(cy+k), f(cx-k), f(cy+r), f(cx), f(cy+r))
		z.CubeTo(f(cx+k), f(cy+r), f(cx+r), f(cy+k), f(cx+r), f(cy))
	}
	z.ClosePath()
}
