package layout

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/MNasiifu/automobile-association-sub000/fonts"
)

var (
	placeholderFill   = color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	placeholderBorder = color.RGBA{R: 0xbd, G: 0xbd, B: 0xbd, A: 0xff}
)

type faceKey struct {
	w    fonts.Weight
	size float64
}

type painter struct {
	dst   *image.RGBA
	lib   *fonts.Library
	scale float64
	faces map[faceKey]font.Face
}

func newPainter(dst *image.RGBA, lib *fonts.Library, scale float64) *painter {
	return &painter{dst: dst, lib: lib, scale: scale, faces: map[faceKey]font.Face{}}
}

func (p *painter) close() {
	for _, f := range p.faces {
		f.Close()
	}
}

func (p *painter) paint(ctx context.Context, b *Box) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := b.Style
	if s.Background != nil {
		p.fill(b.X, b.Y, b.W, b.H, s.Background)
	}
	if s.BorderWidth > 0 && s.BorderColor != nil {
		p.border(b.X, b.Y, b.W, b.H, s.BorderWidth, s.BorderColor)
	}
	switch {
	case b.Image != nil:
		p.image(b)
	case b.Broken:
		p.fill(b.X, b.Y, b.W, b.H, placeholderFill)
		p.border(b.X, b.Y, b.W, b.H, 1, placeholderBorder)
	}
	for _, ln := range b.Lines {
		for _, w := range ln.Words {
			p.text(w, ln.Baseline)
		}
	}
	for _, c := range b.Children {
		if err := p.paint(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (p *painter) rect(x, y, w, h float64) image.Rectangle {
	return image.Rect(
		int(math.Round(x*p.scale)), int(math.Round(y*p.scale)),
		int(math.Round((x+w)*p.scale)), int(math.Round((y+h)*p.scale)),
	)
}

func (p *painter) fill(x, y, w, h float64, c color.Color) {
	draw.Draw(p.dst, p.rect(x, y, w, h), image.NewUniform(c), image.Point{}, draw.Over)
}

func (p *painter) border(x, y, w, h, bw float64, c color.Color) {
	p.fill(x, y, w, bw, c)
	p.fill(x, y+h-bw, w, bw, c)
	p.fill(x, y, bw, h, c)
	p.fill(x+w-bw, y, bw, h, c)
}

func (p *painter) image(b *Box) {
	xdraw.CatmullRom.Scale(p.dst, p.rect(b.X, b.Y, b.W, b.H), b.Image, b.Image.Bounds(), xdraw.Over, nil)
}

func (p *painter) text(w Word, baseline float64) {
	face := p.face(weight(w.Style), w.Style.FontSize*p.scale)
	if face == nil {
		return
	}
	c := w.Style.Color
	if c == nil {
		c = color.Black
	}
	d := font.Drawer{
		Dst:  p.dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(w.X * p.scale * 64), Y: fixed.Int26_6(baseline * p.scale * 64)},
	}
	d.DrawString(w.Text)
}

func (p *painter) face(w fonts.Weight, size float64) font.Face {
	key := faceKey{w: w, size: size}
	if f, ok := p.faces[key]; ok {
		return f
	}
	f, err := p.lib.NewFace(w, size)
	if err != nil {
		return nil
	}
	p.faces[key] = f
	return f
}
