package assets

import (
	"image/color"
)

// Emblem describes the procedural fallback logo.
type Emblem struct {
	Size      int
	Fill      color.Color
	Ring      color.Color
	Text      color.Color
	Line1     string
	Line2     string
	RingWidth float64
}

// DefaultEmblem is the fallback used when the canonical logo is unavailable.
func DefaultEmblem() Emblem {
	return Emblem{
		Size:      240,
		Fill:      color.RGBA{R: 0xFF, G: 0xCC, B: 0x00, A: 0xFF},
		Ring:      color.RGBA{R: 0x1A, G: 0x1A, B: 0x1A, A: 0xFF},
		Text:      color.RGBA{R: 0x1A, G: 0x1A, B: 0x1A, A: 0xFF},
		Line1:     "AA",
		Line2:     "UGANDA",
		RingWidth: 10,
	}
}

// DrawEmblem draws a filled circle, a contrasting ring and two centred lines
// of text. It depends only on the Canvas contract.
func DrawEmblem(c Canvas, e Emblem) {
	w, h := c.Size()
	side := float64(w)
	if float64(h) < side {
		side = float64(h)
	}
	cx, cy := float64(w)/2, float64(h)/2
	r := side/2 - 2

	c.FillCircle(cx, cy, r, e.Fill)
	c.StrokeCircle(cx, cy, r-e.RingWidth, e.RingWidth, e.Ring)

	c.FillText(e.Line1, cx, cy+side*0.06, side*0.30, true, e.Text)
	c.FillText(e.Line2, cx, cy+side*0.24, side*0.10, true, e.Text)
}

// MinimalLogoDataURI is an 8x8 opaque PNG used when no canvas can be obtained.
const MinimalLogoDataURI = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAgAAAAICAIAAABLbSncAAAAD0lEQVR42mOQwgEYhpYEAJ8xE4HmivYxAAAAAElFTkSuQmCC"
