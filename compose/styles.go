package compose

import (
	"image/color"

	"github.com/MNasiifu/automobile-association-sub000/layout"
)

var (
	ink       = color.RGBA{R: 0x1a, G: 0x1a, B: 0x1a, A: 0xff}
	muted     = color.RGBA{R: 0x61, G: 0x61, B: 0x61, A: 0xff}
	rule      = color.RGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff}
	brand     = color.RGBA{R: 0xff, G: 0xcc, B: 0x00, A: 0xff}
	green     = color.RGBA{R: 0x2e, G: 0x7d, B: 0x32, A: 0xff}
	orange    = color.RGBA{R: 0xef, G: 0x6c, B: 0x00, A: 0xff}
	red       = color.RGBA{R: 0xc6, G: 0x28, B: 0x28, A: 0xff}
	gray      = color.RGBA{R: 0x75, G: 0x75, B: 0x75, A: 0xff}
	paper     = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	noteTint  = color.RGBA{R: 0xff, G: 0xf8, B: 0xe1, A: 0xff}
	slotTint  = color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	slotFrame = color.RGBA{R: 0xbd, G: 0xbd, B: 0xbd, A: 0xff}
)

// Stylesheet is shared by the raster engine and the HTML preview.
func Stylesheet() layout.Stylesheet {
	return layout.Stylesheet{
		"certificate": {Background: paper, BorderWidth: 3, BorderColor: ink, Padding: 24},
		"header":      {Row: true, Gap: 16, MarginBottom: 16},
		"brand-bar":   {Background: brand, Height: 6, MarginBottom: 12},
		"logo":        {Width: 88, Height: 88},
		"org-name":    {FontSize: 22, Bold: true, Color: ink},
		"org-tagline": {FontSize: 11, Color: muted, MarginBottom: 4},
		"doc-title":   {FontSize: 13, Bold: true, Uppercase: true},

		"status-banner":       {Padding: 12, Align: layout.AlignCenter, MarginBottom: 16, Color: paper},
		"status-valid":        {Background: green},
		"status-expires-soon": {Background: orange},
		"status-expired":      {Background: red},
		"status-not-found":    {Background: gray},
		"status-title":        {FontSize: 20, Bold: true, MarginBottom: 2},
		"status-message":      {FontSize: 12},

		"section":           {Padding: 10, MarginBottom: 14, BorderWidth: 1, BorderColor: rule},
		"section-title":     {FontSize: 13, Bold: true, Uppercase: true, MarginBottom: 6},
		"media-row":         {Row: true, Gap: 16},
		"photo-slot":        {Width: 120},
		"photo":             {Width: 120, Height: 150},
		"photo-placeholder": {Width: 120, Height: 150, Background: slotTint, BorderWidth: 1, BorderColor: slotFrame, Align: layout.AlignCenter, Color: muted, FontSize: 10, Bold: true, Padding: 8},
		"details":           {FontSize: 12},
		"label":             {Color: muted},

		"note":      {FontSize: 10, Color: muted, Background: noteTint, Padding: 8, MarginBottom: 14},
		"not-found": {Align: layout.AlignCenter},

		"footer":        {FontSize: 10, Color: muted, Align: layout.AlignCenter, Padding: 8, BorderWidth: 1, BorderColor: rule},
		"verified-at":   {FontSize: 10},
		"verified-mark": {FontSize: 12, Bold: true, Color: green, Uppercase: true},
	}
}
