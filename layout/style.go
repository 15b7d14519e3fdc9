package layout

import (
	"fmt"
	"image/color"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Align is horizontal alignment of inline content.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// Style is the subset of box styling the engine understands. Zero values
// mean unset; Merge only overrides set fields.
type Style struct {
	Color        color.Color
	Background   color.Color
	BorderColor  color.Color
	BorderWidth  float64
	FontSize     float64
	LineHeight   float64 // multiplier
	Bold         bool
	Uppercase    bool
	Align        Align
	Padding      float64
	MarginBottom float64
	Width        float64
	Height       float64
	Row          bool // lay children out horizontally
	Gap          float64
}

// Merge returns s overridden by the set fields of o.
func (s Style) Merge(o Style) Style {
	if o.Color != nil {
		s.Color = o.Color
	}
	if o.Background != nil {
		s.Background = o.Background
	}
	if o.BorderColor != nil {
		s.BorderColor = o.BorderColor
	}
	if o.BorderWidth > 0 {
		s.BorderWidth = o.BorderWidth
	}
	if o.FontSize > 0 {
		s.FontSize = o.FontSize
	}
	if o.LineHeight > 0 {
		s.LineHeight = o.LineHeight
	}
	if o.Bold {
		s.Bold = true
	}
	if o.Uppercase {
		s.Uppercase = true
	}
	if o.Align != AlignLeft {
		s.Align = o.Align
	}
	if o.Padding > 0 {
		s.Padding = o.Padding
	}
	if o.MarginBottom > 0 {
		s.MarginBottom = o.MarginBottom
	}
	if o.Width > 0 {
		s.Width = o.Width
	}
	if o.Height > 0 {
		s.Height = o.Height
	}
	if o.Row {
		s.Row = true
	}
	if o.Gap > 0 {
		s.Gap = o.Gap
	}
	return s
}

// inherited keeps only the properties children inherit.
func (s Style) inherited() Style {
	return Style{
		Color:      s.Color,
		FontSize:   s.FontSize,
		LineHeight: s.LineHeight,
		Bold:       s.Bold,
		Uppercase:  s.Uppercase,
		Align:      s.Align,
	}
}

// Stylesheet maps class names to styles.
type Stylesheet map[string]Style

var tagStyles = map[atom.Atom]Style{
	atom.H1:     {FontSize: 22, Bold: true, MarginBottom: 4},
	atom.H2:     {FontSize: 18, Bold: true, MarginBottom: 4},
	atom.H3:     {FontSize: 14, Bold: true, MarginBottom: 6},
	atom.P:      {MarginBottom: 6},
	atom.Strong: {Bold: true},
	atom.B:      {Bold: true},
	atom.Th:     {Bold: true, Padding: 4},
	atom.Td:     {Padding: 4},
	atom.Table:  {MarginBottom: 6},
}

// styleFor computes the style of n given its parent's computed style.
func (sh Stylesheet) styleFor(n *html.Node, parent Style) Style {
	s := parent.inherited()
	if ts, ok := tagStyles[n.DataAtom]; ok {
		s = s.Merge(ts)
	}
	for _, class := range strings.Fields(attr(n, "class")) {
		if cs, ok := sh[class]; ok {
			s = s.Merge(cs)
		}
	}
	if inline := attr(n, "style"); inline != "" {
		s = s.Merge(ParseInline(inline))
	}
	return s
}

// ParseInline parses the color and background declarations of a style
// attribute. Other declarations are ignored.
func ParseInline(decl string) Style {
	var s Style
	for _, part := range strings.Split(decl, ";") {
		k, v, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		c, err := ParseColor(strings.TrimSpace(v))
		if err != nil {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "color":
			s.Color = c
		case "background", "background-color":
			s.Background = c
		}
	}
	return s
}

var namedColors = map[string]color.RGBA{
	"black":  {0x00, 0x00, 0x00, 0xff},
	"white":  {0xff, 0xff, 0xff, 0xff},
	"red":    {0xc6, 0x28, 0x28, 0xff},
	"green":  {0x2e, 0x7d, 0x32, 0xff},
	"orange": {0xef, 0x6c, 0x00, 0xff},
	"gray":   {0x61, 0x61, 0x61, 0xff},
	"grey":   {0x61, 0x61, 0x61, 0xff},
	"yellow": {0xff, 0xcc, 0x00, 0xff},
}

// ParseColor accepts a named color token or #rgb / #rrggbb.
func ParseColor(v string) (color.RGBA, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if c, ok := namedColors[v]; ok {
		return c, nil
	}
	hex, ok := strings.CutPrefix(v, "#")
	if !ok {
		return color.RGBA{}, fmt.Errorf("unsupported color %q", v)
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("unsupported color %q", v)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("unsupported color %q: %w", v, err)
	}
	return color.RGBA{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 0xff}, nil
}

// CSS renders the stylesheet for browsers, so the HTML preview and the
// raster agree.
func (sh Stylesheet) CSS() string {
	names := make([]string, 0, len(sh))
	for name := range sh {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		s := sh[name]
		fmt.Fprintf(&b, ".%s {", name)
		if s.Color != nil {
			fmt.Fprintf(&b, " color: %s;", cssColor(s.Color))
		}
		if s.Background != nil {
			fmt.Fprintf(&b, " background: %s;", cssColor(s.Background))
		}
		if s.BorderWidth > 0 && s.BorderColor != nil {
			fmt.Fprintf(&b, " border: %gpx solid %s;", s.BorderWidth, cssColor(s.BorderColor))
		}
		if s.FontSize > 0 {
			fmt.Fprintf(&b, " font-size: %gpx;", s.FontSize)
		}
		if s.Bold {
			b.WriteString(" font-weight: bold;")
		}
		if s.Uppercase {
			b.WriteString(" text-transform: uppercase;")
		}
		switch s.Align {
		case AlignCenter:
			b.WriteString(" text-align: center;")
		case AlignRight:
			b.WriteString(" text-align: right;")
		}
		if s.Padding > 0 {
			fmt.Fprintf(&b, " padding: %gpx;", s.Padding)
		}
		if s.MarginBottom > 0 {
			fmt.Fprintf(&b, " margin-bottom: %gpx;", s.MarginBottom)
		}
		if s.Width > 0 {
			fmt.Fprintf(&b, " width: %gpx; flex: none;", s.Width)
		}
		if s.Height > 0 {
			fmt.Fprintf(&b, " height: %gpx;", s.Height)
		}
		if s.Row {
			fmt.Fprintf(&b, " display: flex; gap: %gpx;", s.Gap)
		}
		b.WriteString(" }\n")
	}
	return b.String()
}

func cssColor(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
