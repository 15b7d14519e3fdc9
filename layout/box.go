package layout

import (
	"image"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/MNasiifu/automobile-association-sub000/fonts"
)

// Box is a laid out element. Coordinates are CSS pixels from the top left.
type Box struct {
	Node     *html.Node
	Style    Style
	X, Y     float64
	W, H     float64
	Children []*Box
	Lines    []Line

	// Image boxes only.
	Image  image.Image
	Broken bool
}

// Line is one wrapped line of inline content.
type Line struct {
	Y, H     float64
	Baseline float64
	Words    []Word
}

// Word is a run of non-space text drawn with one style.
type Word struct {
	Text  string
	X, W  float64
	Style Style
}

// Find returns the first box laid out for n, searching depth first.
func (b *Box) Find(n *html.Node) *Box {
	if b.Node == n {
		return b
	}
	for _, c := range b.Children {
		if f := c.Find(n); f != nil {
			return f
		}
	}
	return nil
}

// Text returns the laid out words joined by spaces.
func (b *Box) Text() string {
	var words []string
	var walk func(*Box)
	walk = func(b *Box) {
		for _, l := range b.Lines {
			for _, w := range l.Words {
				words = append(words, w.Text)
			}
		}
		for _, c := range b.Children {
			walk(c)
		}
	}
	walk(b)
	return strings.Join(words, " ")
}

const (
	placeholderSize = 96
	ascentRatio     = 0.78
)

type layouter struct {
	e    *Engine
	lib  *fonts.Library
	imgs ImageSource
}

// block lays out n as a block of the given width at (x, y).
func (l *layouter) block(n *html.Node, parent Style, x, y, width float64) *Box {
	s := l.e.sheet.styleFor(n, parent)
	b := &Box{Node: n, Style: s, X: x, Y: y, W: width}
	if s.Width > 0 && s.Width < width {
		b.W = s.Width
	}

	if n.DataAtom == atom.Img {
		l.image(b, parent.Align, width)
		return b
	}

	inset := s.BorderWidth + s.Padding
	ix, iw := x+inset, b.W-2*inset
	cursor := y + inset
	switch {
	case n.DataAtom == atom.Table:
		cursor = l.table(b, n, ix, cursor, iw)
	case s.Row:
		cursor = l.row(b, n, ix, cursor, iw)
	default:
		cursor = l.flow(b, n, ix, cursor, iw)
	}
	b.H = cursor + inset - y
	if s.Height > b.H {
		b.H = s.Height
	}
	return b
}

// flow stacks block children and wraps inline runs between them.
func (l *layouter) flow(b *Box, n *html.Node, x, y, width float64) float64 {
	var spans []span
	flush := func() {
		if len(spans) == 0 {
			return
		}
		lines := l.wrap(spans, x, y, width, b.Style.Align)
		for _, ln := range lines {
			b.Lines = append(b.Lines, ln)
			y = ln.Y + ln.H
		}
		spans = nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode:
			spans = append(spans, span{text: c.Data, style: b.Style})
		case c.Type != html.ElementNode:
		case isInline(c):
			spans = l.inline(c, b.Style, spans)
		default:
			flush()
			child := l.block(c, b.Style, x, y, width)
			b.Children = append(b.Children, child)
			y += child.H + child.Style.MarginBottom
		}
	}
	flush()
	return y
}

// row lays element children side by side. Children with a fixed width keep
// it; the rest share what is left.
func (l *layouter) row(b *Box, n *html.Node, x, y, width float64) float64 {
	var kids []*html.Node
	fixed, flex := 0.0, 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		kids = append(kids, c)
		if w := l.fixedWidth(c, b.Style); w > 0 {
			fixed += w
		} else {
			flex++
		}
	}
	if len(kids) == 0 {
		return y
	}
	gap := b.Style.Gap
	flexW := 0.0
	if flex > 0 {
		flexW = (width - fixed - gap*float64(len(kids)-1)) / float64(flex)
		if flexW < 0 {
			flexW = 0
		}
	}

	cx, maxH := x, 0.0
	for _, c := range kids {
		w := l.fixedWidth(c, b.Style)
		if w <= 0 {
			w = flexW
		}
		child := l.block(c, b.Style, cx, y, w)
		b.Children = append(b.Children, child)
		if child.H > maxH {
			maxH = child.H
		}
		cx += w + gap
	}
	return y + maxH
}

func (l *layouter) fixedWidth(n *html.Node, parent Style) float64 {
	if w := l.e.sheet.styleFor(n, parent).Width; w > 0 {
		return w
	}
	if n.DataAtom == atom.Img {
		return number(attr(n, "width"))
	}
	return 0
}

// table lays out rows of cells. A cell's width attribute ("35%" or pixels)
// fixes its column; other cells split the remainder equally.
func (l *layouter) table(b *Box, n *html.Node, x, y, width float64) float64 {
	for _, tr := range rows(n) {
		rs := l.e.sheet.styleFor(tr, b.Style)
		rowBox := &Box{Node: tr, Style: rs, X: x, Y: y, W: width}

		var cells []*html.Node
		fixed, flex := 0.0, 0
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode || (c.DataAtom != atom.Td && c.DataAtom != atom.Th) {
				continue
			}
			cells = append(cells, c)
			if w := cellWidth(c, width); w > 0 {
				fixed += w
			} else {
				flex++
			}
		}
		flexW := 0.0
		if flex > 0 {
			flexW = (width - fixed) / float64(flex)
		}

		cx, maxH := x, 0.0
		for _, c := range cells {
			w := cellWidth(c, width)
			if w <= 0 {
				w = flexW
			}
			cell := l.block(c, rs, cx, y, w)
			rowBox.Children = append(rowBox.Children, cell)
			if cell.H > maxH {
				maxH = cell.H
			}
			cx += w
		}
		for _, cell := range rowBox.Children {
			cell.H = maxH
		}
		rowBox.H = maxH
		b.Children = append(b.Children, rowBox)
		y += maxH
	}
	return y
}

func rows(table *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.DataAtom {
			case atom.Tr:
				out = append(out, c)
			case atom.Thead, atom.Tbody, atom.Tfoot:
				walk(c)
			}
		}
	}
	walk(table)
	return out
}

func cellWidth(n *html.Node, total float64) float64 {
	v := strings.TrimSpace(attr(n, "width"))
	if pct, ok := strings.CutSuffix(v, "%"); ok {
		return number(pct) / 100 * total
	}
	return number(v)
}

// image sizes an <img> box. Explicit dimensions win; otherwise the decoded
// image's aspect ratio is kept and it is shrunk to fit.
func (l *layouter) image(b *Box, align Align, avail float64) {
	img, ok := l.imgs.Image(b.Node)
	if !ok || img == nil || img.Bounds().Empty() {
		b.Broken = true
		img = nil
	}
	b.Image = img

	w, h := b.Style.Width, b.Style.Height
	if w <= 0 {
		w = number(attr(b.Node, "width"))
	}
	if h <= 0 {
		h = number(attr(b.Node, "height"))
	}
	var nw, nh float64 = placeholderSize, placeholderSize
	if img != nil {
		nw, nh = float64(img.Bounds().Dx()), float64(img.Bounds().Dy())
	}
	switch {
	case w > 0 && h <= 0:
		h = w * nh / nw
	case h > 0 && w <= 0:
		w = h * nw / nh
	case w <= 0 && h <= 0:
		w, h = nw, nh
	}
	if w > avail {
		h = h * avail / w
		w = avail
	}
	b.W, b.H = w, h
	switch align {
	case AlignCenter:
		b.X += (avail - w) / 2
	case AlignRight:
		b.X += avail - w
	}
}

type span struct {
	text  string
	style Style
	br    bool
}

func isInline(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Strong, atom.B, atom.Em, atom.I, atom.Span, atom.A, atom.Small, atom.Code, atom.Br:
		return true
	}
	return false
}

func (l *layouter) inline(n *html.Node, parent Style, spans []span) []span {
	if n.DataAtom == atom.Br {
		return append(spans, span{br: true})
	}
	s := l.e.sheet.styleFor(n, parent)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch {
		case c.Type == html.TextNode:
			spans = append(spans, span{text: c.Data, style: s})
		case c.Type == html.ElementNode:
			spans = l.inline(c, s, spans)
		}
	}
	return spans
}

type token struct {
	text        string
	style       Style
	spaceBefore bool
	br          bool
}

func tokenize(spans []span) []token {
	var out []token
	pending := false
	for _, sp := range spans {
		if sp.br {
			out = append(out, token{br: true})
			pending = false
			continue
		}
		text := sp.text
		if sp.style.Uppercase {
			text = strings.ToUpper(text)
		}
		var cur strings.Builder
		emit := func() {
			if cur.Len() == 0 {
				return
			}
			out = append(out, token{text: cur.String(), style: sp.style, spaceBefore: pending})
			cur.Reset()
			pending = false
		}
		for _, r := range text {
			if unicode.IsSpace(r) {
				emit()
				pending = true
				continue
			}
			cur.WriteRune(r)
		}
		emit()
	}
	return out
}

// wrap breaks spans into lines no wider than width.
func (l *layouter) wrap(spans []span, x, y, width float64, align Align) []Line {
	tokens := tokenize(spans)
	if len(tokens) == 0 {
		return nil
	}

	var lines []Line
	var cur []Word
	curW, maxSize, lineH := 0.0, 0.0, 0.0

	flush := func() {
		if len(cur) == 0 && lineH == 0 {
			return
		}
		offset := 0.0
		switch align {
		case AlignCenter:
			offset = (width - curW) / 2
		case AlignRight:
			offset = width - curW
		}
		for i := range cur {
			cur[i].X += x + offset
		}
		lines = append(lines, Line{
			Y:        y,
			H:        lineH,
			Baseline: y + (lineH-maxSize)/2 + maxSize*ascentRatio,
			Words:    cur,
		})
		y += lineH
		cur, curW, maxSize, lineH = nil, 0, 0, 0
	}

	for _, t := range tokens {
		if t.br {
			if len(cur) == 0 {
				lineH = l.e.DefaultFontSize * l.e.LineHeight
			}
			flush()
			continue
		}
		size := t.style.FontSize
		wt := weight(t.style)
		w := l.lib.Measure(t.text, wt, size)
		space := 0.0
		if t.spaceBefore && len(cur) > 0 {
			space = l.lib.Measure(" ", wt, size)
		}
		if len(cur) > 0 && curW+space+w > width {
			flush()
			space = 0
		}
		cur = append(cur, Word{Text: t.text, X: curW + space, W: w, Style: t.style})
		curW += space + w
		if size > maxSize {
			maxSize = size
		}
		lh := t.style.LineHeight
		if lh <= 0 {
			lh = l.e.LineHeight
		}
		if size*lh > lineH {
			lineH = size * lh
		}
	}
	flush()
	return lines
}

func weight(s Style) fonts.Weight {
	if s.Bold {
		return fonts.Bold
	}
	return fonts.Regular
}

func number(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v), "px"), 64)
	if err != nil || f < 0 {
		return 0
	}
	return f
}
