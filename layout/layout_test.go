package layout

import (
	"context"
	"image"
	"image/color"
	"math"
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func parseRoot(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var find func(*html.Node) *html.Node
	find = func(n *html.Node) *html.Node {
		if n.Type == html.ElementNode && attr(n, "id") == "root" {
			return n
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if f := find(c); f != nil {
				return f
			}
		}
		return nil
	}
	root := find(doc)
	if root == nil {
		t.Fatalf("no #root in %q", src)
	}
	return root
}

func TestMeasureWrapsLongText(t *testing.T) {
	e := NewEngine(WithWidth(200), WithMargins(Margins{}))
	root := parseRoot(t, `<div id="root"><p>`+strings.Repeat("word ", 60)+`</p></div>`)

	tree, err := e.Measure(root, nil)
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	p := tree.Children[0]
	if len(p.Lines) < 2 {
		t.Fatalf("expected wrapped lines, got %d", len(p.Lines))
	}
	for _, ln := range p.Lines {
		last := ln.Words[len(ln.Words)-1]
		if last.X+last.W > 200+0.5 {
			t.Fatalf("line overflows: ends at %.1f", last.X+last.W)
		}
	}
}

func TestMeasureKeepsInlineSpacing(t *testing.T) {
	e := NewEngine()
	root := parseRoot(t, `<div id="root"><p>Verified on <strong>1 May 2024</strong>.</p></div>`)
	tree, err := e.Measure(root, nil)
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	words := tree.Children[0].Lines[0].Words
	var got []string
	for _, w := range words {
		got = append(got, w.Text)
	}
	if strings.Join(got, "|") != "Verified|on|1|May|2024|." {
		t.Fatalf("unexpected words %v", got)
	}
	if !words[2].Style.Bold || words[0].Style.Bold {
		t.Fatalf("bold must apply only inside strong")
	}
	if math.Abs(words[5].X-(words[4].X+words[4].W)) > 1e-6 {
		t.Fatalf("punctuation directly after a span must not get a space")
	}
}

func TestRowSplitsRemainingWidth(t *testing.T) {
	sheet := Stylesheet{
		"row":   {Row: true, Gap: 10},
		"fixed": {Width: 100},
	}
	e := NewEngine(WithStylesheet(sheet), WithWidth(420), WithMargins(Margins{}))
	root := parseRoot(t, `<div id="root" class="row"><div class="fixed">a</div><div>b</div><div>c</div></div>`)
	tree, err := e.Measure(root, nil)
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	if len(tree.Children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(tree.Children))
	}
	if tree.Children[0].W != 100 {
		t.Fatalf("fixed child width = %v", tree.Children[0].W)
	}
	if tree.Children[1].W != 150 || tree.Children[2].X != 100+10+150+10 {
		t.Fatalf("flex layout wrong: w=%v x=%v", tree.Children[1].W, tree.Children[2].X)
	}
}

func TestTableColumnWidths(t *testing.T) {
	e := NewEngine(WithWidth(400), WithMargins(Margins{}))
	root := parseRoot(t, `<div id="root"><table><tr><th width="25%">Name</th><td>Jane</td></tr></table></div>`)
	tree, err := e.Measure(root, nil)
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	row := tree.Children[0].Children[0]
	if len(row.Children) != 2 {
		t.Fatalf("expected 2 cells, got %d", len(row.Children))
	}
	if row.Children[0].W != 100 || row.Children[1].W != 300 {
		t.Fatalf("cell widths %v/%v", row.Children[0].W, row.Children[1].W)
	}
	if !row.Children[0].Lines[0].Words[0].Style.Bold {
		t.Fatalf("th text must be bold")
	}
}

func TestImageSizingAndPlaceholder(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 200, 100))
	var loaded *html.Node
	imgs := ImageFunc(func(n *html.Node) (image.Image, bool) {
		if n == loaded {
			return src, true
		}
		return nil, false
	})

	e := NewEngine(WithWidth(500), WithMargins(Margins{}))
	root := parseRoot(t, `<div id="root"><img id="a" width="100"><img id="b"></div>`)
	loaded = root.FirstChild

	tree, err := e.Measure(root, imgs)
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	a, b := tree.Children[0], tree.Children[1]
	if a.Broken || a.W != 100 || a.H != 50 {
		t.Fatalf("loaded image box %+v", a)
	}
	if !b.Broken || b.W != placeholderSize || b.H != placeholderSize {
		t.Fatalf("broken image box %+v", b)
	}
}

func TestRenderIsOpaqueAndScaled(t *testing.T) {
	e := NewEngine(WithWidth(120), WithScale(2), WithBackground(color.Transparent))
	root := parseRoot(t, `<div id="root"><p>Hi</p></div>`)
	img, err := e.Render(context.Background(), root, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if img.Bounds().Dx() != 240 {
		t.Fatalf("width = %d, want 240", img.Bounds().Dx())
	}
	for _, pt := range []image.Point{{0, 0}, {239, img.Bounds().Dy() - 1}} {
		if _, _, _, a := img.At(pt.X, pt.Y).RGBA(); a != 0xffff {
			t.Fatalf("pixel %v not opaque", pt)
		}
	}
}

func TestRenderPaintsBackgroundAndText(t *testing.T) {
	sheet := Stylesheet{"banner": {Background: color.RGBA{R: 0x2e, G: 0x7d, B: 0x32, A: 0xff}, Padding: 8, FontSize: 32, Color: color.White}}
	e := NewEngine(WithStylesheet(sheet), WithWidth(200), WithScale(1), WithBackground(color.Black), WithMargins(Margins{}))
	root := parseRoot(t, `<div id="root"><div class="banner">VERIFIED</div></div>`)
	img, err := e.Render(context.Background(), root, nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := img.RGBAAt(2, 2); got != (color.RGBA{R: 0x2e, G: 0x7d, B: 0x32, A: 0xff}) {
		t.Fatalf("banner background = %v", got)
	}
	white := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y) == (color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}) {
				white++
			}
		}
	}
	if white == 0 {
		t.Fatalf("expected white text pixels on the banner")
	}
}

func TestRenderHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	root := parseRoot(t, `<div id="root">x</div>`)
	if _, err := NewEngine().Render(ctx, root, nil); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestMeasureNilRoot(t *testing.T) {
	if _, err := NewEngine().Measure(nil, nil); err == nil {
		t.Fatalf("expected error for nil root")
	}
}
