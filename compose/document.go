package compose

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// RootID is the id of the element the render surface mounts.
const RootID = "certificate-root"

// Document is a composed certificate. Body is a detached container element
// holding the certificate root.
type Document struct {
	Title string
	Body  *html.Node
}

// Root returns the #certificate-root element, or nil when absent.
func (d *Document) Root() *html.Node {
	if d == nil || d.Body == nil {
		return nil
	}
	return FindByID(d.Body, RootID)
}

// Region returns the element marked data-region=name, or nil.
func (d *Document) Region(name string) *html.Node {
	if d == nil || d.Body == nil {
		return nil
	}
	return find(d.Body, func(n *html.Node) bool { return Attr(n, "data-region") == name })
}

// Regions lists the data-region names in document order.
func (d *Document) Regions() []string {
	var out []string
	if d == nil || d.Body == nil {
		return out
	}
	walk(d.Body, func(n *html.Node) {
		if r := Attr(n, "data-region"); r != "" {
			out = append(out, r)
		}
	})
	return out
}

// Images returns every <img> element in document order.
func (d *Document) Images() []*html.Node {
	if d == nil || d.Body == nil {
		return nil
	}
	return Images(d.Body)
}

// Text returns the whitespace-normalized text content.
func (d *Document) Text() string {
	if d == nil || d.Body == nil {
		return ""
	}
	return Text(d.Body)
}

// Clone returns a deep copy that shares no nodes with d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{Title: d.Title}
	if d.Body != nil {
		out.Body = CloneNode(d.Body)
	}
	return out
}

// HTML renders a standalone page with the stylesheet inlined. Images are
// data URIs so the page needs no network access.
func (d *Document) HTML() (string, error) {
	var body bytes.Buffer
	if d != nil && d.Body != nil {
		if err := html.Render(&body, d.Body); err != nil {
			return "", fmt.Errorf("render document: %w", err)
		}
	}
	title := ""
	if d != nil {
		title = d.Title
	}
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(title))
	b.WriteString("<style>\n")
	b.WriteString(baseCSS)
	b.WriteString(Stylesheet().CSS())
	b.WriteString("</style>\n</head>\n<body>\n")
	b.Write(body.Bytes())
	b.WriteString("\n</body>\n</html>\n")
	return b.String(), nil
}

const baseCSS = `body { margin: 0; background: #f5f5f5; font-family: "Go", Helvetica, Arial, sans-serif; color: #1a1a1a; }
.certificate-page { max-width: 800px; margin: 16px auto; }
h1, h2, h3, p { margin: 0; }
table { width: 100%; border-collapse: collapse; }
th { text-align: left; }
img { display: block; }
`

// FindByID returns the first element under n with the given id.
func FindByID(n *html.Node, id string) *html.Node {
	return find(n, func(n *html.Node) bool { return Attr(n, "id") == id })
}

// Images returns the <img> elements under n.
func Images(n *html.Node) []*html.Node {
	var out []*html.Node
	walk(n, func(c *html.Node) {
		if c.DataAtom == atom.Img {
			out = append(out, c)
		}
	})
	return out
}

// Text returns the text under n with whitespace runs collapsed.
func Text(n *html.Node) string {
	var parts []string
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		if n.Type == html.TextNode {
			parts = append(parts, n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
			if c.Type == html.ElementNode && !inlineAtoms[c.DataAtom] {
				parts = append(parts, " ")
			}
		}
	}
	rec(n)
	return strings.Join(strings.Fields(strings.Join(parts, "")), " ")
}

var inlineAtoms = map[atom.Atom]bool{
	atom.Strong: true, atom.B: true, atom.Em: true, atom.I: true,
	atom.Span: true, atom.A: true, atom.Small: true, atom.Code: true,
}

// Attr returns the value of key on n.
func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HasClass reports whether class is among n's classes.
func HasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(Attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// CloneNode deep-copies n and its descendants. The copy has no parent.
func CloneNode(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(CloneNode(child))
	}
	return c
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := find(c, match); f != nil {
			return f
		}
	}
	return nil
}

func walk(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}
