package compose

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var md = goldmark.New(goldmark.WithExtensions(extension.Linkify))

// markdownNodes converts source to HTML nodes. Conversion failures degrade
// to a plain paragraph of the source text.
func markdownNodes(source string) []*html.Node {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err == nil {
		context := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
		if nodes, err := html.ParseFragment(&buf, context); err == nil {
			return nodes
		}
	}
	return []*html.Node{element(atom.P, "", text(strings.TrimSpace(source)))}
}
