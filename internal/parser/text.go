package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// StrippedText joins every text node under the first selected element, each
// trimmed of surrounding whitespace, with no separator.
func StrippedText(sel *goquery.Selection) string {
	if sel == nil || len(sel.Nodes) == 0 {
		return ""
	}
	var b strings.Builder
	appendStripped(sel.Nodes[0], &b)
	return b.String()
}

func appendStripped(node *html.Node, b *strings.Builder) {
	if node == nil {
		return
	}
	switch node.Type {
	case html.TextNode:
		b.WriteString(strings.TrimSpace(node.Data))
		return
	case html.CommentNode:
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		appendStripped(child, b)
	}
}
