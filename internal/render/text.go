package render

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Summary lengths used by the collapse code paths.
const (
	DefaultSummaryLength      = 200
	SummarizeRepliesMaxLength = 140
	CollapseTreeMaxLength     = 70
)

var blockElements = map[atom.Atom]bool{
	atom.P:          true,
	atom.Div:        true,
	atom.Br:         true,
	atom.Li:         true,
	atom.Ul:         true,
	atom.Ol:         true,
	atom.Pre:        true,
	atom.Blockquote: true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.H5:         true,
	atom.H6:         true,
	atom.Tr:         true,
	atom.Hr:         true,
}

// PlainText returns the text content of an HTML fragment. Block elements
// end a line, so the first line of the result is the first paragraph.
func PlainText(sanitizedHTML string) string {
	nodes, err := html.ParseFragment(strings.NewReader(sanitizedHTML), &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
	})
	if err != nil {
		// ParseFragment only fails on reader errors; a strings.Reader has none.
		return sanitizedHTML
	}

	var b strings.Builder
	for _, n := range nodes {
		writeText(&b, n)
	}
	return b.String()
}

func writeText(b *strings.Builder, node *html.Node) {
	switch node.Type {
	case html.TextNode:
		b.WriteString(node.Data)
		return
	case html.ElementNode:
		if node.DataAtom == atom.Script || node.DataAtom == atom.Style {
			return
		}
	}
	for child := range node.ChildNodes() {
		writeText(b, child)
	}
	if node.Type == html.ElementNode && blockElements[node.DataAtom] {
		endLine(b)
	}
}

func endLine(b *strings.Builder) {
	s := b.String()
	if s == "" || strings.HasSuffix(s, "\n") {
		return
	}
	b.WriteByte('\n')
}

// Summarize returns the first line of the post's text, cut hard at maxLength
// characters. A maxLength <= 0 means DefaultSummaryLength.
func Summarize(sanitizedHTML string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultSummaryLength
	}
	firstLine, _, _ := strings.Cut(PlainText(sanitizedHTML), "\n")
	runes := []rune(firstLine)
	if len(runes) > maxLength {
		runes = runes[:maxLength]
	}
	return string(runes)
}
