// Package extract turns small HTML fragments, such as search snippets and
// tweet bodies, into plain text.
package extract

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Text returns the readable text of an HTML fragment. Line breaks and block
// elements become newlines; script, style and similar containers are dropped.
// Input without markup is returned with whitespace normalized.
func Text(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return normalizeWhitespace(fragment)
	}
	var b strings.Builder
	for _, n := range nodes {
		collectText(&b, n)
	}
	return normalizeWhitespace(b.String())
}

// NodeText returns the normalized text below n.
func NodeText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	collectText(&b, n)
	return normalizeWhitespace(b.String())
}

func collectText(b *strings.Builder, n *html.Node) {
	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript", "iframe", "template":
			return
		case "br":
			b.WriteString("\n")
		case "p", "div", "li":
			b.WriteString("\n")
		case "img":
			// Emoji images carry their glyph in alt.
			for _, a := range n.Attr {
				if a.Key == "alt" && isShortAlt(a.Val) {
					b.WriteString(a.Val)
				}
			}
		}
	}
	if n.Type == html.TextNode {
		b.WriteString(strings.NewReplacer("\t", " ", "\r", " ").Replace(n.Data))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(b, c)
	}
	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "p", "div", "li":
			b.WriteString("\n")
		}
	}
}

func isShortAlt(s string) bool {
	return s != "" && len([]rune(s)) <= 4
}

func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		out = append(out, collapseSpaces(trimmed))
	}
	return strings.Join(out, "\n")
}

func collapseSpaces(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\u00a0' {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return b.String()
}
