package internal

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// textLines walks the node tree and returns every non-empty text node,
// trimmed, in document order. Each text node counts as one line.
func textLines(nodes ...*html.Node) []string {
	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n == nil {
			return
		}
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				lines = append(lines, t)
			}
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return lines
}

// innerText approximates the browser's innerText: text nodes joined by newlines
func innerText(sel *goquery.Selection) string {
	return strings.Join(textLines(sel.Nodes...), "\n")
}

// textContent is the trimmed concatenation of all descendant text
func textContent(sel *goquery.Selection) string {
	return strings.TrimSpace(sel.Text())
}

func textLen(s string) int {
	return utf8.RuneCountInString(s)
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	if textLen(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
