package normalize

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	blockTags = map[string]bool{
		"address": true, "article": true, "aside": true, "blockquote": true,
		"dd": true, "div": true, "dl": true, "dt": true, "figcaption": true,
		"figure": true, "footer": true, "h1": true, "h2": true, "h3": true,
		"h4": true, "h5": true, "h6": true, "header": true, "hr": true,
		"li": true, "main": true, "nav": true, "ol": true, "p": true,
		"pre": true, "section": true, "table": true, "td": true, "th": true,
		"tr": true, "ul": true,
	}

	skipTags = map[string]bool{
		"script": true, "style": true, "noscript": true, "template": true,
		"iframe": true, "svg": true, "head": true,
	}

	excessNewlines = regexp.MustCompile(`\n{3,}`)
)

// Text returns the readable text under sel. Block-level elements are
// separated by blank lines; whitespace inside a line is collapsed.
func Text(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		walk(n, &b)
	}
	return Clean(b.String())
}

// StripHTML parses an HTML fragment and returns its text.
func StripHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return Clean(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return Clean(fragment)
	}
	return Text(doc.Selection)
}

// Clean collapses runs of spaces and tabs within each line, trims lines,
// and reduces three or more consecutive newlines to two.
func Clean(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = strings.ReplaceAll(s, "\r\n", "\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	s = strings.Join(lines, "\n")
	s = excessNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func walk(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(collapse(n.Data))
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		if skipTags[n.Data] {
			return
		}
		if n.Data == "br" {
			b.WriteString("\n")
			return
		}
	}

	block := n.Type == html.ElementNode && blockTags[n.Data]
	if block {
		b.WriteString("\n\n")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, b)
	}
	if block {
		b.WriteString("\n\n")
	}
}

// collapse folds any whitespace run, newlines included, into one space.
func collapse(s string) string {
	if s == "" {
		return s
	}
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return " "
	}
	out := strings.Join(fields, " ")
	if isSpace(s[0]) {
		out = " " + out
	}
	if isSpace(s[len(s)-1]) {
		out += " "
	}
	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\t' || c == '\r' || c == '\f'
}
