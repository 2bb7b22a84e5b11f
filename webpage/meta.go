package webpage

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
)

type pageMeta struct {
	ogTitle       string
	ogDescription string
	ogImage       string
	metaDesc      string
	published     string
	author        string
}

func (m pageMeta) description() string {
	if m.ogDescription != "" {
		return m.ogDescription
	}
	return m.metaDesc
}

func readMeta(doc *goquery.Document) pageMeta {
	var m pageMeta
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		key, _ := s.Attr("property")
		if key == "" {
			key, _ = s.Attr("name")
		}
		content, _ := s.Attr("content")
		content = strings.TrimSpace(content)
		if content == "" {
			return
		}

		switch strings.ToLower(key) {
		case "og:title":
			setOnce(&m.ogTitle, content)
		case "og:description":
			setOnce(&m.ogDescription, content)
		case "og:image":
			setOnce(&m.ogImage, content)
		case "description":
			setOnce(&m.metaDesc, content)
		case "article:published_time":
			setOnce(&m.published, content)
		case "author":
			setOnce(&m.author, content)
		}
	})
	return m
}

func setOnce(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func pickTitle(doc *goquery.Document, m pageMeta) string {
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		return strings.Join(strings.Fields(h1), " ")
	}
	if m.ogTitle != "" {
		return m.ogTitle
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func pickAuthor(doc *goquery.Document, m pageMeta, ld linkedData) string {
	if m.author != "" {
		return m.author
	}
	if a := strings.TrimSpace(doc.Find(`a[rel="author"]`).First().Text()); a != "" {
		return a
	}
	return ld.author
}

func pickPublished(doc *goquery.Document, m pageMeta, ld linkedData) time.Time {
	if t, ok := parseDate(m.published); ok {
		return t
	}
	if dt, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
		if t, ok := parseDate(dt); ok {
			return t
		}
	}
	if t, ok := parseDate(ld.datePublished); ok {
		return t
	}
	return time.Time{}
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// linkedData holds the JSON-LD fields the extractor uses.
type linkedData struct {
	datePublished string
	author        string
}

func readJSONLD(doc *goquery.Document) linkedData {
	var ld linkedData
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var v any
		if err := json.Unmarshal([]byte(s.Text()), &v); err != nil {
			return
		}
		visitLD(v, &ld)
	})
	return ld
}

func visitLD(v any, ld *linkedData) {
	switch node := v.(type) {
	case []any:
		for _, item := range node {
			visitLD(item, ld)
		}
	case map[string]any:
		if s, ok := node["datePublished"].(string); ok && ld.datePublished == "" {
			ld.datePublished = s
		}
		if ld.author == "" {
			ld.author = ldAuthor(node["author"])
		}
		if graph, ok := node["@graph"]; ok {
			visitLD(graph, ld)
		}
	}
}

func ldAuthor(v any) string {
	switch a := v.(type) {
	case string:
		return strings.TrimSpace(a)
	case map[string]any:
		if name, ok := a["name"].(string); ok {
			return strings.TrimSpace(name)
		}
	case []any:
		var names []string
		for _, item := range a {
			if n := ldAuthor(item); n != "" {
				names = append(names, n)
			}
		}
		return strings.Join(names, ", ")
	}
	return ""
}
