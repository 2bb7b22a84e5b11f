package config

// SourcePresets maps friendly names to well-known sources
var SourcePresets = map[string]string{
	"hn":         "https://hnrss.org/frontpage",
	"tr":         "https://www.technologyreview.com/feed/",
	"verge":      "https://www.theverge.com/rss/index.xml",
	"technology": "https://www.reddit.com/r/technology/",
	"golang":     "https://www.reddit.com/r/golang/",
}

// ResolveSource resolves a source identifier to a locator
// If the input is a preset name, returns the corresponding URL
// Otherwise, returns the input as-is (assuming it's a direct URL)
func ResolveSource(input string) string {
	if url, exists := SourcePresets[input]; exists {
		return url
	}
	return input
}
