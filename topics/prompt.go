package topics

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"trendbot/types"
)

const instructions = `You are a trend analyst. Read the sources below and identify between 5 and 10 distinct topics that are trending right now and would make engaging social media posts.

Respond with a JSON array only, no prose. Each element must have:
- "title": short topic title (string)
- "description": one or two sentences explaining the topic (string)
- "category": a single word category such as technology, business, science, culture (string)
- "trendingScore": how strongly the topic is trending, integer from 0 to 100
- "relevance": why this topic matters to the audience (string)

Sources:
`

// BuildPrompt packs contents into a prompt whose source section stays
// within budget characters. Sources that no longer fit are left out; the
// number included is returned. A single first source larger than the
// budget is truncated rather than dropped.
func BuildPrompt(contents []*types.NormalizedContent, budget int) (string, int) {
	var (
		b        strings.Builder
		used     int
		included int
	)
	b.WriteString(instructions)

	for i, c := range contents {
		section := formatSource(i+1, c)
		n := utf8.RuneCountInString(section)

		if used+n > budget {
			if included > 0 {
				break
			}
			section = string([]rune(section)[:budget])
			n = budget
		}

		b.WriteString(section)
		used += n
		included++
	}
	return b.String(), included
}

func formatSource(n int, c *types.NormalizedContent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n--- Source %d ---\n", n)
	if c.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", c.Title)
	}
	fmt.Fprintf(&b, "URL: %s\n", c.Locator)
	if c.Metadata.Subreddit != "" {
		fmt.Fprintf(&b, "Subreddit: r/%s\n", c.Metadata.Subreddit)
	}
	b.WriteString("\n")
	b.WriteString(c.Body)
	b.WriteString("\n")
	return b.String()
}
