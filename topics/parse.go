package topics

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"trendbot/types"
)

// FallbackScore is assigned to topics recovered from non-JSON replies.
const FallbackScore = 50

var (
	codeFence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
	// "1. Title: description", "- **Title** - description"
	topicLine = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s+(?:\*\*)?([^:*\n]{3,120}?)(?:\*\*)?\s*(?::|\s-|\s–)\s+(.{10,})$`)
)

// Parse reads topics from a generation reply. It accepts a JSON array, an
// array embedded in prose, or an object with a "topics" array. When no JSON
// can be found it falls back to reading numbered or bulleted lines, which
// is lossy. The second result reports whether the fallback was used.
func Parse(text string) ([]types.ExtractedTopic, bool) {
	text = strings.TrimSpace(text)
	if m := codeFence.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	if items, ok := findArray(text); ok {
		return validate(items), false
	}
	return fallback(text), true
}

func findArray(text string) ([]json.RawMessage, bool) {
	var obj struct {
		Topics []json.RawMessage `json:"topics"`
	}
	if strings.HasPrefix(text, "{") {
		if err := json.Unmarshal([]byte(text), &obj); err == nil && obj.Topics != nil {
			return obj.Topics, true
		}
	}

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '[':
			var items []json.RawMessage
			if err := json.NewDecoder(strings.NewReader(text[i:])).Decode(&items); err == nil && (hasObject(items) || i == 0 && len(items) == 0) {
				return items, true
			}
		case '{':
			if err := json.NewDecoder(strings.NewReader(text[i:])).Decode(&obj); err == nil && obj.Topics != nil {
				return obj.Topics, true
			}
		}
	}
	return nil, false
}

// hasObject tells a topic array from a citation such as "[1]" in prose.
func hasObject(items []json.RawMessage) bool {
	for _, raw := range items {
		if b := bytes.TrimSpace(raw); len(b) > 0 && b[0] == '{' {
			return true
		}
	}
	return false
}

func validate(items []json.RawMessage) []types.ExtractedTopic {
	out := make([]types.ExtractedTopic, 0, len(items))
	for _, raw := range items {
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			continue
		}

		title, ok := m["title"].(string)
		title = strings.TrimSpace(title)
		if !ok || title == "" {
			continue
		}
		score, ok := number(m["trendingScore"])
		if !ok {
			continue
		}
		score = ClampScore(score)
		if score < types.MinTrendingScore {
			continue
		}

		out = append(out, types.ExtractedTopic{
			Title:         title,
			Description:   text(m["description"]),
			Category:      strings.ToLower(text(m["category"])),
			TrendingScore: score,
			Relevance:     text(m["relevance"]),
		})
	}
	return out
}

// ClampScore bounds a score to [0,100].
func ClampScore(score int) int {
	return min(max(score, 0), types.MaxTrendingScore)
}

// number reads a score given as a JSON number or numeric string. The value
// is clamped before conversion so out-of-range floats cannot wrap.
func number(v any) (int, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	f = math.Max(0, math.Min(types.MaxTrendingScore, f))
	return int(math.Round(f)), true
}

func text(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	}
	return ""
}

func fallback(text string) []types.ExtractedTopic {
	var out []types.ExtractedTopic
	for _, line := range strings.Split(text, "\n") {
		m := topicLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		out = append(out, types.ExtractedTopic{
			Title:         strings.TrimSpace(m[1]),
			Description:   strings.TrimSpace(m[2]),
			Category:      "general",
			TrendingScore: FallbackScore,
		})
	}
	return out
}
