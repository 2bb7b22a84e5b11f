package deduplication

import (
	"net/url"
	"strings"
)

// Tokens splits s into lowercased whitespace-separated tokens.
func Tokens(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Jaccard returns |A∩B| / |A∪B| over the token sets of a and b.
// Two empty inputs have similarity 0.
func Jaccard(a, b string) float64 {
	ta, tb := Tokens(a), Tokens(b)

	intersection := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// MinOverlapTokens is the smallest title, in tokens, that containment
// matching applies to.
const MinOverlapTokens = 3

// Overlap returns |A∩B| / min(|A|,|B|), the share of the shorter title's
// tokens found in the longer one. Titles shorter than MinOverlapTokens
// score 0.
func Overlap(a, b string) float64 {
	ta, tb := Tokens(a), Tokens(b)
	smaller := min(len(ta), len(tb))
	if smaller < MinOverlapTokens {
		return 0
	}
	intersection := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			intersection++
		}
	}
	return float64(intersection) / float64(smaller)
}

// Similarity is the larger of Jaccard and Overlap, so a title that restates
// a stored one with a few extra words still matches.
func Similarity(a, b string) float64 {
	return max(Jaccard(a, b), Overlap(a, b))
}

// SameTitle compares titles after trimming, lowercasing and collapsing whitespace.
func SameTitle(a, b string) bool {
	na := normalizeTitle(a)
	return na != "" && na == normalizeTitle(b)
}

func normalizeTitle(t string) string {
	t = strings.TrimSpace(t)
	t = strings.ToLower(t)
	// collapse multiple whitespace
	fields := strings.Fields(t)
	return strings.Join(fields, " ")
}

// CanonicalURL normalizes a link for equality checks: lowercased scheme and
// host, no fragment, no utm_*/fbclid/gclid parameters, no trailing slash.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		// fallback: lowercase and trim
		return strings.ToLower(raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || lk == "fbclid" || lk == "gclid" {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()

	return strings.TrimRight(u.String(), "/")
}
