package normalize

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"trendbot/types"
)

// Quality gate bounds.
const (
	MinLength     = 100
	MaxLength     = 50000
	MinWords      = 10
	MinAlphaRatio = 0.30
	ExcerptLength = 300
)

// Validate applies the quality gate to a cleaned body. A rejection is a
// QualityRejected failure whose reason names the measured value.
func Validate(locator, body string) error {
	n := utf8.RuneCountInString(body)
	switch {
	case n < MinLength:
		return types.Fail(types.QualityRejected, locator, "content too short: %d characters (minimum %d)", n, MinLength)
	case n > MaxLength:
		return types.Fail(types.QualityRejected, locator, "content too long: %d characters (maximum %d)", n, MaxLength)
	}

	if words := len(strings.Fields(body)); words < MinWords {
		return types.Fail(types.QualityRejected, locator, "too few words: %d (minimum %d)", words, MinWords)
	}

	if ratio := AlphaRatio(body); ratio < MinAlphaRatio {
		return types.Fail(types.QualityRejected, locator, "low text ratio: %.2f (minimum %.2f)", ratio, MinAlphaRatio)
	}
	return nil
}

// AlphaRatio is the share of letters among the non-whitespace characters of s.
func AlphaRatio(s string) float64 {
	total, letters := 0, 0
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) {
			letters++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(letters) / float64(total)
}

// Excerpt prefers an explicit description and otherwise takes the first
// ExcerptLength characters of the body.
func Excerpt(explicit, body string) string {
	if e := strings.TrimSpace(explicit); e != "" {
		return Clean(e)
	}
	if utf8.RuneCountInString(body) <= ExcerptLength {
		return body
	}
	runes := []rune(body)
	return strings.TrimSpace(string(runes[:ExcerptLength]))
}

// Finalize cleans and validates a draft and builds the normalized content.
func Finalize(locator string, d types.Draft, fetchedAt time.Time) (*types.NormalizedContent, error) {
	body := Clean(d.Body)
	if err := Validate(locator, body); err != nil {
		return nil, err
	}

	explicit := d.Excerpt
	if explicit == "" {
		explicit = d.Metadata.OGDescription
	}
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}

	return &types.NormalizedContent{
		Locator:     locator,
		Title:       strings.TrimSpace(d.Title),
		Body:        body,
		Excerpt:     Excerpt(explicit, body),
		Author:      strings.TrimSpace(d.Author),
		PublishedAt: d.PublishedAt,
		Metadata:    d.Metadata,
		FetchedAt:   fetchedAt,
		Length:      utf8.RuneCountInString(body),
		Items:       d.Items,
	}, nil
}
