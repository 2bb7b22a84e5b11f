package types

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// SourceKind selects the format extractor for a job.
type SourceKind string

const (
	// KindAuto dispatches by URL shape.
	KindAuto       SourceKind = ""
	KindHTML       SourceKind = "html"
	KindFeed       SourceKind = "feed"
	KindReddit     SourceKind = "reddit"
	KindSubreddit  SourceKind = "subreddit"
	KindNewsletter SourceKind = "newsletter"
)

// Email is a newsletter that has already been received and parsed upstream.
type Email struct {
	Subject  string    `json:"subject"`
	From     string    `json:"from"`
	Date     time.Time `json:"date"`
	HTMLBody string    `json:"html_body"`
}

// SourceDescriptor identifies one fetch job. It is created by the caller and
// never modified by the pipeline.
type SourceDescriptor struct {
	Locator  string     `json:"locator"`
	Kind     SourceKind `json:"kind,omitempty"`
	SourceID string     `json:"source_id,omitempty"`
	Email    *Email     `json:"email,omitempty"`
}

// Key returns the identifier used for caching and attempt tracking.
func (d SourceDescriptor) Key() string {
	if d.SourceID != "" {
		return d.SourceID
	}
	return GenerateID(d.Locator)
}

// Metadata holds optional page, feed and email properties.
type Metadata struct {
	OGTitle       string   `json:"og_title,omitempty"`
	OGDescription string   `json:"og_description,omitempty"`
	OGImage       string   `json:"og_image,omitempty"`
	FeedTitle     string   `json:"feed_title,omitempty"`
	Subreddit     string   `json:"subreddit,omitempty"`
	EmailLinks    []string `json:"email_links,omitempty"`
}

// FeedItem is a single accepted entry of a feed.
type FeedItem struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Content     string    `json:"content"`
	Author      string    `json:"author,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
}

// NormalizedContent is the single representation every extractor produces.
// Instances are only built by the normalize package and are not mutated
// afterwards.
type NormalizedContent struct {
	Locator     string     `json:"locator"`
	Title       string     `json:"title,omitempty"`
	Body        string     `json:"body"`
	Excerpt     string     `json:"excerpt"`
	Author      string     `json:"author,omitempty"`
	PublishedAt time.Time  `json:"published_at,omitempty"`
	Metadata    Metadata   `json:"metadata"`
	FetchedAt   time.Time  `json:"fetched_at"`
	Length      int        `json:"length"`
	Items       []FeedItem `json:"items,omitempty"`
}

// Draft is what a format extractor hands to the normalizer.
type Draft struct {
	Title       string
	Body        string
	Excerpt     string
	Author      string
	PublishedAt time.Time
	Metadata    Metadata
	Items       []FeedItem
}

// GenerateID creates a short stable ID from a locator.
func GenerateID(locator string) string {
	hash := sha256.Sum256([]byte(locator))
	return hex.EncodeToString(hash[:])[:16]
}
