package rssfeeds

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"trendbot/fetcher"
	"trendbot/logging"
	"trendbot/normalize"
	"trendbot/types"
)

// MaxItems caps how many entries of one feed are kept.
const MaxItems = 20

// Format is the detected syndication format.
type Format string

const (
	FormatRSS     Format = "rss"
	FormatAtom    Format = "atom"
	FormatUnknown Format = ""
)

// Fetcher is the subset of fetcher.Fetcher the feed extractor needs.
type Fetcher interface {
	Fetch(ctx context.Context, locator string, opts fetcher.Options) (*fetcher.Response, error)
}

// Extractor retrieves and parses RSS/Atom feeds.
type Extractor struct {
	fetcher Fetcher
	logger  *slog.Logger
}

func New(f Fetcher, logger *slog.Logger) *Extractor {
	return &Extractor{fetcher: f, logger: logging.OrDiscard(logger)}
}

// Extract fetches the feed without the politeness delay and aggregates its
// items into one normalized content.
func (e *Extractor) Extract(ctx context.Context, locator string) (*types.NormalizedContent, error) {
	resp, err := e.fetcher.Fetch(ctx, locator, fetcher.Options{SkipDelay: true, Accept: fetcher.AcceptFeed})
	if err != nil {
		return nil, err
	}
	content, err := Parse(locator, resp.Body, resp.FetchedAt)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("feed parsed", "locator", locator, "items", len(content.Items))
	return content, nil
}

// DetectFormat reports whether raw looks like RSS or Atom.
func DetectFormat(raw []byte) Format {
	switch gofeed.DetectFeedType(bytes.NewReader(raw)) {
	case gofeed.FeedTypeRSS:
		return FormatRSS
	case gofeed.FeedTypeAtom:
		return FormatAtom
	}

	head := strings.ToLower(string(raw[:min(len(raw), 2048)]))
	switch {
	case strings.Contains(head, "<rss") || strings.Contains(head, "<channel"):
		return FormatRSS
	case strings.Contains(head, "<feed"):
		return FormatAtom
	}
	return FormatUnknown
}

// Parse turns a feed document into normalized content. Items lacking a
// title or a link are dropped.
func Parse(locator string, raw []byte, fetchedAt time.Time) (*types.NormalizedContent, error) {
	if DetectFormat(raw) == FormatUnknown {
		return nil, types.Fail(types.ParseFailure, locator, "unrecognized feed format")
	}

	feed, err := gofeed.NewParser().ParseString(string(raw))
	if err != nil {
		return nil, types.Fail(types.ParseFailure, locator, "failed to parse feed: %v", err)
	}

	items := Items(feed, MaxItems)
	if len(items) == 0 {
		return nil, types.Fail(types.ParseFailure, locator, "feed has no items with both title and link")
	}

	var body strings.Builder
	kept := items[:0]
	for _, item := range items {
		block := item.Title
		if item.Content != "" {
			block += "\n\n" + item.Content
		}
		if body.Len()+len(block)+2 > normalize.MaxLength {
			break
		}
		if body.Len() > 0 {
			body.WriteString("\n\n")
		}
		body.WriteString(block)
		kept = append(kept, item)
	}

	title := strings.TrimSpace(feed.Title)
	draft := types.Draft{
		Title:    title,
		Body:     body.String(),
		Excerpt:  normalize.StripHTML(feed.Description),
		Metadata: types.Metadata{FeedTitle: title},
		Items:    kept,
	}
	if feed.Author != nil {
		draft.Author = feed.Author.Name
	}
	if len(kept) > 0 {
		draft.PublishedAt = kept[0].PublishedAt
	}
	if feed.Image != nil {
		draft.Metadata.OGImage = feed.Image.URL
	}

	return normalize.Finalize(locator, draft, fetchedAt)
}

// Items converts feed entries, keeping at most limit that carry a title
// and a link. Content prefers the full body over the summary.
func Items(feed *gofeed.Feed, limit int) []types.FeedItem {
	out := make([]types.FeedItem, 0, min(len(feed.Items), limit))
	for _, item := range feed.Items {
		if len(out) >= limit {
			break
		}
		title := strings.TrimSpace(normalize.StripHTML(item.Title))
		link := strings.TrimSpace(item.Link)
		if title == "" || link == "" {
			continue
		}

		content := item.Content
		if strings.TrimSpace(content) == "" {
			content = item.Description
		}

		var publishedAt time.Time
		if item.PublishedParsed != nil {
			publishedAt = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			publishedAt = *item.UpdatedParsed
		}

		author := ""
		if item.Author != nil {
			author = item.Author.Name
		} else if len(item.Authors) > 0 && item.Authors[0] != nil {
			author = item.Authors[0].Name
		}

		out = append(out, types.FeedItem{
			Title:       title,
			Link:        link,
			Content:     normalize.StripHTML(content),
			Author:      author,
			PublishedAt: publishedAt,
		})
	}
	return out
}

func (f Format) String() string {
	if f == FormatUnknown {
		return "unknown"
	}
	return string(f)
}
