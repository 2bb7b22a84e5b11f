package orchestrator

import (
	"context"
	"net/url"
	"strings"

	"trendbot/reddit"
	"trendbot/types"
)

// URLExtractor turns a locator into normalized content.
type URLExtractor interface {
	Extract(ctx context.Context, locator string) (*types.NormalizedContent, error)
}

// EmailExtractor turns an already-received newsletter into normalized content.
type EmailExtractor interface {
	Extract(ctx context.Context, d types.SourceDescriptor) (*types.NormalizedContent, error)
}

// Router picks the format extractor for a job.
type Router struct {
	HTML       URLExtractor
	Feed       URLExtractor
	Reddit     URLExtractor
	Newsletter EmailExtractor
}

// Classify resolves the extractor kind of a job. An explicit kind wins;
// otherwise the locator's host, path and query decide.
func Classify(d types.SourceDescriptor) types.SourceKind {
	if d.Email != nil {
		return types.KindNewsletter
	}
	if d.Kind != types.KindAuto {
		return d.Kind
	}

	u, err := url.Parse(strings.TrimSpace(d.Locator))
	if err != nil || u.Host == "" {
		return types.KindHTML
	}
	if reddit.IsRedditHost(u.Hostname()) {
		if _, ok := reddit.SubredditName(u); ok {
			return types.KindSubreddit
		}
		return types.KindReddit
	}
	if IsFeedURL(u) {
		return types.KindFeed
	}
	return types.KindHTML
}

// IsFeedURL reports whether a URL looks like an RSS or Atom feed:
// a /feed or /rss path segment, a .rss or .xml file, or ?feed=rss|atom.
func IsFeedURL(u *url.URL) bool {
	path := strings.ToLower(strings.TrimSuffix(u.Path, "/"))
	if strings.HasSuffix(path, ".rss") || strings.HasSuffix(path, ".xml") {
		return true
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "feed" || seg == "rss" {
			return true
		}
	}
	switch strings.ToLower(u.Query().Get("feed")) {
	case "rss", "atom":
		return true
	}
	return false
}

// Extract runs the extractor selected by Classify.
func (r *Router) Extract(ctx context.Context, d types.SourceDescriptor) (*types.NormalizedContent, error) {
	var ex URLExtractor
	switch kind := Classify(d); kind {
	case types.KindNewsletter:
		if r.Newsletter == nil {
			return nil, types.Fail(types.InvalidLocator, d.Locator, "newsletter sources are not enabled")
		}
		return r.Newsletter.Extract(ctx, d)
	case types.KindReddit, types.KindSubreddit:
		ex = r.Reddit
	case types.KindFeed:
		ex = r.Feed
	default:
		ex = r.HTML
	}
	if ex == nil {
		return nil, types.Fail(types.InvalidLocator, d.Locator, "no extractor for %s sources", Classify(d))
	}
	return ex.Extract(ctx, d.Locator)
}
