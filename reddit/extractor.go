package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"trendbot/config"
	"trendbot/fetcher"
	"trendbot/logging"
	"trendbot/normalize"
	"trendbot/ratelimit"
	"trendbot/types"
)

const (
	// MaxTopComments is how many top-level comments are kept, by score.
	MaxTopComments = 20
	// MaxCommentDepth is how many reply levels below a top-level comment are walked.
	MaxCommentDepth = 2
)

var listings = map[string]bool{"hot": true, "top": true, "new": true, "rising": true}

// Fetcher is the subset of fetcher.Fetcher the Reddit extractor needs.
type Fetcher interface {
	Fetch(ctx context.Context, locator string, opts fetcher.Options) (*fetcher.Response, error)
}

// Quota counts a request against its host's window.
type Quota interface {
	Check(ctx context.Context, locator string) (ratelimit.Decision, error)
}

// Config tunes subreddit discovery.
type Config struct {
	Listing  string
	Limit    int
	TopPosts int
	// Spacing separates consecutive post scrapes during discovery.
	Spacing time.Duration
	// Quota, when set, is charged for every post fetched during discovery.
	// The listing request is charged by the caller that admitted the job.
	Quota Quota
}

// Extractor reads Reddit posts and subreddits through the public JSON endpoints.
type Extractor struct {
	fetcher Fetcher
	cfg     Config
	spacing *rate.Limiter
	logger  *slog.Logger
	now     func() time.Time
}

func New(f Fetcher, cfg Config, logger *slog.Logger) *Extractor {
	if !listings[cfg.Listing] {
		cfg.Listing = config.DefaultRedditListing
	}
	if cfg.Limit <= 0 {
		cfg.Limit = config.DefaultRedditLimit
	}
	if cfg.TopPosts <= 0 {
		cfg.TopPosts = config.DefaultRedditTopPosts
	}

	limit := rate.Inf
	if cfg.Spacing > 0 {
		limit = rate.Every(cfg.Spacing)
	}

	return &Extractor{
		fetcher: f,
		cfg:     cfg,
		spacing: rate.NewLimiter(limit, 1),
		logger:  logging.OrDiscard(logger),
		now:     time.Now,
	}
}

// IsRedditHost reports whether host belongs to reddit.com.
func IsRedditHost(host string) bool {
	host = strings.ToLower(host)
	return host == "reddit.com" || strings.HasSuffix(host, ".reddit.com")
}

// SubredditName returns the subreddit of a /r/<name> URL that is not a
// post permalink.
func SubredditName(u *url.URL) (string, bool) {
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "r" || parts[1] == "" {
		return "", false
	}
	if len(parts) > 2 && parts[2] == "comments" {
		return "", false
	}
	return parts[1], true
}

// Extract dispatches to post or subreddit extraction by URL shape.
func (e *Extractor) Extract(ctx context.Context, locator string) (*types.NormalizedContent, error) {
	u, err := fetcher.ParseLocator(locator)
	if err != nil {
		return nil, err
	}
	if name, ok := SubredditName(u); ok {
		return e.ExtractSubreddit(ctx, locator, name)
	}
	return e.ExtractPost(ctx, locator)
}

// ExtractPost reads a single post with its top comments.
func (e *Extractor) ExtractPost(ctx context.Context, locator string) (*types.NormalizedContent, error) {
	post, comments, fetchedAt, err := e.fetchPost(ctx, locator)
	if err != nil {
		return nil, err
	}

	draft := types.Draft{
		Title:    post.Title,
		Body:     renderPost(post, comments),
		Author:   post.Author,
		Metadata: types.Metadata{Subreddit: post.Subreddit},
	}
	if post.CreatedUTC > 0 {
		draft.PublishedAt = time.Unix(int64(post.CreatedUTC), 0).UTC()
	}
	return normalize.Finalize(locator, draft, fetchedAt)
}

// ExtractSubreddit ranks the listing, scrapes the best posts one at a time
// and combines them into one content labelled with the subreddit.
func (e *Extractor) ExtractSubreddit(ctx context.Context, locator, name string) (*types.NormalizedContent, error) {
	u, err := fetcher.ParseLocator(locator)
	if err != nil {
		return nil, err
	}

	listURL := fmt.Sprintf("%s://%s/r/%s/%s.json?limit=%d&raw_json=1", u.Scheme, u.Host, name, e.cfg.Listing, e.cfg.Limit)
	resp, err := e.fetcher.Fetch(ctx, listURL, fetcher.Options{Accept: fetcher.AcceptJSON})
	if err != nil {
		return nil, types.Relabel(err, locator, types.NetworkFailure)
	}

	var l listing
	if err := json.Unmarshal(resp.Body, &l); err != nil {
		return nil, types.Fail(types.ParseFailure, locator, "decode subreddit listing: %v", err)
	}

	top := RankPosts(l.posts(), e.cfg.TopPosts, e.now())
	e.logger.Info("subreddit discovery", "subreddit", name, "listing", e.cfg.Listing, "candidates", len(l.Data.Children), "selected", len(top))

	var (
		sections []string
		lastErr  error
		scraped  int
	)
	for _, p := range top {
		if p.Permalink == "" {
			continue
		}
		if err := e.spacing.Wait(ctx); err != nil {
			lastErr = err
			break
		}

		postURL := u.Scheme + "://" + u.Host + p.Permalink
		if err := e.admit(ctx, postURL); err != nil {
			lastErr = err
			e.logger.Warn("subreddit post skipped", "subreddit", name, "post", postURL, "err", err)
			continue
		}
		post, comments, _, err := e.fetchPost(ctx, postURL)
		if err != nil {
			lastErr = err
			e.logger.Warn("subreddit post failed", "subreddit", name, "post", postURL, "err", err)
			continue
		}

		section := renderPost(post, comments)
		if total(sections)+len(section) > normalize.MaxLength {
			break
		}
		sections = append(sections, section)
		scraped++
	}

	if scraped == 0 {
		if lastErr != nil {
			kind := types.AsFailure(lastErr, locator, types.NetworkFailure).Kind
			if kind != types.RateLimited {
				kind = types.NetworkFailure
			}
			return nil, types.Fail(kind, locator, "no posts scraped from r/%s: %v", name, lastErr)
		}
		return nil, types.Fail(types.ParseFailure, locator, "no posts scraped from r/%s", name)
	}

	draft := types.Draft{
		Title:    "r/" + name,
		Body:     strings.Join(sections, "\n\n---\n\n"),
		Metadata: types.Metadata{Subreddit: name},
	}
	return normalize.Finalize(locator, draft, resp.FetchedAt)
}

func (e *Extractor) admit(ctx context.Context, locator string) error {
	if e.cfg.Quota == nil {
		return nil
	}
	d, err := e.cfg.Quota.Check(ctx, locator)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return types.Fail(types.RateLimited, locator, "rate limit exceeded, resets at %s", d.ResetAt.Format("15:04:05"))
	}
	return nil
}

func (e *Extractor) fetchPost(ctx context.Context, locator string) (Post, []Comment, time.Time, error) {
	u, err := fetcher.ParseLocator(locator)
	if err != nil {
		return Post{}, nil, time.Time{}, err
	}

	resp, err := e.fetcher.Fetch(ctx, JSONURL(u), fetcher.Options{Accept: fetcher.AcceptJSON})
	if err != nil {
		return Post{}, nil, time.Time{}, types.Relabel(err, locator, types.NetworkFailure)
	}

	var pair []listing
	if err := json.Unmarshal(resp.Body, &pair); err != nil {
		return Post{}, nil, time.Time{}, types.Fail(types.ParseFailure, locator, "decode post: %v", err)
	}
	if len(pair) == 0 {
		return Post{}, nil, time.Time{}, types.Fail(types.ParseFailure, locator, "empty post response")
	}
	posts := pair[0].posts()
	if len(posts) == 0 {
		return Post{}, nil, time.Time{}, types.Fail(types.ParseFailure, locator, "post not found in response")
	}

	var comments []Comment
	if len(pair) > 1 {
		comments = pair[1].comments()
	}
	return posts[0], comments, resp.FetchedAt, nil
}

// JSONURL rewrites a post permalink to its JSON endpoint.
func JSONURL(u *url.URL) string {
	cp := *u
	cp.Path = strings.TrimSuffix(cp.Path, "/")
	if !strings.HasSuffix(cp.Path, ".json") {
		cp.Path += ".json"
	}
	cp.RawQuery = "raw_json=1"
	cp.Fragment = ""
	return cp.String()
}

func renderPost(p Post, comments []Comment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", p.Title)
	if p.Subreddit != "" {
		fmt.Fprintf(&b, "Subreddit: r/%s\n", p.Subreddit)
	}
	if p.Author != "" {
		fmt.Fprintf(&b, "Author: u/%s\n", p.Author)
	}
	fmt.Fprintf(&b, "Score: %d | Comments: %d | Upvote ratio: %.0f%%\n", p.Score, p.NumComments, p.UpvoteRatio*100)
	if p.CreatedUTC > 0 {
		fmt.Fprintf(&b, "Posted: %s\n", time.Unix(int64(p.CreatedUTC), 0).UTC().Format(time.RFC3339))
	}

	if text := strings.TrimSpace(p.Selftext); text != "" {
		b.WriteString("\n")
		b.WriteString(text)
		b.WriteString("\n")
	}

	if lines := WalkComments(TopComments(comments, MaxTopComments), MaxCommentDepth); len(lines) > 0 {
		b.WriteString("\nTop comments:\n\n")
		b.WriteString(strings.Join(lines, "\n\n"))
	}
	return b.String()
}

// TopComments returns the n highest scoring comments.
func TopComments(comments []Comment, n int) []Comment {
	sorted := make([]Comment, len(comments))
	copy(sorted, comments)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// WalkComments renders comments depth first using an explicit stack.
// Replies deeper than maxDepth levels below the roots are not visited.
func WalkComments(roots []Comment, maxDepth int) []string {
	type frame struct {
		c     Comment
		depth int
	}

	stack := make([]frame, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{c: roots[i]})
	}

	var out []string
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		body := strings.TrimSpace(f.c.Body)
		if body == "" || body == "[deleted]" || body == "[removed]" {
			continue
		}
		out = append(out, fmt.Sprintf("%s[Comment by u/%s (%d points)]\n%s", strings.Repeat("> ", f.depth), f.c.Author, f.c.Score, body))

		if f.depth >= maxDepth {
			continue
		}
		replies := f.c.replies()
		for i := len(replies) - 1; i >= 0; i-- {
			stack = append(stack, frame{c: replies[i], depth: f.depth + 1})
		}
	}
	return out
}

func total(sections []string) int {
	n := 0
	for _, s := range sections {
		n += len(s) + 7
	}
	return n
}
