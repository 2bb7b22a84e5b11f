package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trendbot/config"
	"trendbot/logging"
	"trendbot/types"
)

const (
	// MaxBodyBytes caps how much of a response body is read.
	MaxBodyBytes = 5 << 20

	UserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	AcceptHTML     = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	AcceptFeed     = "application/rss+xml,application/atom+xml,application/xml;q=0.9,text/xml;q=0.8,*/*;q=0.5"
	AcceptJSON     = "application/json,text/plain;q=0.9,*/*;q=0.5"
	AcceptLanguage = "en-US,en;q=0.9"
)

// Options tune a single fetch.
type Options struct {
	// SkipDelay disables the randomized pre-request pause (feeds).
	SkipDelay bool
	// Accept overrides the default HTML Accept header.
	Accept string
}

// Response is a successfully fetched document.
type Response struct {
	Locator     string
	FinalURL    string
	Status      int
	ContentType string
	Body        []byte
	FetchedAt   time.Time
}

// Fetcher retrieves raw documents over HTTP with browser-like headers,
// a per-request timeout and polite pacing.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
	pacer   *Pacer
	robots  *RobotsPolicy
	logger  *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithTimeout sets the per-fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithPacer sets the pre-request delay policy.
func WithPacer(p *Pacer) Option {
	return func(f *Fetcher) { f.pacer = p }
}

// WithRobots enables robots.txt checks.
func WithRobots(r *RobotsPolicy) Option {
	return func(f *Fetcher) { f.robots = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = logging.OrDiscard(l) }
}

// New creates a Fetcher with a 30 second timeout and 2-5 second jitter.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  &http.Client{},
		timeout: config.DefaultFetchTimeout,
		pacer:   NewPacer(config.MinDelay, config.MaxDelay),
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves locator. Every error returned is a *types.Failure.
func (f *Fetcher) Fetch(ctx context.Context, locator string, opts Options) (*Response, error) {
	u, err := ParseLocator(locator)
	if err != nil {
		return nil, err
	}

	if f.robots != nil && !f.robots.Allowed(ctx, u) {
		return nil, types.Fail(types.NetworkFailure, locator, "blocked by robots.txt")
	}

	if !opts.SkipDelay && f.pacer != nil {
		f.pacer.Wait()
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, types.Fail(types.InvalidLocator, locator, "build request: %v", err)
	}
	accept := opts.Accept
	if accept == "" {
		accept = AcceptHTML
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", AcceptLanguage)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
			return nil, types.Fail(types.NetworkFailure, locator, "timeout")
		}
		return nil, types.Fail(types.NetworkFailure, locator, "request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fail := types.Fail(types.NetworkFailure, locator, "HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		fail.Status = resp.StatusCode
		return nil, fail
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, types.Fail(types.NetworkFailure, locator, "timeout")
		}
		return nil, types.Fail(types.NetworkFailure, locator, "read body: %v", err)
	}

	f.logger.Debug("fetched", "locator", locator, "status", resp.StatusCode, "bytes", len(body), "took", time.Since(start))

	return &Response{
		Locator:     locator,
		FinalURL:    resp.Request.URL.String(),
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		FetchedAt:   time.Now(),
	}, nil
}

// ParseLocator accepts absolute http(s) URLs only.
func ParseLocator(locator string) (*url.URL, error) {
	trimmed := strings.TrimSpace(locator)
	if trimmed == "" {
		return nil, types.Fail(types.InvalidLocator, locator, "empty locator")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, types.Fail(types.InvalidLocator, locator, "invalid url: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, types.Fail(types.InvalidLocator, locator, "unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, types.Fail(types.InvalidLocator, locator, "missing host")
	}
	return u, nil
}

// String implements fmt.Stringer for log output.
func (r *Response) String() string {
	return fmt.Sprintf("%s (%d, %d bytes)", r.Locator, r.Status, len(r.Body))
}
