package fetcher

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"trendbot/logging"
)

// RobotsPolicy caches robots.txt per origin and answers whether a path may
// be fetched. Unreachable or malformed robots files allow everything.
type RobotsPolicy struct {
	mu     sync.Mutex
	cache  map[string]*robotstxt.RobotsData
	client *http.Client
	agent  string
	logger *slog.Logger
}

func NewRobotsPolicy(client *http.Client, logger *slog.Logger) *RobotsPolicy {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RobotsPolicy{
		cache:  make(map[string]*robotstxt.RobotsData),
		client: client,
		agent:  "trendbot",
		logger: logging.OrDiscard(logger),
	}
}

// Allowed reports whether u may be fetched by this agent.
func (r *RobotsPolicy) Allowed(ctx context.Context, u *url.URL) bool {
	origin := u.Scheme + "://" + u.Host

	r.mu.Lock()
	data, ok := r.cache[origin]
	r.mu.Unlock()

	if !ok {
		data = r.load(ctx, origin)
		r.mu.Lock()
		r.cache[origin] = data
		r.mu.Unlock()
	}
	if data == nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, r.agent)
}

func (r *RobotsPolicy) load(ctx context.Context, origin string) *robotstxt.RobotsData {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug("robots.txt unavailable", "origin", origin, "err", err)
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512<<10))
	if err != nil {
		return nil
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		r.logger.Debug("robots.txt unparseable", "origin", origin, "err", err)
		return nil
	}
	return data
}
