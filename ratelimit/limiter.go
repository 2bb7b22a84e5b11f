package ratelimit

import (
	"context"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"trendbot/config"
	"trendbot/logging"
	"trendbot/types"
)

// Decision is the verdict for one request against a host quota.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Store records hits inside a sliding window. Hit must admit and count a
// request atomically so concurrent workers cannot overshoot the limit.
type Store interface {
	Hit(ctx context.Context, key string, now time.Time, limit int, window time.Duration) (Decision, error)
}

// Limiter enforces a per-host request quota.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// New creates a limiter. A nil store makes every check pass.
func New(store Store, limit int, window time.Duration, logger *slog.Logger) *Limiter {
	logger = logging.OrDiscard(logger)
	if limit <= 0 {
		limit = config.DefaultRateLimitPerHost
	}
	if window <= 0 {
		window = config.RateLimitWindow
	}
	if store == nil {
		logger.Warn("rate limiter has no store, all requests will be allowed")
	}
	return &Limiter{store: store, limit: limit, window: window, logger: logger, now: time.Now}
}

// Check counts one request for the locator's host. Store failures are
// logged and the request is allowed. A locator without a usable host
// yields an InvalidLocator failure.
func (l *Limiter) Check(ctx context.Context, locator string) (Decision, error) {
	host, err := HostKey(locator)
	if err != nil {
		return Decision{}, err
	}

	now := l.now()
	open := Decision{Allowed: true, Limit: l.limit, Remaining: l.limit, ResetAt: now.Add(l.window)}
	if l.store == nil {
		return open, nil
	}

	d, err := l.store.Hit(ctx, host, now, l.limit, l.window)
	if err != nil {
		l.logger.Warn("rate limit store unavailable, allowing request", "host", host, "err", err)
		return open, nil
	}
	if !d.Allowed {
		l.logger.Debug("rate limited", "host", host, "reset_at", d.ResetAt)
	}
	return d, nil
}

// HostKey normalizes the host of a locator: lowercased with a leading
// "www." removed. Loopback and IP hosts are kept verbatim, port included.
func HostKey(locator string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(locator))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", types.Fail(types.InvalidLocator, locator, "invalid url")
	}
	host := strings.ToLower(u.Hostname())
	if host == "localhost" || net.ParseIP(host) != nil {
		return strings.ToLower(u.Host), nil
	}
	return strings.TrimPrefix(host, "www."), nil
}
