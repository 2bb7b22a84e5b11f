package deduplication

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"trendbot/config"
	"trendbot/logging"
	"trendbot/types"
)

// TopicStore is the historical topic lookup the filter needs.
type TopicStore interface {
	// RecentTopicTitles returns titles of non-expired topics created after since.
	RecentTopicTitles(ctx context.Context, tenant string, since time.Time) ([]string, error)
}

// Result describes one duplicate check.
type Result struct {
	IsDuplicate     bool      `json:"is_duplicate"`
	MatchingTitle   string    `json:"matching_title,omitempty"`
	SimilarityScore float64   `json:"similarity_score,omitempty"`
	CheckedAt       time.Time `json:"checked_at"`
}

// FilterConfig holds configuration for the duplicate filter
type FilterConfig struct {
	SimilarityThreshold float64       // Default: 0.8
	Lookback            time.Duration // Default: 30 days
}

// DuplicateFilter drops topics that closely match ones a tenant already has.
type DuplicateFilter struct {
	store     TopicStore
	threshold float64
	lookback  time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewDuplicateFilter creates a filter backed by store.
func NewDuplicateFilter(store TopicStore, cfg FilterConfig, logger *slog.Logger) (*DuplicateFilter, error) {
	if store == nil {
		return nil, fmt.Errorf("topic store cannot be nil")
	}
	cfg = applyConfigDefaults(cfg)
	return &DuplicateFilter{
		store:     store,
		threshold: cfg.SimilarityThreshold,
		lookback:  cfg.Lookback,
		logger:    logging.OrDiscard(logger),
		now:       time.Now,
	}, nil
}

func applyConfigDefaults(cfg FilterConfig) FilterConfig {
	if cfg.SimilarityThreshold <= 0 || cfg.SimilarityThreshold > 1 {
		cfg.SimilarityThreshold = config.DefaultDuplicateThreshold
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = config.DefaultDuplicateLookbackDays * 24 * time.Hour
	}
	return cfg
}

// Check compares title with the tenant's recent topics. A title is a
// duplicate when it equals a stored title ignoring case and surrounding
// space, or when their Similarity reaches the threshold.
func (d *DuplicateFilter) Check(ctx context.Context, tenant, title string) (*Result, error) {
	now := d.now()
	titles, err := d.store.RecentTopicTitles(ctx, tenant, now.Add(-d.lookback))
	if err != nil {
		return nil, fmt.Errorf("failed to load recent topics: %w", err)
	}
	return match(title, titles, d.threshold, now), nil
}

// IsDuplicate reports whether title duplicates a recent topic. Lookup
// failures are logged and the topic is kept.
func (d *DuplicateFilter) IsDuplicate(ctx context.Context, tenant, title string) bool {
	res, err := d.Check(ctx, tenant, title)
	if err != nil {
		d.logger.Warn("duplicate check failed, keeping topic", "tenant", tenant, "title", title, "err", err)
		return false
	}
	return res.IsDuplicate
}

// Filter splits topics into accepted and skipped. Recent titles are loaded
// once per call.
func (d *DuplicateFilter) Filter(ctx context.Context, tenant string, topics []types.ExtractedTopic) (accepted, skipped []types.ExtractedTopic) {
	now := d.now()
	titles, err := d.store.RecentTopicTitles(ctx, tenant, now.Add(-d.lookback))
	if err != nil {
		d.logger.Warn("duplicate lookup failed, keeping all topics", "tenant", tenant, "count", len(topics), "err", err)
		return topics, nil
	}

	for _, topic := range topics {
		res := match(topic.Title, titles, d.threshold, now)
		if res.IsDuplicate {
			d.logger.Debug("duplicate topic skipped", "tenant", tenant, "title", topic.Title, "matches", res.MatchingTitle, "similarity", res.SimilarityScore)
			skipped = append(skipped, topic)
			continue
		}
		accepted = append(accepted, topic)
	}
	return accepted, skipped
}

func match(title string, existing []string, threshold float64, at time.Time) *Result {
	best := &Result{CheckedAt: at}
	for _, other := range existing {
		if SameTitle(title, other) {
			return &Result{IsDuplicate: true, MatchingTitle: other, SimilarityScore: 1, CheckedAt: at}
		}
		if sim := Similarity(title, other); sim > best.SimilarityScore {
			best.SimilarityScore = sim
			best.MatchingTitle = other
		}
	}
	best.IsDuplicate = best.SimilarityScore >= threshold
	if !best.IsDuplicate {
		best.MatchingTitle = ""
	}
	return best
}
