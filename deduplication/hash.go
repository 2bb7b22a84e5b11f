package deduplication

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"trendbot/config"
	"trendbot/logging"
	"trendbot/types"
)

// excerptHashLength bounds how much of the excerpt feeds the content hash.
const excerptHashLength = 500

// HashStore remembers content hashes per source for a limited time.
type HashStore interface {
	Seen(ctx context.Context, key, hash string) (bool, error)
	Record(ctx context.Context, key, hash string, ttl time.Duration) error
}

// ContentHash fingerprints a piece of content as
// sha256(title|excerpt[:500]|locator), hex encoded.
func ContentHash(title, excerpt, locator string) string {
	if runes := []rune(excerpt); len(runes) > excerptHashLength {
		excerpt = string(runes[:excerptHashLength])
	}
	h := sha256.Sum256([]byte(title + "|" + excerpt + "|" + locator))
	return hex.EncodeToString(h[:])
}

// HashOf fingerprints normalized content.
func HashOf(c *types.NormalizedContent) string {
	return ContentHash(c.Title, c.Excerpt, c.Locator)
}

// HashGate skips topic extraction for content already processed recently.
type HashGate struct {
	store  HashStore
	window time.Duration
	logger *slog.Logger
}

// NewHashGate creates a gate. A nil store disables the gate.
func NewHashGate(store HashStore, window time.Duration, logger *slog.Logger) *HashGate {
	if window <= 0 {
		window = config.DefaultHashCacheWindowDays * 24 * time.Hour
	}
	return &HashGate{store: store, window: window, logger: logging.OrDiscard(logger)}
}

// ScopeKey scopes hashes to a tenant's source.
func ScopeKey(tenant, sourceID string) string {
	return fmt.Sprintf("%s:%s", tenant, sourceID)
}

// Check returns the content hash and types.ErrUnchanged when the same hash
// was recorded for this tenant and source inside the window. Store errors
// let the content through.
func (g *HashGate) Check(ctx context.Context, tenant, sourceID string, c *types.NormalizedContent) (string, error) {
	hash := HashOf(c)
	if g.store == nil {
		return hash, nil
	}

	seen, err := g.store.Seen(ctx, ScopeKey(tenant, sourceID), hash)
	if err != nil {
		g.logger.Warn("content hash lookup failed", "tenant", tenant, "source", sourceID, "err", err)
		return hash, nil
	}
	if seen {
		g.logger.Info("content unchanged, skipping", "tenant", tenant, "source", sourceID, "locator", c.Locator)
		return hash, types.ErrUnchanged
	}
	return hash, nil
}

// Record stores hash for the window.
func (g *HashGate) Record(ctx context.Context, tenant, sourceID, hash string) error {
	if g.store == nil {
		return nil
	}
	if err := g.store.Record(ctx, ScopeKey(tenant, sourceID), hash, g.window); err != nil {
		return fmt.Errorf("record content hash: %w", err)
	}
	return nil
}
