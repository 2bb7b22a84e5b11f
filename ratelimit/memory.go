package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps per-host hit timestamps in process.
type MemoryStore struct {
	mu   sync.Mutex
	hits map[string][]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{hits: make(map[string][]time.Time)}
}

func (m *MemoryStore) Hit(_ context.Context, key string, now time.Time, limit int, window time.Duration) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := now.Add(-window)
	kept := m.hits[key][:0]
	for _, t := range m.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	resetAt := now.Add(window)
	if len(kept) > 0 {
		resetAt = kept[0].Add(window)
	}

	if len(kept) >= limit {
		m.hits[key] = kept
		return Decision{Allowed: false, Limit: limit, Remaining: 0, ResetAt: resetAt}, nil
	}

	kept = append(kept, now)
	m.hits[key] = kept
	return Decision{Allowed: true, Limit: limit, Remaining: limit - len(kept), ResetAt: resetAt}, nil
}
