package deduplication

import (
	"context"
	"sync"
	"time"
)

// MemoryHashStore is an in-process HashStore.
type MemoryHashStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryHashStore() *MemoryHashStore {
	return &MemoryHashStore{entries: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryHashStore) Seen(_ context.Context, key, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := key + "|" + hash
	exp, ok := m.entries[id]
	if !ok {
		return false, nil
	}
	if !m.now().Before(exp) {
		delete(m.entries, id)
		return false, nil
	}
	return true, nil
}

func (m *MemoryHashStore) Record(_ context.Context, key, hash string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key+"|"+hash] = m.now().Add(ttl)
	return nil
}
