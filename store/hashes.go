package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// Seen reports whether hash was recorded under key and has not expired.
func (s *Store) Seen(ctx context.Context, key, hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var one int
	err := s.sql.Select("1").
		From("content_hashes").
		Where(sq.Eq{"scope": key, "hash": hash}).
		Where(sq.Gt{"expires_at": s.now().UnixMilli()}).
		QueryRowContext(ctx).
		Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query hash: %w", err)
	}
	return true, nil
}

// Record stores hash under key for ttl, replacing any earlier expiry.
func (s *Store) Record(ctx context.Context, key, hash string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	_, err := s.sql.Insert("content_hashes").
		Columns("scope", "hash", "expires_at").
		Values(key, hash, now.Add(ttl).UnixMilli()).
		Suffix("ON CONFLICT (scope, hash) DO UPDATE SET expires_at = excluded.expires_at").
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("record hash: %w", err)
	}

	// expired rows are pruned opportunistically
	_, err = s.sql.Delete("content_hashes").
		Where(sq.LtOrEq{"expires_at": now.UnixMilli()}).
		ExecContext(ctx)
	return err
}
