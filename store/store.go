// Package store provides SQLite persistence for topics, registered sources
// and content hashes.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"trendbot/types"
)

// Store handles SQLite persistence. All methods are safe for concurrent use.
type Store struct {
	db       *sql.DB
	mu       sync.RWMutex
	sql      sq.StatementBuilderType
	topicTTL time.Duration
	now      func() time.Time
}

// Open creates a Store at dbPath, creating tables if they don't exist.
// ":memory:" opens a private in-memory database.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// a second pooled connection would see a different in-memory database
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{
		db:  db,
		sql: sq.StatementBuilder.PlaceholderFormat(sq.Question).RunWith(db),
		now: time.Now,
	}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS topics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tenant TEXT NOT NULL,
		source_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		category TEXT,
		trending_score INTEGER NOT NULL,
		relevance TEXT,
		created_at INTEGER NOT NULL,
		expires_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_topics_tenant_created ON topics(tenant, created_at DESC);

	CREATE TABLE IF NOT EXISTS sources (
		tenant TEXT NOT NULL,
		source_id TEXT NOT NULL,
		locator TEXT NOT NULL,
		kind TEXT NOT NULL DEFAULT '',
		active INTEGER NOT NULL DEFAULT 1,
		last_attempt_at INTEGER,
		PRIMARY KEY (tenant, source_id)
	);

	CREATE TABLE IF NOT EXISTS content_hashes (
		scope TEXT NOT NULL,
		hash TEXT NOT NULL,
		expires_at INTEGER NOT NULL,
		PRIMARY KEY (scope, hash)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// SetTopicTTL bounds how long saved topics count as history. Zero, the
// default, keeps them until they fall out of the lookback window.
func (s *Store) SetTopicTTL(ttl time.Duration) {
	s.mu.Lock()
	s.topicTTL = ttl
	s.mu.Unlock()
}

// SaveTopics stores accepted topics for a tenant's source in one transaction.
func (s *Store) SaveTopics(ctx context.Context, tenant, sourceID string, topics []types.ExtractedTopic) error {
	if len(topics) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	now := s.now()
	var expires any
	if s.topicTTL > 0 {
		expires = now.Add(s.topicTTL).UnixMilli()
	}

	insert := s.sql.RunWith(tx).
		Insert("topics").
		Columns("tenant", "source_id", "title", "description", "category", "trending_score", "relevance", "created_at", "expires_at")
	for _, t := range topics {
		insert = insert.Values(tenant, sourceID, t.Title, t.Description, t.Category, t.TrendingScore, t.Relevance, now.UnixMilli(), expires)
	}
	if _, err := insert.ExecContext(ctx); err != nil {
		return fmt.Errorf("insert topics: %w", err)
	}
	return tx.Commit()
}

// RecentTopicTitles returns titles of the tenant's non-expired topics
// created after since, newest first.
func (s *Store) RecentTopicTitles(ctx context.Context, tenant string, since time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.sql.Select("title").
		From("topics").
		Where(sq.Eq{"tenant": tenant}).
		Where(sq.Gt{"created_at": since.UnixMilli()}).
		Where(sq.Or{sq.Eq{"expires_at": nil}, sq.Gt{"expires_at": s.now().UnixMilli()}}).
		OrderBy("created_at DESC").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, err
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}

// Topics returns the tenant's most recent stored topics.
func (s *Store) Topics(ctx context.Context, tenant string, limit int) ([]types.StoredTopic, error) {
	if limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.sql.Select("id", "tenant", "source_id", "title", "created_at", "expires_at").
		From("topics").
		Where(sq.Eq{"tenant": tenant}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	defer rows.Close()

	var out []types.StoredTopic
	for rows.Next() {
		var (
			t       types.StoredTopic
			created int64
			expires sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.Tenant, &t.SourceID, &t.Title, &created, &expires); err != nil {
			return nil, err
		}
		t.CreatedAt = time.UnixMilli(created)
		if expires.Valid {
			t.ExpiresAt = time.UnixMilli(expires.Int64)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// RegisterSource adds or reactivates a source for a tenant.
func (s *Store) RegisterSource(ctx context.Context, tenant string, d types.SourceDescriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.sql.Insert("sources").
		Columns("tenant", "source_id", "locator", "kind", "active").
		Values(tenant, d.Key(), d.Locator, string(d.Kind), 1).
		Suffix("ON CONFLICT (tenant, source_id) DO UPDATE SET locator = excluded.locator, kind = excluded.kind, active = 1").
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("register source: %w", err)
	}
	return nil
}

// DeactivateSource stops a source from being scheduled.
func (s *Store) DeactivateSource(ctx context.Context, tenant, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.sql.Update("sources").
		Set("active", 0).
		Where(sq.Eq{"tenant": tenant, "source_id": sourceID}).
		ExecContext(ctx)
	return err
}

// ActiveSources lists a tenant's active sources, least recently attempted
// first.
func (s *Store) ActiveSources(ctx context.Context, tenant string) ([]types.SourceDescriptor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.sql.Select("source_id", "locator", "kind").
		From("sources").
		Where(sq.Eq{"tenant": tenant, "active": 1}).
		OrderBy("COALESCE(last_attempt_at, 0)", "source_id").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query sources: %w", err)
	}
	defer rows.Close()

	var out []types.SourceDescriptor
	for rows.Next() {
		var (
			d    types.SourceDescriptor
			kind string
		)
		if err := rows.Scan(&d.SourceID, &d.Locator, &kind); err != nil {
			return nil, err
		}
		d.Kind = types.SourceKind(kind)
		out = append(out, d)
	}
	return out, rows.Err()
}

// TouchAttempt records when a source was last attempted. Unknown sources
// are ignored.
func (s *Store) TouchAttempt(ctx context.Context, tenant, sourceID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.sql.Update("sources").
		Set("last_attempt_at", at.UnixMilli()).
		Where(sq.Eq{"tenant": tenant, "source_id": sourceID}).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("touch source: %w", err)
	}
	return nil
}

// LastAttempt returns the last attempt time of a source; the zero time
// means never attempted.
func (s *Store) LastAttempt(ctx context.Context, tenant, sourceID string) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var at sql.NullInt64
	err := s.sql.Select("last_attempt_at").
		From("sources").
		Where(sq.Eq{"tenant": tenant, "source_id": sourceID}).
		QueryRowContext(ctx).
		Scan(&at)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !at.Valid) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(at.Int64), nil
}
