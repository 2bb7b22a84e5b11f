package deduplication

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis connection shared by the hash store and
// the rate limiter.
type RedisConfig struct {
	Addr     string // e.g. localhost:6379
	Password string
	DB       int
	Prefix   string // key namespace
}

// NewRedisClient connects and verifies connectivity with a ping.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// RedisHashStore keeps one expiring key per (scope, hash).
type RedisHashStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisHashStore(client redis.UniversalClient, prefix string) *RedisHashStore {
	if prefix == "" {
		prefix = "trendbot"
	}
	return &RedisHashStore{client: client, prefix: prefix}
}

func (r *RedisHashStore) key(scope, hash string) string {
	return r.prefix + ":contenthash:" + scope + ":" + hash
}

// Seen checks whether the hash key is still alive.
func (r *RedisHashStore) Seen(ctx context.Context, scope, hash string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(scope, hash)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Record sets the hash key with the given TTL, refreshing it if present.
func (r *RedisHashStore) Record(ctx context.Context, scope, hash string, ttl time.Duration) error {
	return r.client.Set(ctx, r.key(scope, hash), time.Now().UTC().Format(time.RFC3339), ttl).Err()
}
