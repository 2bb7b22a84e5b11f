package ratelimit

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"
)

// slidingWindow trims expired entries, then admits and records the hit if
// the window still has room. Returns {allowed, remaining, resetAtMs}.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)

local reset = now + window
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if oldest[2] then
  reset = tonumber(oldest[2]) + window
end

if count >= limit then
  return {0, 0, reset}
end

redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, window)
return {1, limit - count - 1, reset}
`)

// RedisStore is a sorted-set sliding window shared by every worker and
// process pointing at the same Redis.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "trendbot"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) Hit(ctx context.Context, key string, now time.Time, limit int, window time.Duration) (Decision, error) {
	nowMs := now.UnixMilli()
	member := fmt.Sprintf("%d-%d", nowMs, rand.Uint64())

	res, err := slidingWindow.Run(ctx, r.client,
		[]string{r.prefix + ":ratelimit:" + key},
		nowMs, window.Milliseconds(), limit, member,
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script for %s: %w", key, err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("unexpected rate limit reply %v", res)
	}

	return Decision{
		Allowed:   res[0] == 1,
		Limit:     limit,
		Remaining: int(res[1]),
		ResetAt:   time.UnixMilli(res[2]),
	}, nil
}
