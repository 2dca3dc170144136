package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortlinks/internal/ratelimit"
)

// takeScript admits a request atomically. The TTL is set only when the
// increment opens a window, so windows are fixed rather than sliding.
//
// KEYS[1] counter key, ARGV[1] limit, ARGV[2] window in milliseconds.
// Returns {allowed, count, pttl}.
var takeScript = redis.NewScript(`
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
if count >= tonumber(ARGV[1]) then
	return {0, count, redis.call('PTTL', KEYS[1])}
end
count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return {1, count, redis.call('PTTL', KEYS[1])}
`)

// RateLimitRedisStore is a fixed-window ratelimit.Store shared by every
// instance pointing at the same Redis.
type RateLimitRedisStore struct {
	client *redis.Client
	prefix string
}

// NewRateLimitRedisStore creates a new Redis-backed rate limit store.
func NewRateLimitRedisStore(client *redis.Client) *RateLimitRedisStore {
	return &RateLimitRedisStore{
		client: client,
		prefix: "rate_limit:",
	}
}

func (s *RateLimitRedisStore) Take(
	ctx context.Context, key string, limit int64, window time.Duration,
) (ratelimit.Window, error) {
	res, err := takeScript.Run(ctx, s.client, []string{s.prefix + key}, limit, window.Milliseconds()).Int64Slice()
	if err != nil {
		return ratelimit.Window{}, err
	}

	if len(res) != 3 {
		return ratelimit.Window{}, fmt.Errorf("rate limit script: unexpected reply %v", res)
	}

	ttl := time.Duration(res[2]) * time.Millisecond
	if ttl < 0 {
		ttl = 0
	}

	return ratelimit.Window{
		Allowed: res[0] == 1,
		Count:   res[1],
		ResetAt: time.Now().Add(ttl),
	}, nil
}

// Compile-time check.
var _ ratelimit.Store = (*RateLimitRedisStore)(nil)
