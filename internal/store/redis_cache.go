package store

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortlinks/internal/shortener"
)

// RedisCache is a Redis implementation of shortener.Cache. Entries are hashes
// keyed by code; a key is expired natively at the link's expiry.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a Redis link cache. ttl bounds how long any entry
// stays cached; zero keeps never-expiring links until evicted.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: "link:",
		ttl:    ttl,
	}
}

func (r *RedisCache) Get(ctx context.Context, code shortener.Code) (*shortener.CachedLink, error) {
	result, err := r.client.HGetAll(ctx, r.key(code)).Result()
	if err != nil {
		return nil, err
	}

	longURL, ok := result["long_url"]
	if !ok {
		return nil, shortener.ErrCacheMiss
	}

	cached := &shortener.CachedLink{LongURL: longURL}

	if ts := result["expires_at"]; ts != "" {
		secs, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return nil, err
		}

		expiresAt := time.Unix(secs, 0)
		cached.ExpiresAt = &expiresAt
	}

	return cached, nil
}

func (r *RedisCache) Set(ctx context.Context, code shortener.Code, link shortener.CachedLink) error {
	key := r.key(code)
	pipe := r.client.TxPipeline()

	pipe.Del(ctx, key)

	fields := map[string]interface{}{"long_url": link.LongURL}
	if link.ExpiresAt != nil {
		fields["expires_at"] = link.ExpiresAt.Unix()
	}

	pipe.HSet(ctx, key, fields)

	switch {
	case link.ExpiresAt != nil && (r.ttl <= 0 || time.Until(*link.ExpiresAt) < r.ttl):
		// Keep the entry one second past expiry so a read still sees it as expired.
		pipe.ExpireAt(ctx, key, link.ExpiresAt.Add(time.Second))
	case r.ttl > 0:
		pipe.Expire(ctx, key, r.ttl)
	}

	_, err := pipe.Exec(ctx)

	return err
}

func (r *RedisCache) Delete(ctx context.Context, code shortener.Code) error {
	return r.client.Del(ctx, r.key(code)).Err()
}

func (r *RedisCache) key(code shortener.Code) string {
	return r.prefix + string(code)
}

// Compile-time check.
var _ shortener.Cache = (*RedisCache)(nil)
