package container

import (
	"github.com/samber/do"
	"github.com/serroba/shortlinks/internal/ratelimit"
	"github.com/serroba/shortlinks/internal/store"
	"go.uber.org/zap"
)

// RateLimitPackage provides the fixed window limiter over the configured
// counter backend.
func RateLimitPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (ratelimit.Limiter, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		var backend ratelimit.Store = store.NewRateLimitMemoryStore()

		if opts.RateLimitBackend == BackendRedis {
			conn, err := do.Invoke[*RedisConnection](i)
			if err != nil {
				return nil, err
			}

			backend = store.NewRateLimitRedisStore(conn.Client)
		}

		logger.Info("rate limiter configured",
			zap.String("backend", opts.RateLimitBackend),
			zap.Int64("max", opts.RateLimitMax),
			zap.Duration("window", opts.RateLimitWindow),
		)

		return ratelimit.NewFixedWindowLimiter(backend, opts.RateLimitMax, opts.RateLimitWindow), nil
	})
}
