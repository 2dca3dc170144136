package container

import (
	"fmt"

	"github.com/samber/do"
	"github.com/serroba/shortlinks/internal/metrics"
	"github.com/serroba/shortlinks/internal/shortener"
	"github.com/serroba/shortlinks/internal/store"
	"go.uber.org/zap"
)

// RepositoryPackage provides the link store, the optional cache and the
// shortener service built on them.
func RepositoryPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (shortener.Repository, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.Storage == BackendMemory {
			return store.NewMemoryStore(), nil
		}

		conn, err := do.Invoke[*PostgresConnection](i)
		if err != nil {
			return nil, err
		}

		return store.NewPostgresStore(conn.Pool), nil
	})

	do.Provide(i, func(i *do.Injector) (*shortener.Service, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		repo, err := do.Invoke[shortener.Repository](i)
		if err != nil {
			return nil, err
		}

		cache, err := newCache(i, opts)
		if err != nil {
			return nil, err
		}

		generate, err := shortener.NewCodeGenerator(opts.CodeLength)
		if err != nil {
			return nil, fmt.Errorf("code generator: %w", err)
		}

		logger.Info("link service configured",
			zap.String("storage", opts.Storage),
			zap.String("cache", opts.Cache),
			zap.String("base_url", opts.BaseURL),
		)

		return shortener.NewService(repo, cache, generate, opts.BaseURL,
			shortener.WithMaxAttempts(opts.MaxAttempts),
			shortener.WithLogger(logger.Named("shortener")),
			shortener.WithMetrics(do.MustInvoke[*metrics.Metrics](i)),
		), nil
	})
}

// newCache returns a nil interface when caching is off so the service can
// tell the difference.
func newCache(i *do.Injector, opts *Options) (shortener.Cache, error) {
	switch opts.Cache {
	case BackendRedis:
		conn, err := do.Invoke[*RedisConnection](i)
		if err != nil {
			return nil, err
		}

		return store.NewRedisCache(conn.Client, opts.CacheTTL), nil
	case BackendLRU:
		cache, err := store.NewLRUCache(opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("lru cache: %w", err)
		}

		return cache, nil
	default:
		return nil, nil
	}
}
