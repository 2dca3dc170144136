package container

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/shortlinks/internal/store"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

// RedisConnection owns the shared Redis client.
type RedisConnection struct {
	Client *redis.Client
}

// Shutdown closes the client.
func (c *RedisConnection) Shutdown() error {
	return c.Client.Close()
}

// PostgresConnection owns the pgx pool.
type PostgresConnection struct {
	Pool *pgxpool.Pool
}

// Shutdown closes every pooled connection.
func (c *PostgresConnection) Shutdown() error {
	c.Pool.Close()

	return nil
}

// RedisPackage provides the Redis client used by the cache, the rate limiter
// and the sweep broker.
func RedisPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*RedisConnection, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		client := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()

			return nil, fmt.Errorf("redis %s: %w", opts.RedisAddr, err)
		}

		logger.Info("connected to redis", zap.String("addr", opts.RedisAddr))

		return &RedisConnection{Client: client}, nil
	})
}

// PostgresPackage provides the pgx pool, migrating the schema first when
// AutoMigrate is set.
func PostgresPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*PostgresConnection, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.AutoMigrate {
			if err := store.Migrate(opts.DatabaseURL, logger); err != nil {
				return nil, err
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		pool, err := pgxpool.New(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres pool: %w", err)
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()

			return nil, fmt.Errorf("postgres ping: %w", err)
		}

		logger.Info("connected to postgres")

		return &PostgresConnection{Pool: pool}, nil
	})
}
