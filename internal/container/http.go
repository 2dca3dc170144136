package container

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/do"
	"github.com/serroba/shortlinks/internal/handlers"
	"github.com/serroba/shortlinks/internal/health"
	"github.com/serroba/shortlinks/internal/messaging"
	"github.com/serroba/shortlinks/internal/metrics"
	"github.com/serroba/shortlinks/internal/middleware"
	"github.com/serroba/shortlinks/internal/ratelimit"
	"github.com/serroba/shortlinks/internal/shortener"
	"github.com/serroba/shortlinks/internal/sweep"
	"go.uber.org/zap"
)

// HTTPPackage provides the chi router and the huma API with every route and
// middleware registered. /metrics is mounted on the router directly.
func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)
		reg := do.MustInvoke[*prometheus.Registry](i)
		m := do.MustInvoke[*metrics.Metrics](i)

		service, err := do.Invoke[*shortener.Service](i)
		if err != nil {
			return nil, err
		}

		limiter, err := do.Invoke[ratelimit.Limiter](i)
		if err != nil {
			return nil, err
		}

		publishSweep, err := do.Invoke[messaging.Publish[sweep.Request]](i)
		if err != nil {
			return nil, err
		}

		checks, err := healthChecks(i, opts)
		if err != nil {
			return nil, err
		}

		router.Handle("/metrics", metrics.Handler(reg))

		api := humachi.New(router, huma.DefaultConfig("Shortlinks", "1.0.0"))
		api.UseMiddleware(middleware.RequestMeta(api, opts.TrustProxy))
		api.UseMiddleware(middleware.RateLimiter(
			api,
			limiter,
			ratelimit.NewOperationScopeResolver(),
			logger.Named("ratelimit"),
			middleware.WithTrustedProxy(opts.TrustProxy),
			middleware.WithRateLimitMetrics(m),
		))

		handlers.RegisterRoutes(api, handlers.NewURLHandler(service, publishSweep, logger.Named("http")))
		health.RegisterRoutes(api, health.NewHandler(checks))

		return api, nil
	})
}

func healthChecks(i *do.Injector, opts *Options) (map[string]health.Checker, error) {
	checks := map[string]health.Checker{}

	if opts.NeedsRedis() {
		conn, err := do.Invoke[*RedisConnection](i)
		if err != nil {
			return nil, err
		}

		checks["redis"] = health.NewRedisChecker(conn.Client)
	}

	if opts.Storage == BackendPostgres {
		conn, err := do.Invoke[*PostgresConnection](i)
		if err != nil {
			return nil, err
		}

		checks["postgres"] = health.NewPostgresChecker(conn.Pool)
	}

	return checks, nil
}
