package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlinks/internal/metrics"
	"github.com/serroba/shortlinks/internal/ratelimit"
	"go.uber.org/zap"
)

// Rate limit response headers.
const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderRetryAfter = "Retry-After"
)

type rateLimitConfig struct {
	trustProxy bool
	metrics    *metrics.Metrics
	now        func() time.Time
}

// RateLimitOption configures the RateLimiter middleware.
type RateLimitOption func(*rateLimitConfig)

// WithTrustedProxy makes the client key honour X-Forwarded-For and X-Real-IP.
// Only enable it behind a proxy that overwrites those headers.
func WithTrustedProxy(trust bool) RateLimitOption {
	return func(c *rateLimitConfig) { c.trustProxy = trust }
}

// WithRateLimitMetrics records every decision.
func WithRateLimitMetrics(m *metrics.Metrics) RateLimitOption {
	return func(c *rateLimitConfig) { c.metrics = m }
}

// WithRateLimitClock overrides the clock used for Retry-After.
func WithRateLimitClock(now func() time.Time) RateLimitOption {
	return func(c *rateLimitConfig) { c.now = now }
}

// RateLimiter returns a Huma middleware that limits link creation per client IP.
//
// Operations resolved to ratelimit.ScopeRead pass through untouched, as do
// operations whose metadata carries EndpointConfig{Disabled: true}.
func RateLimiter(
	api huma.API,
	limiter ratelimit.Limiter,
	resolver ratelimit.ScopeResolver,
	logger *zap.Logger,
	opts ...RateLimitOption,
) func(ctx huma.Context, next func(huma.Context)) {
	cfg := rateLimitConfig{now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(ctx huma.Context, next func(huma.Context)) {
		if ec := ratelimit.GetEndpointConfig(ctx); ec != nil && ec.Disabled {
			next(ctx)

			return
		}

		if resolver.Resolve(ctx) != ratelimit.ScopeWrite {
			next(ctx)

			return
		}

		key := clientIP(ctx, cfg.trustProxy)

		decision, err := limiter.Allow(ctx.Context(), key)
		if err != nil {
			logger.Error("rate limit check failed",
				zap.String("path", operationPath(ctx)),
				zap.Error(err),
			)
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error", err)

			return
		}

		cfg.metrics.RateLimitDecision(decision.Allowed)

		ctx.SetHeader(HeaderLimit, strconv.FormatInt(decision.Limit, 10))
		ctx.SetHeader(HeaderRemaining, strconv.FormatInt(decision.Remaining, 10))

		if !decision.Allowed {
			retryAfter := retryAfterSeconds(decision.ResetAt, cfg.now())

			logger.Warn("rate limit exceeded",
				zap.String("path", operationPath(ctx)),
				zap.String("client_ip", key),
				zap.Int64("limit", decision.Limit),
				zap.Int64("retry_after", retryAfter),
			)

			ctx.SetHeader(HeaderRetryAfter, strconv.FormatInt(retryAfter, 10))
			_ = huma.WriteErr(api, ctx, http.StatusTooManyRequests, "Too many requests. Please try again later.")

			return
		}

		next(ctx)
	}
}

// retryAfterSeconds rounds up so clients never retry inside the closed window.
func retryAfterSeconds(resetAt, now time.Time) int64 {
	secs := int64(math.Ceil(resetAt.Sub(now).Seconds()))

	return max(secs, 1)
}

func operationPath(ctx huma.Context) string {
	if op := ctx.Operation(); op != nil {
		return op.Path
	}

	return ""
}

// clientIP returns the address the request came from. Forwarding headers are
// only consulted when trustProxy is set since clients can forge them.
func clientIP(ctx huma.Context, trustProxy bool) string {
	if trustProxy {
		if xff := ctx.Header("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")

			return strings.TrimSpace(first)
		}

		if xri := ctx.Header("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}

	addr := ctx.RemoteAddr()

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}

	return host
}
