package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   time.Time
}

// Limiter defines the interface for rate limiting.
type Limiter interface {
	// Allow checks if a request from the given key should be allowed.
	Allow(ctx context.Context, key string) (Decision, error)
}

// FixedWindowLimiter admits at most limit requests per key per window.
type FixedWindowLimiter struct {
	store  Store
	limit  int64
	window time.Duration
}

// NewFixedWindowLimiter creates a new fixed window rate limiter.
func NewFixedWindowLimiter(store Store, limit int64, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		store:  store,
		limit:  limit,
		window: window,
	}
}

func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	w, err := l.store.Take(ctx, key, l.limit, l.window)
	if err != nil {
		return Decision{}, err
	}

	return Decision{
		Allowed:   w.Allowed,
		Limit:     l.limit,
		Remaining: max(l.limit-w.Count, 0),
		ResetAt:   w.ResetAt,
	}, nil
}
