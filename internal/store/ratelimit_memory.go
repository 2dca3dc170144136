package store

import (
	"context"
	"sync"
	"time"

	"github.com/serroba/shortlinks/internal/ratelimit"
)

const minPruneSize = 1024

type rateWindow struct {
	count   int64
	resetAt time.Time
}

// RateLimitMemoryStore is an in-process fixed-window ratelimit.Store. It is
// only correct within one process and loses its state on restart.
type RateLimitMemoryStore struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	now     func() time.Time
	pruneAt int
}

// RateLimitMemoryOption configures a RateLimitMemoryStore.
type RateLimitMemoryOption func(*RateLimitMemoryStore)

// WithRateLimitClock overrides the clock used to open and close windows.
func WithRateLimitClock(now func() time.Time) RateLimitMemoryOption {
	return func(s *RateLimitMemoryStore) {
		s.now = now
	}
}

// NewRateLimitMemoryStore creates a new in-memory rate limit store.
func NewRateLimitMemoryStore(opts ...RateLimitMemoryOption) *RateLimitMemoryStore {
	s := &RateLimitMemoryStore{
		windows: make(map[string]*rateWindow),
		now:     time.Now,
		pruneAt: minPruneSize,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *RateLimitMemoryStore) Take(
	_ context.Context, key string, limit int64, window time.Duration,
) (ratelimit.Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	w, ok := s.windows[key]
	if !ok || now.After(w.resetAt) {
		s.prune(now)

		w = &rateWindow{count: 1, resetAt: now.Add(window)}
		s.windows[key] = w

		return ratelimit.Window{Allowed: true, Count: 1, ResetAt: w.resetAt}, nil
	}

	if w.count < limit {
		w.count++

		return ratelimit.Window{Allowed: true, Count: w.count, ResetAt: w.resetAt}, nil
	}

	return ratelimit.Window{Allowed: false, Count: w.count, ResetAt: w.resetAt}, nil
}

// Len returns the number of tracked windows.
func (s *RateLimitMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.windows)
}

// prune drops closed windows once the map has grown past pruneAt.
// Callers hold the lock.
func (s *RateLimitMemoryStore) prune(now time.Time) {
	if len(s.windows) < s.pruneAt {
		return
	}

	for key, w := range s.windows {
		if now.After(w.resetAt) {
			delete(s.windows, key)
		}
	}

	s.pruneAt = max(2*len(s.windows), minPruneSize)
}

// Compile-time check.
var _ ratelimit.Store = (*RateLimitMemoryStore)(nil)
