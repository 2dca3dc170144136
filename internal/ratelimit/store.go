package ratelimit

import (
	"context"
	"time"
)

// Window is the state of a client's fixed window after a Take.
type Window struct {
	Allowed bool
	Count   int64 // requests admitted in the window
	ResetAt time.Time
}

// Store holds fixed-window counters.
type Store interface {
	// Take admits one request for key when fewer than limit requests were
	// admitted in the current window, starting a new window of the given
	// length when none is active. A denied request does not count.
	Take(ctx context.Context, key string, limit int64, window time.Duration) (Window, error)
}
