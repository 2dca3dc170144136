package shortener

import (
	"context"
	"time"
)

// Repository is the durable source of truth for links.
type Repository interface {
	// FindByLongURL returns the most recent link for longURL, expired or not.
	// Returns ErrNotFound when there is none.
	FindByLongURL(ctx context.Context, longURL string) (*Link, error)
	FindByCode(ctx context.Context, code Code) (*Link, error)
	// Insert fails with ErrDuplicateCode when the code is already taken.
	Insert(ctx context.Context, link *Link) error
	// Delete is idempotent.
	Delete(ctx context.Context, code Code) error
	ListAll(ctx context.Context) ([]*Link, error)
	// DeleteExpired removes every link whose expiry is set and before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// Cache is an optional fast path in front of the Repository. It is never
// the only copy of a mapping.
type Cache interface {
	// Get returns ErrCacheMiss when the code is not cached.
	Get(ctx context.Context, code Code) (*CachedLink, error)
	Set(ctx context.Context, code Code, link CachedLink) error
	Delete(ctx context.Context, code Code) error
}
