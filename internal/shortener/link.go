package shortener

import (
	"errors"
	"time"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("url not found")
	ErrExpired            = errors.New("url has expired")
	ErrDuplicateCode      = errors.New("short code already exists")
	ErrCodeSpaceExhausted = errors.New("could not allocate a unique short code")
	ErrCacheMiss          = errors.New("cache miss")
)

// Code represents a short URL code.
type Code string

// URLHash is the hex SHA-256 of a long URL, used to index dedup lookups.
type URLHash string

// Link is a stored mapping from a code to its long URL.
type Link struct {
	Code      Code
	LongURL   string
	URLHash   URLHash
	CreatedAt time.Time
	ExpiresAt *time.Time // nil never expires
}

// Expired reports whether the link is logically dead at now.
// Comparison happens at second resolution, matching what is persisted.
func (l *Link) Expired(now time.Time) bool {
	return expired(l.ExpiresAt, now)
}

// CachedLink is the projection of a Link kept in a Cache.
type CachedLink struct {
	LongURL   string     `json:"long_url"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the cached projection is logically dead at now.
func (c *CachedLink) Expired(now time.Time) bool {
	return expired(c.ExpiresAt, now)
}

func expired(expiresAt *time.Time, now time.Time) bool {
	return expiresAt != nil && expiresAt.Unix() < now.Unix()
}

// ShortLink is the result of shortening a URL.
type ShortLink struct {
	Link     *Link
	ShortURL string
	Reused   bool // an existing live mapping was returned
}

// Target is the result of resolving a code.
type Target struct {
	Code      Code
	LongURL   string
	ExpiresAt *time.Time
}

// Listing is one row of the full mapping listing.
type Listing struct {
	Code      Code
	ShortURL  string
	LongURL   string
	CreatedAt time.Time
	ExpiresAt *time.Time
}

// CleanupReport summarises a sweep of expired links.
type CleanupReport struct {
	Deleted   int64
	Remaining int64
}
