package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/serroba/shortlinks/internal/shortener"
)

// MemoryStore is an in-memory implementation of shortener.Repository.
type MemoryStore struct {
	mu     sync.RWMutex
	links  map[shortener.Code]*shortener.Link
	byHash map[shortener.URLHash][]shortener.Code // urlHash -> codes in insertion order
}

// NewMemoryStore creates a new in-memory link store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		links:  make(map[shortener.Code]*shortener.Link),
		byHash: make(map[shortener.URLHash][]shortener.Code),
	}
}

func (m *MemoryStore) FindByLongURL(_ context.Context, longURL string) (*shortener.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Newest by creation time; later inserts win ties.
	var newest *shortener.Link

	for _, code := range m.byHash[shortener.HashURL(longURL)] {
		link := m.links[code]
		if link.LongURL != longURL {
			continue
		}

		if newest == nil || !link.CreatedAt.Before(newest.CreatedAt) {
			newest = link
		}
	}

	if newest == nil {
		return nil, shortener.ErrNotFound
	}

	return clone(newest), nil
}

func (m *MemoryStore) FindByCode(_ context.Context, code shortener.Code) (*shortener.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, ok := m.links[code]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	return clone(link), nil
}

func (m *MemoryStore) Insert(_ context.Context, link *shortener.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.links[link.Code]; taken {
		return shortener.ErrDuplicateCode
	}

	stored := clone(link)
	if stored.URLHash == "" {
		stored.URLHash = shortener.HashURL(stored.LongURL)
	}

	m.links[stored.Code] = stored
	m.byHash[stored.URLHash] = append(m.byHash[stored.URLHash], stored.Code)

	return nil
}

func (m *MemoryStore) Delete(_ context.Context, code shortener.Code) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.remove(code)

	return nil
}

func (m *MemoryStore) ListAll(_ context.Context) ([]*shortener.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*shortener.Link, 0, len(m.links))
	for _, link := range m.links {
		out = append(out, clone(link))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Code < out[j].Code
		}

		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

func (m *MemoryStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64

	for code, link := range m.links {
		if link.Expired(now) {
			m.remove(code)
			deleted++
		}
	}

	return deleted, nil
}

func (m *MemoryStore) Count(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return int64(len(m.links)), nil
}

// remove deletes code and its dedup index entry. Callers hold the write lock.
func (m *MemoryStore) remove(code shortener.Code) {
	link, ok := m.links[code]
	if !ok {
		return
	}

	delete(m.links, code)

	codes := slices.DeleteFunc(m.byHash[link.URLHash], func(c shortener.Code) bool { return c == code })
	if len(codes) == 0 {
		delete(m.byHash, link.URLHash)
	} else {
		m.byHash[link.URLHash] = codes
	}
}

func clone(link *shortener.Link) *shortener.Link {
	c := *link
	if link.ExpiresAt != nil {
		expiresAt := *link.ExpiresAt
		c.ExpiresAt = &expiresAt
	}

	return &c
}

// Compile-time check.
var _ shortener.Repository = (*MemoryStore)(nil)
