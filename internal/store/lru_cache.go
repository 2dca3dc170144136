package store

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/serroba/shortlinks/internal/shortener"
)

// LRUCache is a bounded in-process shortener.Cache.
type LRUCache struct {
	entries *lru.Cache[shortener.Code, shortener.CachedLink]
}

// NewLRUCache creates an in-process cache holding at most size links.
func NewLRUCache(size int) (*LRUCache, error) {
	entries, err := lru.New[shortener.Code, shortener.CachedLink](size)
	if err != nil {
		return nil, err
	}

	return &LRUCache{entries: entries}, nil
}

func (c *LRUCache) Get(_ context.Context, code shortener.Code) (*shortener.CachedLink, error) {
	link, ok := c.entries.Get(code)
	if !ok {
		return nil, shortener.ErrCacheMiss
	}

	return &link, nil
}

func (c *LRUCache) Set(_ context.Context, code shortener.Code, link shortener.CachedLink) error {
	c.entries.Add(code, link)

	return nil
}

func (c *LRUCache) Delete(_ context.Context, code shortener.Code) error {
	c.entries.Remove(code)

	return nil
}

// Len returns the number of cached links.
func (c *LRUCache) Len() int {
	return c.entries.Len()
}

// Compile-time check.
var _ shortener.Cache = (*LRUCache)(nil)
