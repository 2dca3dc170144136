package shortener_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/serroba/shortlinks/internal/shortener"
)

var errBackend = errors.New("backend unavailable")

var epoch = time.Unix(1_700_000_000, 0)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// countingRepository wraps a Repository and counts code lookups.
type countingRepository struct {
	shortener.Repository
	findByCode atomic.Int64
}

func (r *countingRepository) FindByCode(ctx context.Context, code shortener.Code) (*shortener.Link, error) {
	r.findByCode.Add(1)

	return r.Repository.FindByCode(ctx, code)
}

// failingRepository fails selected operations.
type failingRepository struct {
	shortener.Repository
	findErr   error
	insertErr error
	deleteErr error
	countErr  error
}

func (r *failingRepository) FindByLongURL(ctx context.Context, longURL string) (*shortener.Link, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}

	return r.Repository.FindByLongURL(ctx, longURL)
}

func (r *failingRepository) FindByCode(ctx context.Context, code shortener.Code) (*shortener.Link, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}

	return r.Repository.FindByCode(ctx, code)
}

func (r *failingRepository) Insert(ctx context.Context, link *shortener.Link) error {
	if r.insertErr != nil {
		return r.insertErr
	}

	return r.Repository.Insert(ctx, link)
}

func (r *failingRepository) Delete(ctx context.Context, code shortener.Code) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}

	return r.Repository.Delete(ctx, code)
}

func (r *failingRepository) Count(ctx context.Context) (int64, error) {
	if r.countErr != nil {
		return 0, r.countErr
	}

	return r.Repository.Count(ctx)
}

// brokenCache fails every operation, like an unreachable cache backend.
type brokenCache struct{}

func (brokenCache) Get(context.Context, shortener.Code) (*shortener.CachedLink, error) {
	return nil, errBackend
}

func (brokenCache) Set(context.Context, shortener.Code, shortener.CachedLink) error {
	return errBackend
}

func (brokenCache) Delete(context.Context, shortener.Code) error {
	return errBackend
}

// sequence returns a generator that replays codes, then repeats the last one.
func sequence(codes ...string) shortener.CodeGenerator {
	var (
		mu sync.Mutex
		i  int
	)

	return func() string {
		mu.Lock()
		defer mu.Unlock()

		code := codes[min(i, len(codes)-1)]
		i++

		return code
	}
}

// blockingRepository holds code lookups until release is closed. A lookup
// whose context ends first fails with the context error.
type blockingRepository struct {
	shortener.Repository
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int64
}

func newBlockingRepository(repo shortener.Repository) *blockingRepository {
	return &blockingRepository{
		Repository: repo,
		entered:    make(chan struct{}, 8),
		release:    make(chan struct{}),
	}
}

func (r *blockingRepository) FindByCode(ctx context.Context, code shortener.Code) (*shortener.Link, error) {
	r.calls.Add(1)
	r.entered <- struct{}{}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.release:
	}

	return r.Repository.FindByCode(ctx, code)
}
