package shortener

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/serroba/shortlinks/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultMaxAttempts bounds the regenerate-and-retry loop on code collisions.
const DefaultMaxAttempts = 5

// lookupTimeout bounds a store read shared by concurrent resolutions.
const lookupTimeout = 5 * time.Second

// Service implements shortening, resolution, listing and cleanup of links.
type Service struct {
	store       Repository
	cache       Cache
	generate    CodeGenerator
	baseURL     string
	maxAttempts int
	now         func() time.Time
	logger      *zap.Logger
	metrics     *metrics.Metrics
	lookups     singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock used for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithMaxAttempts sets how many codes are tried before giving up.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithLogger sets the logger for cache degradation and store failures.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics records lookups and outcomes on m. A nil m records nothing.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a link service. cache may be nil.
func NewService(store Repository, cache Cache, generate CodeGenerator, baseURL string, opts ...Option) *Service {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	s := &Service{
		store:       store,
		cache:       cache,
		generate:    generate,
		baseURL:     baseURL,
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ShortURL formats code with the configured base URL.
func (s *Service) ShortURL(code Code) string {
	return s.baseURL + string(code)
}

// Shorten maps longURL to a short code. A live mapping for the same URL is
// returned as is. expiresIn is relative to now; nil never expires and a
// negative value produces an already expired link.
func (s *Service) Shorten(ctx context.Context, longURL string, expiresIn *time.Duration) (*ShortLink, error) {
	if err := ValidateURL(longURL); err != nil {
		return nil, err
	}

	now := s.now()

	existing, err := s.findLive(ctx, longURL, now)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		s.metrics.Shorten(metrics.ShortenReused)

		return &ShortLink{Link: existing, ShortURL: s.ShortURL(existing.Code), Reused: true}, nil
	}

	link := &Link{
		LongURL:   longURL,
		URLHash:   HashURL(longURL),
		CreatedAt: time.Unix(now.Unix(), 0),
	}

	if expiresIn != nil {
		expiresAt := time.Unix(now.Add(*expiresIn).Unix(), 0)
		link.ExpiresAt = &expiresAt
	}

	if err := s.insert(ctx, link); err != nil {
		return nil, err
	}

	s.cacheSet(ctx, link)
	s.metrics.Shorten(metrics.ShortenCreated)
	s.logger.Info("short link created",
		zap.String("code", string(link.Code)),
		zap.String("long_url", link.LongURL),
	)

	return &ShortLink{Link: link, ShortURL: s.ShortURL(link.Code)}, nil
}

// findLive returns the live mapping for longURL, purging an expired one.
func (s *Service) findLive(ctx context.Context, longURL string, now time.Time) (*Link, error) {
	link, err := s.store.FindByLongURL(ctx, longURL)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("dedup lookup: %w", err)
	}

	if link.Expired(now) {
		if err := s.purge(ctx, link.Code); err != nil {
			return nil, err
		}

		return nil, nil
	}

	return link, nil
}

func (s *Service) insert(ctx context.Context, link *Link) error {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		link.Code = Code(s.generate())

		err := s.store.Insert(ctx, link)
		if err == nil {
			return nil
		}

		if !errors.Is(err, ErrDuplicateCode) {
			return fmt.Errorf("insert link: %w", err)
		}

		s.metrics.Collision()
		s.logger.Debug("short code collision",
			zap.String("code", string(link.Code)),
			zap.Int("attempt", attempt),
		)
	}

	s.logger.Error("short code space exhausted", zap.Int("attempts", s.maxAttempts))

	return fmt.Errorf("%w after %d attempts", ErrCodeSpaceExhausted, s.maxAttempts)
}

// Resolve returns the long URL behind ref, a code or a full short URL.
// It fails with ErrNotFound or ErrExpired; an expired link is deleted.
func (s *Service) Resolve(ctx context.Context, ref string) (*Target, error) {
	code, err := ExtractCode(ref)
	if err != nil {
		return nil, err
	}

	now := s.now()

	if cached := s.cacheGet(ctx, code); cached != nil {
		if cached.Expired(now) {
			return nil, s.expire(ctx, code)
		}

		s.metrics.Resolution(metrics.ResolveFound)

		return &Target{Code: code, LongURL: cached.LongURL, ExpiresAt: cached.ExpiresAt}, nil
	}

	v, err := s.findByCode(ctx, code)
	if errors.Is(err, ErrNotFound) {
		s.metrics.Resolution(metrics.ResolveNotFound)

		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("find link: %w", err)
	}

	link, _ := v.(*Link)
	if link.Expired(now) {
		return nil, s.expire(ctx, code)
	}

	s.cacheSet(ctx, link)
	s.metrics.Resolution(metrics.ResolveFound)

	return &Target{Code: code, LongURL: link.LongURL, ExpiresAt: link.ExpiresAt}, nil
}

// findByCode collapses concurrent store reads of one code. The shared read
// is detached from any single caller; each caller stops waiting when its own
// context ends.
func (s *Service) findByCode(ctx context.Context, code Code) (any, error) {
	ch := s.lookups.DoChan(string(code), func() (any, error) {
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lookupTimeout)
		defer cancel()

		return s.store.FindByCode(readCtx, code)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// expire purges code and returns ErrExpired, or the purge failure.
func (s *Service) expire(ctx context.Context, code Code) error {
	if err := s.purge(ctx, code); err != nil {
		return err
	}

	s.metrics.Resolution(metrics.ResolveExpired)

	return ErrExpired
}

func (s *Service) purge(ctx context.Context, code Code) error {
	if err := s.store.Delete(ctx, code); err != nil {
		return fmt.Errorf("delete expired link: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, code); err != nil {
			s.logger.Warn("cache delete failed", zap.String("code", string(code)), zap.Error(err))
		}
	}

	s.metrics.Purged(metrics.PurgeLazy, 1)
	s.logger.Debug("expired link purged", zap.String("code", string(code)))

	return nil
}

// List returns every stored mapping, live or expired.
func (s *Service) List(ctx context.Context) ([]Listing, error) {
	links, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}

	out := make([]Listing, 0, len(links))
	for _, link := range links {
		out = append(out, Listing{
			Code:      link.Code,
			ShortURL:  s.ShortURL(link.Code),
			LongURL:   link.LongURL,
			CreatedAt: link.CreatedAt,
			ExpiresAt: link.ExpiresAt,
		})
	}

	return out, nil
}

// CleanupExpired deletes every expired link and reports what is left.
func (s *Service) CleanupExpired(ctx context.Context) (CleanupReport, error) {
	deleted, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return CleanupReport{}, fmt.Errorf("delete expired links: %w", err)
	}

	s.metrics.Purged(metrics.PurgeSweep, deleted)

	remaining, err := s.store.Count(ctx)
	if err != nil {
		return CleanupReport{Deleted: deleted}, fmt.Errorf("count links: %w", err)
	}

	s.logger.Info("expired links removed",
		zap.Int64("deleted", deleted),
		zap.Int64("remaining", remaining),
	)

	return CleanupReport{Deleted: deleted, Remaining: remaining}, nil
}

func (s *Service) cacheGet(ctx context.Context, code Code) *CachedLink {
	if s.cache == nil {
		return nil
	}

	cached, err := s.cache.Get(ctx, code)
	if err == nil {
		s.metrics.CacheLookup(metrics.CacheHit)

		return cached
	}

	if errors.Is(err, ErrCacheMiss) {
		s.metrics.CacheLookup(metrics.CacheMiss)
	} else {
		s.metrics.CacheLookup(metrics.CacheError)
		s.logger.Warn("cache read failed, falling back to store",
			zap.String("code", string(code)),
			zap.Error(err),
		)
	}

	return nil
}

func (s *Service) cacheSet(ctx context.Context, link *Link) {
	if s.cache == nil {
		return
	}

	err := s.cache.Set(ctx, link.Code, CachedLink{LongURL: link.LongURL, ExpiresAt: link.ExpiresAt})
	if err != nil {
		s.logger.Warn("cache write failed",
			zap.String("code", string(link.Code)),
			zap.Error(err),
		)
	}
}
