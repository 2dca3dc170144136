package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/serroba/shortlinks/internal/handlers"
	"github.com/serroba/shortlinks/internal/messaging"
	"github.com/serroba/shortlinks/internal/shortener"
	"github.com/serroba/shortlinks/internal/store"
	"github.com/serroba/shortlinks/internal/sweep"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const baseURL = "http://short.est/"

var (
	epoch      = time.Unix(1_700_000_000, 0)
	errBackend = errors.New("backend unavailable")
)

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

type recordingPublisher struct {
	events []*sweep.Request
	err    error
}

func (p *recordingPublisher) publish(_ context.Context, event *sweep.Request) error {
	if p.err != nil {
		return p.err
	}

	p.events = append(p.events, event)

	return nil
}

// failingService fails every operation with a backend error.
type failingService struct{}

func (failingService) Shorten(context.Context, string, *time.Duration) (*shortener.ShortLink, error) {
	return nil, errBackend
}

func (failingService) Resolve(context.Context, string) (*shortener.Target, error) {
	return nil, errBackend
}

func (failingService) List(context.Context) ([]shortener.Listing, error) {
	return nil, errBackend
}

func (failingService) CleanupExpired(context.Context) (shortener.CleanupReport, error) {
	return shortener.CleanupReport{}, errBackend
}

func (failingService) ShortURL(code shortener.Code) string {
	return baseURL + string(code)
}

type testServer struct {
	router    *chi.Mux
	store     *store.MemoryStore
	clock     *fakeClock
	published *recordingPublisher
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	memStore := store.NewMemoryStore()

	cache, err := store.NewLRUCache(64)
	require.NoError(t, err)

	gen, err := shortener.NewCodeGenerator(shortener.DefaultCodeLength)
	require.NoError(t, err)

	clock := &fakeClock{now: epoch}
	service := shortener.NewService(memStore, cache, gen, baseURL, shortener.WithClock(clock.Now))

	srv := &testServer{store: memStore, clock: clock, published: &recordingPublisher{}}
	srv.router = newRouter(service, srv.published.publish)

	return srv
}

func newRouter(service handlers.Shortener, publish messaging.Publish[sweep.Request]) *chi.Mux {
	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("Test", "1.0.0"))
	handlers.RegisterRoutes(api, handlers.NewURLHandler(service, publish, zap.NewNop()))

	return router
}

func serve(router http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	ct := ""
	if body != "" {
		ct = "application/json"
	}

	return serve(s.router, method, path, ct, body)
}
