package handlers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/serroba/shortlinks/internal/messaging"
	"github.com/serroba/shortlinks/internal/shortener"
	"github.com/serroba/shortlinks/internal/sweep"
	"go.uber.org/zap"
)

// User-facing resolution messages.
const (
	msgNotFound = "URL not found."
	msgExpired  = "URL has expired."
)

// MaxExpiresIn is the largest expiry, in seconds either way, that a
// time.Duration can hold.
const MaxExpiresIn = math.MaxInt64 / int64(time.Second)

var errExpiresInRange = fmt.Errorf("expiresIn must be between -%d and %d seconds", MaxExpiresIn, MaxExpiresIn)

// Shortener is the link service the handlers drive.
type Shortener interface {
	Shorten(ctx context.Context, longURL string, expiresIn *time.Duration) (*shortener.ShortLink, error)
	Resolve(ctx context.Context, ref string) (*shortener.Target, error)
	List(ctx context.Context) ([]shortener.Listing, error)
	CleanupExpired(ctx context.Context) (shortener.CleanupReport, error)
	ShortURL(code shortener.Code) string
}

// URLHandler handles URL shortening operations.
type URLHandler struct {
	service      Shortener
	publishSweep messaging.Publish[sweep.Request]
	logger       *zap.Logger
	now          func() time.Time
}

// NewURLHandler creates a new URL handler.
func NewURLHandler(
	service Shortener,
	publishSweep messaging.Publish[sweep.Request],
	logger *zap.Logger,
) *URLHandler {
	return &URLHandler{
		service:      service,
		publishSweep: publishSweep,
		logger:       logger,
		now:          time.Now,
	}
}

// Shorten creates a short URL, or returns the existing live one for the same URL.
func (h *URLHandler) Shorten(ctx context.Context, req *ShortenRequest) (*ShortenResponse, error) {
	expiresIn, err := secondsToDuration(req.Body.ExpiresIn)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	link, err := h.service.Shorten(ctx, req.Body.URL, expiresIn)
	if err != nil {
		return nil, h.shortenError(ctx, err)
	}

	resp := &ShortenResponse{Status: http.StatusCreated}
	if link.Reused {
		resp.Status = http.StatusOK
	}

	resp.Headers.Location = link.ShortURL
	resp.Body.Code = string(link.Link.Code)
	resp.Body.ShortURL = link.ShortURL
	resp.Body.LongURL = link.Link.LongURL
	resp.Body.ExpiresAt = link.Link.ExpiresAt
	resp.Body.Reused = link.Reused

	return resp, nil
}

// Resolve returns the long URL behind a code without redirecting.
func (h *URLHandler) Resolve(ctx context.Context, req *CodeRequest) (*ResolveResponse, error) {
	target, err := h.service.Resolve(ctx, req.Code)
	if err != nil {
		return nil, h.resolveError(ctx, req.Code, err)
	}

	resp := &ResolveResponse{}
	resp.Body.Code = string(target.Code)
	resp.Body.LongURL = target.LongURL
	resp.Body.ExpiresAt = target.ExpiresAt

	return resp, nil
}

// Redirect sends the client to the long URL behind a code.
func (h *URLHandler) Redirect(ctx context.Context, req *CodeRequest) (*RedirectResponse, error) {
	target, err := h.service.Resolve(ctx, req.Code)
	if err != nil {
		return nil, h.resolveError(ctx, req.Code, err)
	}

	resp := &RedirectResponse{Status: http.StatusFound}
	resp.Headers.Location = target.LongURL

	return resp, nil
}

// ListLinks returns every stored mapping, expired or not.
func (h *URLHandler) ListLinks(ctx context.Context, _ *struct{}) (*ListResponse, error) {
	links, err := h.service.List(ctx)
	if err != nil {
		h.logError(ctx, "failed to list links", err)

		return nil, huma.Error500InternalServerError("failed to list links")
	}

	resp := &ListResponse{}
	resp.Body.Count = len(links)
	resp.Body.Links = make(map[string]string, len(links))

	for _, l := range links {
		resp.Body.Links[l.ShortURL] = l.LongURL
	}

	return resp, nil
}

// Cleanup purges expired links synchronously.
func (h *URLHandler) Cleanup(ctx context.Context, _ *struct{}) (*CleanupResponse, error) {
	report, err := h.service.CleanupExpired(ctx)
	if err != nil {
		h.logError(ctx, "cleanup failed", err)

		return nil, huma.Error500InternalServerError("cleanup failed")
	}

	resp := &CleanupResponse{}
	resp.Body.Deleted = report.Deleted
	resp.Body.Remaining = report.Remaining

	return resp, nil
}

// RequestCleanup queues a sweep for a background worker.
func (h *URLHandler) RequestCleanup(ctx context.Context, _ *struct{}) (*CleanupRequestedResponse, error) {
	meta := RequestMetaFromContext(ctx)
	if meta.RequestID == "" {
		meta.RequestID = uuid.NewString()
	}

	event := &sweep.Request{
		RequestID:   meta.RequestID,
		RequestedAt: h.now().UTC(),
		RequestedBy: meta.ClientIP,
	}

	if err := h.publishSweep(ctx, event); err != nil {
		h.logError(ctx, "failed to publish sweep request", err)

		return nil, huma.Error503ServiceUnavailable("sweep queue unavailable")
	}

	resp := &CleanupRequestedResponse{}
	resp.Body.RequestID = event.RequestID

	return resp, nil
}

func (h *URLHandler) shortenError(ctx context.Context, err error) error {
	if errors.Is(err, shortener.ErrInvalidInput) {
		return huma.Error400BadRequest(err.Error())
	}

	h.logError(ctx, "failed to shorten url", err)

	return huma.Error500InternalServerError("failed to save url")
}

func (h *URLHandler) resolveError(ctx context.Context, code string, err error) error {
	switch {
	case errors.Is(err, shortener.ErrNotFound), errors.Is(err, shortener.ErrInvalidInput):
		return huma.Error404NotFound(msgNotFound)
	case errors.Is(err, shortener.ErrExpired):
		return huma.Error410Gone(msgExpired)
	}

	h.logger.Error("failed to resolve code",
		zap.String("code", code),
		zap.String("request_id", RequestMetaFromContext(ctx).RequestID),
		zap.Error(err),
	)

	return huma.Error500InternalServerError("failed to get url")
}

func (h *URLHandler) logError(ctx context.Context, msg string, err error) {
	h.logger.Error(msg,
		zap.String("request_id", RequestMetaFromContext(ctx).RequestID),
		zap.Error(err),
	)
}

func secondsToDuration(secs *int64) (*time.Duration, error) {
	if secs == nil {
		return nil, nil
	}

	if *secs > MaxExpiresIn || *secs < -MaxExpiresIn {
		return nil, errExpiresInRange
	}

	d := time.Duration(*secs) * time.Second

	return &d, nil
}
