package handlers

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlinks/internal/shortener"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const contentTypeHTML = "text/html; charset=utf-8"

// PageResponse is a rendered HTML page, optionally redirecting.
type PageResponse struct {
	Status      int
	ContentType string `header:"Content-Type"`
	Location    string `header:"Location"`
	Body        []byte
}

// ShortenFormRequest is the urlencoded form posted by the index page.
type ShortenFormRequest struct {
	RawBody []byte `contentType:"application/x-www-form-urlencoded"`
}

type indexPage struct {
	Error     string
	LongURL   string
	ExpiresIn string
}

type shortURLPage struct {
	Code      string
	ShortURL  string
	LongURL   string
	ExpiresAt string
	Message   string
}

// Index renders the shortening form.
func (h *URLHandler) Index(_ context.Context, _ *struct{}) (*PageResponse, error) {
	return h.render(http.StatusOK, "index.html", indexPage{})
}

// ShortenForm handles the form post and redirects to the result page.
func (h *URLHandler) ShortenForm(ctx context.Context, req *ShortenFormRequest) (*PageResponse, error) {
	form, err := url.ParseQuery(string(req.RawBody))
	if err != nil {
		return h.render(http.StatusBadRequest, "index.html", indexPage{Error: "Malformed form submission."})
	}

	page := indexPage{
		LongURL:   strings.TrimSpace(form.Get("long_url")),
		ExpiresIn: strings.TrimSpace(form.Get("expires_in")),
	}

	var expiresIn *time.Duration

	if page.ExpiresIn != "" {
		secs, err := strconv.ParseInt(page.ExpiresIn, 10, 64)
		if err != nil {
			page.Error = "Expiry must be a whole number of seconds."

			return h.render(http.StatusBadRequest, "index.html", page)
		}

		if expiresIn, err = secondsToDuration(&secs); err != nil {
			page.Error = "Expiry is out of range."

			return h.render(http.StatusBadRequest, "index.html", page)
		}
	}

	link, err := h.service.Shorten(ctx, page.LongURL, expiresIn)
	if err != nil {
		if errors.Is(err, shortener.ErrInvalidInput) {
			page.Error = "Please enter a valid http or https URL."

			return h.render(http.StatusBadRequest, "index.html", page)
		}

		return nil, h.shortenError(ctx, err)
	}

	return &PageResponse{
		Status:   http.StatusSeeOther,
		Location: "/s/" + url.PathEscape(string(link.Link.Code)),
	}, nil
}

// ShowShortURL renders the short URL page for a code.
func (h *URLHandler) ShowShortURL(ctx context.Context, req *CodeRequest) (*PageResponse, error) {
	page := shortURLPage{Code: req.Code}

	target, err := h.service.Resolve(ctx, req.Code)

	switch {
	case err == nil:
		page.ShortURL = h.service.ShortURL(target.Code)
		page.LongURL = target.LongURL

		if target.ExpiresAt != nil {
			page.ExpiresAt = target.ExpiresAt.UTC().Format(time.RFC1123)
		}

		return h.render(http.StatusOK, "short_url.html", page)
	case errors.Is(err, shortener.ErrExpired):
		page.Message = msgExpired

		return h.render(http.StatusGone, "short_url.html", page)
	case errors.Is(err, shortener.ErrNotFound), errors.Is(err, shortener.ErrInvalidInput):
		page.Message = msgNotFound

		return h.render(http.StatusNotFound, "short_url.html", page)
	}

	return nil, h.resolveError(ctx, req.Code, err)
}

func (h *URLHandler) render(status int, name string, data any) (*PageResponse, error) {
	var buf bytes.Buffer

	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.Error("failed to render page", zap.String("template", name), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to render page")
	}

	return &PageResponse{
		Status:      status,
		ContentType: contentTypeHTML,
		Body:        buf.Bytes(),
	}, nil
}
