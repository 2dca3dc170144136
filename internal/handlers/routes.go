package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlinks/internal/ratelimit"
)

var (
	writeLimited = map[string]any{
		ratelimit.MetadataKey: ratelimit.EndpointConfig{Scope: ratelimit.ScopeWrite},
	}
	unlimited = map[string]any{
		ratelimit.MetadataKey: ratelimit.EndpointConfig{Disabled: true},
	}
)

// RegisterRoutes registers the JSON API, the HTML pages and the admin routes.
// Only link creation is rate limited.
func RegisterRoutes(api huma.API, h *URLHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "shorten",
		Method:        http.MethodPost,
		Path:          "/api/shorten",
		Summary:       "Create short URL",
		Description:   "Creates a short URL, or returns the existing live one for the same long URL.",
		Tags:          []string{"URLs"},
		DefaultStatus: http.StatusCreated,
		Metadata:      writeLimited,
	}, h.Shorten)

	huma.Register(api, huma.Operation{
		OperationID: "resolve",
		Method:      http.MethodGet,
		Path:        "/api/resolve/{code}",
		Summary:     "Resolve short code",
		Tags:        []string{"URLs"},
		Errors:      []int{http.StatusNotFound, http.StatusGone},
	}, h.Resolve)

	huma.Register(api, huma.Operation{
		OperationID: "list-links",
		Method:      http.MethodGet,
		Path:        "/api/links",
		Summary:     "List every link",
		Tags:        []string{"URLs"},
	}, h.ListLinks)

	huma.Register(api, huma.Operation{
		OperationID: "cleanup",
		Method:      http.MethodPost,
		Path:        "/admin/cleanup",
		Summary:     "Purge expired links now",
		Tags:        []string{"Admin"},
		Metadata:    unlimited,
	}, h.Cleanup)

	huma.Register(api, huma.Operation{
		OperationID:   "request-cleanup",
		Method:        http.MethodPost,
		Path:          "/admin/cleanup/requests",
		Summary:       "Queue a sweep of expired links",
		Tags:          []string{"Admin"},
		DefaultStatus: http.StatusAccepted,
		Metadata:      unlimited,
	}, h.RequestCleanup)

	huma.Register(api, huma.Operation{
		OperationID: "index",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "Shortening form",
		Tags:        []string{"Pages"},
		Hidden:      true,
	}, h.Index)

	huma.Register(api, huma.Operation{
		OperationID: "shorten-form",
		Method:      http.MethodPost,
		Path:        "/shorten",
		Summary:     "Shorten from the form",
		Tags:        []string{"Pages"},
		Hidden:      true,
		Metadata:    writeLimited,
	}, h.ShortenForm)

	huma.Register(api, huma.Operation{
		OperationID: "show-short-url",
		Method:      http.MethodGet,
		Path:        "/s/{code}",
		Summary:     "Short URL page",
		Tags:        []string{"Pages"},
		Hidden:      true,
	}, h.ShowShortURL)

	huma.Register(api, huma.Operation{
		OperationID: "redirect",
		Method:      http.MethodGet,
		Path:        "/{code}",
		Summary:     "Redirect to original URL",
		Tags:        []string{"URLs"},
		Errors:      []int{http.StatusNotFound, http.StatusGone},
	}, h.Redirect)
}
