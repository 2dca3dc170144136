package handlers

import "time"

// ShortenRequest is the request body for creating a short URL.
type ShortenRequest struct {
	Body struct {
		URL       string `doc:"The URL to shorten" example:"https://example.com/very/long/path" json:"url" minLength:"1"`
		ExpiresIn *int64 `doc:"Seconds until the link expires; omit for a permanent link" example:"3600" json:"expiresIn,omitempty" maximum:"9223372036" minimum:"-9223372036"`
	}
}

// ShortenResponse is returned for a created or reused short URL.
type ShortenResponse struct {
	Status  int
	Headers struct {
		Location string `doc:"The short URL location" header:"Location"`
	}
	Body struct {
		Code      string     `doc:"The short code"                       example:"abc123"                             json:"code"`
		ShortURL  string     `doc:"The full short URL"                   example:"http://short.est/abc123"            json:"shortUrl"`
		LongURL   string     `doc:"The original URL"                     example:"https://example.com/very/long/path" json:"longUrl"`
		ExpiresAt *time.Time `doc:"When the link stops resolving"                                                     json:"expiresAt,omitempty"`
		Reused    bool       `doc:"An existing live mapping was returned"                                             json:"reused"`
	}
}

// CodeRequest addresses a single short code.
type CodeRequest struct {
	Code string `doc:"The short code" example:"abc123" maxLength:"64" path:"code"`
}

// ResolveResponse is the JSON resolution of a short code.
type ResolveResponse struct {
	Body struct {
		Code      string     `doc:"The short code"   example:"abc123"                             json:"code"`
		LongURL   string     `doc:"The original URL" example:"https://example.com/very/long/path" json:"longUrl"`
		ExpiresAt *time.Time `doc:"Expiry, if any"                                                json:"expiresAt,omitempty"`
	}
}

// RedirectResponse sends the client to the original URL.
type RedirectResponse struct {
	Status  int
	Headers struct {
		Location string `header:"Location"`
	}
}

// ListResponse is the full mapping of short URLs to long URLs.
type ListResponse struct {
	Body struct {
		Count int               `doc:"Number of stored links" json:"count"`
		Links map[string]string `doc:"Short URL to long URL"  json:"links"`
	}
}

// CleanupResponse reports the outcome of a synchronous sweep.
type CleanupResponse struct {
	Body struct {
		Deleted   int64 `doc:"Expired links removed" json:"deleted"`
		Remaining int64 `doc:"Links still stored"    json:"remaining"`
	}
}

// CleanupRequestedResponse acknowledges a queued sweep.
type CleanupRequestedResponse struct {
	Body struct {
		RequestID string `doc:"Correlation ID of the queued sweep" json:"requestId"`
	}
}
