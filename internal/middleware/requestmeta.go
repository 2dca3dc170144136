package middleware

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/serroba/shortlinks/internal/handlers"
	"github.com/serroba/shortlinks/internal/messaging"
)

// HeaderRequestID carries the request correlation ID in both directions.
const HeaderRequestID = "X-Request-ID"

// RequestMeta is a middleware that adds a request ID, client IP and user-agent
// to the request context and echoes the request ID back to the client.
func RequestMeta(_ huma.API, trustProxy bool) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		requestID := ctx.Header(HeaderRequestID)
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}

		meta := handlers.RequestMeta{
			RequestID: requestID,
			ClientIP:  clientIP(ctx, trustProxy),
			UserAgent: ctx.Header("User-Agent"),
		}

		newCtx := handlers.ContextWithRequestMeta(ctx.Context(), meta)
		newCtx = messaging.ContextWithRequestID(newCtx, requestID)
		ctx = huma.WithContext(ctx, newCtx)

		ctx.SetHeader(HeaderRequestID, requestID)

		next(ctx)
	}
}
