package sweep

import (
	"context"
	"fmt"

	"github.com/serroba/shortlinks/internal/messaging"
	"github.com/serroba/shortlinks/internal/shortener"
	"go.uber.org/zap"
)

// Cleaner purges expired links.
type Cleaner interface {
	CleanupExpired(ctx context.Context) (shortener.CleanupReport, error)
}

// NewHandler returns a handler that runs one sweep per request.
func NewHandler(cleaner Cleaner, logger *zap.Logger) messaging.Handler[Request] {
	return func(ctx context.Context, req *Request) error {
		report, err := cleaner.CleanupExpired(ctx)
		if err != nil {
			return fmt.Errorf("sweep %s: %w", req.RequestID, err)
		}

		logger.Info("expired links removed",
			zap.String("request_id", req.RequestID),
			zap.String("requested_by", req.RequestedBy),
			zap.Int64("deleted", report.Deleted),
			zap.Int64("remaining", report.Remaining),
		)

		return nil
	}
}
