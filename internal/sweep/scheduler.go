package sweep

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Scheduler runs a sweep every interval until shut down.
type Scheduler struct {
	cleaner  Cleaner
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a scheduler. Start fails when interval is not positive.
func NewScheduler(cleaner Cleaner, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cleaner:  cleaner,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the ticker loop in the background.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return errors.New("sweep interval must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return errors.New("scheduler already started")
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.loop(ctx)

	s.logger.Info("sweep scheduler started", zap.Duration("interval", s.interval))

	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	report, err := s.cleaner.CleanupExpired(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("scheduled sweep failed", zap.Error(err))
		}

		return
	}

	s.logger.Info("expired links removed",
		zap.Int64("deleted", report.Deleted),
		zap.Int64("remaining", report.Remaining),
	)
}

// Shutdown stops the loop and waits for an in-flight sweep to finish.
func (s *Scheduler) Shutdown() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()
	<-done

	return nil
}
