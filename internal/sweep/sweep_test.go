package sweep_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/serroba/shortlinks/internal/shortener"
	"github.com/serroba/shortlinks/internal/sweep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type countingCleaner struct {
	calls  atomic.Int64
	report shortener.CleanupReport
	err    error
}

func (c *countingCleaner) CleanupExpired(_ context.Context) (shortener.CleanupReport, error) {
	c.calls.Add(1)

	return c.report, c.err
}

func TestNewHandler(t *testing.T) {
	t.Run("runs a sweep and logs the counts", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		cleaner := &countingCleaner{report: shortener.CleanupReport{Deleted: 3, Remaining: 7}}
		handle := sweep.NewHandler(cleaner, zap.New(core))

		err := handle(context.Background(), &sweep.Request{RequestID: "req-1", RequestedAt: time.Now()})

		require.NoError(t, err)
		assert.Equal(t, int64(1), cleaner.calls.Load())

		entries := logs.FilterMessage("expired links removed").All()
		require.Len(t, entries, 1)
		assert.Equal(t, int64(3), entries[0].ContextMap()["deleted"])
		assert.Equal(t, int64(7), entries[0].ContextMap()["remaining"])
		assert.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
	})

	t.Run("returns the store error so the message is retried", func(t *testing.T) {
		cleaner := &countingCleaner{err: errors.New("store down")}
		handle := sweep.NewHandler(cleaner, zap.NewNop())

		err := handle(context.Background(), &sweep.Request{RequestID: "req-2"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "req-2")
	})
}

func TestScheduler(t *testing.T) {
	t.Run("sweeps on every tick until shut down", func(t *testing.T) {
		cleaner := &countingCleaner{}
		scheduler := sweep.NewScheduler(cleaner, 5*time.Millisecond, zap.NewNop())

		require.NoError(t, scheduler.Start(context.Background()))

		assert.Eventually(t, func() bool { return cleaner.calls.Load() >= 2 }, time.Second, time.Millisecond)
		require.NoError(t, scheduler.Shutdown())

		stopped := cleaner.calls.Load()
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, stopped, cleaner.calls.Load(), "no sweeps after shutdown")
	})

	t.Run("rejects a non-positive interval", func(t *testing.T) {
		scheduler := sweep.NewScheduler(&countingCleaner{}, 0, zap.NewNop())

		assert.Error(t, scheduler.Start(context.Background()))
		assert.NoError(t, scheduler.Shutdown())
	})

	t.Run("cannot be started twice", func(t *testing.T) {
		scheduler := sweep.NewScheduler(&countingCleaner{}, time.Hour, zap.NewNop())

		require.NoError(t, scheduler.Start(context.Background()))
		defer scheduler.Shutdown()

		assert.Error(t, scheduler.Start(context.Background()))
	})

	t.Run("keeps running after a failed sweep", func(t *testing.T) {
		cleaner := &countingCleaner{err: errors.New("store down")}
		scheduler := sweep.NewScheduler(cleaner, 5*time.Millisecond, zap.NewNop())

		require.NoError(t, scheduler.Start(context.Background()))
		defer scheduler.Shutdown()

		assert.Eventually(t, func() bool { return cleaner.calls.Load() >= 2 }, time.Second, time.Millisecond)
	})
}
