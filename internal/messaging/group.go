package messaging

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// Runnable represents a component that can be started and shutdown.
type Runnable interface {
	Start(ctx context.Context) error
	Shutdown() error
}

type member struct {
	name     string
	runnable Runnable
}

// ConsumerGroup runs consumers and background workers with one lifecycle and
// closes the shared subscriber last.
type ConsumerGroup struct {
	members    []member
	subscriber message.Subscriber
	logger     *zap.Logger
}

// NewConsumerGroup creates a new consumer group.
func NewConsumerGroup(subscriber message.Subscriber, logger *zap.Logger) *ConsumerGroup {
	return &ConsumerGroup{
		subscriber: subscriber,
		logger:     logger,
	}
}

// Add registers a named runnable with the group.
func (g *ConsumerGroup) Add(name string, r Runnable) {
	g.members = append(g.members, member{name: name, runnable: r})
}

// Start starts every member in registration order. On failure the members
// already started are shut down again.
func (g *ConsumerGroup) Start(ctx context.Context) error {
	for i, m := range g.members {
		if err := m.runnable.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = g.members[j].runnable.Shutdown()
			}

			return fmt.Errorf("start %s: %w", m.name, err)
		}

		g.logger.Debug("consumer started", zap.String("name", m.name))
	}

	g.logger.Info("consumer group started", zap.Int("count", len(g.members)))

	return nil
}

// Shutdown stops all members and returns the first error.
func (g *ConsumerGroup) Shutdown() error {
	g.logger.Info("shutting down consumer group")

	var firstErr error

	for _, m := range g.members {
		if err := m.runnable.Shutdown(); err != nil {
			g.logger.Error("consumer shutdown failed", zap.String("name", m.name), zap.Error(err))

			if firstErr == nil {
				firstErr = fmt.Errorf("shutdown %s: %w", m.name, err)
			}
		}
	}

	if g.subscriber != nil {
		if err := g.subscriber.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
