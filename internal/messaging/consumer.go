package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// Handler processes a single event. Returning an error nacks the message so
// the broker redelivers it.
type Handler[T any] func(ctx context.Context, event *T) error

// Consumer feeds messages of one topic to a typed handler, one at a time.
type Consumer[T any] struct {
	subscriber message.Subscriber
	topic      string
	handler    Handler[T]
	logger     *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewConsumer creates a consumer of topic. Nothing is received until Start.
func NewConsumer[T any](
	subscriber message.Subscriber,
	topic string,
	handler Handler[T],
	logger *zap.Logger,
) *Consumer[T] {
	return &Consumer[T]{
		subscriber: subscriber,
		topic:      topic,
		handler:    handler,
		logger:     logger.With(zap.String("topic", topic)),
	}
}

// Topic returns the topic this consumer subscribes to.
func (c *Consumer[T]) Topic() string {
	return c.topic
}

// Start subscribes and processes messages in the background until ctx is
// cancelled or Shutdown is called.
func (c *Consumer[T]) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	msgs, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		cancel()

		return fmt.Errorf("subscribe %s: %w", c.topic, err)
	}

	c.mu.Lock()
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	go c.consume(ctx, msgs, done)

	return nil
}

func (c *Consumer[T]) consume(ctx context.Context, msgs <-chan *message.Message, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}

			if c.process(ctx, msg) {
				msg.Ack()
			} else {
				msg.Nack()
			}
		}
	}
}

// process reports whether msg was handled. Undecodable payloads and handler
// failures, panics included, are logged and reported as unhandled.
func (c *Consumer[T]) process(ctx context.Context, msg *message.Message) (handled bool) {
	requestID := msg.Metadata.Get(MetadataRequestID)
	logger := c.logger.With(
		zap.String("message_id", msg.UUID),
		zap.String("request_id", requestID),
	)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("event handler panicked", zap.Any("panic", r))

			handled = false
		}
	}()

	var event T
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		logger.Error("failed to unmarshal event", zap.Error(err))

		return false
	}

	if requestID != "" {
		ctx = ContextWithRequestID(ctx, requestID)
	}

	if err := c.handler(ctx, &event); err != nil {
		logger.Error("failed to handle event", zap.Error(err))

		return false
	}

	logger.Debug("processed event")

	return true
}

// Shutdown stops the consumer and waits for the in-flight message. It is a
// no-op for a consumer that never started.
func (c *Consumer[T]) Shutdown() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}

	cancel()
	<-done

	return nil
}
