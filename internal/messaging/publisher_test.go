package messaging_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/shortlinks/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	messages   []*message.Message
	topic      string
	publishErr error
	closeErr   error
}

func (m *mockPublisher) Publish(topic string, msgs ...*message.Message) error {
	if m.publishErr != nil {
		return m.publishErr
	}

	m.topic = topic
	m.messages = append(m.messages, msgs...)

	return nil
}

func (m *mockPublisher) Close() error {
	return m.closeErr
}

func TestNewPublishFunc(t *testing.T) {
	t.Run("publishes json payload to the topic", func(t *testing.T) {
		mock := &mockPublisher{}
		publish := messaging.NewPublishFunc[cleanupEvent](mock, "links.sweep")

		err := publish(context.Background(), &cleanupEvent{RequestedBy: "10.0.0.1"})

		require.NoError(t, err)
		assert.Equal(t, "links.sweep", mock.topic)
		require.Len(t, mock.messages, 1)
		assert.JSONEq(t, `{"requestedBy":"10.0.0.1"}`, string(mock.messages[0].Payload))
		assert.NotEmpty(t, mock.messages[0].UUID)
		assert.Empty(t, mock.messages[0].Metadata.Get(messaging.MetadataRequestID))
	})

	t.Run("copies the request id into metadata", func(t *testing.T) {
		mock := &mockPublisher{}
		publish := messaging.NewPublishFunc[cleanupEvent](mock, "links.sweep")
		ctx := messaging.ContextWithRequestID(context.Background(), "req-1")

		require.NoError(t, publish(ctx, &cleanupEvent{}))

		assert.Equal(t, "req-1", mock.messages[0].Metadata.Get(messaging.MetadataRequestID))
	})

	t.Run("returns error when publish fails", func(t *testing.T) {
		mock := &mockPublisher{publishErr: errors.New("publish error")}
		publish := messaging.NewPublishFunc[cleanupEvent](mock, "links.sweep")

		assert.Error(t, publish(context.Background(), &cleanupEvent{}))
	})
}

func TestPublisherGroup(t *testing.T) {
	t.Run("returns underlying publisher", func(t *testing.T) {
		mock := &mockPublisher{}
		group := messaging.NewPublisherGroup(mock)

		assert.Equal(t, mock, group.Publisher())
	})

	t.Run("propagates close errors", func(t *testing.T) {
		group := messaging.NewPublisherGroup(&mockPublisher{closeErr: errors.New("close error")})

		assert.Error(t, group.Shutdown())
	})
}
