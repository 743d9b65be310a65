package messaging_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/qr-safe/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
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

type anonymousEvent struct {
	Name string `json:"name"`
}

func TestNewPublishFunc(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes identified events under their id", func(t *testing.T) {
		mock := &mockPublisher{}
		publish := messaging.NewPublishFunc[testEvent](mock, "test.topic")

		err := publish(ctx, &testEvent{ID: "123", Name: "test"})

		require.NoError(t, err)
		assert.Equal(t, "test.topic", mock.topic)
		require.Len(t, mock.messages, 1)
		assert.Equal(t, "123", mock.messages[0].UUID)
		assert.Equal(t, "test.topic", mock.messages[0].Metadata.Get(messaging.MetadataTopic))
		assert.Contains(t, string(mock.messages[0].Payload), `"id":"123"`)
	})

	t.Run("generates ids for anonymous events", func(t *testing.T) {
		mock := &mockPublisher{}
		publish := messaging.NewPublishFunc[anonymousEvent](mock, "test.topic")

		require.NoError(t, publish(ctx, &anonymousEvent{Name: "a"}))
		require.NoError(t, publish(ctx, &anonymousEvent{Name: "b"}))

		require.Len(t, mock.messages, 2)
		assert.NotEmpty(t, mock.messages[0].UUID)
		assert.NotEqual(t, mock.messages[0].UUID, mock.messages[1].UUID)
	})

	t.Run("wraps publish errors", func(t *testing.T) {
		publishErr := errors.New("publish error")
		mock := &mockPublisher{publishErr: publishErr}
		publish := messaging.NewPublishFunc[testEvent](mock, "test.topic")

		err := publish(ctx, &testEvent{ID: "123"})

		require.ErrorIs(t, err, publishErr)
		assert.Contains(t, err.Error(), "test.topic")
	})
}

func TestNewDirectPublishFunc(t *testing.T) {
	var handled []string

	handlerErr := errors.New("store down")
	publish := messaging.NewDirectPublishFunc(func(_ context.Context, event *testEvent) error {
		if event.Name == "fail" {
			return handlerErr
		}

		handled = append(handled, event.ID)

		return nil
	}, zap.NewNop())

	require.NoError(t, publish(context.Background(), &testEvent{ID: "1"}))
	require.ErrorIs(t, publish(context.Background(), &testEvent{ID: "2", Name: "fail"}), handlerErr)
	assert.Equal(t, []string{"1"}, handled)
}

func TestPublisherGroup(t *testing.T) {
	t.Run("returns underlying publisher", func(t *testing.T) {
		mock := &mockPublisher{}
		group := messaging.NewPublisherGroup(mock)

		assert.Equal(t, mock, group.Publisher())
	})

	t.Run("returns error when close fails", func(t *testing.T) {
		mock := &mockPublisher{closeErr: errors.New("close error")}
		group := messaging.NewPublisherGroup(mock)

		err := group.Shutdown()

		assert.Error(t, err)
	})
}
