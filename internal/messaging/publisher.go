package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// MetadataTopic is the message metadata key holding the topic an event was published to.
const MetadataTopic = "topic"

// Publish is a function that publishes a typed event.
type Publish[T any] func(ctx context.Context, event *T) error

// Identified events are published under their own id, so a consumer that
// stores by id absorbs redeliveries.
type Identified interface {
	EventID() string
}

// NewPublishFunc creates a typed publish function for a specific topic.
func NewPublishFunc[T any](publisher message.Publisher, topic string) Publish[T] {
	return func(ctx context.Context, event *T) error {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal %s event: %w", topic, err)
		}

		id := watermill.NewUUID()
		if identified, ok := any(event).(Identified); ok && identified.EventID() != "" {
			id = identified.EventID()
		}

		msg := message.NewMessage(id, payload)
		msg.Metadata.Set(MetadataTopic, topic)
		msg.SetContext(ctx)

		if err := publisher.Publish(topic, msg); err != nil {
			return fmt.Errorf("publish %s event %s: %w", topic, id, err)
		}

		return nil
	}
}

// NewDirectPublishFunc hands events straight to handler without a broker.
// It is used when no stream is configured.
func NewDirectPublishFunc[T any](handler Handler[T], logger *zap.Logger) Publish[T] {
	return func(ctx context.Context, event *T) error {
		if err := handler(ctx, event); err != nil {
			logger.Warn("direct event handling failed", zap.Error(err))

			return err
		}

		return nil
	}
}

// PublisherGroup manages the underlying publisher lifecycle.
type PublisherGroup struct {
	publisher message.Publisher
}

// NewPublisherGroup creates a new publisher group.
func NewPublisherGroup(publisher message.Publisher) *PublisherGroup {
	return &PublisherGroup{publisher: publisher}
}

// Publisher returns the underlying message publisher for creating typed publish functions.
func (g *PublisherGroup) Publisher() message.Publisher {
	return g.publisher
}

// Shutdown closes the underlying publisher.
func (g *PublisherGroup) Shutdown() error {
	return g.publisher.Close()
}
