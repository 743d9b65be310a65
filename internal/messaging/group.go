package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// ErrDuplicateTopic is returned when a topic already has a consumer in the group.
var ErrDuplicateTopic = errors.New("topic already consumed")

// Runnable is a consumer bound to one stream topic.
type Runnable interface {
	Topic() string
	Start(ctx context.Context) error
	Shutdown() error
}

// ConsumerGroup runs one consumer per topic over a shared subscriber, so
// every replica of cmd/consumer joins the same Redis consumer group.
type ConsumerGroup struct {
	consumers  []Runnable
	subscriber message.Subscriber
	logger     *zap.Logger
}

func NewConsumerGroup(subscriber message.Subscriber, logger *zap.Logger) *ConsumerGroup {
	return &ConsumerGroup{
		subscriber: subscriber,
		logger:     logger,
	}
}

// Add registers consumer. A topic can only be consumed once per group.
func (g *ConsumerGroup) Add(consumer Runnable) error {
	topic := consumer.Topic()

	for _, c := range g.consumers {
		if c.Topic() == topic {
			return fmt.Errorf("%w: %s", ErrDuplicateTopic, topic)
		}
	}

	g.consumers = append(g.consumers, consumer)

	return nil
}

// Topics lists the consumed topics in start order.
func (g *ConsumerGroup) Topics() []string {
	topics := make([]string, 0, len(g.consumers))
	for _, c := range g.consumers {
		topics = append(topics, c.Topic())
	}

	return topics
}

// Start subscribes every consumer. If one fails the ones already running are
// shut down.
func (g *ConsumerGroup) Start(ctx context.Context) error {
	for i, consumer := range g.consumers {
		if err := consumer.Start(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = g.consumers[j].Shutdown()
			}

			return fmt.Errorf("start %s consumer: %w", consumer.Topic(), err)
		}
	}

	g.logger.Info("consuming scan history", zap.Strings("topics", g.Topics()))

	return nil
}

// Shutdown stops consumers in reverse start order, then closes the subscriber.
func (g *ConsumerGroup) Shutdown() error {
	g.logger.Info("shutting down consumer group", zap.Strings("topics", g.Topics()))

	var errs []error

	for i := len(g.consumers) - 1; i >= 0; i-- {
		if err := g.consumers[i].Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("stop %s consumer: %w", g.consumers[i].Topic(), err))
		}
	}

	if err := g.subscriber.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close subscriber: %w", err))
	}

	return errors.Join(errs...)
}
