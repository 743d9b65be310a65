package container

import (
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/samber/do"
	"github.com/serroba/qr-safe/internal/history"
	"github.com/serroba/qr-safe/internal/messaging"
	"github.com/serroba/qr-safe/internal/store"
	"go.uber.org/zap"
)

const historyConsumerGroup = "qr-safe-history"

// HistoryStorePackage provides the scan history store: PostgreSQL when
// history is enabled and reachable, otherwise a store that only logs.
func HistoryStorePackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (history.Store, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if !opts.HistoryEnabled {
			return history.NewNoop(logger), nil
		}

		pg, err := do.Invoke[*Postgres](i)
		if err != nil {
			logger.Warn("postgres unavailable, scan history will only be logged", zap.Error(err))

			return history.NewNoop(logger), nil
		}

		return store.NewPostgresHistory(pg.Pool), nil
	})
}

// PublisherGroupPackage provides the Redis Streams publisher.
func PublisherGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		client := do.MustInvoke[*Redis](i).Client
		logger := do.MustInvoke[*zap.Logger](i)

		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
			Client:     client,
			Marshaller: redisstream.DefaultMarshallerUnmarshaller{},
		}, newWatermillLogger(logger))
		if err != nil {
			return nil, err
		}

		return messaging.NewPublisherGroup(publisher), nil
	})
}

// HistoryPublisherPackage provides the scan history publish function. With
// Redis and history enabled, events go to the stream for cmd/consumer.
// Otherwise they are handled in process.
func HistoryPublisherPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (messaging.Publish[history.ScanRecordedEvent], error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.HistoryEnabled && do.MustInvoke[*Redis](i).Client != nil {
			group := do.MustInvoke[*messaging.PublisherGroup](i)

			return messaging.NewPublishFunc[history.ScanRecordedEvent](group.Publisher(), history.TopicScanRecorded), nil
		}

		historyStore := do.MustInvoke[history.Store](i)

		return messaging.NewDirectPublishFunc(history.NewHandler(historyStore, logger), logger), nil
	})
}

// ConsumerGroupPackage provides the scan history consumers.
func ConsumerGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		client := do.MustInvoke[*Redis](i).Client
		logger := do.MustInvoke[*zap.Logger](i)

		subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        client,
			Unmarshaller:  redisstream.DefaultMarshallerUnmarshaller{},
			ConsumerGroup: historyConsumerGroup,
		}, newWatermillLogger(logger))
		if err != nil {
			return nil, err
		}

		group := messaging.NewConsumerGroup(subscriber, logger)

		err = group.Add(messaging.NewConsumer(
			subscriber,
			history.TopicScanRecorded,
			history.NewHandler(do.MustInvoke[history.Store](i), logger),
			logger,
		))
		if err != nil {
			return nil, err
		}

		return group, nil
	})
}
