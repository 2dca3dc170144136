package container

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/samber/do"
	"github.com/serroba/shortlinks/internal/messaging"
	"github.com/serroba/shortlinks/internal/shortener"
	"github.com/serroba/shortlinks/internal/sweep"
	"go.uber.org/zap"
)

// SweeperConsumerGroup is the Redis streams consumer group of sweep workers.
const SweeperConsumerGroup = "shortlinks-sweeper"

// MessagingPackage provides the publisher and subscriber for sweep requests.
// The memory broker hands out one gochannel for both, so it only reaches
// consumers in the same process.
func MessagingPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*gochannel.GoChannel, error) {
		logger := do.MustInvoke[*zap.Logger](i)

		return gochannel.NewGoChannel(gochannel.Config{}, messaging.NewZapLogger(logger.Named("broker"))), nil
	})

	do.Provide(i, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.Broker == BackendMemory {
			return messaging.NewPublisherGroup(do.MustInvoke[*gochannel.GoChannel](i)), nil
		}

		conn, err := do.Invoke[*RedisConnection](i)
		if err != nil {
			return nil, err
		}

		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
			Client: conn.Client,
		}, messaging.NewZapLogger(do.MustInvoke[*zap.Logger](i).Named("broker")))
		if err != nil {
			return nil, fmt.Errorf("redis stream publisher: %w", err)
		}

		return messaging.NewPublisherGroup(publisher), nil
	})

	do.Provide(i, func(i *do.Injector) (messaging.Publish[sweep.Request], error) {
		group, err := do.Invoke[*messaging.PublisherGroup](i)
		if err != nil {
			return nil, err
		}

		return messaging.NewPublishFunc[sweep.Request](group.Publisher(), sweep.Topic), nil
	})

	do.Provide(i, func(i *do.Injector) (message.Subscriber, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.Broker == BackendMemory {
			return do.MustInvoke[*gochannel.GoChannel](i), nil
		}

		conn, err := do.Invoke[*RedisConnection](i)
		if err != nil {
			return nil, err
		}

		subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        conn.Client,
			ConsumerGroup: SweeperConsumerGroup,
		}, messaging.NewZapLogger(do.MustInvoke[*zap.Logger](i).Named("broker")))
		if err != nil {
			return nil, fmt.Errorf("redis stream subscriber: %w", err)
		}

		return subscriber, nil
	})
}

// ConsumerGroupPackage provides the consumer of sweep requests.
func ConsumerGroupPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		logger := do.MustInvoke[*zap.Logger](i).Named("sweep")

		service, err := do.Invoke[*shortener.Service](i)
		if err != nil {
			return nil, err
		}

		subscriber, err := do.Invoke[message.Subscriber](i)
		if err != nil {
			return nil, err
		}

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add("sweep-requests", messaging.NewConsumer(
			subscriber,
			sweep.Topic,
			sweep.NewHandler(service, logger),
			logger,
		))

		return group, nil
	})
}

// SchedulerPackage provides the periodic sweep. It needs no broker.
func SchedulerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*sweep.Scheduler, error) {
		opts := do.MustInvoke[*Options](i)

		service, err := do.Invoke[*shortener.Service](i)
		if err != nil {
			return nil, err
		}

		logger := do.MustInvoke[*zap.Logger](i).Named("sweep")

		return sweep.NewScheduler(service, opts.SweepInterval, logger), nil
	})
}

// StartWorkers starts the background sweep work. The request consumer runs
// only when consumeRequests is set; the scheduler runs whenever a sweep
// interval is configured, whatever the broker.
func StartWorkers(ctx context.Context, i *do.Injector, consumeRequests bool) error {
	if consumeRequests {
		group, err := do.Invoke[*messaging.ConsumerGroup](i)
		if err != nil {
			return fmt.Errorf("consumer group: %w", err)
		}

		if err := group.Start(ctx); err != nil {
			return err
		}
	}

	if do.MustInvoke[*Options](i).SweepInterval <= 0 {
		return nil
	}

	scheduler, err := do.Invoke[*sweep.Scheduler](i)
	if err != nil {
		return fmt.Errorf("sweep scheduler: %w", err)
	}

	return scheduler.Start(ctx)
}
