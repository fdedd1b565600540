package events

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

// Bus is a publisher/subscriber pair carrying window messages and session events
type Bus struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
	closers    []func() error
}

// Close closes both sides of the bus
func (b *Bus) Close() error {
	var first error
	for _, c := range b.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewInProcessBus creates a bus local to this process
func NewInProcessBus(logger watermill.LoggerAdapter) *Bus {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 16}, logger)
	return &Bus{
		Publisher:  pubSub,
		Subscriber: pubSub,
		closers:    []func() error{pubSub.Close},
	}
}

// NewRedisBus creates a bus on Redis streams so the callback bridge and the SDK
// may live in different processes. Subscribers read without a consumer group,
// so every subscriber sees every message.
func NewRedisBus(client redis.UniversalClient, logger watermill.LoggerAdapter) (*Bus, error) {
	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: client,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis publisher: %w", err)
	}

	subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client: client,
	}, logger)
	if err != nil {
		publisher.Close()
		return nil, fmt.Errorf("failed to create redis subscriber: %w", err)
	}

	return &Bus{
		Publisher:  publisher,
		Subscriber: subscriber,
		closers:    []func() error{subscriber.Close, publisher.Close},
	}, nil
}
