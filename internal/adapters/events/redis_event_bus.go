package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/clinicalrag/internal/domain/entities"
	"github.com/zatekoja/clinicalrag/internal/domain/providers"
)

const subscriberBuffer = 16

// RedisEventBus implements the EventBus interface using Redis Pub/Sub
type RedisEventBus struct {
	client redis.UniversalClient

	mu            sync.Mutex
	subscriptions map[*redis.PubSub]struct{}
	closed        bool
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client redis.UniversalClient) providers.EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client:        client,
		subscriptions: make(map[*redis.PubSub]struct{}),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Publish publishes an event to all subscribers
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.IndexEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Debug().Str("channel", channel).Str("event_id", event.ID).Msg("Published event")
	return nil
}

// Subscribe subscribes to events on a channel
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.IndexEvent, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, errors.New("event bus is closed")
	}
	pubsub := b.client.Subscribe(b.ctx, channel)
	b.subscriptions[pubsub] = struct{}{}
	b.mu.Unlock()

	// Wait for the subscription to be confirmed so events published right
	// after Subscribe returns are not lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		b.release(pubsub)
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	out := make(chan *entities.IndexEvent, subscriberBuffer)
	go b.receive(ctx, channel, pubsub, out)

	log.Info().Str("channel", channel).Msg("Subscribed to channel")
	return out, nil
}

// receive decodes messages from Redis until ctx or the bus is done.
func (b *RedisEventBus) receive(ctx context.Context, channel string, pubsub *redis.PubSub, out chan<- *entities.IndexEvent) {
	defer close(out)
	defer b.release(pubsub)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event entities.IndexEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warn().Err(err).Str("channel", channel).Msg("Failed to unmarshal event")
				continue
			}

			select {
			case out <- &event:
			default:
				// Subscriber channel full, skip event
				log.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("Subscriber channel full, skipping event")
			}
		}
	}
}

func (b *RedisEventBus) release(pubsub *redis.PubSub) {
	b.mu.Lock()
	_, ok := b.subscriptions[pubsub]
	delete(b.subscriptions, pubsub)
	b.mu.Unlock()

	if ok {
		if err := pubsub.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close subscription")
		}
	}
}

// Close closes the event bus and all subscriptions
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := make([]*redis.PubSub, 0, len(b.subscriptions))
	for pubsub := range b.subscriptions {
		subs = append(subs, pubsub)
	}
	b.subscriptions = make(map[*redis.PubSub]struct{})
	b.mu.Unlock()

	b.cancel()

	var errs []error
	for _, pubsub := range subs {
		if err := pubsub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
