package providers

import (
	"context"

	"github.com/zatekoja/clinicalrag/internal/domain/entities"
)

// EventChannelIndexUpdates carries index lifecycle events between the
// pipeline and running servers.
const EventChannelIndexUpdates = "clinicalrag:index:updates"

// EventBus defines the interface for publishing and subscribing to events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.IndexEvent) error

	// Subscribe delivers events on channel until ctx is done or the bus is
	// closed, then closes the returned channel.
	Subscribe(ctx context.Context, channel string) (<-chan *entities.IndexEvent, error)

	// Close closes the event bus and all subscriptions
	Close() error
}
