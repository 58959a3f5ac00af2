package eventbus

import (
	"context"
	"log/slog"
	"sync"
)

// InProcessBus delivers events synchronously, in subscription order.
//
// Dispatch iterates a snapshot of the subscriber list and removal is id-based
// rather than index-based, so a handler may cancel its own subscription while
// a dispatch is running without shifting entries still being visited.
type InProcessBus struct {
	mu     sync.Mutex
	nextID int
	subs   map[string][]busSubscription
	logger *slog.Logger
}

type busSubscription struct {
	id      int
	handler Handler
}

// NewInProcessBus creates a new in-process bus.
func NewInProcessBus(logger *slog.Logger) *InProcessBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &InProcessBus{
		subs:   make(map[string][]busSubscription),
		logger: logger,
	}
}

// Subscribe registers a handler for a routing key and returns a function
// that cancels the subscription. Cancelling twice is harmless.
func (b *InProcessBus) Subscribe(routingKey string, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.subs[routingKey] = append(b.subs[routingKey], busSubscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[routingKey]
		for i, s := range list {
			if s.id == id {
				b.subs[routingKey] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// Publish dispatches the event to every subscriber registered for the
// routing key at the time of the call. Handlers run on the caller's
// goroutine; Publish returns after the last handler does.
func (b *InProcessBus) Publish(ctx context.Context, routingKey string, payload []byte) error {
	b.mu.Lock()
	snapshot := make([]busSubscription, len(b.subs[routingKey]))
	copy(snapshot, b.subs[routingKey])
	b.mu.Unlock()

	if len(snapshot) == 0 {
		b.logger.Debug("no subscribers for event", "routing_key", routingKey)
		return nil
	}

	event := Event{RoutingKey: routingKey, Payload: payload}
	for _, s := range snapshot {
		s.handler(ctx, event)
	}
	return nil
}

// SubscriberCount returns the number of handlers registered for a key.
func (b *InProcessBus) SubscriberCount(routingKey string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[routingKey])
}

// Close is a no-op for the in-process bus.
func (b *InProcessBus) Close() error { return nil }
