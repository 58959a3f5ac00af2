// Package eventbus provides synchronous in-process event dispatch and an
// optional RabbitMQ publisher for subscription lifecycle events.
package eventbus

import (
	"context"
	"encoding/json"
)

// Event is the unit delivered to in-process subscribers.
type Event struct {
	RoutingKey string
	Payload    json.RawMessage
}

// Handler consumes a dispatched event.
type Handler func(ctx context.Context, event Event)

// Publisher sends a serialized event to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
	Close() error
}
