// Package domain holds the shared event kernel used across bounded contexts.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent represents something that happened in the domain.
type DomainEvent interface {
	EventID() uuid.UUID
	AggregateID() string
	RoutingKey() string
	OccurredAt() time.Time
}

// BaseEvent provides common event plumbing. Fields are exported so concrete
// events serialize to JSON without custom marshalers.
type BaseEvent struct {
	ID        uuid.UUID `json:"event_id"`
	Aggregate string    `json:"aggregate_id"`
	Key       string    `json:"routing_key"`
	At        time.Time `json:"occurred_at"`
}

// NewBaseEvent creates a new base event for the given aggregate.
func NewBaseEvent(aggregateID, routingKey string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New(),
		Aggregate: aggregateID,
		Key:       routingKey,
		At:        time.Now().UTC(),
	}
}

func (e BaseEvent) EventID() uuid.UUID    { return e.ID }
func (e BaseEvent) AggregateID() string   { return e.Aggregate }
func (e BaseEvent) RoutingKey() string    { return e.Key }
func (e BaseEvent) OccurredAt() time.Time { return e.At }
