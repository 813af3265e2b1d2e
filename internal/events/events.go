// Package events publishes domain events (recipe created/deleted, new
// subscriptions) for downstream consumers. Publishing is best effort: callers
// log failures and carry on.
package events

import (
	"context"
	"time"
)

// Event types.
const (
	RecipeCreated       = "recipe.created"
	RecipeDeleted       = "recipe.deleted"
	SubscriptionCreated = "subscription.created"
)

// Event is the JSON body of a published message.
type Event struct {
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data"`
}

// New builds an Event stamped with the current UTC time.
func New(typ string, data map[string]any) Event {
	return Event{Type: typ, OccurredAt: time.Now().UTC(), Data: data}
}

// Publisher sends events to a broker.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }
