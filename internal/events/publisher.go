package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Routing keys of the domain events
const (
	ReservationCreated   = "reservation.created"
	ReservationCancelled = "reservation.cancelled"
	PaymentSucceeded     = "payment.succeeded"
	TripCompleted        = "trip.completed"
)

// Event is the envelope written to the exchange
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurredAt"`
	Data       interface{} `json:"data"`
}

func NewEvent(eventType string, data interface{}) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Publisher delivers domain events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error { return nil }
