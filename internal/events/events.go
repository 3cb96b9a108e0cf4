// Package events is an in-process pub/sub bus for reservation lifecycle
// events. Subscribers (calendar publishing, cache invalidation) run
// synchronously after the reservation is committed; a failing subscriber is
// logged and never unwinds the write.
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/anye1tovar/logic-escape-room-sub000/internal/models"
)

const (
	TypeReservationCreated      = "reservation.created"
	TypeReservationReprogrammed = "reservation.reprogrammed"
	TypeReservationCancelled    = "reservation.cancelled"
)

// Event carries the reservation as it was at publish time.
type Event struct {
	Type        string
	Reservation models.Reservation
	// Prev is the reservation before a reprogram, so subscribers can react
	// to both the old and the new schedule.
	Prev  *models.Reservation
	Actor string
	At    time.Time
}

// Handler reacts to an event.
type Handler func(event Event) error

// Bus provides in-process pub/sub for reservation events.
type Bus struct {
	subscribers map[string][]Handler
	mu          sync.RWMutex
	logger      zerolog.Logger
}

func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		subscribers: make(map[string][]Handler),
		logger:      logger.With().Str("component", "events").Logger(),
	}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type in registration order.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.At.IsZero() {
		event.At = time.Now()
	}

	for _, handler := range handlers {
		if err := handler(event); err != nil {
			b.logger.Warn().Err(err).
				Str("event", event.Type).
				Int64("reservation_id", event.Reservation.ID).
				Msg("event handler failed")
		}
	}
}
