package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventReservationRequested = "reservation_requested"
	EventReservationApproved  = "reservation_approved"
	EventReservationRejected  = "reservation_rejected"
	EventReservationCancelled = "reservation_cancelled"
	EventReservationExtended  = "reservation_extended"
	EventReturnRequested      = "return_requested"
	EventReturnApproved       = "return_approved"
	EventReservationReturned  = "reservation_returned"
)

// AllTypes lists every reservation event type, in no particular order.
func AllTypes() []string {
	return []string{
		EventReservationRequested,
		EventReservationApproved,
		EventReservationRejected,
		EventReservationCancelled,
		EventReservationExtended,
		EventReturnRequested,
		EventReturnApproved,
		EventReservationReturned,
	}
}

// ReservationEventPayload describes the minimal reservation snapshot for
// event consumers.
type ReservationEventPayload struct {
	ReservationID int64     `json:"reservation_id"`
	BookID        int64     `json:"book_id"`
	BookTitle     string    `json:"book_title"`
	UserID        int64     `json:"user_id"`
	UserName      string    `json:"user_name"`
	Status        string    `json:"status"`
	DueDate       time.Time `json:"due_date"`
	Actor         string    `json:"actor,omitempty"`
	ActorID       int64     `json:"actor_id,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
