package eventbus

import (
	"context"
	"maps"
	"time"
)

// EventType names a kind of event.
type EventType string

const (
	// Dispatcher lifecycle events
	EventActionStarted   EventType = "action_started"
	EventActionSucceeded EventType = "action_succeeded"
	EventActionFailed    EventType = "action_failed"
	EventActionRejected  EventType = "action_rejected"

	// Async execution events
	EventAsyncExecutionStarted   EventType = "async_execution_started"
	EventAsyncExecutionCancelled EventType = "async_execution_cancelled"

	// Discovery events
	EventSearchRoundCompleted EventType = "search_round_completed"

	// EventHandlerFailed is published when a handler still fails after all retries.
	EventHandlerFailed EventType = "handler_failed"
)

// EventHandler reacts to one delivered event. A non-nil error triggers a retry.
type EventHandler func(context.Context, Event) error

// Event is a published fact about the assistant.
type Event interface {
	Type() EventType
	Payload() any
	Metadata() map[string]any
	Timestamp() int64 // unix nanoseconds
	Source() string
}

// Publisher accepts events for delivery.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// EventBus delivers events to subscribers asynchronously.
type EventBus interface {
	Publisher
	Subscribe(eventTypes []EventType, handler EventHandler) (string, error)
	SubscribeAll(handler EventHandler) (string, error)
	Unsubscribe(subscriptionID string) error

	// Close stops delivery. Events still queued are dropped.
	Close() error
}

// ActionPayload is carried by the dispatcher lifecycle events.
type ActionPayload struct {
	ExecutionID string        `json:"execution_id,omitempty"`
	ActionID    string        `json:"action_id"`
	DisplayName string        `json:"display_name"`
	Duration    time.Duration `json:"duration,omitempty"`
	Error       string        `json:"error,omitempty"`
}

// SearchRoundPayload is carried by EventSearchRoundCompleted.
type SearchRoundPayload struct {
	Round        int `json:"round"`
	RadiusMeters int `json:"radius_meters"`
	Limit        int `json:"limit"`
	Raw          int `json:"raw"`
	Kept         int `json:"kept"`
}

// HandlerFailurePayload is carried by EventHandlerFailed.
type HandlerFailurePayload struct {
	EventType EventType `json:"event_type"`
	Attempts  int       `json:"attempts"`
	Error     string    `json:"error"`
}

// Envelope is the Event implementation used throughout the assistant.
type Envelope struct {
	kind     EventType
	payload  any
	meta     map[string]any
	at       time.Time
	producer string
}

// NewEvent stamps an event with the current time. The metadata map is copied.
func NewEvent(eventType EventType, payload any, source string, metadata map[string]any) *Envelope {
	meta := make(map[string]any, len(metadata))
	maps.Copy(meta, metadata)
	return &Envelope{kind: eventType, payload: payload, meta: meta, at: time.Now(), producer: source}
}

func (e *Envelope) Type() EventType          { return e.kind }
func (e *Envelope) Payload() any             { return e.payload }
func (e *Envelope) Metadata() map[string]any { return e.meta }
func (e *Envelope) Timestamp() int64         { return e.at.UnixNano() }
func (e *Envelope) Source() string           { return e.producer }
