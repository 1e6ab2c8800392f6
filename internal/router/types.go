package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Errors
var (
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrMissingType       = errors.New("envelope has no type")
)

// Event is one decoded inbound message.
type Event struct {
	Type       string          // Envelope type, e.g. "queue_update"
	Data       json.RawMessage // Opaque payload (nil when the envelope has no data)
	ReceivedAt time.Time       // Local timestamp when the frame was read
	SessionID  uuid.UUID       // Session the frame arrived on
}

// Handler receives events of the types it is subscribed to.
type Handler interface {
	HandleEvent(ev Event) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(Event) error

func (f HandlerFunc) HandleEvent(ev Event) error {
	return f(ev)
}

// Subscription identifies one registration. It is comparable and can be
// passed to Unsubscribe.
type Subscription struct {
	ID   uuid.UUID
	Type string
}

// DecodeError reports a frame that is not a valid envelope.
type DecodeError struct {
	Frame []byte // Raw frame (truncated to 256 bytes)
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode envelope: %v", e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrMalformedEnvelope, e.Err}
}

// HandlerError reports a handler that failed or panicked during dispatch.
type HandlerError struct {
	Subscription Subscription
	Panic        any // Recovered value, nil for returned errors
	Err          error
}

func (e *HandlerError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("handler %s for %q panicked: %v", e.Subscription.ID, e.Subscription.Type, e.Panic)
	}
	return fmt.Sprintf("handler %s for %q: %v", e.Subscription.ID, e.Subscription.Type, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	MessagesReceived int64 // Frames handed to Dispatch
	MessagesRouted   int64 // Frames delivered to at least one handler
	ParseErrors      int64 // Frames dropped as malformed
	UnknownMessages  int64 // Frames with no registered handler
	HandlerFailures  int64 // Handler errors and panics
	Subscriptions    int   // Current number of registrations
}

// envelope is the wire format of every frame.
type envelope struct {
	Type *string         `json:"type"`
	Data json.RawMessage `json:"data"`
}

// entry is one registration in the registry.
type entry struct {
	sub     Subscription
	handler Handler
}
