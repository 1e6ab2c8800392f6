package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
)

const maxFrameInError = 256

// Router holds the subscription registry and dispatches events.
type Router struct {
	logger *slog.Logger

	mu       sync.RWMutex
	handlers map[string][]*entry

	onFailure func(error)

	// Stats
	statsMu         sync.Mutex
	received        int64
	routed          int64
	parseErrors     int64
	unknownMessages int64
	handlerFailures int64
}

// NewRouter creates an empty Router.
func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}

	return &Router{
		logger:   logger,
		handlers: make(map[string][]*entry),
	}
}

// OnHandlerFailure registers fn to receive a *HandlerError for every
// handler that fails during dispatch.
func (r *Router) OnHandlerFailure(fn func(error)) {
	r.mu.Lock()
	r.onFailure = fn
	r.mu.Unlock()
}

// Subscribe registers h under eventType. Registering an equal handler
// (the same pointer, or an equal comparable value) twice under one type
// returns the existing Subscription, so it is still invoked once per
// event. Function handlers have no identity; each call adds a new
// registration.
func (r *Router) Subscribe(eventType string, h Handler) Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	if hasIdentity(h) {
		for _, e := range r.handlers[eventType] {
			if hasIdentity(e.handler) && e.handler == h {
				return e.sub
			}
		}
	}

	e := &entry{
		sub:     Subscription{ID: uuid.New(), Type: eventType},
		handler: h,
	}
	r.handlers[eventType] = append(r.handlers[eventType], e)

	r.logger.Debug("subscribed", "type", eventType, "subscription", e.sub.ID)
	return e.sub
}

// SubscribeFunc is Subscribe for a plain function.
func (r *Router) SubscribeFunc(eventType string, fn func(Event) error) Subscription {
	return r.Subscribe(eventType, HandlerFunc(fn))
}

// Unsubscribe removes the given subscriptions from eventType, or every
// subscription for eventType when none are given. Unknown subscriptions
// are ignored.
func (r *Router) Unsubscribe(eventType string, subs ...Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.handlers[eventType]
	if !ok {
		return
	}

	if len(subs) == 0 {
		delete(r.handlers, eventType)
		r.logger.Debug("unsubscribed all", "type", eventType, "count", len(current))
		return
	}

	drop := make(map[uuid.UUID]struct{}, len(subs))
	for _, s := range subs {
		drop[s.ID] = struct{}{}
	}

	// Build a new slice: snapshots taken by an in-flight Dispatch keep
	// referencing the old one.
	kept := make([]*entry, 0, len(current))
	for _, e := range current {
		if _, ok := drop[e.sub.ID]; !ok {
			kept = append(kept, e)
		}
	}

	if len(kept) == 0 {
		delete(r.handlers, eventType)
	} else {
		r.handlers[eventType] = kept
	}
}

// Clear removes every subscription.
func (r *Router) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = make(map[string][]*entry)
}

// Len returns the number of subscriptions registered for eventType.
func (r *Router) Len(eventType string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[eventType])
}

// Types returns the event types that have at least one subscription.
func (r *Router) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	return types
}

// Stats returns current statistics.
func (r *Router) Stats() RouterStats {
	r.mu.RLock()
	subs := 0
	for _, es := range r.handlers {
		subs += len(es)
	}
	r.mu.RUnlock()

	r.statsMu.Lock()
	defer r.statsMu.Unlock()

	return RouterStats{
		MessagesReceived: r.received,
		MessagesRouted:   r.routed,
		ParseErrors:      r.parseErrors,
		UnknownMessages:  r.unknownMessages,
		HandlerFailures:  r.handlerFailures,
		Subscriptions:    subs,
	}
}

// Dispatch decodes one frame and invokes every handler registered for its
// type. A malformed frame returns a *DecodeError and is dropped; a frame
// with no handlers is dropped silently. Handler failures never surface
// as a Dispatch error.
func (r *Router) Dispatch(data []byte, receivedAt time.Time, sessionID uuid.UUID) error {
	r.count(&r.received)

	ev, err := decode(data)
	if err != nil {
		r.count(&r.parseErrors)
		r.logger.Warn("failed to decode envelope", "error", err)
		return err
	}
	ev.ReceivedAt = receivedAt
	ev.SessionID = sessionID

	r.mu.RLock()
	snapshot := r.handlers[ev.Type]
	onFailure := r.onFailure
	r.mu.RUnlock()

	if len(snapshot) == 0 {
		r.count(&r.unknownMessages)
		r.logger.Debug("no subscribers for message type", "type", ev.Type)
		return nil
	}

	delivered := false
	for _, e := range snapshot {
		herr := r.invoke(e, ev)
		if herr == nil {
			delivered = true
			continue
		}

		r.count(&r.handlerFailures)
		r.logger.Error("subscriber failed",
			"type", ev.Type,
			"subscription", e.sub.ID,
			"error", herr,
		)
		if onFailure != nil {
			onFailure(herr)
		}
	}

	if delivered {
		r.count(&r.routed)
	}
	return nil
}

// invoke runs one handler, converting a panic into a *HandlerError.
func (r *Router) invoke(e *entry, ev Event) (herr *HandlerError) {
	defer func() {
		if p := recover(); p != nil {
			herr = &HandlerError{
				Subscription: e.sub,
				Panic:        p,
				Err:          fmt.Errorf("panic: %v", p),
			}
		}
	}()

	if err := e.handler.HandleEvent(ev); err != nil {
		return &HandlerError{Subscription: e.sub, Err: err}
	}
	return nil
}

func (r *Router) count(field *int64) {
	r.statsMu.Lock()
	*field++
	r.statsMu.Unlock()
}

// decode parses a frame into an Event without touching the payload.
func decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, &DecodeError{Frame: truncate(data), Err: err}
	}
	if env.Type == nil {
		return Event{}, &DecodeError{Frame: truncate(data), Err: ErrMissingType}
	}

	ev := Event{Type: *env.Type}
	if len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		ev.Data = env.Data
	}
	return ev, nil
}

func truncate(data []byte) []byte {
	if len(data) > maxFrameInError {
		data = data[:maxFrameInError]
	}
	return append([]byte(nil), data...)
}

// hasIdentity reports whether h can be compared with ==. Pointers and
// comparable values qualify; funcs and values holding them do not.
func hasIdentity(h Handler) bool {
	if h == nil {
		return false
	}
	return reflect.ValueOf(h).Comparable()
}
