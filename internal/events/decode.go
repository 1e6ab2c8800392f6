package events

import (
	"encoding/json"
	"fmt"

	"github.com/spotiflac/pushclient/internal/router"
)

// Decode unmarshals ev's data into T.
func Decode[T any](ev router.Event) (T, error) {
	var v T
	if len(ev.Data) == 0 {
		return v, fmt.Errorf("decode %s: %w", ev.Type, ErrNoData)
	}
	if err := json.Unmarshal(ev.Data, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", ev.Type, err)
	}
	return v, nil
}

// Handler adapts a typed callback to router.Handler. Events whose data
// does not decode into T are reported as handler failures.
func Handler[T any](fn func(ev router.Event, payload T) error) router.Handler {
	return router.HandlerFunc(func(ev router.Event) error {
		payload, err := Decode[T](ev)
		if err != nil {
			return err
		}
		return fn(ev, payload)
	})
}

// Expect returns ErrTypeMismatch unless ev has the given type.
func Expect(ev router.Event, eventType string) error {
	if ev.Type != eventType {
		return fmt.Errorf("%w: got %q, want %q", ErrTypeMismatch, ev.Type, eventType)
	}
	return nil
}
