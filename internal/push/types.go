package push

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/spotiflac/pushclient/internal/clock"
	"github.com/spotiflac/pushclient/internal/connection"
	"github.com/spotiflac/pushclient/internal/reconnect"
	"github.com/spotiflac/pushclient/internal/router"
)

// DefaultURL is the endpoint used when none is configured.
const DefaultURL = "ws://localhost:8080/ws"

// Outbound control message types.
const (
	TypePing          = "ping"
	TypeRequestStatus = "request_status"
)

// Errors
var (
	// ErrNotConnected is returned by Send when no session is open. It is
	// the same value as connection.ErrNotConnected.
	ErrNotConnected = connection.ErrNotConnected

	// ErrClosed is returned by a dial that was overtaken by Close.
	ErrClosed = errors.New("client closed")
)

// Config configures a Client.
type Config struct {
	URL         string                  // Endpoint, e.g. ws://localhost:8080/ws
	Dialer      connection.DialerConfig // Used when no WithDialer option is given
	Reconnect   reconnect.Policy
	ErrorBuffer int // Capacity of the Errors channel
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:         DefaultURL,
		Dialer:      connection.DefaultDialerConfig(),
		Reconnect:   reconnect.DefaultPolicy(),
		ErrorBuffer: 64,
	}
}

// StateListener observes scheduler transitions. It is called without any
// client lock held and may call back into the client.
type StateListener func(from, to reconnect.State)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDialer replaces the WebSocket dialer.
func WithDialer(d connection.Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithClock replaces the clock used for reconnect timers.
func WithClock(clk clock.Clock) Option {
	return func(c *Client) {
		if clk != nil {
			c.clock = clk
		}
	}
}

// WithStateListener registers fn for connection state transitions.
func WithStateListener(fn StateListener) Option {
	return func(c *Client) {
		c.onState = fn
	}
}

// Stats is a point-in-time view of the client.
type Stats struct {
	State         reconnect.State
	Connected     bool
	SessionID     uuid.UUID // uuid.Nil when no session is open
	Attempts      int
	NextDelay     time.Duration
	ErrorsDropped int64
	Router        router.RouterStats
}

// outbound is the wire envelope for client-to-server messages.
type outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}
