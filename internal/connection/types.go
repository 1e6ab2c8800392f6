package connection

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
)

// Transport is one bidirectional message connection.
type Transport interface {
	// ReadMessage blocks until the next frame arrives or the connection
	// fails.
	ReadMessage() ([]byte, error)

	// WriteMessage writes one text frame. Safe for concurrent use.
	WriteMessage(data []byte) error

	// Close tears the connection down. Safe to call more than once.
	Close() error
}

// Dialer opens transports against an endpoint URL.
type Dialer interface {
	Dial(ctx context.Context, url string) (Transport, error)
}

// SessionHandler receives a session's inbound traffic.
type SessionHandler interface {
	// OnMessage is called for every frame, in order, from the session's
	// read loop.
	OnMessage(s *Session, data []byte, receivedAt time.Time)

	// OnClose is called once when the session ends for any reason other
	// than its owner calling Close.
	OnClose(s *Session, err error)
}

// DialerConfig configures a WebSocketDialer.
type DialerConfig struct {
	HandshakeTimeout time.Duration // Max time for the opening handshake
	PingInterval     time.Duration // Keepalive ping period (0 disables)
	PingTimeout      time.Duration // Max silence before the connection is stale (0 disables)
	WriteTimeout     time.Duration // Write deadline for sends
	ReadLimit        int64         // Max inbound frame size in bytes (0 = unlimited)
	Header           http.Header   // Extra handshake headers
}

// DefaultDialerConfig returns sensible defaults.
func DefaultDialerConfig() DialerConfig {
	return DialerConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		PingTimeout:      60 * time.Second,
		WriteTimeout:     5 * time.Second,
		ReadLimit:        1 << 20,
	}
}
