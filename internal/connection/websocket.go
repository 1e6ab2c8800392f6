package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/spotiflac/pushclient/internal/version"
)

// WebSocketDialer dials gorilla/websocket transports.
type WebSocketDialer struct {
	cfg    DialerConfig
	logger *slog.Logger
}

// NewWebSocketDialer creates a dialer.
func NewWebSocketDialer(cfg DialerConfig, logger *slog.Logger) *WebSocketDialer {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketDialer{cfg: cfg, logger: logger}
}

// Dial performs the WebSocket handshake.
func (d *WebSocketDialer) Dial(ctx context.Context, url string) (Transport, error) {
	header := http.Header{}
	for k, vs := range d.cfg.Header {
		for _, v := range vs {
			header.Add(k, v)
		}
	}
	if header.Get("User-Agent") == "" {
		header.Set("User-Agent", version.UserAgent())
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.cfg.HandshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	t := &wsTransport{
		conn:   conn,
		cfg:    d.cfg,
		logger: d.logger,
		done:   make(chan struct{}),
	}
	t.setup()

	d.logger.Debug("websocket connected", "url", url)
	return t, nil
}

// wsTransport implements Transport over a gorilla connection.
type wsTransport struct {
	conn   *websocket.Conn
	cfg    DialerConfig
	logger *slog.Logger

	// Write serialization
	writeMu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
}

func (t *wsTransport) setup() {
	if t.cfg.ReadLimit > 0 {
		t.conn.SetReadLimit(t.cfg.ReadLimit)
	}
	t.extendReadDeadline()

	// Server sends ping, we respond with pong
	t.conn.SetPingHandler(func(data string) error {
		t.extendReadDeadline()
		err := t.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil
		}
		return err
	})

	// Server responds to our ping
	t.conn.SetPongHandler(func(string) error {
		t.extendReadDeadline()
		return nil
	})

	if t.cfg.PingInterval > 0 {
		go t.heartbeatLoop()
	}
}

// extendReadDeadline pushes the stale-connection deadline forward.
func (t *wsTransport) extendReadDeadline() {
	if t.cfg.PingTimeout > 0 {
		t.conn.SetReadDeadline(time.Now().Add(t.cfg.PingTimeout))
	}
}

// ReadMessage returns the next data frame.
func (t *wsTransport) ReadMessage() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, fmt.Errorf("%w: %v", ErrStaleConnection, err)
		}
		return nil, err
	}
	t.extendReadDeadline()
	return data, nil
}

// WriteMessage writes a text frame.
func (t *wsTransport) WriteMessage(data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if t.cfg.WriteTimeout > 0 {
		t.conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
	}
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame and closes the socket.
func (t *wsTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)

		t.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		err = t.conn.Close()
	})
	return err
}

func (t *wsTransport) writeWait() time.Duration {
	if t.cfg.WriteTimeout > 0 {
		return t.cfg.WriteTimeout
	}
	return time.Second
}

// heartbeatLoop sends keepalive pings until the transport closes.
func (t *wsTransport) heartbeatLoop() {
	ticker := time.NewTicker(t.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(t.writeWait())
			if err := t.conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				t.logger.Debug("failed to send ping", "error", err)
			}
		}
	}
}
