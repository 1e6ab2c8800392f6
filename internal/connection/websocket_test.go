package connection

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testDialerConfig() DialerConfig {
	return DialerConfig{
		HandshakeTimeout: 2 * time.Second,
		PingTimeout:      30 * time.Second,
		WriteTimeout:     5 * time.Second,
	}
}

func TestWebSocketDialer_Roundtrip(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		// Echo every frame back.
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, msg); err != nil {
				return
			}
		}
	})
	defer server.Close()

	d := NewWebSocketDialer(testDialerConfig(), nil)
	tr, err := d.Dial(context.Background(), wsURL(server))
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer tr.Close()

	testMsg := `{"type":"request_status"}`
	if err := tr.WriteMessage([]byte(testMsg)); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}

	got, err := tr.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	if string(got) != testMsg {
		t.Errorf("received %q, want %q", got, testMsg)
	}
}

func TestWebSocketDialer_ServerMessages(t *testing.T) {
	testMessages := []string{
		`{"type":"connected","data":{"message":"hi"}}`,
		`{"type":"queue_update","data":{"queued_count":1}}`,
		`{"type":"queue_update","data":{"queued_count":2}}`,
	}

	server := mockWSServer(t, func(conn *websocket.Conn) {
		for _, msg := range testMessages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		time.Sleep(time.Second)
	})
	defer server.Close()

	tr, err := NewWebSocketDialer(testDialerConfig(), nil).Dial(context.Background(), wsURL(server))
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer tr.Close()

	for i, want := range testMessages {
		got, err := tr.ReadMessage()
		if err != nil {
			t.Fatalf("message %d: ReadMessage failed: %v", i, err)
		}
		if string(got) != want {
			t.Errorf("message %d: got %q, want %q", i, got, want)
		}
	}
}

func TestWebSocketDialer_SendsUserAgent(t *testing.T) {
	var mu sync.Mutex
	var userAgent, custom string

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		userAgent = r.Header.Get("User-Agent")
		custom = r.Header.Get("X-Client")
		mu.Unlock()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer server.Close()

	cfg := testDialerConfig()
	cfg.Header = http.Header{"X-Client": []string{"pushwatch"}}

	tr, err := NewWebSocketDialer(cfg, nil).Dial(context.Background(), wsURL(server))
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	tr.Close()

	mu.Lock()
	defer mu.Unlock()
	if !strings.HasPrefix(userAgent, "pushclient/") {
		t.Errorf("User-Agent = %q, want pushclient/ prefix", userAgent)
	}
	if custom != "pushwatch" {
		t.Errorf("X-Client = %q, want pushwatch", custom)
	}
}

func TestWebSocketDialer_DialFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	_, err := NewWebSocketDialer(testDialerConfig(), nil).Dial(context.Background(), wsURL(server))
	if err == nil {
		t.Fatal("expected dial error")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("error %q does not mention status 403", err)
	}
}

func TestWebSocketDialer_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewWebSocketDialer(testDialerConfig(), nil).Dial(ctx, "ws://127.0.0.1:1/ws")
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestWebSocketDialer_StaleConnection(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		// Never read (so never pong) and never write.
		time.Sleep(time.Second)
	})
	defer server.Close()

	cfg := testDialerConfig()
	cfg.PingTimeout = 100 * time.Millisecond

	tr, err := NewWebSocketDialer(cfg, nil).Dial(context.Background(), wsURL(server))
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer tr.Close()

	_, err = tr.ReadMessage()
	if !errors.Is(err, ErrStaleConnection) {
		t.Errorf("ReadMessage error = %v, want ErrStaleConnection", err)
	}
}

func TestWebSocketDialer_PingKeepsAlive(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		// Reading lets gorilla answer the client's pings with pongs.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	cfg := testDialerConfig()
	cfg.PingInterval = 20 * time.Millisecond
	cfg.PingTimeout = 150 * time.Millisecond

	tr, err := NewWebSocketDialer(cfg, nil).Dial(context.Background(), wsURL(server))
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := tr.ReadMessage()
		errCh <- err
	}()

	select {
	case err := <-errCh:
		t.Fatalf("connection ended while pongs were flowing: %v", err)
	case <-time.After(500 * time.Millisecond):
	}

	tr.Close()
	<-errCh
}

func TestWebSocketTransport_DoubleClose(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		time.Sleep(time.Second)
	})
	defer server.Close()

	tr, err := NewWebSocketDialer(testDialerConfig(), nil).Dial(context.Background(), wsURL(server))
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}

	if err := tr.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestDefaultDialerConfig(t *testing.T) {
	cfg := DefaultDialerConfig()
	if cfg.HandshakeTimeout != 10*time.Second {
		t.Errorf("HandshakeTimeout = %v, want 10s", cfg.HandshakeTimeout)
	}
	if cfg.PingTimeout <= cfg.PingInterval {
		t.Errorf("PingTimeout %v must exceed PingInterval %v", cfg.PingTimeout, cfg.PingInterval)
	}
	if cfg.WriteTimeout != 5*time.Second {
		t.Errorf("WriteTimeout = %v, want 5s", cfg.WriteTimeout)
	}
}
