package connection

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one live transport connection.
type Session struct {
	id        uuid.UUID
	transport Transport
	handler   SessionHandler
	logger    *slog.Logger

	mu       sync.RWMutex
	open     bool
	closing  bool // Close called by the owner
	openedAt time.Time

	done chan struct{}
}

// NewSession wraps an established transport. Call Start to begin reading.
func NewSession(transport Transport, handler SessionHandler, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}

	id := uuid.New()
	return &Session{
		id:        id,
		transport: transport,
		handler:   handler,
		logger:    logger.With("session_id", id),
		open:      true,
		openedAt:  time.Now(),
		done:      make(chan struct{}),
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// OpenedAt returns when the session was established.
func (s *Session) OpenedAt() time.Time {
	return s.openedAt
}

// Start launches the read loop.
func (s *Session) Start() {
	go s.readLoop()
}

// Done is closed once the read loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// IsOpen returns the current session state.
func (s *Session) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.open
}

// Send writes one frame. A write failure tears the transport down so the
// read loop reports the close.
func (s *Session) Send(data []byte) error {
	s.mu.RLock()
	open := s.open
	s.mu.RUnlock()
	if !open {
		return ErrNotConnected
	}

	if err := s.transport.WriteMessage(data); err != nil {
		s.logger.Warn("write failed, closing transport", "error", err)
		s.transport.Close()
		return err
	}
	return nil
}

// Close ends the session on the owner's behalf. The handler's OnClose is
// not called.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	s.open = false
	s.mu.Unlock()

	err := s.transport.Close()
	s.logger.Debug("session closed", "duration", time.Since(s.openedAt))
	return err
}

// readLoop reads frames and hands them to the handler.
func (s *Session) readLoop() {
	defer close(s.done)

	for {
		data, err := s.transport.ReadMessage()
		receivedAt := time.Now() // Capture timestamp immediately

		if err != nil {
			s.mu.Lock()
			intentional := s.closing
			s.open = false
			s.mu.Unlock()

			if intentional {
				return
			}

			s.transport.Close()
			s.logger.Warn("session lost", "error", err, "duration", time.Since(s.openedAt))
			s.handler.OnClose(s, err)
			return
		}

		s.handler.OnMessage(s, data, receivedAt)
	}
}
