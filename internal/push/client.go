package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spotiflac/pushclient/internal/clock"
	"github.com/spotiflac/pushclient/internal/connection"
	"github.com/spotiflac/pushclient/internal/reconnect"
	"github.com/spotiflac/pushclient/internal/router"
)

// Client is an auto-reconnecting push-update client.
//
// Lock order: Client.mu, then the scheduler's internal lock. Router
// handlers and the state listener always run with no client lock held.
type Client struct {
	cfg     Config
	logger  *slog.Logger
	dialer  connection.Dialer
	clock   clock.Clock
	onState StateListener

	router *router.Router
	sched  *reconnect.Scheduler

	errs    chan error
	dropped atomic.Int64

	mu        sync.Mutex
	session   *connection.Session
	dialing   bool
	gen       uint64 // bumped by Close; stale dials and timers discard themselves
	runCtx    context.Context
	runCancel context.CancelFunc
}

// New creates a client. No connection is made until Open.
func New(cfg Config, opts ...Option) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.ErrorBuffer <= 0 {
		cfg.ErrorBuffer = DefaultConfig().ErrorBuffer
	}

	c := &Client{
		cfg:    cfg,
		logger: slog.Default(),
		clock:  clock.Real(),
		errs:   make(chan error, cfg.ErrorBuffer),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.dialer == nil {
		c.dialer = connection.NewWebSocketDialer(cfg.Dialer, c.logger)
	}
	c.router = router.NewRouter(c.logger)
	c.router.OnHandlerFailure(c.report)
	c.sched = reconnect.NewScheduler(cfg.Reconnect, c.clock, c.logger)

	return c
}

// Open establishes a session. It is a no-op while a session is open or a
// dial is in flight. A failed dial is reported on Errors, handed to the
// reconnect scheduler and returned.
func (c *Client) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.session != nil || c.dialing {
		c.mu.Unlock()
		return nil
	}
	if c.runCtx == nil {
		c.runCtx, c.runCancel = context.WithCancel(context.Background())
	}
	c.sched.Start()
	gen := c.gen
	c.mu.Unlock()

	return c.dial(ctx, gen)
}

// Close cancels any pending reconnect and in-flight dial, closes the
// session and clears all subscriptions. The client stays closed until
// Open is called again.
func (c *Client) Close() error {
	c.mu.Lock()
	c.gen++
	sess := c.session
	c.session = nil
	c.dialing = false
	cancel := c.runCancel
	c.runCtx, c.runCancel = nil, nil
	from := c.sched.Cancel()
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.router.Clear()

	var err error
	if sess != nil {
		err = sess.Close()
	}

	c.logger.Info("client closed")
	c.notify(from, reconnect.Idle)
	return err
}

// Send writes a {type, data} envelope to the live session. Nothing is
// queued: without a session it returns ErrNotConnected.
func (c *Client) Send(eventType string, data any) error {
	frame, err := json.Marshal(outbound{Type: eventType, Data: data})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", eventType, err)
	}

	sess := c.currentSession()
	if sess == nil {
		c.logger.Warn("not connected, message dropped", "type", eventType)
		return ErrNotConnected
	}

	if err := sess.Send(frame); err != nil {
		if errors.Is(err, connection.ErrNotConnected) {
			return ErrNotConnected
		}
		return fmt.Errorf("send %s: %w", eventType, err)
	}
	return nil
}

// Ping sends an application-level ping; the server answers with pong.
func (c *Client) Ping() error {
	return c.Send(TypePing, nil)
}

// RequestStatus asks the server for a status_update snapshot.
func (c *Client) RequestStatus() error {
	return c.Send(TypeRequestStatus, nil)
}

// Subscribe registers h for eventType. Registrations survive reconnects.
func (c *Client) Subscribe(eventType string, h router.Handler) router.Subscription {
	return c.router.Subscribe(eventType, h)
}

// SubscribeFunc registers fn for eventType.
func (c *Client) SubscribeFunc(eventType string, fn func(router.Event) error) router.Subscription {
	return c.router.SubscribeFunc(eventType, fn)
}

// Unsubscribe removes the given subscriptions, or every subscription for
// eventType when none are given.
func (c *Client) Unsubscribe(eventType string, subs ...router.Subscription) {
	c.router.Unsubscribe(eventType, subs...)
}

// IsConnected reports whether a session is open.
func (c *Client) IsConnected() bool {
	sess := c.currentSession()
	return sess != nil && sess.IsOpen()
}

// State returns the reconnect state. Exhausted means no further
// automatic attempts will be made.
func (c *Client) State() reconnect.State {
	return c.sched.State()
}

// Errors returns dial, decode and handler failures. Sends never block;
// errors are dropped when the channel is full.
func (c *Client) Errors() <-chan error {
	return c.errs
}

// Stats returns current client statistics.
func (c *Client) Stats() Stats {
	snap := c.sched.Snapshot()
	stats := Stats{
		State:         snap.State,
		Attempts:      snap.Attempts,
		NextDelay:     snap.NextDelay,
		ErrorsDropped: c.dropped.Load(),
		Router:        c.router.Stats(),
	}
	if sess := c.currentSession(); sess != nil {
		stats.Connected = sess.IsOpen()
		stats.SessionID = sess.ID()
	}
	return stats
}

// OnMessage implements connection.SessionHandler.
func (c *Client) OnMessage(s *connection.Session, data []byte, receivedAt time.Time) {
	if c.currentSession() != s {
		return
	}
	if err := c.router.Dispatch(data, receivedAt, s.ID()); err != nil {
		c.report(err)
	}
}

// OnClose implements connection.SessionHandler.
func (c *Client) OnClose(s *connection.Session, err error) {
	c.mu.Lock()
	if c.session != s {
		c.mu.Unlock()
		return
	}
	c.session = nil
	from, to := c.sched.Disconnected(c.reconnectFunc(c.gen))
	c.mu.Unlock()

	c.report(fmt.Errorf("session %s lost: %w", s.ID(), err))
	c.notify(from, to)
}

// dial opens a transport for generation gen. Results that arrive after a
// Close are discarded.
func (c *Client) dial(ctx context.Context, gen uint64) error {
	c.mu.Lock()
	if gen != c.gen || c.session != nil || c.dialing {
		c.mu.Unlock()
		return nil
	}
	c.dialing = true
	runCtx := c.runCtx
	c.mu.Unlock()

	dialCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(runCtx, cancel)
	transport, err := c.dialer.Dial(dialCtx, c.cfg.URL)
	stop()
	cancel()

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		if transport != nil {
			transport.Close()
		}
		return ErrClosed
	}
	c.dialing = false

	if err != nil {
		from, to := c.sched.Disconnected(c.reconnectFunc(gen))
		c.mu.Unlock()

		err = fmt.Errorf("open session: %w", err)
		c.logger.Warn("connection failed", "url", c.cfg.URL, "error", err)
		c.report(err)
		c.notify(from, to)
		return err
	}

	sess := connection.NewSession(transport, c, c.logger)
	c.session = sess
	from := c.sched.Connected()
	c.mu.Unlock()

	sess.Start()
	c.logger.Info("connected", "url", c.cfg.URL, "session_id", sess.ID())
	c.notify(from, reconnect.Connected)
	return nil
}

func (c *Client) reconnectFunc(gen uint64) func() {
	return func() {
		c.mu.Lock()
		ctx := c.runCtx
		c.mu.Unlock()
		if ctx == nil {
			return
		}
		// Failures were already reported and rescheduled.
		_ = c.dial(ctx, gen)
	}
}

func (c *Client) currentSession() *connection.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// report forwards err to Errors without blocking.
func (c *Client) report(err error) {
	select {
	case c.errs <- err:
	default:
		c.dropped.Add(1)
	}
}

func (c *Client) notify(from, to reconnect.State) {
	if c.onState != nil && from != to {
		c.onState(from, to)
	}
}
