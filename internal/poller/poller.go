package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spotiflac/pushclient/internal/push"
)

// Target is the client the poller drives.
type Target interface {
	IsConnected() bool
	Ping() error
	RequestStatus() error
}

// Config holds poller configuration. A zero interval disables that
// message.
type Config struct {
	StatusInterval time.Duration // request_status period
	PingInterval   time.Duration // ping period
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		StatusInterval: time.Minute,
		PingInterval:   30 * time.Second,
	}
}

// Stats holds poller counters.
type Stats struct {
	StatusRequests int64
	Pings          int64
	Skipped        int64 // ticks while disconnected
	Errors         int64
}

// Poller periodically sends status requests and pings.
type Poller struct {
	cfg    Config
	target Target
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	statusRequests atomic.Int64
	pings          atomic.Int64
	skipped        atomic.Int64
	errors         atomic.Int64
}

// New creates a new Poller.
func New(cfg Config, target Target, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		cfg:    cfg,
		target: target,
		logger: logger,
	}
}

// Start begins the polling loops.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	if p.cfg.StatusInterval > 0 {
		p.wg.Add(1)
		go p.run(p.cfg.StatusInterval, "request_status", p.target.RequestStatus, &p.statusRequests)
	}
	if p.cfg.PingInterval > 0 {
		p.wg.Add(1)
		go p.run(p.cfg.PingInterval, "ping", p.target.Ping, &p.pings)
	}

	p.logger.Info("poller started",
		"status_interval", p.cfg.StatusInterval,
		"ping_interval", p.cfg.PingInterval,
	)

	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns current counters.
func (p *Poller) Stats() Stats {
	return Stats{
		StatusRequests: p.statusRequests.Load(),
		Pings:          p.pings.Load(),
		Skipped:        p.skipped.Load(),
		Errors:         p.errors.Load(),
	}
}

// run calls send every interval until the poller stops.
func (p *Poller) run(interval time.Duration, name string, send func() error, sent *atomic.Int64) {
	defer p.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.tick(name, send, sent)
		}
	}
}

func (p *Poller) tick(name string, send func() error, sent *atomic.Int64) {
	if !p.target.IsConnected() {
		p.skipped.Add(1)
		return
	}

	if err := send(); err != nil {
		// Lost the session between the check and the send.
		if errors.Is(err, push.ErrNotConnected) {
			p.skipped.Add(1)
			return
		}
		p.errors.Add(1)
		p.logger.Warn("poll send failed", "message", name, "error", err)
		return
	}
	sent.Add(1)
}
