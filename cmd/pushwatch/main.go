// pushwatch connects to a push-update server and prints its events to the
// console, optionally journaling them to PostgreSQL.
// Usage: go run ./cmd/pushwatch --config configs/pushwatch.example.yaml
//
// Without --config, defaults are used; SPOTIFLAC_WS_URL overrides the
// endpoint either way.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"github.com/spotiflac/pushclient/internal/config"
	"github.com/spotiflac/pushclient/internal/database"
	"github.com/spotiflac/pushclient/internal/journal"
	"github.com/spotiflac/pushclient/internal/poller"
	"github.com/spotiflac/pushclient/internal/push"
	"github.com/spotiflac/pushclient/internal/reconnect"
	"github.com/spotiflac/pushclient/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults when empty)")
	url := flag.String("url", "", "endpoint URL, overrides config")
	verbose := flag.Bool("verbose", false, "print full message JSON")
	noColor := flag.Bool("no-color", false, "disable colored output")
	healthAddr := flag.String("health", "", "address for the /health endpoint, e.g. :8081 (disabled when empty)")
	flag.Parse()

	if *noColor {
		color.NoColor = true
	}

	cfg, err := loadConfig(*configPath, *url)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting pushwatch",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"url", cfg.Endpoint.Address(),
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Optional event journal
	var writer *journal.Writer
	if cfg.Journal.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Journal.Database.Host,
			"port", cfg.Journal.Database.Port,
			"database", cfg.Journal.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.Journal.Database, logger)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		writer = journal.NewWriter(journal.Config{
			Table:         cfg.Journal.Table,
			BatchSize:     cfg.Journal.BatchSize,
			FlushInterval: cfg.Journal.FlushInterval,
			BufferSize:    cfg.Journal.BufferSize,
		}, pool, logger)

		if err := writer.EnsureSchema(ctx); err != nil {
			logger.Error("failed to prepare journal table", "error", err)
			os.Exit(1)
		}
		if err := writer.Start(ctx); err != nil {
			logger.Error("failed to start journal writer", "error", err)
			os.Exit(1)
		}
	}

	out := newPrinter(os.Stdout, *verbose)

	var client *push.Client
	client = push.New(push.Config{
		URL:         cfg.Endpoint.Address(),
		Dialer:      cfg.Connection.Dialer(),
		Reconnect:   cfg.Reconnect.Policy(),
		ErrorBuffer: cfg.Connection.ErrorBuffer,
	},
		push.WithLogger(logger),
		push.WithStateListener(func(from, to reconnect.State) {
			out.state(from, to)
			if to == reconnect.Connected {
				// Fresh snapshot after every (re)connect; nothing sent while
				// disconnected is replayed.
				if err := client.RequestStatus(); err != nil {
					logger.Warn("status request failed", "error", err)
				}
			}
		}),
	)

	for _, eventType := range cfg.Subscriptions.Types {
		client.Subscribe(eventType, out.handler(eventType))
		if writer != nil {
			client.Subscribe(eventType, writer)
		}
	}
	logger.Info("subscribed", "types", cfg.Subscriptions.Types, "journal", writer != nil)

	// Periodic status requests and application-level pings
	statusPoller := poller.New(poller.Config{
		StatusInterval: cfg.Connection.StatusInterval,
		PingInterval:   cfg.Connection.AppPingInterval,
	}, client, logger)

	g, gctx := errgroup.WithContext(ctx)

	// Error reporter
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case err := <-client.Errors():
				logger.Warn("client error", "error", err)
			}
		}
	})

	// Stats printer
	g.Go(func() error {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				stats := client.Stats()
				attrs := []any{
					"state", stats.State,
					"attempts", stats.Attempts,
					"received", stats.Router.MessagesReceived,
					"routed", stats.Router.MessagesRouted,
					"parse_errors", stats.Router.ParseErrors,
					"handler_failures", stats.Router.HandlerFailures,
					"errors_dropped", stats.ErrorsDropped,
				}
				ps := statusPoller.Stats()
				attrs = append(attrs, "pings", ps.Pings, "status_requests", ps.StatusRequests)
				if writer != nil {
					js := writer.Stats()
					attrs = append(attrs, "journal_inserts", js.Inserts, "journal_queued", js.Queued)
				}
				logger.Info("stats", attrs...)
			}
		}
	})

	// Health server
	if *healthAddr != "" {
		var js journalStats
		if writer != nil {
			js = writer
		}
		healthServer := &http.Server{
			Addr:    *healthAddr,
			Handler: createHealthHandler(client, js),
		}
		g.Go(func() error {
			logger.Info("starting health server", "addr", *healthAddr)
			if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return healthServer.Shutdown(shutdownCtx)
		})
	}

	// A failed first dial is already scheduled for retry.
	if err := client.Open(gctx); err != nil {
		logger.Warn("initial connection failed, retrying in background", "error", err)
	}

	if err := statusPoller.Start(gctx); err != nil {
		logger.Error("failed to start poller", "error", err)
		os.Exit(1)
	}

	logger.Info("streaming started - press Ctrl+C to stop")

	// Wait for shutdown
	<-gctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	var journalStop stopper
	if writer != nil {
		journalStop = writer
	}
	shutdown(shutdownCtx, logger, statusPoller, client, journalStop)

	if err := g.Wait(); err != nil {
		logger.Error("shutdown with error", "error", err)
	}
	logger.Info("shutdown complete")
}

type stopper interface {
	Stop(ctx context.Context) error
}

type closer interface {
	Close() error
}

// shutdown stops the poller, closes the client, then flushes the journal.
// Failures are logged and do not abort the remaining steps. jw may be
// nil.
func shutdown(ctx context.Context, logger *slog.Logger, poll stopper, client closer, jw stopper) {
	if err := poll.Stop(ctx); err != nil {
		logger.Warn("poller stop failed", "error", err)
	}
	if err := client.Close(); err != nil {
		logger.Warn("close client", "error", err)
	}
	if jw != nil {
		if err := jw.Stop(ctx); err != nil {
			logger.Error("journal final flush failed", "error", err)
		}
	}
}

func loadConfig(path, url string) (*config.Config, error) {
	var cfg *config.Config
	if path == "" {
		cfg = config.Default()
	} else {
		var err error
		cfg, err = config.LoadAndValidate(path)
		if err != nil {
			return nil, err
		}
	}

	if url != "" {
		cfg.Endpoint.URL = url
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
