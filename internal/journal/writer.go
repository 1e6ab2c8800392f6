package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/errgroup"

	"github.com/spotiflac/pushclient/internal/router"
)

// Writer batches router events into the journal table.
type Writer struct {
	cfg    Config
	db     DB
	logger *slog.Logger
	table  string // sanitized

	// Input from subscriptions
	queue *queue[record]

	// Batching
	batch   []record
	batchMu sync.Mutex

	// Lifecycle
	cancel context.CancelFunc
	group  *errgroup.Group

	// Metrics
	statsMu sync.Mutex
	stats   Stats
}

// NewWriter creates a Writer. Zero config fields take their defaults.
func NewWriter(cfg Config, db DB, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Table == "" {
		cfg.Table = def.Table
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = def.BufferSize
	}

	return &Writer{
		cfg:    cfg,
		db:     db,
		logger: logger.With("component", "journal"),
		table:  pgx.Identifier{cfg.Table}.Sanitize(),
		queue:  newQueue[record](cfg.BufferSize),
		batch:  make([]record, 0, cfg.BatchSize),
	}
}

// EnsureSchema creates the journal table and its index if missing.
func (w *Writer) EnsureSchema(ctx context.Context) error {
	index := pgx.Identifier{w.cfg.Table + "_type_received_idx"}.Sanitize()
	stmts := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id          UUID PRIMARY KEY,
				session_id  UUID NOT NULL,
				event_type  TEXT NOT NULL,
				data        JSONB,
				received_at TIMESTAMPTZ NOT NULL,
				written_at  TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, w.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (event_type, received_at)`, index, w.table),
	}

	for _, stmt := range stmts {
		if _, err := w.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure journal schema: %w", err)
		}
	}
	return nil
}

// HandleEvent implements router.Handler. It never blocks; when the queue
// is full the event is dropped and counted.
func (w *Writer) HandleEvent(ev router.Event) error {
	rec := record{
		ID:         uuid.New(),
		SessionID:  ev.SessionID,
		Type:       ev.Type,
		Data:       ev.Data,
		ReceivedAt: ev.ReceivedAt,
	}

	if !w.queue.push(rec) {
		w.statsMu.Lock()
		w.stats.Dropped++
		w.statsMu.Unlock()
		w.logger.Warn("journal queue full, event dropped", "type", ev.Type)
		return nil
	}

	w.statsMu.Lock()
	w.stats.Received++
	w.statsMu.Unlock()
	return nil
}

// Start begins consuming queued events and flushing batches.
func (w *Writer) Start(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)
	w.group, ctx = errgroup.WithContext(ctx)

	w.group.Go(func() error { return w.consumeLoop(ctx) })
	w.group.Go(func() error { return w.flushLoop(ctx) })

	w.logger.Info("journal writer started",
		"table", w.cfg.Table,
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop halts the loops and writes everything still queued. ctx bounds
// both the wait and the final flush.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping journal writer")

	if w.cancel != nil {
		w.cancel()
	}

	if w.group != nil {
		done := make(chan struct{})
		go func() {
			w.group.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			w.logger.Warn("journal writer stop timed out")
		}
	}

	// Final flush
	for {
		recs := w.queue.drain(w.cfg.BatchSize)
		if len(recs) == 0 {
			break
		}
		w.add(ctx, recs)
	}
	if err := w.Flush(ctx); err != nil {
		return err
	}

	w.logger.Info("journal writer stopped")
	return nil
}

// Stats returns current counters.
func (w *Writer) Stats() Stats {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	s := w.stats
	s.Queued = w.queue.len()
	return s
}

// consumeLoop moves queued events into the pending batch.
func (w *Writer) consumeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.queue.ready:
		}

		for {
			recs := w.queue.drain(w.cfg.BatchSize)
			if len(recs) == 0 {
				break
			}
			w.add(ctx, recs)
		}
	}
}

// flushLoop periodically flushes the batch.
func (w *Writer) flushLoop(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// Failures are counted and logged by Flush.
			_ = w.Flush(ctx)
		}
	}
}

// add appends records to the batch, flushing whenever it fills.
func (w *Writer) add(ctx context.Context, recs []record) {
	w.batchMu.Lock()
	w.batch = append(w.batch, recs...)
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		_ = w.Flush(ctx)
	}
}

// Flush writes the pending batch. A failed batch is dropped and counted.
func (w *Writer) Flush(ctx context.Context) error {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return nil
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]record, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	conflicts, err := w.batchInsert(ctx, batch)
	if err != nil {
		w.logger.Error("batch insert failed", "error", err, "count", len(batch))
		w.statsMu.Lock()
		w.stats.Errors++
		w.statsMu.Unlock()
		return fmt.Errorf("journal flush: %w", err)
	}

	w.statsMu.Lock()
	w.stats.Inserts += int64(len(batch) - conflicts)
	w.stats.Conflicts += int64(conflicts)
	w.stats.Flushes++
	w.statsMu.Unlock()

	w.logger.Debug("flushed events",
		"count", len(batch),
		"conflicts", conflicts,
		"duration", time.Since(start),
	)
	return nil
}

// batchInsert inserts rows using pgx.Batch with ON CONFLICT DO NOTHING.
func (w *Writer) batchInsert(ctx context.Context, rows []record) (conflicts int, err error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, session_id, event_type, data, received_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, w.table)

	batch := &pgx.Batch{}
	for _, r := range rows {
		var data []byte
		if len(r.Data) > 0 {
			data = r.Data
		}
		batch.Queue(query, r.ID, r.SessionID, r.Type, data, r.ReceivedAt)
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range rows {
		ct, err := results.Exec()
		if err != nil {
			return 0, err
		}
		if ct.RowsAffected() == 0 {
			conflicts++
		}
	}

	return conflicts, nil
}
