package journal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the journal needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Config configures a Writer.
type Config struct {
	Table         string        // Destination table, a plain identifier
	BatchSize     int           // Max rows per insert batch
	FlushInterval time.Duration // Max time a row waits in memory
	BufferSize    int           // Max queued events before new ones are dropped
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Table:         "push_events",
		BatchSize:     100,
		FlushInterval: time.Second,
		BufferSize:    10000,
	}
}

// Stats holds writer counters.
type Stats struct {
	Queued    int   // Events waiting in memory
	Received  int64 // Events accepted by HandleEvent
	Dropped   int64 // Events rejected because the queue was full
	Inserts   int64
	Conflicts int64
	Flushes   int64
	Errors    int64
}

// record is one journal row.
type record struct {
	ID         uuid.UUID
	SessionID  uuid.UUID
	Type       string
	Data       json.RawMessage
	ReceivedAt time.Time
}
