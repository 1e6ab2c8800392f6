// Package journal archives received push events into PostgreSQL.
//
// A Writer is a router.Handler: subscribe it to the event types worth
// keeping. HandleEvent only enqueues, so a slow database never stalls a
// session's read loop. Batches are written with pgx.Batch when BatchSize
// events are queued or every FlushInterval, and once more on Stop.
//
// The journal is append-only. Events are keyed by a fresh UUID and
// inserted with ON CONFLICT DO NOTHING.
package journal
