// Package storage persists the append-only trade log named in spec's
// "Persisted state": one JSON-lines row per executed leg, plus optional
// mirrors (console, Postgres) for operators who want a queryable history.
// Grounded on internal/storage package (Storage interface,
// ConsoleStorage/PostgresStorage split), generalized from single-shot
// opportunity records to the two-leg trade log spec.md actually asks for.
package storage

import (
	"context"

	"github.com/mselser95/arbengine/pkg/types"
)

// Storage is the interface every trade log sink implements; it is the
// concrete type behind the TradeLogWriter interfaces internal/strategy/
// immediate, internal/strategy/liquidity, and internal/reconciliation each
// declare locally.
type Storage interface {
	// WriteTrade appends one executed leg to the log.
	WriteTrade(ctx context.Context, entry types.TradeLogEntry) error

	// Close releases any underlying resource (file handle, DB connection).
	Close() error
}
