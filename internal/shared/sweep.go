package shared

import (
	"context"
	"time"
)

// SweepPage reports one committed batch of a sweep.
type SweepPage struct {
	Processed int
	Cursor    int64
	More      bool
}

// SweepStep processes at most limit records after cursor inside one
// transaction. A limit of 0 means no limit.
type SweepStep func(ctx context.Context, cursor int64, limit int) (SweepPage, error)

// RunSweep drives step until it reports no more work. With batchSize <= 0 the
// sweep is a single unbounded step. The returned count covers committed
// batches only, so it stays accurate when a later batch fails.
func RunSweep(ctx context.Context, batchSize int, step SweepStep) (int, error) {
	if batchSize < 0 {
		batchSize = 0
	}
	var (
		total  int
		cursor int64
	)
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		page, err := step(ctx, cursor, batchSize)
		if err != nil {
			return total, err
		}
		total += page.Processed
		if batchSize == 0 || !page.More || page.Cursor == cursor {
			return total, nil
		}
		cursor = page.Cursor
	}
}

// Sweep names double as lock key segments and job metric labels.
const (
	SweepLeaseExpiry   = "lease-expiry"
	SweepRentInvoicing = "rent-invoicing"
	SweepLateFees      = "late-fees"
)

// SweepFunc runs one sweep for the calendar date asOf and reports how many
// records it changed.
type SweepFunc func(ctx context.Context, asOf time.Time) (int, error)

// SweepGuard serializes sweeps that share a name and date.
type SweepGuard interface {
	Do(ctx context.Context, name string, asOf time.Time, fn SweepFunc) (int, error)
}

// GuardedSweep runs fn through guard, or directly when guard is nil.
func GuardedSweep(ctx context.Context, guard SweepGuard, name string, asOf time.Time, fn SweepFunc) (int, error) {
	if guard == nil {
		return fn(ctx, asOf)
	}
	return guard.Do(ctx, name, asOf, fn)
}
