package jobs

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-pm/internal/shared"
)

// Guard serializes sweeps per name, calendar date and tenant scope:
// singleflight collapses concurrent calls inside the process; the redis lock
// excludes other processes. A tenant-scoped manual run never blocks or stands
// in for the unscoped run.
type Guard struct {
	locker *shared.Locker
	logger *slog.Logger
	group  singleflight.Group
}

// NewGuard builds a Guard. A nil locker limits exclusion to this process.
func NewGuard(locker *shared.Locker, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{locker: locker, logger: logger}
}

type sweepResult struct {
	count int
}

// Do runs fn unless the same sweep for the same date is already running elsewhere,
// in which case it returns shared.ErrSweepInProgress.
func (g *Guard) Do(ctx context.Context, name string, asOf time.Time, fn shared.SweepFunc) (int, error) {
	asOf = shared.DateOf(asOf)
	key := shared.SweepLockKey(ctx, name, asOf)
	ch := g.group.DoChan(key, func() (interface{}, error) {
		release, err := g.locker.Acquire(ctx, key)
		if err != nil {
			return sweepResult{}, err
		}
		defer func() {
			// The sweep's own context may already be cancelled.
			if err := release(context.WithoutCancel(ctx)); err != nil {
				g.logger.Warn("release sweep lock", slog.String("key", key), slog.Any("error", err))
			}
		}()
		n, err := fn(ctx, asOf)
		return sweepResult{count: n}, err
	})
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res := <-ch:
		out, _ := res.Val.(sweepResult)
		return out.count, res.Err
	}
}
