package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	jobmetrics "github.com/odyssey-erp/odyssey-pm/internal/jobs"
	"github.com/odyssey-erp/odyssey-pm/internal/shared"
)

// SweepJob adapts a sweep to the schedulers: it resolves the run date,
// serializes through the guard, records metrics and logs the outcome.
type SweepJob struct {
	Name     string
	TaskType string
	Sweep    shared.SweepFunc
	Guard    shared.SweepGuard
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewSweepJob constructs the job for taskType.
func NewSweepJob(taskType string, sweep shared.SweepFunc, guard shared.SweepGuard, logger *slog.Logger, metrics *jobmetrics.Metrics) *SweepJob {
	name, _ := SweepName(taskType)
	return &SweepJob{
		Name:     name,
		TaskType: taskType,
		Sweep:    sweep,
		Guard:    guard,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Run executes the sweep for asOf. A zero asOf means today. A sweep already
// in progress is skipped without error.
func (j *SweepJob) Run(ctx context.Context, asOf time.Time) error {
	if asOf.IsZero() {
		asOf = j.now()
	}
	asOf = shared.DateOf(asOf)
	logger := j.logger().With(
		slog.String("sweep", j.Name),
		slog.String("as_of", asOf.Format(shared.DateLayout)),
		slog.String("run_id", uuid.NewString()),
	)
	start := time.Now()
	tracker := j.Metrics.Track(j.Name)
	logger.Info("starting sweep")

	n, err := shared.GuardedSweep(ctx, j.Guard, j.Name, asOf, j.Sweep)
	if errors.Is(err, shared.ErrSweepInProgress) {
		j.Metrics.Skipped(j.Name)
		logger.Info("sweep already in progress, skipping")
		return nil
	}
	j.Metrics.AddRecords(j.Name, n)
	if err != nil {
		logger.Error("sweep failed", slog.Int("committed", n), slog.Any("error", err))
		return tracker.End(err)
	}
	logger.Info("completed sweep", slog.Int("records", n), slog.Duration("duration", time.Since(start)))
	return tracker.End(nil)
}

func (j *SweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *SweepJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// WithClock overrides the job clock for tests.
func (j *SweepJob) WithClock(clock func() time.Time) *SweepJob {
	if clock != nil {
		j.clock = clock
	}
	return j
}
