package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// LocalScheduler runs jobs in-process on gocron. It suits single-node
// deployments without a Redis-backed worker.
type LocalScheduler struct {
	scheduler gocron.Scheduler
	jobs      []Job
	logger    *slog.Logger
}

// NewLocalScheduler constructs a UTC gocron scheduler.
func NewLocalScheduler(logger *slog.Logger) (*LocalScheduler, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("local scheduler: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalScheduler{scheduler: scheduler, logger: logger}, nil
}

// Register queues job for scheduling once Run starts.
func (l *LocalScheduler) Register(job Job) error {
	if job.Name == "" || job.Spec == "" || job.Run == nil {
		return errors.New("local scheduler: job requires a name, spec and run func")
	}
	l.jobs = append(l.jobs, job)
	return nil
}

// Run schedules the registered jobs and blocks until ctx is cancelled.
func (l *LocalScheduler) Run(ctx context.Context) error {
	for _, job := range l.jobs {
		_, err := l.scheduler.NewJob(
			gocron.CronJob(job.Spec, false),
			gocron.NewTask(l.runJob, ctx, job),
			gocron.WithName(job.Name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = l.scheduler.Shutdown()
			return fmt.Errorf("local scheduler: schedule %s: %w", job.Name, err)
		}
		l.logger.Info("scheduled job", slog.String("job", job.Name), slog.String("spec", job.Spec))
	}
	l.scheduler.Start()
	<-ctx.Done()
	if err := l.scheduler.Shutdown(); err != nil {
		l.logger.Warn("local scheduler shutdown", slog.Any("error", err))
	}
	return ctx.Err()
}

func (l *LocalScheduler) runJob(ctx context.Context, job Job) {
	if err := job.Run(ctx, time.Time{}); err != nil {
		l.logger.Error("scheduled job failed", slog.String("job", job.Name), slog.Any("error", err))
	}
}
