package app

import (
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-pm/internal/billing"
	"github.com/odyssey-erp/odyssey-pm/internal/leasing"
	"github.com/odyssey-erp/odyssey-pm/internal/observability"
	"github.com/odyssey-erp/odyssey-pm/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pm/internal/shared"
	"github.com/odyssey-erp/odyssey-pm/jobs"
)

// Engine wires the leasing and billing services with the sweep guard shared by
// the HTTP triggers and the scheduled jobs.
type Engine struct {
	Leasing *leasing.Service
	Billing *billing.Service
	Guard   *jobs.Guard
	Sweeps  []*jobs.SweepJob
}

// NewEngine builds the services over pool. A nil redis client keeps sweep
// exclusion inside this process.
func NewEngine(cfg *Config, pool db.Pool, redisClient *redis.Client, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = &Config{}
	}

	leases := leasing.NewService(leasing.NewRepository(pool), logger)
	leases.WithBatchSize(cfg.SweepBatchSize)
	leases.WithExpiringWindow(cfg.ExpiringLeaseDays)

	invoices := billing.NewService(billing.NewRepository(pool), logger)
	invoices.WithBatchSize(cfg.SweepBatchSize)

	var locker *shared.Locker
	if redisClient != nil {
		locker = shared.NewLocker(redisClient, cfg.SweepLockTTL)
	}
	guard := jobs.NewGuard(locker, logger)

	jobMetrics := metrics.Jobs()
	return &Engine{
		Leasing: leases,
		Billing: invoices,
		Guard:   guard,
		Sweeps: []*jobs.SweepJob{
			jobs.NewSweepJob(jobs.TaskLeaseExpiry, leases.SweepExpired, guard, logger, jobMetrics),
			jobs.NewSweepJob(jobs.TaskRentInvoicing, invoices.GenerateDueInvoices, guard, logger, jobMetrics),
			jobs.NewSweepJob(jobs.TaskLateFees, invoices.ApplyLateFees, guard, logger, jobMetrics),
		},
	}
}

// Handlers returns the HTTP handlers for the engine's services.
func (e *Engine) Handlers(logger *slog.Logger) (*leasing.Handler, *billing.Handler) {
	return leasing.NewHandler(logger, e.Leasing, e.Guard), billing.NewHandler(logger, e.Billing, e.Guard)
}

// Jobs returns the schedulable jobs for the configured cron specs.
func (e *Engine) Jobs(cfg *Config) []jobs.Job {
	return jobs.SweepJobs(cfg.SweepSpecs(), e.Sweeps...)
}
