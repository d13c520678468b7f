package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-pm/internal/app"
	"github.com/odyssey-erp/odyssey-pm/internal/observability"
	"github.com/odyssey-erp/odyssey-pm/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-pm/internal/platform/db"
	"github.com/odyssey-erp/odyssey-pm/jobs"
)

const metricsAddr = ":9091"

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	engine := app.NewEngine(cfg, pool, redisClient, logger, metrics)

	scheduler, err := newScheduler(cfg, logger)
	if err != nil {
		return err
	}
	for _, job := range engine.Jobs(cfg) {
		if err := scheduler.Register(job); err != nil {
			return err
		}
	}
	logger.Info("scheduler ready", slog.String("backend", cfg.SchedulerBackend))

	metricsServer := &http.Server{Addr: metricsAddr, Handler: metrics.Handler(), ReadTimeout: 5 * time.Second}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return scheduler.Run(gctx)
	})
	group.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func newScheduler(cfg *app.Config, logger *slog.Logger) (jobs.Scheduler, error) {
	if cfg.SchedulerBackend == app.SchedulerLocal {
		return jobs.NewLocalScheduler(logger)
	}
	return jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
	})
}
