package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pm/internal/billing"
	"github.com/odyssey-erp/odyssey-pm/internal/leasing"
	"github.com/odyssey-erp/odyssey-pm/internal/observability"
	"github.com/odyssey-erp/odyssey-pm/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pm/jobs"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Metrics        *observability.Metrics
	LeasingHandler *leasing.Handler
	BillingHandler *billing.Handler
	JobHandler     *jobs.Handler
	// Database is pinged by /readyz. Nil skips the check.
	Database Pinger
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(params.Database, params.Logger))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.LeasingHandler != nil {
		params.LeasingHandler.MountRoutes(r)
	}
	if params.BillingHandler != nil {
		params.BillingHandler.MountRoutes(r)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	return r
}

func readiness(db Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				if logger != nil {
					logger.Warn("readiness check failed", slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusServiceUnavailable, "Not Ready", "database unreachable")
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
