package billing

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-pm/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pm/internal/shared"
)

// Sweeper is the subset of Service used by the HTTP layer.
type Sweeper interface {
	GenerateDueInvoices(ctx context.Context, asOf time.Time) (int, error)
	ApplyLateFees(ctx context.Context, asOf time.Time) (int, error)
}

// Handler exposes manual triggers for the billing sweeps.
type Handler struct {
	logger  *slog.Logger
	service Sweeper
	guard   shared.SweepGuard
}

// NewHandler constructs the billing handler. guard may be nil.
func NewHandler(logger *slog.Logger, service Sweeper, guard shared.SweepGuard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers billing automation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/automation/generate-invoices", h.sweep(shared.SweepRentInvoicing, h.service.GenerateDueInvoices))
	r.Post("/automation/apply-late-fees", h.sweep(shared.SweepLateFees, h.service.ApplyLateFees))
}

func (h *Handler) sweep(name string, fn shared.SweepFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		asOf, ok := httpx.AsOfParam(w, r)
		if !ok {
			return
		}
		n, err := shared.GuardedSweep(r.Context(), h.guard, name, asOf, fn)
		if err != nil {
			h.logger.Warn("manual sweep failed", slog.String("sweep", name), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{
			"sweep": name,
			"as_of": asOf.Format(shared.DateLayout),
			"count": n,
		})
	}
}
