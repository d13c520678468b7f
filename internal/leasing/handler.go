package leasing

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pm/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-pm/internal/shared"
)

// LeaseService is the subset of Service used by the HTTP layer.
type LeaseService interface {
	CreateLease(ctx context.Context, in CreateLeaseInput) (Lease, error)
	GetLease(ctx context.Context, id int64) (Lease, error)
	ListSchedule(ctx context.Context, leaseID int64) ([]ScheduleEntry, error)
	Activate(ctx context.Context, id int64) (Lease, error)
	Terminate(ctx context.Context, in TerminateInput) (Lease, error)
	Renew(ctx context.Context, in RenewInput) (RenewalResult, error)
	SweepExpired(ctx context.Context, asOf time.Time) (int, error)
	DetectExpiring(ctx context.Context, daysAhead int) ([]ExpiringLease, error)
}

// Handler exposes lease endpoints as JSON.
type Handler struct {
	logger  *slog.Logger
	service LeaseService
	guard   shared.SweepGuard
}

// NewHandler constructs the leasing handler. guard may be nil.
func NewHandler(logger *slog.Logger, service LeaseService, guard shared.SweepGuard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers lease and lease automation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/leases", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/{id}", h.handleGet)
		r.Get("/{id}/rent-schedule", h.handleSchedule)
		r.Post("/{id}/activate", h.handleActivate)
		r.Post("/{id}/terminate", h.handleTerminate)
	})
	r.Get("/automation/expiring-leases", h.handleExpiring)
	r.Post("/automation/renew-lease/{id}", h.handleRenew)
	r.Post("/automation/auto-terminate", h.handleAutoTerminate)
}

type createLeaseRequest struct {
	Number           string          `json:"lease_number"`
	PropertyID       int64           `json:"property_id"`
	UnitID           *int64          `json:"unit_id"`
	TenantID         int64           `json:"tenant_id"`
	OwnerID          *int64          `json:"owner_id"`
	StartDate        string          `json:"start_date"`
	EndDate          string          `json:"end_date"`
	BaseRent         decimal.Decimal `json:"base_rent_amount"`
	Currency         string          `json:"base_rent_currency"`
	Frequency        Frequency       `json:"rent_frequency"`
	Status           LeaseStatus     `json:"lease_status"`
	NoticePeriodDays int             `json:"notice_period_days"`
}

type terminateRequest struct {
	Date   string `json:"termination_date"`
	Reason string `json:"reason"`
}

type renewRequest struct {
	NewEndDate    string           `json:"new_end_date"`
	NewRent       *decimal.Decimal `json:"new_rent_amount"`
	EscalationPct *decimal.Decimal `json:"rent_escalation_percentage"`
}

type sweepResponse struct {
	Sweep string `json:"sweep"`
	AsOf  string `json:"as_of"`
	Count int    `json:"count"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := shared.TenantFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "tenant organisation header required")
		return
	}
	var req createLeaseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	start, err := shared.ParseDate(req.StartDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "start_date must be YYYY-MM-DD")
		return
	}
	end, err := shared.ParseDate(req.EndDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "end_date must be YYYY-MM-DD")
		return
	}
	lease, err := h.service.CreateLease(r.Context(), CreateLeaseInput{
		TenantOrgID:      tenantID,
		Number:           req.Number,
		PropertyID:       req.PropertyID,
		UnitID:           req.UnitID,
		TenantID:         req.TenantID,
		OwnerID:          req.OwnerID,
		StartDate:        start,
		EndDate:          end,
		BaseRent:         req.BaseRent,
		Currency:         req.Currency,
		Frequency:        req.Frequency,
		Status:           req.Status,
		NoticePeriodDays: req.NoticePeriodDays,
	})
	if err != nil {
		h.fail(w, "create lease", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, lease)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := leaseID(w, r)
	if !ok {
		return
	}
	lease, err := h.service.GetLease(r.Context(), id)
	if err != nil {
		h.fail(w, "get lease", err)
		return
	}
	httpx.JSON(w, http.StatusOK, lease)
}

func (h *Handler) handleSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := leaseID(w, r)
	if !ok {
		return
	}
	entries, err := h.service.ListSchedule(r.Context(), id)
	if err != nil {
		h.fail(w, "list rent schedule", err)
		return
	}
	if entries == nil {
		entries = []ScheduleEntry{}
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	id, ok := leaseID(w, r)
	if !ok {
		return
	}
	lease, err := h.service.Activate(r.Context(), id)
	if err != nil {
		h.fail(w, "activate lease", err)
		return
	}
	httpx.JSON(w, http.StatusOK, lease)
}

func (h *Handler) handleTerminate(w http.ResponseWriter, r *http.Request) {
	id, ok := leaseID(w, r)
	if !ok {
		return
	}
	var req terminateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	in := TerminateInput{LeaseID: id, Reason: req.Reason}
	if req.Date != "" {
		date, err := shared.ParseDate(req.Date)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "termination_date must be YYYY-MM-DD")
			return
		}
		in.Date = &date
	}
	lease, err := h.service.Terminate(r.Context(), in)
	if err != nil {
		h.fail(w, "terminate lease", err)
		return
	}
	httpx.JSON(w, http.StatusOK, lease)
}

func (h *Handler) handleExpiring(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "days must be a positive integer")
			return
		}
		days = n
	}
	leases, err := h.service.DetectExpiring(r.Context(), days)
	if err != nil {
		h.fail(w, "detect expiring leases", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"expiring_leases": leases,
		"count":           len(leases),
	})
}

func (h *Handler) handleRenew(w http.ResponseWriter, r *http.Request) {
	id, ok := leaseID(w, r)
	if !ok {
		return
	}
	var req renewRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	in := RenewInput{LeaseID: id, NewRent: req.NewRent, EscalationPct: req.EscalationPct}
	if req.NewEndDate != "" {
		end, err := shared.ParseDate(req.NewEndDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "new_end_date must be YYYY-MM-DD")
			return
		}
		in.NewEndDate = &end
	}
	res, err := h.service.Renew(r.Context(), in)
	if err != nil {
		h.fail(w, "renew lease", err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *Handler) handleAutoTerminate(w http.ResponseWriter, r *http.Request) {
	asOf, ok := httpx.AsOfParam(w, r)
	if !ok {
		return
	}
	n, err := shared.GuardedSweep(r.Context(), h.guard, shared.SweepLeaseExpiry, asOf, h.service.SweepExpired)
	if err != nil {
		h.fail(w, "expiry sweep", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sweepResponse{Sweep: shared.SweepLeaseExpiry, AsOf: asOf.Format(shared.DateLayout), Count: n})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Warn(op+" failed", slog.Any("error", err))
	httpx.RespondError(w, err)
}

func leaseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid lease id")
		return 0, false
	}
	return id, true
}
