package leasing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"

	"github.com/odyssey-erp/odyssey-pm/internal/shared"
)

// Store defines data access for leases and their rent schedules.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
	GetLease(ctx context.Context, id int64) (Lease, error)
	ListSchedule(ctx context.Context, leaseID int64) ([]ScheduleEntry, error)
	ListExpiring(ctx context.Context, from, to time.Time) ([]Lease, error)
}

// TxStore exposes the writes that must share a transaction.
type TxStore interface {
	InsertLease(ctx context.Context, lease Lease) (Lease, error)
	LockLease(ctx context.Context, id int64) (Lease, error)
	UpdateLeaseTerms(ctx context.Context, id int64, endDate time.Time, rent decimal.Decimal, status LeaseStatus) error
	UpdateLeaseStatus(ctx context.Context, id int64, status LeaseStatus, terminationDate *time.Time, reason string) error
	InsertScheduleEntries(ctx context.Context, entries []ScheduleEntry) error
	LastScheduleEntry(ctx context.Context, leaseID int64) (*ScheduleEntry, error)
	LockUnit(ctx context.Context, tenantOrgID, unitID int64) error
	CountOccupyingLeases(ctx context.Context, tenantOrgID, unitID, excludeLeaseID int64) (int, error)
	SetUnitStatus(ctx context.Context, tenantOrgID, unitID int64, status UnitStatus) error
	ListExpiredActive(ctx context.Context, before time.Time, afterID int64, limit int) ([]Lease, error)
}

// Service orchestrates the lease lifecycle and rent schedule generation.
type Service struct {
	store     Store
	logger    *slog.Logger
	validate  *validator.Validate
	now       func() time.Time
	batchSize int
	expiring  int
}

// NewService constructs a Service instance.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		logger:   logger.With(slog.String("module", "leasing")),
		validate: validator.New(),
		now:      time.Now,
		expiring: DefaultExpiringWindowDays,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithBatchSize makes sweeps commit every n leases instead of once per run.
func (s *Service) WithBatchSize(n int) {
	s.batchSize = n
}

// WithExpiringWindow sets the look-ahead used when DetectExpiring gets no window.
func (s *Service) WithExpiringWindow(days int) {
	if days > 0 {
		s.expiring = days
	}
}

func (s *Service) today() time.Time {
	return shared.DateOf(s.now())
}

// CreateLease persists a lease together with its full rent schedule.
func (s *Service) CreateLease(ctx context.Context, in CreateLeaseInput) (Lease, error) {
	lease, err := s.prepareLease(in)
	if err != nil {
		return Lease{}, err
	}
	var created Lease
	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		if err := s.claimUnit(ctx, tx, lease.TenantOrgID, lease.UnitID); err != nil {
			return err
		}
		if lease.Status == StatusActive {
			if err := s.ensureUnitFree(ctx, tx, lease.TenantOrgID, lease.UnitID, 0); err != nil {
				return err
			}
		}
		var err error
		created, err = tx.InsertLease(ctx, lease)
		if err != nil {
			return err
		}
		if err := s.applyOccupancy(ctx, tx, created.TenantOrgID, created.UnitID, StatusDraft, created.Status); err != nil {
			return err
		}
		_, err = s.persistSchedule(ctx, tx, created, created.StartDate, created.EndDate)
		return err
	})
	if err != nil {
		return Lease{}, err
	}
	s.logger.Info("lease created",
		slog.Int64("lease_id", created.ID),
		slog.String("lease_number", created.Number),
		slog.String("status", string(created.Status)),
	)
	return created, nil
}

func (s *Service) prepareLease(in CreateLeaseInput) (Lease, error) {
	in.Number = strings.TrimSpace(in.Number)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if err := s.validate.Struct(in); err != nil {
		return Lease{}, fmt.Errorf("leasing: %s: %w", describeValidation(err), shared.ErrValidation)
	}
	start, end := shared.DateOf(in.StartDate), shared.DateOf(in.EndDate)
	if !start.Before(end) {
		return Lease{}, fmt.Errorf("leasing: start date must be before end date: %w", shared.ErrValidation)
	}
	if !in.BaseRent.IsPositive() {
		return Lease{}, fmt.Errorf("leasing: rent amount must be positive: %w", shared.ErrValidation)
	}
	if in.Currency == "" {
		in.Currency = DefaultCurrency
	}
	if _, err := currency.ParseISO(in.Currency); err != nil {
		return Lease{}, fmt.Errorf("leasing: unknown currency %q: %w", in.Currency, shared.ErrValidation)
	}
	if in.Frequency == "" {
		in.Frequency = FrequencyMonthly
	}
	if in.Status == "" {
		in.Status = StatusDraft
	}
	if in.NoticePeriodDays == 0 {
		in.NoticePeriodDays = 30
	}
	return Lease{
		TenantOrgID:      in.TenantOrgID,
		Number:           in.Number,
		PropertyID:       in.PropertyID,
		UnitID:           in.UnitID,
		TenantID:         in.TenantID,
		OwnerID:          in.OwnerID,
		StartDate:        start,
		EndDate:          end,
		BaseRent:         in.BaseRent.Round(2),
		Currency:         in.Currency,
		Frequency:        in.Frequency,
		Status:           in.Status,
		NoticePeriodDays: in.NoticePeriodDays,
	}, nil
}

func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}

// GetLease returns a lease by identifier.
func (s *Service) GetLease(ctx context.Context, id int64) (Lease, error) {
	return s.store.GetLease(ctx, id)
}

// ListSchedule returns the rent schedule of a lease ordered by due date.
func (s *Service) ListSchedule(ctx context.Context, leaseID int64) ([]ScheduleEntry, error) {
	if _, err := s.store.GetLease(ctx, leaseID); err != nil {
		return nil, err
	}
	return s.store.ListSchedule(ctx, leaseID)
}

// Activate moves a draft lease to active and marks its unit occupied.
func (s *Service) Activate(ctx context.Context, id int64) (Lease, error) {
	var lease Lease
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		var err error
		lease, err = tx.LockLease(ctx, id)
		if err != nil {
			return err
		}
		next, err := Next(lease.Status, EventActivate)
		if err != nil {
			return err
		}
		if err := s.claimUnit(ctx, tx, lease.TenantOrgID, lease.UnitID); err != nil {
			return err
		}
		if err := s.ensureUnitFree(ctx, tx, lease.TenantOrgID, lease.UnitID, lease.ID); err != nil {
			return err
		}
		if err := tx.UpdateLeaseStatus(ctx, lease.ID, next, nil, ""); err != nil {
			return err
		}
		if err := s.applyOccupancy(ctx, tx, lease.TenantOrgID, lease.UnitID, lease.Status, next); err != nil {
			return err
		}
		lease.Status = next
		return nil
	})
	if err != nil {
		return Lease{}, err
	}
	s.logger.Info("lease activated", slog.Int64("lease_id", lease.ID))
	return lease, nil
}

// Terminate ends a lease manually and frees its unit.
func (s *Service) Terminate(ctx context.Context, in TerminateInput) (Lease, error) {
	date := s.today()
	if in.Date != nil {
		date = shared.DateOf(*in.Date)
	}
	var lease Lease
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		var err error
		lease, err = tx.LockLease(ctx, in.LeaseID)
		if err != nil {
			return err
		}
		next, err := Next(lease.Status, EventTerminate)
		if err != nil {
			return err
		}
		if err := tx.UpdateLeaseStatus(ctx, lease.ID, next, &date, in.Reason); err != nil {
			return err
		}
		if err := s.applyOccupancy(ctx, tx, lease.TenantOrgID, lease.UnitID, lease.Status, next); err != nil {
			return err
		}
		lease.Status = next
		lease.TerminationDate = &date
		lease.TerminationReason = in.Reason
		return nil
	})
	if err != nil {
		return Lease{}, err
	}
	s.logger.Info("lease terminated", slog.Int64("lease_id", lease.ID), slog.String("reason", in.Reason))
	return lease, nil
}

// Renew extends an active lease, optionally changing its rent, and schedules
// the extension window only. Existing entries keep their amounts.
func (s *Service) Renew(ctx context.Context, in RenewInput) (RenewalResult, error) {
	var result RenewalResult
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		lease, err := tx.LockLease(ctx, in.LeaseID)
		if err != nil {
			return err
		}
		if lease.Status != StatusActive {
			return fmt.Errorf("leasing: only active leases can be renewed, lease %d is %s: %w",
				lease.ID, lease.Status, shared.ErrInvalidState)
		}
		next, err := Next(lease.Status, EventRenew)
		if err != nil {
			return err
		}

		oldEnd := shared.DateOf(lease.EndDate)
		newEnd := shared.AddYears(oldEnd, 1)
		if in.NewEndDate != nil {
			newEnd = shared.DateOf(*in.NewEndDate)
		}
		if !newEnd.After(oldEnd) {
			return fmt.Errorf("leasing: new end date must be after %s: %w",
				oldEnd.Format(shared.DateLayout), shared.ErrValidation)
		}
		newRent := resolveRent(lease.BaseRent, in.NewRent, in.EscalationPct)
		if !newRent.IsPositive() {
			return fmt.Errorf("leasing: renewed rent must be positive: %w", shared.ErrValidation)
		}

		last, err := tx.LastScheduleEntry(ctx, lease.ID)
		if err != nil {
			return err
		}
		if err := tx.UpdateLeaseTerms(ctx, lease.ID, newEnd, newRent, next); err != nil {
			return err
		}

		renewed := lease
		renewed.EndDate = newEnd
		renewed.BaseRent = newRent
		renewed.Status = next
		created := 0
		if from := renewalWindowStart(oldEnd, last); from.Before(newEnd) {
			created, err = s.persistSchedule(ctx, tx, renewed, from, newEnd)
			if err != nil {
				return err
			}
		}
		result = RenewalResult{LeaseID: lease.ID, NewEndDate: newEnd, NewRent: newRent, Entries: created}
		return nil
	})
	if err != nil {
		return RenewalResult{}, err
	}
	s.logger.Info("lease renewed",
		slog.Int64("lease_id", result.LeaseID),
		slog.String("new_end_date", result.NewEndDate.Format(shared.DateLayout)),
		slog.String("new_rent", result.NewRent.StringFixed(2)),
	)
	return result, nil
}

// resolveRent applies an explicit rent, else an escalation, else keeps the old rent.
func resolveRent(old decimal.Decimal, explicit, escalationPct *decimal.Decimal) decimal.Decimal {
	switch {
	case explicit != nil:
		return explicit.Round(2)
	case escalationPct != nil:
		factor := decimal.NewFromInt(1).Add(escalationPct.Div(decimal.NewFromInt(100)))
		return old.Mul(factor).Round(2)
	default:
		return old
	}
}

// SweepExpired flips active leases whose end date is before asOf to expired
// and frees their units. A zero asOf means today.
func (s *Service) SweepExpired(ctx context.Context, asOf time.Time) (int, error) {
	today := s.today()
	if !asOf.IsZero() {
		today = shared.DateOf(asOf)
	}
	count, err := shared.RunSweep(ctx, s.batchSize, func(ctx context.Context, cursor int64, limit int) (shared.SweepPage, error) {
		var page shared.SweepPage
		err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
			leases, err := tx.ListExpiredActive(ctx, today, cursor, limit)
			if err != nil {
				return err
			}
			for _, lease := range leases {
				if err := s.expire(ctx, tx, lease, today); err != nil {
					return fmt.Errorf("leasing: expire lease %d: %w", lease.ID, err)
				}
				page.Processed++
				page.Cursor = lease.ID
			}
			page.More = limit > 0 && len(leases) == limit
			return nil
		})
		return page, err
	})
	if err != nil {
		s.logger.Error("expiry sweep failed", slog.Int("committed", count), slog.Any("error", err))
		return count, err
	}
	s.logger.Info("expiry sweep completed", slog.Int("expired", count), slog.String("as_of", today.Format(shared.DateLayout)))
	return count, nil
}

func (s *Service) expire(ctx context.Context, tx TxStore, lease Lease, today time.Time) error {
	next, err := Next(lease.Status, EventExpire)
	if err != nil {
		return err
	}
	if err := tx.UpdateLeaseStatus(ctx, lease.ID, next, &today, ExpiryReason); err != nil {
		return err
	}
	return s.applyOccupancy(ctx, tx, lease.TenantOrgID, lease.UnitID, lease.Status, next)
}

// DetectExpiring lists active leases ending within daysAhead days from today.
func (s *Service) DetectExpiring(ctx context.Context, daysAhead int) ([]ExpiringLease, error) {
	if daysAhead <= 0 {
		daysAhead = s.expiring
	}
	today := s.today()
	leases, err := s.store.ListExpiring(ctx, today, today.AddDate(0, 0, daysAhead))
	if err != nil {
		return nil, err
	}
	out := make([]ExpiringLease, 0, len(leases))
	for _, l := range leases {
		out = append(out, ExpiringLease{
			LeaseID:       l.ID,
			Number:        l.Number,
			TenantID:      l.TenantID,
			EndDate:       l.EndDate,
			DaysRemaining: shared.DaysBetween(today, l.EndDate),
		})
	}
	return out, nil
}

func (s *Service) persistSchedule(ctx context.Context, tx TxStore, lease Lease, from, to time.Time) (int, error) {
	entries, err := GenerateSchedule(lease, from, to)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		s.logger.Warn("no rent schedule generated",
			slog.Int64("lease_id", lease.ID),
			slog.String("frequency", string(lease.Frequency)),
		)
		return 0, nil
	}
	if err := tx.InsertScheduleEntries(ctx, entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// claimUnit locks the unit row and rejects units outside the lease's organisation.
func (s *Service) claimUnit(ctx context.Context, tx TxStore, tenantOrgID int64, unitID *int64) error {
	if unitID == nil {
		return nil
	}
	if err := tx.LockUnit(ctx, tenantOrgID, *unitID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("leasing: unit %d does not belong to organisation %d: %w",
				*unitID, tenantOrgID, shared.ErrValidation)
		}
		return err
	}
	return nil
}

func (s *Service) ensureUnitFree(ctx context.Context, tx TxStore, tenantOrgID int64, unitID *int64, leaseID int64) error {
	if unitID == nil {
		return nil
	}
	n, err := tx.CountOccupyingLeases(ctx, tenantOrgID, *unitID, leaseID)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("leasing: unit %d already has an active lease: %w", *unitID, shared.ErrInvalidState)
	}
	return nil
}

// applyOccupancy keeps the unit flag in step with the lease transition. A unit
// is only freed once no other active or renewed lease references it.
func (s *Service) applyOccupancy(ctx context.Context, tx TxStore, tenantOrgID int64, unitID *int64, previous, next LeaseStatus) error {
	if unitID == nil {
		return nil
	}
	status, changed := occupancyFor(previous, next)
	if !changed {
		return nil
	}
	if status == UnitVacant {
		n, err := tx.CountOccupyingLeases(ctx, tenantOrgID, *unitID, 0)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
	}
	return tx.SetUnitStatus(ctx, tenantOrgID, *unitID, status)
}
