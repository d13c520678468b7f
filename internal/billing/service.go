package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pm/internal/shared"
)

// Store defines data access for billing sweeps.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
	ListActiveRules(ctx context.Context) ([]LateFeeRule, error)
}

// TxStore exposes the writes that must share a transaction.
type TxStore interface {
	ListDueEntries(ctx context.Context, dueDate time.Time, afterID int64, limit int) ([]DueEntry, error)
	// InsertRentInvoice returns false when a rent invoice for the same lease
	// and due date already exists.
	InsertRentInvoice(ctx context.Context, inv Invoice) (int64, bool, error)
	// InsertLine returns false when a line for the same fee rule is already present.
	InsertLine(ctx context.Context, line InvoiceLine) (bool, error)
	MarkEntryInvoiced(ctx context.Context, entryID int64) error
	ListOverdueInvoices(ctx context.Context, dueOnOrBefore time.Time, afterID int64, limit int) ([]OverdueInvoice, error)
	AddToTotal(ctx context.Context, invoiceID int64, amount decimal.Decimal) error
}

// Service runs the recurring billing sweeps.
type Service struct {
	store     Store
	logger    *slog.Logger
	now       func() time.Time
	batchSize int
}

// NewService constructs a billing service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		logger: logger.With(slog.String("module", "billing")),
		now:    time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithBatchSize makes sweeps commit every n records instead of once per run.
func (s *Service) WithBatchSize(n int) {
	s.batchSize = n
}

func (s *Service) asOf(t time.Time) time.Time {
	if t.IsZero() {
		return shared.DateOf(s.now())
	}
	return shared.DateOf(t)
}

// GenerateDueInvoices issues one posted rent invoice per schedule entry due
// on asOf. Entries already invoiced for the same lease and due date are
// skipped. A zero asOf means today.
func (s *Service) GenerateDueInvoices(ctx context.Context, asOf time.Time) (int, error) {
	day := s.asOf(asOf)
	count, err := shared.RunSweep(ctx, s.batchSize, func(ctx context.Context, cursor int64, limit int) (shared.SweepPage, error) {
		var page shared.SweepPage
		err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
			page = shared.SweepPage{}
			entries, err := tx.ListDueEntries(ctx, day, cursor, limit)
			if err != nil {
				return err
			}
			for _, e := range entries {
				created, err := s.invoiceEntry(ctx, tx, e, day)
				if err != nil {
					return fmt.Errorf("billing: invoice schedule entry %d: %w", e.EntryID, err)
				}
				if created {
					page.Processed++
				}
				page.Cursor = e.EntryID
			}
			page.More = limit > 0 && len(entries) == limit
			return nil
		})
		return page, err
	})
	if err != nil {
		s.logger.Error("invoice sweep failed", slog.Int("committed", count), slog.Any("error", err))
		return count, err
	}
	s.logger.Info("invoice sweep completed", slog.Int("invoices", count), slog.String("as_of", day.Format(shared.DateLayout)))
	return count, nil
}

func (s *Service) invoiceEntry(ctx context.Context, tx TxStore, e DueEntry, day time.Time) (bool, error) {
	currency := e.Currency
	if currency == "" {
		currency = "USD"
	}
	inv := Invoice{
		TenantOrgID: e.TenantOrgID,
		Number:      invoiceNumber(e.LeaseNumber, day),
		Kind:        KindRent,
		LeaseID:     e.LeaseID,
		TenantID:    e.TenantID,
		PropertyID:  e.PropertyID,
		UnitID:      e.UnitID,
		InvoiceDate: day,
		DueDate:     e.DueDate,
		Total:       e.Amount,
		Currency:    currency,
		Status:      InvoicePosted,
	}
	id, created, err := tx.InsertRentInvoice(ctx, inv)
	if err != nil {
		return false, err
	}
	if !created {
		s.logger.Debug("rent invoice already exists",
			slog.Int64("lease_id", e.LeaseID),
			slog.String("due_date", e.DueDate.Format(shared.DateLayout)),
		)
		return false, nil
	}
	entryID := e.EntryID
	if _, err := tx.InsertLine(ctx, InvoiceLine{
		InvoiceID:       id,
		Kind:            LineRent,
		Description:     rentDescription(e),
		Quantity:        decimal.NewFromInt(1),
		UnitPrice:       e.Amount,
		LineTotal:       e.Amount,
		ScheduleEntryID: &entryID,
	}); err != nil {
		return false, err
	}
	if err := tx.MarkEntryInvoiced(ctx, e.EntryID); err != nil {
		return false, err
	}
	return true, nil
}

// ApplyLateFees charges each active rule once on every open invoice in the
// rule's tenant scope whose due date is at least the rule's grace period
// before asOf. It returns the number of fee lines added. A zero asOf means today.
func (s *Service) ApplyLateFees(ctx context.Context, asOf time.Time) (int, error) {
	day := s.asOf(asOf)
	rules, err := s.store.ListActiveRules(ctx)
	if err != nil {
		s.logger.Error("late fee sweep failed", slog.Int("committed", 0), slog.Any("error", err))
		return 0, err
	}
	rules = s.usableRules(rules)
	if len(rules) == 0 {
		s.logger.Info("late fee sweep skipped, no active rules")
		return 0, nil
	}
	count, err := shared.RunSweep(ctx, s.batchSize, func(ctx context.Context, cursor int64, limit int) (shared.SweepPage, error) {
		var page shared.SweepPage
		err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
			page = shared.SweepPage{}
			invoices, err := tx.ListOverdueInvoices(ctx, day, cursor, limit)
			if err != nil {
				return err
			}
			for _, inv := range invoices {
				n, err := s.chargeInvoice(ctx, tx, inv, rules, day)
				if err != nil {
					return fmt.Errorf("billing: late fees on invoice %d: %w", inv.ID, err)
				}
				page.Processed += n
				page.Cursor = inv.ID
			}
			page.More = limit > 0 && len(invoices) == limit
			return nil
		})
		return page, err
	})
	if err != nil {
		s.logger.Error("late fee sweep failed", slog.Int("committed", count), slog.Any("error", err))
		return count, err
	}
	s.logger.Info("late fee sweep completed", slog.Int("fees", count), slog.String("as_of", day.Format(shared.DateLayout)))
	return count, nil
}

// usableRules drops rules whose fee type cannot be computed.
func (s *Service) usableRules(rules []LateFeeRule) []LateFeeRule {
	out := rules[:0:0]
	for _, rule := range rules {
		if _, err := ComputeFee(rule, decimal.Zero); err != nil {
			s.logger.Warn("late fee rule skipped",
				slog.Int64("rule_id", rule.ID),
				slog.String("fee_type", string(rule.FeeType)),
			)
			continue
		}
		out = append(out, rule)
	}
	return out
}

func (s *Service) chargeInvoice(ctx context.Context, tx TxStore, inv OverdueInvoice, rules []LateFeeRule, day time.Time) (int, error) {
	applied := 0
	for _, rule := range rules {
		if rule.TenantOrgID != inv.TenantOrgID || inv.charged(rule.ID) {
			continue
		}
		cutoff := day.AddDate(0, 0, -rule.Grace())
		if inv.DueDate.After(cutoff) {
			continue
		}
		fee, err := ComputeFee(rule, inv.Total)
		if err != nil {
			return applied, err
		}
		if !fee.IsPositive() {
			continue
		}
		ruleID := rule.ID
		created, err := tx.InsertLine(ctx, InvoiceLine{
			InvoiceID:     inv.ID,
			Kind:          LineLateFee,
			Description:   lateFeeDescription(rule),
			Quantity:      decimal.NewFromInt(1),
			UnitPrice:     fee,
			LineTotal:     fee,
			LateFeeRuleID: &ruleID,
		})
		if err != nil {
			return applied, err
		}
		if !created {
			continue
		}
		if err := tx.AddToTotal(ctx, inv.ID, fee); err != nil {
			return applied, err
		}
		inv.Total = inv.Total.Add(fee)
		inv.FeeRuleIDs = append(inv.FeeRuleIDs, rule.ID)
		applied++
		s.logger.Debug("late fee applied",
			slog.Int64("invoice_id", inv.ID),
			slog.Int64("rule_id", rule.ID),
			slog.String("fee", fee.StringFixed(2)),
		)
	}
	return applied, nil
}
