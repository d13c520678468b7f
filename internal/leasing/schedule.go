package leasing

import (
	"fmt"
	"time"

	"github.com/odyssey-erp/odyssey-pm/internal/shared"
)

// GenerateSchedule slices [from, to) into billing periods of the lease's
// frequency. Period boundaries are from + n*step calendar months, the last
// period end is clamped to to, and each entry is due on its period start.
//
// An unsupported frequency yields no entries and no error; callers decide
// whether that deserves a warning. Invalid rent or inverted dates are
// rejected before anything is produced.
func GenerateSchedule(lease Lease, from, to time.Time) ([]ScheduleEntry, error) {
	if !lease.BaseRent.IsPositive() {
		return nil, fmt.Errorf("leasing: rent amount must be positive: %w", shared.ErrValidation)
	}
	if !lease.StartDate.Before(lease.EndDate) {
		return nil, fmt.Errorf("leasing: start date must be before end date: %w", shared.ErrValidation)
	}
	from, to = shared.DateOf(from), shared.DateOf(to)
	if !from.Before(to) {
		return nil, fmt.Errorf("leasing: schedule window %s..%s is empty: %w",
			from.Format(shared.DateLayout), to.Format(shared.DateLayout), shared.ErrValidation)
	}
	step := lease.Frequency.Months()
	if step == 0 {
		return nil, nil
	}
	currency := lease.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	var entries []ScheduleEntry
	current := from
	for n := 1; current.Before(to); n++ {
		next := shared.AddMonths(from, n*step)
		periodEnd := next.AddDate(0, 0, -1)
		if periodEnd.After(to) {
			periodEnd = to
		}
		entries = append(entries, ScheduleEntry{
			TenantOrgID:       lease.TenantOrgID,
			LeaseID:           lease.ID,
			DueDate:           current,
			PeriodStart:       current,
			PeriodEnd:         periodEnd,
			ScheduledAmount:   lease.BaseRent,
			OutstandingAmount: lease.BaseRent,
			Currency:          currency,
			Status:            ScheduleScheduled,
		})
		current = next
	}
	return entries, nil
}

// renewalWindowStart is the first day not covered by existing entries. With no
// entries it falls back to the day after the old end date.
func renewalWindowStart(oldEnd time.Time, last *ScheduleEntry) time.Time {
	if last != nil {
		return shared.DateOf(last.PeriodEnd).AddDate(0, 0, 1)
	}
	return shared.DateOf(oldEnd).AddDate(0, 0, 1)
}
