package leasing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pm/internal/shared"
)

func testLease(freq Frequency, start, end time.Time, rent int64) Lease {
	return Lease{
		ID:          1,
		TenantOrgID: 3,
		Number:      "L-001",
		StartDate:   start,
		EndDate:     end,
		BaseRent:    decimal.NewFromInt(rent),
		Frequency:   freq,
		Status:      StatusActive,
	}
}

func requireContiguous(t *testing.T, entries []ScheduleEntry, from, to time.Time) {
	t.Helper()
	require.NotEmpty(t, entries)
	require.Equal(t, from, entries[0].PeriodStart)
	for i, e := range entries {
		require.Equal(t, e.PeriodStart, e.DueDate)
		require.False(t, e.PeriodEnd.Before(e.PeriodStart), "entry %d ends before it starts", i)
		require.False(t, e.PeriodEnd.After(to), "entry %d ends after window", i)
		if i > 0 {
			prev := entries[i-1]
			require.True(t, e.DueDate.After(prev.DueDate), "due dates must strictly increase")
			require.Equal(t, prev.PeriodEnd.AddDate(0, 0, 1), e.PeriodStart, "gap or overlap at entry %d", i)
		}
	}
	last := entries[len(entries)-1]
	require.False(t, last.PeriodStart.After(to))
	require.True(t, !last.PeriodEnd.Before(to.AddDate(0, 0, -1)), "window not covered")
}

func TestGenerateScheduleMonthlyYear(t *testing.T) {
	start := shared.Date(2024, time.January, 1)
	end := shared.Date(2025, time.January, 1)
	lease := testLease(FrequencyMonthly, start, end, 1000)

	entries, err := GenerateSchedule(lease, start, end)
	require.NoError(t, err)
	require.Len(t, entries, 12)
	requireContiguous(t, entries, start, end)

	for i, e := range entries {
		require.Equal(t, shared.Date(2024, time.Month(i+1), 1), e.DueDate)
		require.True(t, e.ScheduledAmount.Equal(decimal.NewFromInt(1000)))
		require.True(t, e.OutstandingAmount.Equal(e.ScheduledAmount))
		require.Equal(t, ScheduleScheduled, e.Status)
		require.False(t, e.IsPaid)
		require.Equal(t, int64(1), e.LeaseID)
		require.Equal(t, int64(3), e.TenantOrgID)
		require.Equal(t, DefaultCurrency, e.Currency)
	}
	require.Equal(t, shared.Date(2024, time.December, 31), entries[11].PeriodEnd)
}

func TestGenerateScheduleQuarterlyAndYearly(t *testing.T) {
	start := shared.Date(2024, time.March, 15)
	end := shared.Date(2026, time.March, 15)

	quarterly, err := GenerateSchedule(testLease(FrequencyQuarterly, start, end, 3000), start, end)
	require.NoError(t, err)
	require.Len(t, quarterly, 8)
	requireContiguous(t, quarterly, start, end)
	require.Equal(t, shared.Date(2024, time.June, 14), quarterly[0].PeriodEnd)

	yearly, err := GenerateSchedule(testLease(FrequencyYearly, start, end, 12000), start, end)
	require.NoError(t, err)
	require.Len(t, yearly, 2)
	requireContiguous(t, yearly, start, end)
	require.Equal(t, shared.Date(2025, time.March, 15), yearly[1].DueDate)
}

func TestGenerateScheduleClampsFinalPeriod(t *testing.T) {
	start := shared.Date(2024, time.January, 1)
	end := shared.Date(2024, time.March, 15)
	entries, err := GenerateSchedule(testLease(FrequencyMonthly, start, end, 500), start, end)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, shared.Date(2024, time.March, 1), entries[2].DueDate)
	require.Equal(t, end, entries[2].PeriodEnd)
}

func TestGenerateScheduleMonthEndStartDoesNotDrift(t *testing.T) {
	start := shared.Date(2024, time.January, 31)
	end := shared.Date(2024, time.May, 31)
	entries, err := GenerateSchedule(testLease(FrequencyMonthly, start, end, 800), start, end)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	requireContiguous(t, entries, start, end)

	due := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		due = append(due, e.DueDate)
	}
	require.Equal(t, []time.Time{
		shared.Date(2024, time.January, 31),
		shared.Date(2024, time.February, 29),
		shared.Date(2024, time.March, 31),
		shared.Date(2024, time.April, 30),
	}, due)
}

func TestGenerateScheduleUnknownFrequencyIsNoop(t *testing.T) {
	start := shared.Date(2024, time.January, 1)
	end := shared.Date(2025, time.January, 1)
	entries, err := GenerateSchedule(testLease(Frequency("WEEKLY"), start, end, 1000), start, end)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestGenerateScheduleRejectsInvalidInput(t *testing.T) {
	start := shared.Date(2024, time.January, 1)
	end := shared.Date(2025, time.January, 1)

	_, err := GenerateSchedule(testLease(FrequencyMonthly, start, end, 0), start, end)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = GenerateSchedule(testLease(FrequencyMonthly, start, end, -10), start, end)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = GenerateSchedule(testLease(FrequencyMonthly, end, start, 1000), end, start)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = GenerateSchedule(testLease(FrequencyMonthly, start, end, 1000), end, end)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRenewalWindowStart(t *testing.T) {
	oldEnd := shared.Date(2025, time.January, 1)
	require.Equal(t, shared.Date(2025, time.January, 2), renewalWindowStart(oldEnd, nil))

	last := &ScheduleEntry{PeriodEnd: shared.Date(2024, time.December, 31)}
	require.Equal(t, shared.Date(2025, time.January, 1), renewalWindowStart(oldEnd, last))
}

func BenchmarkGenerateScheduleTenYearsMonthly(b *testing.B) {
	start := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	lease := testLease(FrequencyMonthly, start, start.AddDate(10, 0, -1), 1500)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := GenerateSchedule(lease, lease.StartDate, lease.EndDate); err != nil {
			b.Fatal(err)
		}
	}
}
