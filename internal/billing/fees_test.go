package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-pm/internal/shared"
)

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestComputeFee(t *testing.T) {
	total := decimal.RequireFromString("1000.00")
	cases := []struct {
		name string
		rule LateFeeRule
		want string
	}{
		{"flat", LateFeeRule{FeeType: FeeFlat, FeeValue: decimal.NewFromInt(50)}, "50.00"},
		{"percentage", LateFeeRule{FeeType: FeePercentage, FeeValue: decimal.NewFromInt(10)}, "100.00"},
		{"percentage capped", LateFeeRule{FeeType: FeePercentage, FeeValue: decimal.NewFromInt(10), MaxFee: decPtr("75")}, "75.00"},
		{"flat under cap", LateFeeRule{FeeType: FeeFlat, FeeValue: decimal.NewFromInt(20), MaxFee: decPtr("75")}, "20.00"},
		{"percentage rounds", LateFeeRule{FeeType: FeePercentage, FeeValue: decimal.RequireFromString("3.333")}, "33.33"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fee, err := ComputeFee(tc.rule, total)
			require.NoError(t, err)
			require.Equal(t, tc.want, fee.StringFixed(2))
		})
	}
}

func TestComputeFeeUnknownType(t *testing.T) {
	_, err := ComputeFee(LateFeeRule{ID: 3, FeeType: "TIERED", FeeValue: decimal.NewFromInt(1)}, decimal.NewFromInt(100))
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRuleGraceDefaults(t *testing.T) {
	zero, negative := 0, -2
	require.Equal(t, DefaultGraceDays, LateFeeRule{}.Grace())
	require.Equal(t, 0, LateFeeRule{GracePeriodDays: &zero}.Grace())
	require.Equal(t, 0, LateFeeRule{GracePeriodDays: &negative}.Grace())
}

func TestLineDescriptions(t *testing.T) {
	e := DueEntry{PeriodStart: shared.Date(2025, 1, 1), PeriodEnd: shared.Date(2025, 1, 31)}
	require.Equal(t, "Rent – January 2025 (2025-01-01 to 2025-01-31)", rentDescription(e))
	require.Equal(t, "Late Fee (Standard)", lateFeeDescription(LateFeeRule{Name: "Standard"}))
	require.Equal(t, "INV-L-7-20250101", invoiceNumber("L-7", shared.Date(2025, 1, 1)))
}
