package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-pm/internal/shared"
)

var hundred = decimal.NewFromInt(100)

// ComputeFee returns the late fee rule charges on an invoice total, clamped
// to the rule's cap. Unknown fee types are rejected.
func ComputeFee(rule LateFeeRule, total decimal.Decimal) (decimal.Decimal, error) {
	var fee decimal.Decimal
	switch rule.FeeType {
	case FeeFlat:
		fee = rule.FeeValue
	case FeePercentage:
		fee = total.Mul(rule.FeeValue).Div(hundred).Round(2)
	default:
		return decimal.Zero, fmt.Errorf("billing: rule %d has unknown fee type %q: %w", rule.ID, rule.FeeType, shared.ErrValidation)
	}
	if rule.MaxFee != nil && fee.GreaterThan(*rule.MaxFee) {
		fee = *rule.MaxFee
	}
	return fee, nil
}

func lateFeeDescription(rule LateFeeRule) string {
	return fmt.Sprintf("Late Fee (%s)", rule.Name)
}

func rentDescription(e DueEntry) string {
	return fmt.Sprintf("Rent – %s (%s to %s)",
		e.PeriodStart.Format("January 2006"),
		e.PeriodStart.Format(shared.DateLayout),
		e.PeriodEnd.Format(shared.DateLayout),
	)
}

func invoiceNumber(leaseNumber string, asOf time.Time) string {
	return fmt.Sprintf("INV-%s-%s", leaseNumber, asOf.Format("20060102"))
}
