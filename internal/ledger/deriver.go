package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/kgcashflow/cashflow-backend/pkg/enums"
)

// BillDerivation is the remaining balance and status implied by a bill's allocations.
type BillDerivation struct {
	Remaining decimal.Decimal
	Status    enums.BillStatus
}

// DeriveBillStatus computes a bill's remaining balance and status from the
// amount due and the sum of its allocations. Remaining is clamped to
// [0, amountDue]; a bill is paid only when nothing remains.
func DeriveBillStatus(amountDue, allocated decimal.Decimal) BillDerivation {
	remaining := amountDue.Sub(allocated)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	if remaining.GreaterThan(amountDue) {
		remaining = amountDue
	}

	switch {
	case remaining.IsZero():
		return BillDerivation{Remaining: remaining, Status: enums.BillStatusPaid}
	case allocated.IsPositive():
		return BillDerivation{Remaining: remaining, Status: enums.BillStatusScheduled}
	default:
		return BillDerivation{Remaining: remaining, Status: enums.BillStatusUnpaid}
	}
}
