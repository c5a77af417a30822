package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/kgcashflow/cashflow-backend/pkg/enums"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestDeriveBillStatus(t *testing.T) {
	cases := []struct {
		name      string
		due       string
		allocated string
		remaining string
		status    enums.BillStatus
	}{
		{name: "nothing allocated", due: "100", allocated: "0", remaining: "100", status: enums.BillStatusUnpaid},
		{name: "partially allocated", due: "100", allocated: "40", remaining: "60", status: enums.BillStatusScheduled},
		{name: "one cent short", due: "100", allocated: "99.99", remaining: "0.01", status: enums.BillStatusScheduled},
		{name: "exactly covered", due: "100", allocated: "100.00", remaining: "0", status: enums.BillStatusPaid},
		{name: "over allocated clamps", due: "100", allocated: "120", remaining: "0", status: enums.BillStatusPaid},
		{name: "negative sum clamps to due", due: "100", allocated: "-5", remaining: "100", status: enums.BillStatusUnpaid},
		{name: "fractional cents sum", due: "0.30", allocated: "0.30", remaining: "0", status: enums.BillStatusPaid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveBillStatus(d(tc.due), d(tc.allocated))
			assert.True(t, got.Remaining.Equal(d(tc.remaining)), "remaining: want %s got %s", tc.remaining, got.Remaining)
			assert.Equal(t, tc.status, got.Status)
		})
	}
}

func TestDeriveBillStatusIsDeterministic(t *testing.T) {
	first := DeriveBillStatus(d("250.75"), d("100.25"))
	for i := 0; i < 10; i++ {
		again := DeriveBillStatus(d("250.75"), d("100.25"))
		assert.True(t, first.Remaining.Equal(again.Remaining))
		assert.Equal(t, first.Status, again.Status)
	}
}

func TestDeriveBillStatusBounds(t *testing.T) {
	due := d("80")
	for _, allocated := range []string{"0", "0.01", "40", "79.99", "80", "80.01", "1000"} {
		got := DeriveBillStatus(due, d(allocated))
		assert.False(t, got.Remaining.IsNegative(), allocated)
		assert.True(t, got.Remaining.LessThanOrEqual(due), allocated)
		assert.Equal(t, got.Remaining.IsZero(), got.Status == enums.BillStatusPaid, allocated)
	}
}
