package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/kgcashflow/cashflow-backend/pkg/errors"
)

func TestValidatePositive(t *testing.T) {
	cases := []struct {
		raw string
		ok  bool
	}{
		{"0.01", true},
		{"100", true},
		{"99.90", true},
		{"0", false},
		{"-5", false},
		{"1.005", false},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			err := ValidatePositive("amount", decimal.RequireFromString(tc.raw))
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidAmount))
		})
	}
}

func TestParse(t *testing.T) {
	amount, err := Parse("amount", " 12.5 ")
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.RequireFromString("12.50")))

	_, err = Parse("amount", "twelve")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidAmount))

	_, err = Parse("amount", "")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidAmount))
}

func TestNormalizeAndString(t *testing.T) {
	noisy := decimal.NewFromFloat(0.1).Add(decimal.NewFromFloat(0.2))
	assert.Equal(t, "0.30", String(Normalize(noisy)))
	assert.Equal(t, "7.00", String(decimal.NewFromInt(7)))
}
