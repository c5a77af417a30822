// Package money validates and normalizes fixed-point currency amounts.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/kgcashflow/cashflow-backend/pkg/errors"
)

// Scale is the number of fractional digits every stored amount carries.
const Scale = 2

// Zero is the canonical zero amount.
var Zero = decimal.Zero

// ValidatePositive rejects amounts that are not strictly positive or carry more
// than Scale fractional digits.
func ValidatePositive(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeInvalidAmount, fmt.Sprintf("%s must be greater than zero", field)).
			WithDetails(map[string]any{"field": field, "value": amount.String()})
	}
	if !HasValidScale(amount) {
		return pkgerrors.New(pkgerrors.CodeInvalidAmount, fmt.Sprintf("%s must have at most %d decimal places", field, Scale)).
			WithDetails(map[string]any{"field": field, "value": amount.String()})
	}
	return nil
}

// HasValidScale reports whether the amount is representable in cents.
func HasValidScale(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(Scale))
}

// Normalize rounds to Scale so values read back from loosely typed drivers compare exactly.
func Normalize(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(Scale)
}

// Parse reads a decimal string such as "125.50".
func Parse(field, raw string) (decimal.Decimal, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeInvalidAmount, fmt.Sprintf("%s is required", field))
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInvalidAmount, err, fmt.Sprintf("%s must be a decimal number", field))
	}
	return amount, nil
}

// String formats amount with exactly Scale fractional digits.
func String(amount decimal.Decimal) string {
	return amount.StringFixed(Scale)
}
