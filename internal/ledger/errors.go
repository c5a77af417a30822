package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kgcashflow/cashflow-backend/pkg/db"
	pkgerrors "github.com/kgcashflow/cashflow-backend/pkg/errors"
	"github.com/kgcashflow/cashflow-backend/pkg/money"
)

const sqlStateQueryCanceled = "57014"

// CapacityDetails lets callers correct an amount without re-reading balances.
type CapacityDetails struct {
	Remaining string `json:"remaining"`
	Requested string `json:"requested"`
}

// ConflictDetails reports how many transaction attempts were spent.
type ConflictDetails struct {
	Attempts int `json:"attempts"`
}

func incomeExhausted(remaining, requested decimal.Decimal) error {
	return pkgerrors.New(pkgerrors.CodeIncomeExhausted, "allocation exceeds available income").
		WithDetails(CapacityDetails{Remaining: money.String(remaining), Requested: money.String(requested)})
}

func billExceeded(remaining, requested decimal.Decimal) error {
	return pkgerrors.New(pkgerrors.CodeBillExceeded, "allocation exceeds remaining bill balance").
		WithDetails(CapacityDetails{Remaining: money.String(remaining), Requested: money.String(requested)})
}

func conflict(err error, attempts int) error {
	return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "allocation could not be applied, please try again").
		WithDetails(ConflictDetails{Attempts: attempts})
}

// notFound maps a missing or foreign row onto NotFound and passes other errors through.
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, what+" not found")
	}
	return err
}

// isTransient reports whether err is contention that a fresh transaction may clear.
// Nothing is transient once the caller's context is done.
func isTransient(parent context.Context, err error) bool {
	if err == nil || parent.Err() != nil {
		return false
	}
	if pkgerrors.As(err) != nil {
		return false
	}
	if db.IsTransient(err) {
		return true
	}
	if db.SQLState(err) == sqlStateQueryCanceled {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
