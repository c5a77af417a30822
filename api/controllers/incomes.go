package controllers

import (
	"net/http"

	"github.com/kgcashflow/cashflow-backend/api/responses"
	"github.com/kgcashflow/cashflow-backend/api/validators"
	"github.com/kgcashflow/cashflow-backend/internal/incomes"
	pkgerrors "github.com/kgcashflow/cashflow-backend/pkg/errors"
	"github.com/kgcashflow/cashflow-backend/pkg/logger"
	"github.com/kgcashflow/cashflow-backend/pkg/money"
)

type createIncomePayload struct {
	Source         string  `json:"source" validate:"required,max=200"`
	ExpectedDate   string  `json:"expected_date" validate:"required"`
	ExpectedAmount string  `json:"expected_amount" validate:"required"`
	Notes          *string `json:"notes"`
}

func IncomeCreate(svc incomes.Service, cache SummaryInvalidator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "income service unavailable"))
			return
		}

		ownerID, err := ownerFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload createIncomePayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		expectedDate, err := parseDateField("expected_date", payload.ExpectedDate)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		amount, err := money.Parse("expected_amount", payload.ExpectedAmount)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		created, err := svc.Create(ctx, ownerID, incomes.CreateIncomeInput{
			Source:         validators.SanitizeString(payload.Source, 200),
			ExpectedDate:   expectedDate,
			ExpectedAmount: amount,
			Notes:          optionalText(payload.Notes),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		invalidateSummary(ctx, cache, ownerID)
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// IncomeList supports from/to date bounds and available_only.
func IncomeList(svc incomes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "income service unavailable"))
			return
		}

		ownerID, err := ownerFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		from, err := validators.ParseQueryDate(r, "from")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		to, err := validators.ParseQueryDate(r, "to")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		availableOnly, err := validators.ParseQueryBool(r, "available_only", false)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		items, err := svc.List(ctx, ownerID, incomes.ListFilter{From: from, To: to, AvailableOnly: availableOnly})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func IncomeGet(svc incomes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "income service unavailable"))
			return
		}

		ownerID, err := ownerFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		incomeID, err := validators.ParseUUIDParam(r, "incomeId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		income, err := svc.Get(ctx, ownerID, incomeID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, income)
	}
}

// IncomeDelete removes an income that has no allocations.
func IncomeDelete(svc incomes.Service, cache SummaryInvalidator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "income service unavailable"))
			return
		}

		ownerID, err := ownerFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		incomeID, err := validators.ParseUUIDParam(r, "incomeId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Delete(ctx, ownerID, incomeID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		invalidateSummary(ctx, cache, ownerID)
		responses.WriteNoContent(w)
	}
}
