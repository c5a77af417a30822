package controllers

import (
	"net/http"
	"strings"

	"github.com/kgcashflow/cashflow-backend/api/responses"
	"github.com/kgcashflow/cashflow-backend/api/validators"
	"github.com/kgcashflow/cashflow-backend/internal/bills"
	"github.com/kgcashflow/cashflow-backend/pkg/enums"
	pkgerrors "github.com/kgcashflow/cashflow-backend/pkg/errors"
	"github.com/kgcashflow/cashflow-backend/pkg/logger"
	"github.com/kgcashflow/cashflow-backend/pkg/money"
)

type createBillPayload struct {
	Payee         string  `json:"payee" validate:"required,max=200"`
	DueDate       string  `json:"due_date" validate:"required"`
	AmountDue     string  `json:"amount_due" validate:"required"`
	Description   *string `json:"description"`
	PaymentMethod *string `json:"payment_method"`
	Notes         *string `json:"notes"`
}

// BillCreate records a new unpaid bill.
func BillCreate(svc bills.Service, cache SummaryInvalidator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bill service unavailable"))
			return
		}

		ownerID, err := ownerFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload createBillPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		dueDate, err := parseDateField("due_date", payload.DueDate)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		amount, err := money.Parse("amount_due", payload.AmountDue)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		created, err := svc.Create(ctx, ownerID, bills.CreateBillInput{
			Payee:         validators.SanitizeString(payload.Payee, 200),
			DueDate:       dueDate,
			AmountDue:     amount,
			Description:   optionalText(payload.Description),
			PaymentMethod: optionalText(payload.PaymentMethod),
			Notes:         optionalText(payload.Notes),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		invalidateSummary(ctx, cache, ownerID)
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func BillList(svc bills.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bill service unavailable"))
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

		filter := bills.ListFilter{From: from, To: to}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status := enums.BillStatus(raw)
			filter.Status = &status
		}

		items, err := svc.List(ctx, ownerID, filter)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func BillGet(svc bills.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bill service unavailable"))
			return
		}

		ownerID, err := ownerFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		billID, err := validators.ParseUUIDParam(r, "billId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		bill, err := svc.Get(ctx, ownerID, billID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, bill)
	}
}

// BillDelete removes a bill that has no allocations.
func BillDelete(svc bills.Service, cache SummaryInvalidator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bill service unavailable"))
			return
		}

		ownerID, err := ownerFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		billID, err := validators.ParseUUIDParam(r, "billId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Delete(ctx, ownerID, billID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		invalidateSummary(ctx, cache, ownerID)
		responses.WriteNoContent(w)
	}
}
