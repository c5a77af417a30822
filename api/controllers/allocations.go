package controllers

import (
	"net/http"

	"github.com/kgcashflow/cashflow-backend/api/responses"
	"github.com/kgcashflow/cashflow-backend/api/validators"
	"github.com/kgcashflow/cashflow-backend/internal/ledger"
	pkgerrors "github.com/kgcashflow/cashflow-backend/pkg/errors"
	"github.com/kgcashflow/cashflow-backend/pkg/logger"
	"github.com/kgcashflow/cashflow-backend/pkg/money"
)

type allocationPayload struct {
	IncomeEventID string `json:"income_event_id" validate:"required,uuid"`
	BillEventID   string `json:"bill_event_id" validate:"required,uuid"`
	Amount        string `json:"amount" validate:"required"`
}

func decodeAllocation(r *http.Request) (ledger.CreateAllocationInput, error) {
	ownerID, err := ownerFromContext(r.Context())
	if err != nil {
		return ledger.CreateAllocationInput{}, err
	}

	var payload allocationPayload
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		return ledger.CreateAllocationInput{}, err
	}

	incomeID, err := parseUUIDField("income_event_id", payload.IncomeEventID)
	if err != nil {
		return ledger.CreateAllocationInput{}, err
	}
	billID, err := parseUUIDField("bill_event_id", payload.BillEventID)
	if err != nil {
		return ledger.CreateAllocationInput{}, err
	}
	amount, err := money.Parse("amount", payload.Amount)
	if err != nil {
		return ledger.CreateAllocationInput{}, err
	}

	return ledger.CreateAllocationInput{
		OwnerID:       ownerID,
		IncomeEventID: incomeID,
		BillEventID:   billID,
		Amount:        amount,
	}, nil
}

// AllocationCreate links part of an income to a bill.
func AllocationCreate(svc ledger.Service, cache SummaryInvalidator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		input, err := decodeAllocation(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		created, err := svc.CreateAllocation(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		invalidateSummary(ctx, cache, input.OwnerID)
		responses.WriteSuccessStatus(w, http.StatusCreated, ledger.FromModel(created))
	}
}

// AllocationPreview reports what an allocation would do without writing it.
func AllocationPreview(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		input, err := decodeAllocation(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		preview, err := svc.PreviewAllocation(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, preview)
	}
}

// AllocationList returns allocations for a bill and/or an income.
func AllocationList(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		ownerID, err := ownerFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		billID, err := validators.ParseQueryUUID(r, "bill_event_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		incomeID, err := validators.ParseQueryUUID(r, "income_event_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		items, err := svc.ListAllocations(ctx, ownerID, ledger.ListFilter{BillEventID: billID, IncomeEventID: incomeID})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// IncomeCapacity reports how much of an income remains unallocated.
func IncomeCapacity(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
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

		capacity, err := svc.GetIncomeCapacity(ctx, ownerID, incomeID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, capacity)
	}
}
