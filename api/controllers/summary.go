package controllers

import (
	"net/http"

	"github.com/kgcashflow/cashflow-backend/api/responses"
	"github.com/kgcashflow/cashflow-backend/internal/summary"
	pkgerrors "github.com/kgcashflow/cashflow-backend/pkg/errors"
	"github.com/kgcashflow/cashflow-backend/pkg/logger"
)

// Summary returns the owner's income and bill rollup.
func Summary(svc summary.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "summary service unavailable"))
			return
		}

		ownerID, err := ownerFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Summarize(ctx, ownerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
