package controllers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kgcashflow/cashflow-backend/api/middleware"
	"github.com/kgcashflow/cashflow-backend/api/validators"
	pkgerrors "github.com/kgcashflow/cashflow-backend/pkg/errors"
)

const maxTextLen = 500

// SummaryInvalidator drops cached rollups after a write.
type SummaryInvalidator interface {
	Invalidate(ctx context.Context, ownerID uuid.UUID)
}

func ownerFromContext(ctx context.Context) (uuid.UUID, error) {
	ownerID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "owner context missing")
	}
	return ownerID, nil
}

func invalidateSummary(ctx context.Context, cache SummaryInvalidator, ownerID uuid.UUID) {
	if cache != nil {
		cache.Invalidate(context.WithoutCancel(ctx), ownerID)
	}
}

func parseUUIDField(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{field: "must be a valid uuid"})
	}
	return id, nil
}

func parseDateField(field, raw string) (time.Time, error) {
	value, err := validators.ParseDate(raw)
	if err != nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{field: "must match layout " + validators.DateLayout})
	}
	return value, nil
}

func optionalText(raw *string) *string {
	if raw == nil {
		return nil
	}
	clean := validators.SanitizeString(*raw, maxTextLen)
	if clean == "" {
		return nil
	}
	return &clean
}
