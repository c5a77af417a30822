package incomes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kgcashflow/cashflow-backend/pkg/db"
	"github.com/kgcashflow/cashflow-backend/pkg/db/models"
	pkgerrors "github.com/kgcashflow/cashflow-backend/pkg/errors"
	"github.com/kgcashflow/cashflow-backend/pkg/money"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes income event operations scoped to one owner.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, input CreateIncomeInput) (*IncomeDTO, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*IncomeDTO, error)
	List(ctx context.Context, ownerID uuid.UUID, filter ListFilter) ([]IncomeDTO, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService wires an income service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("income repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, input CreateIncomeInput) (*IncomeDTO, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "owner is required")
	}
	source := strings.TrimSpace(input.Source)
	if source == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source is required")
	}
	if input.ExpectedDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expected_date is required")
	}
	if err := money.ValidatePositive("expected_amount", input.ExpectedAmount); err != nil {
		return nil, err
	}

	income := &models.IncomeEvent{
		ID:             uuid.New(),
		UserID:         ownerID,
		Source:         source,
		ExpectedDate:   input.ExpectedDate.UTC().Truncate(24 * time.Hour),
		ExpectedAmount: input.ExpectedAmount,
		Notes:          input.Notes,
	}
	if err := s.repo.Create(ctx, income); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create income event")
	}
	return FromModel(income, money.Zero), nil
}

func (s *service) Get(ctx context.Context, ownerID, id uuid.UUID) (*IncomeDTO, error) {
	row, err := s.repo.FindWithAllocated(ctx, ownerID, id)
	if err != nil {
		return nil, mapFindError(err)
	}
	return FromModel(&row.IncomeEvent, row.AllocatedAmount), nil
}

func (s *service) List(ctx context.Context, ownerID uuid.UUID, filter ListFilter) ([]IncomeDTO, error) {
	rows, err := s.repo.ListForOwner(ctx, ownerID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list income events")
	}
	out := make([]IncomeDTO, 0, len(rows))
	for i := range rows {
		dto := FromModel(&rows[i].IncomeEvent, rows[i].AllocatedAmount)
		if filter.AvailableOnly && !dto.AvailableAmount.IsPositive() {
			continue
		}
		out = append(out, *dto)
	}
	return out, nil
}

// Delete removes an income event that no allocation references.
func (s *service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.LockForOwner(ctx, ownerID, id); err != nil {
			return mapFindError(err)
		}
		count, err := repo.CountAllocations(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count allocations")
		}
		if count > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "income event has allocations").
				WithDetails(map[string]any{"allocations": count})
		}
		if _, err := repo.Delete(ctx, ownerID, id); err != nil {
			if db.IsForeignKeyViolation(err) {
				return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "income event has allocations")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete income event")
		}
		return nil
	})
}

func mapFindError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "income event not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load income event")
}
