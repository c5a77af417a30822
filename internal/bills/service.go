package bills

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
	"github.com/kgcashflow/cashflow-backend/pkg/enums"
	pkgerrors "github.com/kgcashflow/cashflow-backend/pkg/errors"
	"github.com/kgcashflow/cashflow-backend/pkg/money"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes bill event operations scoped to one owner.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, input CreateBillInput) (*BillDTO, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*BillDTO, error)
	List(ctx context.Context, ownerID uuid.UUID, filter ListFilter) ([]BillDTO, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService wires a bill service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("bill repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

// Create stores a new bill as unpaid with its full amount remaining.
func (s *service) Create(ctx context.Context, ownerID uuid.UUID, input CreateBillInput) (*BillDTO, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "owner is required")
	}
	payee := strings.TrimSpace(input.Payee)
	if payee == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payee is required")
	}
	if input.DueDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "due_date is required")
	}
	if err := money.ValidatePositive("amount_due", input.AmountDue); err != nil {
		return nil, err
	}

	bill := &models.BillEvent{
		ID:              uuid.New(),
		UserID:          ownerID,
		Payee:           payee,
		DueDate:         input.DueDate.UTC().Truncate(24 * time.Hour),
		AmountDue:       input.AmountDue,
		Description:     input.Description,
		PaymentMethod:   input.PaymentMethod,
		Notes:           input.Notes,
		Status:          enums.BillStatusUnpaid,
		RemainingAmount: input.AmountDue,
	}
	if err := s.repo.Create(ctx, bill); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create bill event")
	}
	return FromModel(bill), nil
}

func (s *service) Get(ctx context.Context, ownerID, id uuid.UUID) (*BillDTO, error) {
	bill, err := s.repo.FindForOwner(ctx, ownerID, id)
	if err != nil {
		return nil, mapFindError(err)
	}
	return FromModel(bill), nil
}

func (s *service) List(ctx context.Context, ownerID uuid.UUID, filter ListFilter) ([]BillDTO, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", *filter.Status))
	}
	bills, err := s.repo.ListForOwner(ctx, ownerID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list bill events")
	}
	out := make([]BillDTO, 0, len(bills))
	for i := range bills {
		out = append(out, *FromModel(&bills[i]))
	}
	return out, nil
}

// Delete removes a bill event that no allocation references.
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
			return pkgerrors.New(pkgerrors.CodeStateConflict, "bill event has allocations").
				WithDetails(map[string]any{"allocations": count})
		}
		if _, err := repo.Delete(ctx, ownerID, id); err != nil {
			if db.IsForeignKeyViolation(err) {
				return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "bill event has allocations")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete bill event")
		}
		return nil
	})
}

func mapFindError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "bill event not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load bill event")
}
