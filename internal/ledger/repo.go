package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kgcashflow/cashflow-backend/pkg/db/models"
	"github.com/kgcashflow/cashflow-backend/pkg/money"
)

// Repository manages allocation persistence and the bill fields derived from it.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockIncome(ctx context.Context, ownerID, id uuid.UUID) (*models.IncomeEvent, error)
	LockBill(ctx context.Context, ownerID, id uuid.UUID) (*models.BillEvent, error)
	SumForIncome(ctx context.Context, incomeID uuid.UUID) (decimal.Decimal, error)
	SumForBill(ctx context.Context, billID uuid.UUID) (decimal.Decimal, error)
	Create(ctx context.Context, allocation *models.Allocation) error
	UpdateBillDerivedFields(ctx context.Context, billID uuid.UUID, derived BillDerivation) error
	List(ctx context.Context, ownerID uuid.UUID, filter ListFilter) ([]models.Allocation, error)
	ListBillRefs(ctx context.Context, ownerID *uuid.UUID) ([]BillRef, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) LockIncome(ctx context.Context, ownerID, id uuid.UUID) (*models.IncomeEvent, error) {
	var income models.IncomeEvent
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&income).Error; err != nil {
		return nil, err
	}
	return &income, nil
}

func (r *repository) LockBill(ctx context.Context, ownerID, id uuid.UUID) (*models.BillEvent, error) {
	var bill models.BillEvent
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&bill).Error; err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *repository) SumForIncome(ctx context.Context, incomeID uuid.UUID) (decimal.Decimal, error) {
	return r.sum(ctx, "income_event_id", incomeID)
}

func (r *repository) SumForBill(ctx context.Context, billID uuid.UUID) (decimal.Decimal, error) {
	return r.sum(ctx, "bill_event_id", billID)
}

func (r *repository) sum(ctx context.Context, column string, id uuid.UUID) (decimal.Decimal, error) {
	var total decimal.Decimal
	row := r.db.WithContext(ctx).
		Model(&models.Allocation{}).
		Select("COALESCE(SUM(allocated_amount), 0)").
		Where(column+" = ?", id).
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return money.Normalize(total), nil
}

func (r *repository) Create(ctx context.Context, allocation *models.Allocation) error {
	return r.db.WithContext(ctx).Create(allocation).Error
}

func (r *repository) UpdateBillDerivedFields(ctx context.Context, billID uuid.UUID, derived BillDerivation) error {
	res := r.db.WithContext(ctx).
		Model(&models.BillEvent{}).
		Where("id = ?", billID).
		Updates(map[string]any{
			"remaining_amount": derived.Remaining,
			"status":           derived.Status,
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) List(ctx context.Context, ownerID uuid.UUID, filter ListFilter) ([]models.Allocation, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", ownerID)
	if filter.BillEventID != nil {
		query = query.Where("bill_event_id = ?", *filter.BillEventID)
	}
	if filter.IncomeEventID != nil {
		query = query.Where("income_event_id = ?", *filter.IncomeEventID)
	}

	var allocations []models.Allocation
	if err := query.Order("created_at ASC").Order("id ASC").Find(&allocations).Error; err != nil {
		return nil, err
	}
	return allocations, nil
}

// ListBillRefs returns bill ids for one owner, or every owner when ownerID is nil.
func (r *repository) ListBillRefs(ctx context.Context, ownerID *uuid.UUID) ([]BillRef, error) {
	query := r.db.WithContext(ctx).Model(&models.BillEvent{}).Select("id", "user_id")
	if ownerID != nil {
		query = query.Where("user_id = ?", *ownerID)
	}
	var refs []BillRef
	if err := query.Order("id ASC").Scan(&refs).Error; err != nil {
		return nil, err
	}
	return refs, nil
}
