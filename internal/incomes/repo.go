package incomes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kgcashflow/cashflow-backend/pkg/db/models"
)

const allocatedSubquery = `COALESCE((SELECT SUM(a.allocated_amount) FROM allocations a WHERE a.income_event_id = income_events.id), 0) AS allocated_amount`

// Repository manages persistence for income events.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, income *models.IncomeEvent) error
	FindForOwner(ctx context.Context, ownerID, id uuid.UUID) (*models.IncomeEvent, error)
	LockForOwner(ctx context.Context, ownerID, id uuid.UUID) (*models.IncomeEvent, error)
	FindWithAllocated(ctx context.Context, ownerID, id uuid.UUID) (*IncomeRow, error)
	ListForOwner(ctx context.Context, ownerID uuid.UUID, filter ListFilter) ([]IncomeRow, error)
	CountAllocations(ctx context.Context, id uuid.UUID) (int64, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an income repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, income *models.IncomeEvent) error {
	return r.db.WithContext(ctx).Create(income).Error
}

// FindForOwner returns gorm.ErrRecordNotFound when the row is missing or owned by someone else.
func (r *repository) FindForOwner(ctx context.Context, ownerID, id uuid.UUID) (*models.IncomeEvent, error) {
	var income models.IncomeEvent
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&income).Error; err != nil {
		return nil, err
	}
	return &income, nil
}

// LockForOwner loads the row with FOR UPDATE; callers must be inside a transaction.
func (r *repository) LockForOwner(ctx context.Context, ownerID, id uuid.UUID) (*models.IncomeEvent, error) {
	var income models.IncomeEvent
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&income).Error; err != nil {
		return nil, err
	}
	return &income, nil
}

func (r *repository) FindWithAllocated(ctx context.Context, ownerID, id uuid.UUID) (*IncomeRow, error) {
	var rows []IncomeRow
	if err := r.db.WithContext(ctx).
		Model(&models.IncomeEvent{}).
		Select("income_events.*, "+allocatedSubquery).
		Where("income_events.id = ? AND income_events.user_id = ?", id, ownerID).
		Limit(1).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

func (r *repository) ListForOwner(ctx context.Context, ownerID uuid.UUID, filter ListFilter) ([]IncomeRow, error) {
	query := r.db.WithContext(ctx).
		Model(&models.IncomeEvent{}).
		Select("income_events.*, "+allocatedSubquery).
		Where("income_events.user_id = ?", ownerID)

	if filter.From != nil {
		query = query.Where("income_events.expected_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("income_events.expected_date <= ?", *filter.To)
	}

	var rows []IncomeRow
	if err := query.
		Order("income_events.expected_date ASC").
		Order("income_events.created_at ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CountAllocations(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Allocation{}).
		Where("income_event_id = ?", id).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) Delete(ctx context.Context, ownerID, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		Delete(&models.IncomeEvent{})
	return res.RowsAffected, res.Error
}
