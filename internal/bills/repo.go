package bills

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kgcashflow/cashflow-backend/pkg/db/models"
)

// Repository manages persistence for bill events. Derived fields are owned by
// the ledger and never written here after creation.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, bill *models.BillEvent) error
	FindForOwner(ctx context.Context, ownerID, id uuid.UUID) (*models.BillEvent, error)
	LockForOwner(ctx context.Context, ownerID, id uuid.UUID) (*models.BillEvent, error)
	ListForOwner(ctx context.Context, ownerID uuid.UUID, filter ListFilter) ([]models.BillEvent, error)
	CountAllocations(ctx context.Context, id uuid.UUID) (int64, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a bill repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, bill *models.BillEvent) error {
	return r.db.WithContext(ctx).Create(bill).Error
}

// FindForOwner returns gorm.ErrRecordNotFound when the row is missing or owned by someone else.
func (r *repository) FindForOwner(ctx context.Context, ownerID, id uuid.UUID) (*models.BillEvent, error) {
	var bill models.BillEvent
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&bill).Error; err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *repository) LockForOwner(ctx context.Context, ownerID, id uuid.UUID) (*models.BillEvent, error) {
	var bill models.BillEvent
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&bill).Error; err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *repository) ListForOwner(ctx context.Context, ownerID uuid.UUID, filter ListFilter) ([]models.BillEvent, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", ownerID)
	if filter.From != nil {
		query = query.Where("due_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("due_date <= ?", *filter.To)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var bills []models.BillEvent
	if err := query.Order("due_date ASC").Order("created_at ASC").Find(&bills).Error; err != nil {
		return nil, err
	}
	return bills, nil
}

func (r *repository) CountAllocations(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Allocation{}).
		Where("bill_event_id = ?", id).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) Delete(ctx context.Context, ownerID, id uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		Delete(&models.BillEvent{})
	return res.RowsAffected, res.Error
}
