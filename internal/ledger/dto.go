package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kgcashflow/cashflow-backend/pkg/db/models"
	"github.com/kgcashflow/cashflow-backend/pkg/enums"
	"github.com/kgcashflow/cashflow-backend/pkg/money"
)

// CreateAllocationInput identifies the owner and the income/bill pair to link.
type CreateAllocationInput struct {
	OwnerID       uuid.UUID
	IncomeEventID uuid.UUID
	BillEventID   uuid.UUID
	Amount        decimal.Decimal
}

// ListFilter narrows allocation listings to one bill and/or one income.
type ListFilter struct {
	BillEventID   *uuid.UUID
	IncomeEventID *uuid.UUID
}

// BillRef identifies a bill and its owner.
type BillRef struct {
	ID     uuid.UUID `gorm:"column:id"`
	UserID uuid.UUID `gorm:"column:user_id"`
}

// AllocationDTO is the API shape of an allocation.
type AllocationDTO struct {
	ID              uuid.UUID       `json:"id"`
	IncomeEventID   uuid.UUID       `json:"income_event_id"`
	BillEventID     uuid.UUID       `json:"bill_event_id"`
	AllocatedAmount decimal.Decimal `json:"allocated_amount"`
	CreatedAt       time.Time       `json:"created_at"`
}

// IncomeCapacity reports how much of an income is still unallocated.
type IncomeCapacity struct {
	IncomeEventID   uuid.UUID       `json:"income_event_id"`
	ExpectedAmount  decimal.Decimal `json:"expected_amount"`
	AllocatedAmount decimal.Decimal `json:"allocated_amount"`
	AvailableAmount decimal.Decimal `json:"available_amount"`
}

// AllocationPreview is an advisory, lock-free view of what an allocation would do.
type AllocationPreview struct {
	IncomeEventID      uuid.UUID        `json:"income_event_id"`
	BillEventID        uuid.UUID        `json:"bill_event_id"`
	Requested          decimal.Decimal  `json:"requested"`
	IncomeAvailable    decimal.Decimal  `json:"income_available"`
	BillRemaining      decimal.Decimal  `json:"bill_remaining"`
	MaxAllocatable     decimal.Decimal  `json:"max_allocatable"`
	ResultingStatus    enums.BillStatus `json:"resulting_status"`
	ResultingRemaining decimal.Decimal  `json:"resulting_remaining"`
	Allowed            bool             `json:"allowed"`
	RejectionCode      string           `json:"rejection_code,omitempty"`
}

// ReconcileResult summarizes a reconciliation pass.
type ReconcileResult struct {
	Checked  int `json:"checked"`
	Repaired int `json:"repaired"`
	Failed   int `json:"failed"`
}

// FromModel maps an allocation row into its API shape.
func FromModel(m *models.Allocation) AllocationDTO {
	return AllocationDTO{
		ID:              m.ID,
		IncomeEventID:   m.IncomeEventID,
		BillEventID:     m.BillEventID,
		AllocatedAmount: money.Normalize(m.AllocatedAmount),
		CreatedAt:       m.CreatedAt,
	}
}
