package bills

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kgcashflow/cashflow-backend/pkg/db/models"
	"github.com/kgcashflow/cashflow-backend/pkg/enums"
	"github.com/kgcashflow/cashflow-backend/pkg/money"
)

const dateLayout = "2006-01-02"

// BillDTO exposes a bill event with its ledger-derived fields.
type BillDTO struct {
	ID              uuid.UUID        `json:"id"`
	Payee           string           `json:"payee"`
	DueDate         string           `json:"due_date"`
	AmountDue       decimal.Decimal  `json:"amount_due"`
	AllocatedAmount decimal.Decimal  `json:"allocated_amount"`
	RemainingAmount decimal.Decimal  `json:"remaining_amount"`
	Status          enums.BillStatus `json:"status"`
	Description     *string          `json:"description,omitempty"`
	PaymentMethod   *string          `json:"payment_method,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// CreateBillInput holds the caller supplied fields for a new bill event.
type CreateBillInput struct {
	Payee         string
	DueDate       time.Time
	AmountDue     decimal.Decimal
	Description   *string
	PaymentMethod *string
	Notes         *string
}

// ListFilter narrows bill listings.
type ListFilter struct {
	From   *time.Time
	To     *time.Time
	Status *enums.BillStatus
}

// FromModel maps a persisted bill event into a DTO.
func FromModel(m *models.BillEvent) *BillDTO {
	if m == nil {
		return nil
	}
	due := money.Normalize(m.AmountDue)
	remaining := money.Normalize(m.RemainingAmount)
	return &BillDTO{
		ID:              m.ID,
		Payee:           m.Payee,
		DueDate:         m.DueDate.Format(dateLayout),
		AmountDue:       due,
		AllocatedAmount: due.Sub(remaining),
		RemainingAmount: remaining,
		Status:          m.Status,
		Description:     m.Description,
		PaymentMethod:   m.PaymentMethod,
		Notes:           m.Notes,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}
