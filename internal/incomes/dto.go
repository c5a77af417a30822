package incomes

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kgcashflow/cashflow-backend/pkg/db/models"
	"github.com/kgcashflow/cashflow-backend/pkg/money"
)

const dateLayout = "2006-01-02"

// IncomeDTO exposes an income event with its derived allocation totals.
type IncomeDTO struct {
	ID              uuid.UUID       `json:"id"`
	Source          string          `json:"source"`
	ExpectedDate    string          `json:"expected_date"`
	ExpectedAmount  decimal.Decimal `json:"expected_amount"`
	AllocatedAmount decimal.Decimal `json:"allocated_amount"`
	AvailableAmount decimal.Decimal `json:"available_amount"`
	Notes           *string         `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// CreateIncomeInput holds the caller supplied fields for a new income event.
type CreateIncomeInput struct {
	Source         string
	ExpectedDate   time.Time
	ExpectedAmount decimal.Decimal
	Notes          *string
}

// ListFilter narrows income listings.
type ListFilter struct {
	From          *time.Time
	To            *time.Time
	AvailableOnly bool
}

// IncomeRow is an income event joined with the sum of its allocations.
type IncomeRow struct {
	models.IncomeEvent
	AllocatedAmount decimal.Decimal `gorm:"column:allocated_amount"`
}

// FromModel maps a persisted income event and its allocated total into a DTO.
func FromModel(m *models.IncomeEvent, allocated decimal.Decimal) *IncomeDTO {
	if m == nil {
		return nil
	}
	expected := money.Normalize(m.ExpectedAmount)
	allocated = money.Normalize(allocated)
	available := expected.Sub(allocated)
	if available.IsNegative() {
		available = decimal.Zero
	}
	return &IncomeDTO{
		ID:              m.ID,
		Source:          m.Source,
		ExpectedDate:    m.ExpectedDate.Format(dateLayout),
		ExpectedAmount:  expected,
		AllocatedAmount: allocated,
		AvailableAmount: available,
		Notes:           m.Notes,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}
