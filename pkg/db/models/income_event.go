package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// IncomeEvent is an expected inflow of money owned by a single user.
// The allocated total is derived from allocations and never stored.
type IncomeEvent struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID         uuid.UUID       `gorm:"column:user_id;type:uuid;not null"`
	Source         string          `gorm:"column:source;not null"`
	ExpectedDate   time.Time       `gorm:"column:expected_date;type:date;not null"`
	ExpectedAmount decimal.Decimal `gorm:"column:expected_amount;type:numeric(12,2);not null"`
	Notes          *string         `gorm:"column:notes"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an id when the caller did not.
func (e *IncomeEvent) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
