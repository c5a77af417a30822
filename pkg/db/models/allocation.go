package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Allocation earmarks part of an income event against a bill event. Rows are
// immutable once written.
type Allocation struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID       `gorm:"column:user_id;type:uuid;not null"`
	IncomeEventID   uuid.UUID       `gorm:"column:income_event_id;type:uuid;not null"`
	BillEventID     uuid.UUID       `gorm:"column:bill_event_id;type:uuid;not null"`
	AllocatedAmount decimal.Decimal `gorm:"column:allocated_amount;type:numeric(12,2);not null"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (a *Allocation) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
