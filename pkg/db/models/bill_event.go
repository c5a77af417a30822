package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kgcashflow/cashflow-backend/pkg/enums"
)

// BillEvent is an upcoming payment obligation. Status and RemainingAmount are
// derived from allocations and only written by the ledger.
type BillEvent struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID        `gorm:"column:user_id;type:uuid;not null"`
	Payee           string           `gorm:"column:payee;not null"`
	DueDate         time.Time        `gorm:"column:due_date;type:date;not null"`
	AmountDue       decimal.Decimal  `gorm:"column:amount_due;type:numeric(12,2);not null"`
	Description     *string          `gorm:"column:description"`
	PaymentMethod   *string          `gorm:"column:payment_method"`
	Notes           *string          `gorm:"column:notes"`
	Status          enums.BillStatus `gorm:"column:status;type:bill_status_enum;not null"`
	RemainingAmount decimal.Decimal  `gorm:"column:remaining_amount;type:numeric(12,2);not null"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (b *BillEvent) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
