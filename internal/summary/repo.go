package summary

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kgcashflow/cashflow-backend/pkg/db"
	"github.com/kgcashflow/cashflow-backend/pkg/db/models"
	"github.com/kgcashflow/cashflow-backend/pkg/enums"
	"github.com/kgcashflow/cashflow-backend/pkg/money"
)

// Totals are the raw per-owner aggregates behind a Summary.
type Totals struct {
	TotalIncome     decimal.Decimal
	AllocatedIncome decimal.Decimal
	TotalBills      decimal.Decimal
	AllocatedBills  decimal.Decimal
	BillCount       int64
	CountsByStatus  map[enums.BillStatus]int64
}

// Repository runs the read-only rollup queries.
type Repository interface {
	Totals(ctx context.Context, ownerID uuid.UUID) (*Totals, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a summary repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

type statusCount struct {
	Status enums.BillStatus `gorm:"column:status"`
	Count  int64            `gorm:"column:count"`
}

// Totals reads every aggregate inside one read-only transaction so the
// figures describe a single snapshot.
func (r *repository) Totals(ctx context.Context, ownerID uuid.UUID) (*Totals, error) {
	totals := &Totals{CountsByStatus: map[enums.BillStatus]int64{}}
	var opts []*sql.TxOptions
	if r.db.Dialector.Name() == db.DriverPostgres {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.IncomeEvent{}).
			Select("COALESCE(SUM(expected_amount), 0)").
			Where("user_id = ?", ownerID).
			Row().Scan(&totals.TotalIncome); err != nil {
			return err
		}

		if err := tx.Model(&models.Allocation{}).
			Select("COALESCE(SUM(allocated_amount), 0)").
			Where("user_id = ?", ownerID).
			Row().Scan(&totals.AllocatedIncome); err != nil {
			return err
		}

		if err := tx.Model(&models.BillEvent{}).
			Select("COALESCE(SUM(amount_due), 0), COALESCE(SUM(amount_due - remaining_amount), 0), COUNT(*)").
			Where("user_id = ?", ownerID).
			Row().Scan(&totals.TotalBills, &totals.AllocatedBills, &totals.BillCount); err != nil {
			return err
		}

		var counts []statusCount
		if err := tx.Model(&models.BillEvent{}).
			Select("status, COUNT(*) AS count").
			Where("user_id = ?", ownerID).
			Group("status").
			Scan(&counts).Error; err != nil {
			return err
		}
		for _, c := range counts {
			totals.CountsByStatus[c.Status] = c.Count
		}
		return nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	totals.TotalIncome = money.Normalize(totals.TotalIncome)
	totals.AllocatedIncome = money.Normalize(totals.AllocatedIncome)
	totals.TotalBills = money.Normalize(totals.TotalBills)
	totals.AllocatedBills = money.Normalize(totals.AllocatedBills)
	return totals, nil
}
