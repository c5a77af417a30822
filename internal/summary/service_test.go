package summary

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kgcashflow/cashflow-backend/pkg/db/dbtest"
	"github.com/kgcashflow/cashflow-backend/pkg/db/models"
	"github.com/kgcashflow/cashflow-backend/pkg/enums"
	pkgerrors "github.com/kgcashflow/cashflow-backend/pkg/errors"
	"github.com/kgcashflow/cashflow-backend/pkg/logger"
)

type memoryCache struct {
	data map[string]string
	gets int
}

func newMemoryCache() *memoryCache { return &memoryCache{data: map[string]string{}} }

func (m *memoryCache) Get(_ context.Context, key string) (string, error) {
	m.gets++
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.data[key] = value.(string)
	return nil
}

func (m *memoryCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryCache) SummaryKey(ownerID string) string { return "summary:" + ownerID }

type countingRepo struct {
	Repository
	calls int
}

func (c *countingRepo) Totals(ctx context.Context, ownerID uuid.UUID) (*Totals, error) {
	c.calls++
	return c.Repository.Totals(ctx, ownerID)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "summary-test", Output: io.Discard})
}

func seed(t *testing.T, conn *gorm.DB, owner uuid.UUID) {
	t.Helper()
	day := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	income := &models.IncomeEvent{UserID: owner, Source: "Salary", ExpectedDate: day, ExpectedAmount: decimal.RequireFromString("1000.10")}
	side := &models.IncomeEvent{UserID: owner, Source: "Freelance", ExpectedDate: day, ExpectedAmount: decimal.RequireFromString("200.20")}
	require.NoError(t, conn.Create(income).Error)
	require.NoError(t, conn.Create(side).Error)

	bills := []*models.BillEvent{
		{UserID: owner, Payee: "Rent", DueDate: day, AmountDue: decimal.RequireFromString("800"), Status: enums.BillStatusPaid, RemainingAmount: decimal.Zero},
		{UserID: owner, Payee: "Power", DueDate: day, AmountDue: decimal.RequireFromString("100.30"), Status: enums.BillStatusScheduled, RemainingAmount: decimal.RequireFromString("50.30")},
		{UserID: owner, Payee: "Gym", DueDate: day, AmountDue: decimal.RequireFromString("40"), Status: enums.BillStatusUnpaid, RemainingAmount: decimal.RequireFromString("40")},
	}
	for _, b := range bills {
		require.NoError(t, conn.Create(b).Error)
	}
	for _, a := range []*models.Allocation{
		{UserID: owner, IncomeEventID: income.ID, BillEventID: bills[0].ID, AllocatedAmount: decimal.RequireFromString("800")},
		{UserID: owner, IncomeEventID: side.ID, BillEventID: bills[1].ID, AllocatedAmount: decimal.RequireFromString("50")},
	} {
		require.NoError(t, conn.Create(a).Error)
	}

	// another owner's data must not leak into the rollup
	other := &models.IncomeEvent{UserID: uuid.New(), Source: "Other", ExpectedDate: day, ExpectedAmount: decimal.NewFromInt(999)}
	require.NoError(t, conn.Create(other).Error)
}

func TestSummarize(t *testing.T) {
	conn := dbtest.Open(t)
	owner := uuid.New()
	seed(t, conn, owner)

	svc, err := NewService(NewRepository(conn), nil, 0, testLogger())
	require.NoError(t, err)

	got, err := svc.Summarize(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, "1200.30", got.TotalIncome.StringFixed(2))
	assert.Equal(t, "850.00", got.AllocatedIncome.StringFixed(2))
	assert.Equal(t, "940.30", got.TotalBills.StringFixed(2))
	assert.Equal(t, "850.00", got.AllocatedBills.StringFixed(2))
	assert.Equal(t, int64(3), got.TotalBillCount)
	assert.Equal(t, map[enums.BillStatus]int64{
		enums.BillStatusUnpaid:    1,
		enums.BillStatusScheduled: 1,
		enums.BillStatusPaid:      1,
	}, got.CountsByStatus)

	again, err := svc.Summarize(context.Background(), owner)
	require.NoError(t, err)
	assert.True(t, got.TotalIncome.Equal(again.TotalIncome))
	assert.True(t, got.AllocatedBills.Equal(again.AllocatedBills))
	assert.Equal(t, got.CountsByStatus, again.CountsByStatus)
}

func TestSummarizeEmptyOwner(t *testing.T) {
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), nil, 0, testLogger())
	require.NoError(t, err)

	got, err := svc.Summarize(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.True(t, got.TotalIncome.IsZero())
	assert.Zero(t, got.TotalBillCount)
	assert.Len(t, got.CountsByStatus, 3, "every status is reported even when zero")

	_, err = svc.Summarize(context.Background(), uuid.Nil)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))
}

func TestSummarizeUsesCache(t *testing.T) {
	conn := dbtest.Open(t)
	owner := uuid.New()
	seed(t, conn, owner)

	repo := &countingRepo{Repository: NewRepository(conn)}
	cache := newMemoryCache()
	svc, err := NewService(repo, cache, time.Minute, testLogger())
	require.NoError(t, err)

	first, err := svc.Summarize(context.Background(), owner)
	require.NoError(t, err)
	second, err := svc.Summarize(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)
	assert.True(t, first.TotalBills.Equal(second.TotalBills))
	assert.Equal(t, first.CountsByStatus, second.CountsByStatus)

	svc.Invalidate(context.Background(), owner)
	_, err = svc.Summarize(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}

type brokenRepo struct{}

func (brokenRepo) Totals(context.Context, uuid.UUID) (*Totals, error) {
	return nil, errors.New("db down")
}

func TestSummarizeRepoError(t *testing.T) {
	svc, err := NewService(brokenRepo{}, nil, 0, testLogger())
	require.NoError(t, err)

	_, err = svc.Summarize(context.Background(), uuid.New())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInternal))
}
