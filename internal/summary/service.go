package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/kgcashflow/cashflow-backend/pkg/enums"
	pkgerrors "github.com/kgcashflow/cashflow-backend/pkg/errors"
	"github.com/kgcashflow/cashflow-backend/pkg/logger"
	pkgredis "github.com/kgcashflow/cashflow-backend/pkg/redis"
)

// Summary is the dashboard rollup for one owner.
type Summary struct {
	TotalIncome     decimal.Decimal            `json:"total_income"`
	AllocatedIncome decimal.Decimal            `json:"allocated_income"`
	TotalBills      decimal.Decimal            `json:"total_bills"`
	AllocatedBills  decimal.Decimal            `json:"allocated_bills"`
	TotalBillCount  int64                      `json:"total_bill_count"`
	CountsByStatus  map[enums.BillStatus]int64 `json:"counts_by_status"`
}

// Service produces read-only rollups.
type Service interface {
	Summarize(ctx context.Context, ownerID uuid.UUID) (*Summary, error)
	Invalidate(ctx context.Context, ownerID uuid.UUID)
}

type service struct {
	repo  Repository
	cache pkgredis.SummaryCache
	ttl   time.Duration
	logg  *logger.Logger
}

// NewService wires the summary aggregator. cache may be nil, and a
// non-positive ttl disables caching.
func NewService(repo Repository, cache pkgredis.SummaryCache, ttl time.Duration, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("summary repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, cache: cache, ttl: ttl, logg: logg}, nil
}

func (s *service) Summarize(ctx context.Context, ownerID uuid.UUID) (*Summary, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "owner is required")
	}
	if cached, ok := s.fromCache(ctx, ownerID); ok {
		return cached, nil
	}

	totals, err := s.repo.Totals(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summarize ledger")
	}

	summary := &Summary{
		TotalIncome:     totals.TotalIncome,
		AllocatedIncome: totals.AllocatedIncome,
		TotalBills:      totals.TotalBills,
		AllocatedBills:  totals.AllocatedBills,
		TotalBillCount:  totals.BillCount,
		CountsByStatus:  make(map[enums.BillStatus]int64, len(enums.BillStatuses())),
	}
	for _, status := range enums.BillStatuses() {
		summary.CountsByStatus[status] = totals.CountsByStatus[status]
	}

	s.store(ctx, ownerID, summary)
	return summary, nil
}

// Invalidate drops the cached rollup after a write by ownerID.
func (s *service) Invalidate(ctx context.Context, ownerID uuid.UUID) {
	if !s.cacheEnabled() {
		return
	}
	if err := s.cache.Del(ctx, s.cache.SummaryKey(ownerID.String())); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "cause", err.Error()), "summary cache invalidate failed")
	}
}

func (s *service) cacheEnabled() bool {
	return s.cache != nil && s.ttl > 0
}

func (s *service) fromCache(ctx context.Context, ownerID uuid.UUID) (*Summary, bool) {
	if !s.cacheEnabled() {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, s.cache.SummaryKey(ownerID.String()))
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logg.Warn(s.logg.WithField(ctx, "cause", err.Error()), "summary cache read failed")
		}
		return nil, false
	}
	var cached Summary
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "cause", err.Error()), "summary cache entry unreadable")
		return nil, false
	}
	return &cached, true
}

func (s *service) store(ctx context.Context, ownerID uuid.UUID, summary *Summary) {
	if !s.cacheEnabled() {
		return
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cache.SummaryKey(ownerID.String()), string(payload), s.ttl); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "cause", err.Error()), "summary cache write failed")
	}
}
