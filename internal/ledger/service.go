package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/kgcashflow/cashflow-backend/pkg/config"
	"github.com/kgcashflow/cashflow-backend/pkg/db/models"
	pkgerrors "github.com/kgcashflow/cashflow-backend/pkg/errors"
	"github.com/kgcashflow/cashflow-backend/pkg/logger"
	"github.com/kgcashflow/cashflow-backend/pkg/metrics"
	"github.com/kgcashflow/cashflow-backend/pkg/money"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type incomeFinder interface {
	FindForOwner(ctx context.Context, ownerID, id uuid.UUID) (*models.IncomeEvent, error)
}

type billFinder interface {
	FindForOwner(ctx context.Context, ownerID, id uuid.UUID) (*models.BillEvent, error)
}

// Service is the only writer of allocations and of the bill fields derived from them.
type Service interface {
	CreateAllocation(ctx context.Context, input CreateAllocationInput) (*models.Allocation, error)
	PreviewAllocation(ctx context.Context, input CreateAllocationInput) (*AllocationPreview, error)
	ListAllocations(ctx context.Context, ownerID uuid.UUID, filter ListFilter) ([]AllocationDTO, error)
	GetIncomeCapacity(ctx context.Context, ownerID, incomeID uuid.UUID) (*IncomeCapacity, error)
	ReconcileBills(ctx context.Context, ownerID *uuid.UUID) (*ReconcileResult, error)
}

// Options bounds retries and lock waits.
type Options struct {
	MaxAttempts int
	BackoffBase time.Duration
	LockTimeout time.Duration
}

// OptionsFromConfig adapts the ledger config section.
func OptionsFromConfig(cfg config.LedgerConfig) Options {
	return Options{
		MaxAttempts: cfg.MaxAttempts,
		BackoffBase: cfg.BackoffBase,
		LockTimeout: cfg.LockTimeout,
	}
}

type service struct {
	repo    Repository
	incomes incomeFinder
	bills   billFinder
	tx      txRunner
	logg    *logger.Logger
	metrics *metrics.LedgerMetrics
	opts    Options
}

// NewService wires the allocation service.
func NewService(repo Repository, incomes incomeFinder, bills billFinder, tx txRunner, logg *logger.Logger, recorder *metrics.LedgerMetrics, opts Options) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if incomes == nil {
		return nil, fmt.Errorf("income finder required")
	}
	if bills == nil {
		return nil, fmt.Errorf("bill finder required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = 10 * time.Millisecond
	}
	return &service{
		repo:    repo,
		incomes: incomes,
		bills:   bills,
		tx:      tx,
		logg:    logg,
		metrics: recorder,
		opts:    opts,
	}, nil
}

// CreateAllocation links part of an income to a bill and re-derives the bill in
// the same transaction. The income row is locked before the bill row.
func (s *service) CreateAllocation(ctx context.Context, input CreateAllocationInput) (*models.Allocation, error) {
	start := time.Now()
	ctx = s.logg.WithAllocationRefs(ctx, input.OwnerID.String(), input.IncomeEventID.String(), input.BillEventID.String())

	var created *models.Allocation
	attempts, err := s.withRetry(ctx, "allocation", func(attemptCtx context.Context) error {
		allocation, err := s.createOnce(attemptCtx, input)
		if err != nil {
			return err
		}
		created = allocation
		return nil
	})

	switch {
	case err == nil:
		s.metrics.ObserveAllocation(metrics.OutcomeCreated, "", attempts, time.Since(start))
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"allocation_id": created.ID.String(),
			"amount":        money.String(created.AllocatedAmount),
			"attempts":      attempts,
		}), "allocation.created")
		return created, nil
	case ctx.Err() != nil:
		s.metrics.ObserveAllocation(metrics.OutcomeCanceled, "", attempts, time.Since(start))
		return nil, ctx.Err()
	case isTransient(ctx, err):
		s.metrics.ObserveAllocation(metrics.OutcomeConflict, string(pkgerrors.CodeConflict), attempts, time.Since(start))
		s.logg.Warn(s.logg.WithField(ctx, "attempts", attempts), "allocation.conflict")
		return nil, conflict(err, attempts)
	case pkgerrors.As(err) != nil:
		code := pkgerrors.CodeOf(err)
		s.metrics.ObserveAllocation(metrics.OutcomeRejected, string(code), attempts, time.Since(start))
		s.logg.Warn(s.logg.WithField(ctx, "code", string(code)), "allocation.rejected")
		return nil, err
	default:
		s.metrics.ObserveAllocation(metrics.OutcomeError, string(pkgerrors.CodeInternal), attempts, time.Since(start))
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create allocation")
	}
}

func (s *service) createOnce(ctx context.Context, input CreateAllocationInput) (*models.Allocation, error) {
	var created *models.Allocation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		income, err := repo.LockIncome(ctx, input.OwnerID, input.IncomeEventID)
		if err != nil {
			return notFound(err, "income event")
		}
		bill, err := repo.LockBill(ctx, input.OwnerID, input.BillEventID)
		if err != nil {
			return notFound(err, "bill event")
		}

		if err := money.ValidatePositive("amount", input.Amount); err != nil {
			return err
		}

		incomeAllocated, err := repo.SumForIncome(ctx, income.ID)
		if err != nil {
			return err
		}
		if available := remaining(income.ExpectedAmount, incomeAllocated); input.Amount.GreaterThan(available) {
			return incomeExhausted(available, input.Amount)
		}

		billAllocated, err := repo.SumForBill(ctx, bill.ID)
		if err != nil {
			return err
		}
		if open := remaining(bill.AmountDue, billAllocated); input.Amount.GreaterThan(open) {
			return billExceeded(open, input.Amount)
		}

		allocation := &models.Allocation{
			ID:              uuid.New(),
			UserID:          input.OwnerID,
			IncomeEventID:   income.ID,
			BillEventID:     bill.ID,
			AllocatedAmount: input.Amount,
		}
		if err := repo.Create(ctx, allocation); err != nil {
			return err
		}

		if err := s.rederive(ctx, repo, bill); err != nil {
			return err
		}
		created = allocation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// rederive recomputes a locked bill's derived fields from the current allocation sum.
func (s *service) rederive(ctx context.Context, repo Repository, bill *models.BillEvent) error {
	_, err := s.rederiveIfChanged(ctx, repo, bill, true)
	return err
}

// rederiveIfChanged writes only when the stored values drifted, unless force is set.
// It reports whether the stored values changed.
func (s *service) rederiveIfChanged(ctx context.Context, repo Repository, bill *models.BillEvent, force bool) (bool, error) {
	allocated, err := repo.SumForBill(ctx, bill.ID)
	if err != nil {
		return false, err
	}
	derived := DeriveBillStatus(money.Normalize(bill.AmountDue), allocated)
	unchanged := derived.Status == bill.Status && derived.Remaining.Equal(money.Normalize(bill.RemainingAmount))
	if unchanged && !force {
		return false, nil
	}
	if err := repo.UpdateBillDerivedFields(ctx, bill.ID, derived); err != nil {
		return false, err
	}
	return !unchanged, nil
}

// withRetry runs fn with a fresh bounded context per attempt, retrying
// transient failures with exponential backoff.
func (s *service) withRetry(ctx context.Context, op string, fn func(context.Context) error) (int, error) {
	backoff := retry.NewExponential(s.opts.BackoffBase)
	backoff = retry.WithJitterPercent(20, backoff)
	backoff = retry.WithMaxRetries(uint64(s.opts.MaxAttempts-1), backoff)

	attempts := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		err := s.attempt(ctx, fn)
		if isTransient(ctx, err) {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"op":      op,
				"attempt": attempts,
				"cause":   err.Error(),
			}), "allocation.retry")
			return retry.RetryableError(err)
		}
		return err
	})
	return attempts, err
}

func (s *service) attempt(ctx context.Context, fn func(context.Context) error) error {
	if s.opts.LockTimeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, s.opts.LockTimeout)
	defer cancel()

	err := fn(attemptCtx)
	if err != nil && ctx.Err() == nil && attemptCtx.Err() != nil && pkgerrors.As(err) == nil {
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return err
}

// PreviewAllocation evaluates an allocation without locking or writing. The
// answer is advisory; CreateAllocation re-checks everything.
func (s *service) PreviewAllocation(ctx context.Context, input CreateAllocationInput) (*AllocationPreview, error) {
	income, err := s.incomes.FindForOwner(ctx, input.OwnerID, input.IncomeEventID)
	if err != nil {
		return nil, wrapRead(notFound(err, "income event"), "load income event")
	}
	bill, err := s.bills.FindForOwner(ctx, input.OwnerID, input.BillEventID)
	if err != nil {
		return nil, wrapRead(notFound(err, "bill event"), "load bill event")
	}
	if err := money.ValidatePositive("amount", input.Amount); err != nil {
		return nil, err
	}

	incomeAllocated, err := s.repo.SumForIncome(ctx, income.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum income allocations")
	}
	billAllocated, err := s.repo.SumForBill(ctx, bill.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum bill allocations")
	}

	due := money.Normalize(bill.AmountDue)
	available := remaining(income.ExpectedAmount, incomeAllocated)
	open := remaining(due, billAllocated)

	preview := &AllocationPreview{
		IncomeEventID:   income.ID,
		BillEventID:     bill.ID,
		Requested:       input.Amount,
		IncomeAvailable: available,
		BillRemaining:   open,
		MaxAllocatable:  decimal.Min(available, open),
		Allowed:         true,
	}
	switch {
	case input.Amount.GreaterThan(available):
		preview.Allowed = false
		preview.RejectionCode = string(pkgerrors.CodeIncomeExhausted)
	case input.Amount.GreaterThan(open):
		preview.Allowed = false
		preview.RejectionCode = string(pkgerrors.CodeBillExceeded)
	}

	projected := billAllocated
	if preview.Allowed {
		projected = projected.Add(input.Amount)
	}
	derived := DeriveBillStatus(due, projected)
	preview.ResultingStatus = derived.Status
	preview.ResultingRemaining = derived.Remaining
	return preview, nil
}

func (s *service) ListAllocations(ctx context.Context, ownerID uuid.UUID, filter ListFilter) ([]AllocationDTO, error) {
	if filter.BillEventID == nil && filter.IncomeEventID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bill_event_id or income_event_id is required")
	}
	if filter.BillEventID != nil {
		if _, err := s.bills.FindForOwner(ctx, ownerID, *filter.BillEventID); err != nil {
			return nil, wrapRead(notFound(err, "bill event"), "load bill event")
		}
	}
	if filter.IncomeEventID != nil {
		if _, err := s.incomes.FindForOwner(ctx, ownerID, *filter.IncomeEventID); err != nil {
			return nil, wrapRead(notFound(err, "income event"), "load income event")
		}
	}

	rows, err := s.repo.List(ctx, ownerID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list allocations")
	}
	out := make([]AllocationDTO, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) GetIncomeCapacity(ctx context.Context, ownerID, incomeID uuid.UUID) (*IncomeCapacity, error) {
	income, err := s.incomes.FindForOwner(ctx, ownerID, incomeID)
	if err != nil {
		return nil, wrapRead(notFound(err, "income event"), "load income event")
	}
	allocated, err := s.repo.SumForIncome(ctx, income.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sum income allocations")
	}
	return &IncomeCapacity{
		IncomeEventID:   income.ID,
		ExpectedAmount:  money.Normalize(income.ExpectedAmount),
		AllocatedAmount: allocated,
		AvailableAmount: remaining(income.ExpectedAmount, allocated),
	}, nil
}

// ReconcileBills re-derives every bill of ownerID (or of all owners when nil)
// under the same lock discipline as CreateAllocation. Failures on one bill do
// not stop the pass; they are combined into the returned error.
func (s *service) ReconcileBills(ctx context.Context, ownerID *uuid.UUID) (*ReconcileResult, error) {
	refs, err := s.repo.ListBillRefs(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list bills")
	}

	result := &ReconcileResult{}
	var errs error
	for _, ref := range refs {
		if ctx.Err() != nil {
			return result, multierr.Append(errs, ctx.Err())
		}
		result.Checked++

		var repaired bool
		_, err := s.withRetry(ctx, "reconcile", func(attemptCtx context.Context) error {
			return s.tx.WithTx(attemptCtx, func(tx *gorm.DB) error {
				repo := s.repo.WithTx(tx)
				bill, err := repo.LockBill(attemptCtx, ref.UserID, ref.ID)
				if err != nil {
					return notFound(err, "bill event")
				}
				repaired, err = s.rederiveIfChanged(attemptCtx, repo, bill, false)
				return err
			})
		})
		if err != nil {
			if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
				// deleted since listing
				continue
			}
			result.Failed++
			errs = multierr.Append(errs, fmt.Errorf("bill %s: %w", ref.ID, err))
			continue
		}
		if repaired {
			result.Repaired++
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"bill_event_id": ref.ID.String(),
				"owner_id":      ref.UserID.String(),
			}), "bill.derived_fields_repaired")
		}
	}

	s.metrics.AddRepaired(result.Repaired)
	return result, errs
}

func remaining(total, allocated decimal.Decimal) decimal.Decimal {
	left := money.Normalize(total).Sub(allocated)
	if left.IsNegative() {
		return decimal.Zero
	}
	return left
}

func wrapRead(err error, message string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, message)
}
