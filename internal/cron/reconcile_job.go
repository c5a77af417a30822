package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kgcashflow/cashflow-backend/internal/ledger"
	"github.com/kgcashflow/cashflow-backend/pkg/logger"
)

const reconcileJobName = "bill-reconcile"

type billReconciler interface {
	ReconcileBills(ctx context.Context, ownerID *uuid.UUID) (*ledger.ReconcileResult, error)
}

// ReconcileJobParams configure the bill reconciliation job.
type ReconcileJobParams struct {
	Logger *logger.Logger
	Ledger billReconciler
}

// NewReconcileJob builds the job that re-derives bill status and remaining
// balance from allocations for every owner.
func NewReconcileJob(params ReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	return &reconcileJob{logg: params.Logger, ledger: params.Ledger}, nil
}

type reconcileJob struct {
	logg   *logger.Logger
	ledger billReconciler
}

func (j *reconcileJob) Name() string { return reconcileJobName }

func (j *reconcileJob) Run(ctx context.Context) error {
	result, err := j.ledger.ReconcileBills(ctx, nil)
	if result != nil {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"checked":  result.Checked,
			"repaired": result.Repaired,
			"failed":   result.Failed,
		}), "bill reconcile finished")
	}
	if err != nil {
		return fmt.Errorf("reconcile bills: %w", err)
	}
	return nil
}
