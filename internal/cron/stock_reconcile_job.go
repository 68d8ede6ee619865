package cron

import (
	"context"
	"errors"

	"github.com/angelmondragon/hwinventory-backend/pkg/logger"
)

type statusReconciler interface {
	ReconcileStatuses(ctx context.Context) ([]string, error)
}

// NewStockReconcileJob rewrites stored stock labels that disagree with the
// part's quantity and alert threshold, e.g. after manual database edits.
func NewStockReconcileJob(logg *logger.Logger, parts statusReconciler) (Job, error) {
	if logg == nil || parts == nil {
		return nil, errors.New("stock reconcile needs a logger and the part service")
	}
	return JobFunc("stock-reconcile", func(ctx context.Context) error {
		fixed, err := parts.ReconcileStatuses(ctx)
		if err != nil {
			return err
		}
		if len(fixed) > 0 {
			logg.Warn(logg.WithFields(ctx, map[string]any{"repaired": len(fixed), "category_ids": fixed}), "stock labels repaired")
		}
		return nil
	}), nil
}
