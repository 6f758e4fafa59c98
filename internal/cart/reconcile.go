package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joao-fontenele/storefront/internal/domain"
)

var ErrSyncFailed = errors.New("cart sync failed")

type LineStore interface {
	Items(ctx context.Context, userID string) ([]domain.CartLine, error)
	Increment(ctx context.Context, userID, variantID string, quantity int) error
	Remove(ctx context.Context, userID, variantID string) error
}

type Reconciler struct {
	store  LineStore
	logger *slog.Logger
}

func NewReconciler(store LineStore, logger *slog.Logger) *Reconciler {
	return &Reconciler{store: store, logger: logger}
}

type MergeResult struct {
	Merged int      `json:"merged"`
	Failed []string `json:"failed,omitempty"`
}

// Merge adds every local line to the user's stored cart, summing quantities
// for variants already there. Stock and prices are not checked here. Lines
// that fail are skipped and the result wraps ErrSyncFailed; lines merged
// before a failure stay merged.
func (rc *Reconciler) Merge(ctx context.Context, userID string, local []domain.CartLine) (MergeResult, error) {
	var res MergeResult
	for _, line := range local {
		if err := rc.store.Increment(ctx, userID, line.VariantID, line.Quantity); err != nil {
			rc.logger.Error("failed to merge cart line",
				"error", err, "user_id", userID, "variant_id", line.VariantID, "quantity", line.Quantity)
			res.Failed = append(res.Failed, line.VariantID)
			continue
		}
		res.Merged++
	}

	if len(res.Failed) > 0 {
		return res, fmt.Errorf("%w: %d of %d lines not merged", ErrSyncFailed, len(res.Failed), len(local))
	}

	rc.logger.Info("cart merged", "user_id", userID, "lines", res.Merged)
	return res, nil
}
