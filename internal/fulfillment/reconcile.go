package fulfillment

import (
	"context"
	"errors"
	"fmt"

	"storefront/backend/internal/apperr"
	"storefront/backend/internal/domain"
	"storefront/backend/internal/store"
)

// reconcile decrements stock one product at a time in product id order. Each
// applied decrement is recorded so a later failure can revert it.
func (e *Engine) reconcile(ctx context.Context, sale *saga, requirements []domain.InventoryRequirement) error {
	for _, req := range requirements {
		if req.Available == nil {
			continue
		}

		change, err := e.stock.DecrementStock(ctx, req.ProductID, req.Required)
		if err != nil {
			return reconcileError(req, err)
		}
		if change.Quantity == 0 {
			continue
		}
		sale.record("restore_stock", func(ctx context.Context) error {
			return e.stock.RestoreStock(ctx, change)
		})
	}
	return nil
}

func reconcileError(req domain.InventoryRequirement, err error) error {
	var short *store.StockShortError
	switch {
	case errors.As(err, &short):
		return insufficientStock([]domain.Shortfall{{
			ProductID: req.ProductID,
			Name:      req.Name,
			Available: short.Available,
			Required:  req.Required,
		}})
	case errors.Is(err, store.ErrInsufficientStock):
		return insufficientStock([]domain.Shortfall{{
			ProductID: req.ProductID,
			Name:      req.Name,
			Available: *req.Available,
			Required:  req.Required,
		}})
	default:
		return apperr.Wrap(apperr.CodeReconciliation, err, fmt.Sprintf("update stock for %s", req.ProductID))
	}
}
