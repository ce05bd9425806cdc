package fulfillment

import (
	"context"
	"errors"

	"storefront/backend/internal/apperr"
	"storefront/backend/internal/domain"
	"storefront/backend/internal/store"
	"storefront/backend/internal/xid"
)

const maxReceiptAttempts = 3

// persist writes the order header, then product lines, then combo lines. The
// header deletion is recorded as soon as the header exists.
func (e *Engine) persist(ctx context.Context, sale *saga, order *domain.Order) error {
	if err := e.createOrder(ctx, order); err != nil {
		return err
	}
	orderID := order.ID
	sale.record("delete_order", func(ctx context.Context) error {
		return e.orders.DeleteOrder(ctx, orderID)
	})

	if len(order.ProductLines) > 0 {
		err := e.insertLines(ctx, store.ProductLineTable, func(columns store.ColumnSet) error {
			return e.orders.InsertProductLines(ctx, orderID, order.ProductLines, columns)
		})
		if err != nil {
			return apperr.Wrap(apperr.CodePersistence, err, "insert product lines")
		}
	}
	if len(order.ComboLines) > 0 {
		err := e.insertLines(ctx, store.ComboLineTable, func(columns store.ColumnSet) error {
			return e.orders.InsertComboLines(ctx, orderID, order.ComboLines, columns)
		})
		if err != nil {
			return apperr.Wrap(apperr.CodePersistence, err, "insert combo lines")
		}
	}
	return nil
}

// createOrder writes the header. A generated receipt number that collides is
// regenerated; a caller-supplied one is reported back as a field error.
func (e *Engine) createOrder(ctx context.Context, order *domain.Order) error {
	generated := order.ReceiptNumber == ""
	for attempt := 1; ; attempt++ {
		if generated {
			order.ReceiptNumber = xid.Receipt(e.now())
		}
		err := e.orders.CreateOrder(ctx, *order)
		if err == nil {
			return nil
		}
		if errors.Is(err, store.ErrDuplicateReceipt) {
			if !generated {
				return apperr.Validation(nil).WithField("receiptNumber", "is already used by another order")
			}
			if attempt < maxReceiptAttempts {
				continue
			}
		}
		return apperr.Wrap(apperr.CodePersistence, err, "create order")
	}
}

// insertLines walks the column ladder. Only a generated column rejection moves
// to the next rung; the rung that succeeds is where the next sale starts.
func (e *Engine) insertLines(ctx context.Context, table store.LineTable, insert func(store.ColumnSet) error) error {
	slot := e.columns[table]
	columns := store.ColumnSet(slot.Load())
	for {
		err := insert(columns)
		if err == nil {
			slot.Store(int32(columns))
			return nil
		}
		if !store.IsGeneratedColumnError(err) {
			return err
		}
		next, ok := columns.Next()
		if !ok {
			return err
		}
		e.log.Zerolog(ctx).Warn().
			Err(err).
			Str("table", string(table)).
			Str("columns", next.String()).
			Msg("line insert rejected a generated column, retrying with fewer columns")
		e.metrics.IncColumnFallback(string(table), next.String())
		columns = next
	}
}
