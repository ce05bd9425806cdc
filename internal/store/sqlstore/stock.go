package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/backend/internal/domain"
	"storefront/backend/internal/store"
)

const maxStockAttempts = 3

type stockRow struct {
	Quantity sql.NullInt64        `db:"quantity"`
	Status   domain.ProductStatus `db:"status"`
}

type decrementRow struct {
	Quantity       int64                `db:"quantity"`
	Status         domain.ProductStatus `db:"status"`
	PreviousStatus domain.ProductStatus `db:"previous_status"`
}

// The row lock taken by prev makes the guard below see the latest committed
// quantity, so concurrent sales queue on the row instead of failing.
const postgresDecrement = `
	WITH prev AS (
		SELECT id, status FROM products WHERE id = $2 FOR UPDATE
	)
	UPDATE products AS p
	SET quantity = p.quantity - $1,
		status = CASE WHEN p.quantity - $1 = 0 THEN 'archived' ELSE p.status END,
		updated_at = CURRENT_TIMESTAMP
	FROM prev
	WHERE p.id = prev.id AND p.quantity >= $1
	RETURNING p.quantity, p.status, prev.status AS previous_status
`

const sqliteDecrement = `
	UPDATE products
	SET quantity = quantity - ?,
		status = CASE WHEN quantity - ? = 0 THEN 'archived' ELSE status END,
		updated_at = CURRENT_TIMESTAMP
	WHERE id = ? AND quantity >= ?
	RETURNING quantity, status
`

// DecrementStock subtracts qty in a single write guarded by quantity >= qty.
// When the guard matches nothing the row is read once to tell a missing
// product, untracked stock and a late shortfall apart.
func (s *Store) DecrementStock(ctx context.Context, productID string, qty int64) (domain.StockChange, error) {
	if qty <= 0 {
		return domain.StockChange{}, fmt.Errorf("%w: decrement must be positive", store.ErrInvalidInput)
	}

	for attempt := 0; attempt < maxStockAttempts; attempt++ {
		row, err := s.conditionalDecrement(ctx, productID, qty)
		if err == nil {
			return domain.StockChange{
				ProductID:        productID,
				Quantity:         qty,
				PreviousQuantity: row.Quantity + qty,
				NewQuantity:      row.Quantity,
				PreviousStatus:   row.PreviousStatus,
				NewStatus:        row.Status,
			}, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return domain.StockChange{}, err
		}

		var current stockRow
		err = s.db.GetContext(ctx, &current, s.rebind(`SELECT quantity, status FROM products WHERE id = ?`), productID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.StockChange{}, fmt.Errorf("%w: product %s", store.ErrNotFound, productID)
			}
			return domain.StockChange{}, err
		}
		if !current.Quantity.Valid {
			return domain.StockChange{ProductID: productID}, nil
		}
		if current.Quantity.Int64 < qty {
			return domain.StockChange{}, &store.StockShortError{ProductID: productID, Available: current.Quantity.Int64, Requested: qty}
		}
		// Stock was restored between the write and the read.
	}
	return domain.StockChange{}, fmt.Errorf("%w: product %s", store.ErrConcurrentUpdate, productID)
}

// conditionalDecrement returns sql.ErrNoRows when the product is missing, is
// untracked or holds fewer than qty units.
func (s *Store) conditionalDecrement(ctx context.Context, productID string, qty int64) (decrementRow, error) {
	var row decrementRow
	if s.dialect == Postgres {
		err := s.db.GetContext(ctx, &row, postgresDecrement, qty, productID)
		return row, err
	}

	// SQLite runs on one connection; the transaction keeps the status read
	// and the write together.
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return row, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.GetContext(ctx, &row.PreviousStatus, `SELECT status FROM products WHERE id = ?`, productID); err != nil {
		return row, err
	}
	if err := tx.QueryRowxContext(ctx, sqliteDecrement, qty, qty, productID, qty).Scan(&row.Quantity, &row.Status); err != nil {
		return row, err
	}
	return row, tx.Commit()
}

// RestoreStock adds the decremented units back. The status is reset only if
// nothing else has changed it since the decrement.
func (s *Store) RestoreStock(ctx context.Context, change domain.StockChange) error {
	if change.Quantity <= 0 {
		return nil
	}

	var (
		res sql.Result
		err error
	)
	if change.StatusChanged() {
		res, err = s.db.ExecContext(ctx, s.rebind(`
			UPDATE products
			SET quantity = quantity + ?,
				status = CASE WHEN status = ? THEN ? ELSE status END,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND quantity IS NOT NULL
		`), change.Quantity, string(change.NewStatus), string(change.PreviousStatus), change.ProductID)
	} else {
		res, err = s.db.ExecContext(ctx, s.rebind(`
			UPDATE products
			SET quantity = quantity + ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND quantity IS NOT NULL
		`), change.Quantity, change.ProductID)
	}
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: product %s", store.ErrNotFound, change.ProductID)
	}
	return nil
}
