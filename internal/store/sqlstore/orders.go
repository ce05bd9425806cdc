package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/backend/internal/domain"
	"storefront/backend/internal/store"
)

func (s *Store) CreateOrder(ctx context.Context, order domain.Order) error {
	if strings.TrimSpace(order.ID) == "" || strings.TrimSpace(order.ReceiptNumber) == "" {
		return store.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO orders (
			id, receipt_number, customer_name, customer_phone, notes, status,
			payment_method, payment_reference, subtotal, discount, tax, total,
			total_cost, profit, currency, created_by, created_at, updated_at
		)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
	`),
		order.ID, order.ReceiptNumber, order.CustomerName, order.CustomerPhone, order.Notes, order.Status,
		string(order.PaymentMethod), nullIfEmpty(order.PaymentReference), order.Subtotal, order.Discount, order.Tax, order.Total,
		order.TotalCost, order.Profit, order.Currency, order.CreatedBy, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if uniqueOn(err, "receipt_number") {
			return fmt.Errorf("%w: %s", store.ErrDuplicateReceipt, order.ReceiptNumber)
		}
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: order %s already exists", store.ErrInvalidInput, order.ID)
		}
		return err
	}
	return nil
}

func (s *Store) InsertProductLines(ctx context.Context, orderID string, lines []domain.OrderProductLine, columns store.ColumnSet) error {
	rows := make([]lineRow, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, lineRow{
			refID:         line.ProductID,
			quantity:      line.Quantity,
			unitPrice:     line.UnitPrice,
			unitCost:      line.UnitCost,
			lineTotal:     line.LineTotal,
			lineCostTotal: line.LineCostTotal,
		})
	}
	return s.insertLines(ctx, store.ProductLineTable, "product_id", orderID, rows, columns)
}

func (s *Store) InsertComboLines(ctx context.Context, orderID string, lines []domain.OrderComboLine, columns store.ColumnSet) error {
	rows := make([]lineRow, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, lineRow{
			refID:         line.ComboID,
			quantity:      line.Quantity,
			unitPrice:     line.UnitPrice,
			unitCost:      line.UnitCost,
			lineTotal:     line.LineTotal,
			lineCostTotal: line.LineCostTotal,
		})
	}
	return s.insertLines(ctx, store.ComboLineTable, "combo_id", orderID, rows, columns)
}

type lineRow struct {
	refID         string
	quantity      int64
	unitPrice     decimal.Decimal
	unitCost      decimal.Decimal
	lineTotal     decimal.Decimal
	lineCostTotal decimal.Decimal
}

// insertLines writes every row of one line table in a single transaction,
// leaving out the totals the column set does not write.
func (s *Store) insertLines(ctx context.Context, table store.LineTable, refColumn string, orderID string, rows []lineRow, columns store.ColumnSet) error {
	if len(rows) == 0 {
		return nil
	}

	names := []string{"order_id", refColumn, "quantity", "unit_price", "unit_cost"}
	if columns.WritesLineTotal() {
		names = append(names, "line_total")
	}
	if columns.WritesLineCostTotal() {
		names = append(names, "line_cost_total")
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(names)), ",")
	query := s.rebind(fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, table, strings.Join(names, ", "), placeholders))

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, row := range rows {
		args := []any{orderID, row.refID, row.quantity, row.unitPrice, row.unitCost}
		if columns.WritesLineTotal() {
			args = append(args, row.lineTotal)
		}
		if columns.WritesLineCostTotal() {
			args = append(args, row.lineCostTotal)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return lineInsertError(err)
		}
	}
	return tx.Commit()
}

// DeleteOrder removes the order and its lines in one transaction.
func (s *Store) DeleteOrder(ctx context.Context, orderID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []store.LineTable{store.ProductLineTable, store.ComboLineTable} {
		if _, err := tx.ExecContext(ctx, s.rebind(fmt.Sprintf(`DELETE FROM %s WHERE order_id = ?`, table)), orderID); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM orders WHERE id = ?`), orderID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return tx.Commit()
}

func (s *Store) FindOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	err := s.db.GetContext(ctx, &order, s.rebind(`
		SELECT id, receipt_number, customer_name, customer_phone, notes, status,
			payment_method, COALESCE(payment_reference, '') AS payment_reference,
			subtotal, discount, tax, total, total_cost, profit, currency,
			created_by, created_at, updated_at
		FROM orders
		WHERE id = ?
	`), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	order.CreatedAt = order.CreatedAt.UTC()
	order.UpdatedAt = order.UpdatedAt.UTC()

	order.ProductLines = []domain.OrderProductLine{}
	if err := s.db.SelectContext(ctx, &order.ProductLines, s.rebind(`
		SELECT id, order_id, product_id, quantity, unit_price, unit_cost, line_total, line_cost_total
		FROM order_product_lines
		WHERE order_id = ?
		ORDER BY id
	`), id); err != nil {
		return nil, err
	}

	order.ComboLines = []domain.OrderComboLine{}
	if err := s.db.SelectContext(ctx, &order.ComboLines, s.rebind(`
		SELECT id, order_id, combo_id, quantity, unit_price, unit_cost, line_total, line_cost_total
		FROM order_combo_lines
		WHERE order_id = ?
		ORDER BY id
	`), id); err != nil {
		return nil, err
	}
	return &order, nil
}
