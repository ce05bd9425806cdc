package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"storefront/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidInput      = errors.New("invalid input")
	ErrDuplicateReceipt  = errors.New("duplicate receipt number")
	ErrGeneratedColumn   = errors.New("generated column rejects explicit value")
	ErrConcurrentUpdate  = errors.New("stock changed concurrently")
)

// StockShortError is returned by a conditional decrement that found fewer
// units than requested.
type StockShortError struct {
	ProductID string
	Available int64
	Requested int64
}

func (e *StockShortError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", e.ProductID, e.Available, e.Requested)
}

func (e *StockShortError) Unwrap() error {
	return ErrInsufficientStock
}

type CatalogReader interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	GetCombosByIDs(ctx context.Context, ids []string) (map[string]domain.Combo, error)
}

// OrderWriter persists the order header and its lines. Line inserts write only
// the columns in the given ColumnSet.
type OrderWriter interface {
	CreateOrder(ctx context.Context, order domain.Order) error
	InsertProductLines(ctx context.Context, orderID string, lines []domain.OrderProductLine, columns ColumnSet) error
	InsertComboLines(ctx context.Context, orderID string, lines []domain.OrderComboLine, columns ColumnSet) error
	DeleteOrder(ctx context.Context, orderID string) error
}

type OrderReader interface {
	FindOrderByID(ctx context.Context, id string) (*domain.Order, error)
}

// StockWriter applies conditional stock decrements. DecrementStock fails with a
// *StockShortError when fewer than qty units remain at write time. A product
// whose stock is not tracked yields a change with zero Quantity.
type StockWriter interface {
	DecrementStock(ctx context.Context, productID string, qty int64) (domain.StockChange, error)
	RestoreStock(ctx context.Context, change domain.StockChange) error
}

type UserStore interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

type AuditWriter interface {
	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
}

type Repository interface {
	CatalogReader
	OrderWriter
	OrderReader
	StockWriter
	UserStore
	AuditWriter
}

// LineTable names the two order line tables.
type LineTable string

const (
	ProductLineTable LineTable = "order_product_lines"
	ComboLineTable   LineTable = "order_combo_lines"
)

// ColumnSet is a rung of the line insert ladder, from every column down to
// neither computed total.
type ColumnSet int

const (
	ColumnsFull ColumnSet = iota
	ColumnsWithoutLineTotal
	ColumnsWithoutTotals
)

func (c ColumnSet) WritesLineTotal() bool {
	return c == ColumnsFull
}

func (c ColumnSet) WritesLineCostTotal() bool {
	return c != ColumnsWithoutTotals
}

// Next returns the following rung, or false at the bottom of the ladder.
func (c ColumnSet) Next() (ColumnSet, bool) {
	if c >= ColumnsWithoutTotals {
		return c, false
	}
	return c + 1, true
}

func (c ColumnSet) String() string {
	switch c {
	case ColumnsFull:
		return "full"
	case ColumnsWithoutLineTotal:
		return "without_line_total"
	case ColumnsWithoutTotals:
		return "without_totals"
	default:
		return fmt.Sprintf("ColumnSet(%d)", int(c))
	}
}

func ParseColumnSet(value string) (ColumnSet, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "full":
		return ColumnsFull, nil
	case "without_line_total":
		return ColumnsWithoutLineTotal, nil
	case "without_totals":
		return ColumnsWithoutTotals, nil
	default:
		return ColumnsFull, fmt.Errorf("unknown column set %q", value)
	}
}

// ColumnsFor picks the widest set that does not write any generated column.
func ColumnsFor(lineTotalGenerated, lineCostTotalGenerated bool) ColumnSet {
	switch {
	case lineCostTotalGenerated:
		return ColumnsWithoutTotals
	case lineTotalGenerated:
		return ColumnsWithoutLineTotal
	default:
		return ColumnsFull
	}
}

var generatedColumnPattern = regexp.MustCompile(`(?i)generated column|cannot insert (a non-default value )?into column|cannot insert into generated`)

// IsGeneratedColumnError reports whether err is a rejected write to a
// database-computed column. Other insert failures return false.
func IsGeneratedColumnError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrGeneratedColumn) {
		return true
	}
	return generatedColumnPattern.MatchString(err.Error())
}
