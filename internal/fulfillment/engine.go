// Package fulfillment turns a cart of products and combos into a committed
// order. A sale moves through validated, resolved, committed and reconciled
// stages; any failure after the order header is written is compensated by
// reverting stock decrements and deleting the order.
package fulfillment

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"storefront/backend/internal/apperr"
	"storefront/backend/internal/domain"
	"storefront/backend/internal/logger"
	"storefront/backend/internal/metrics"
	"storefront/backend/internal/pricing"
	"storefront/backend/internal/store"
	"storefront/backend/internal/xid"
)

type Engine struct {
	catalog   store.CatalogReader
	orders    store.OrderWriter
	stock     store.StockWriter
	validator *Validator
	log       *logger.Logger
	metrics   *metrics.SaleMetrics
	now       func() time.Time
	currency  string
	columns   map[store.LineTable]*atomic.Int32
}

type Option func(*Engine)

func WithLogger(log *logger.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

func WithMetrics(m *metrics.SaleMetrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithDefaultCurrency sets the currency used when a sale names none.
func WithDefaultCurrency(code string) Option {
	return func(e *Engine) {
		e.currency = code
	}
}

// WithLineColumns sets the column set a line table is first written with.
func WithLineColumns(table store.LineTable, columns store.ColumnSet) Option {
	return func(e *Engine) {
		e.columns[table].Store(int32(columns))
	}
}

func New(catalog store.CatalogReader, orders store.OrderWriter, stock store.StockWriter, opts ...Option) *Engine {
	e := &Engine{
		catalog:  catalog,
		orders:   orders,
		stock:    stock,
		log:      logger.Nop(),
		now:      time.Now,
		currency: "IDR",
		columns: map[store.LineTable]*atomic.Int32{
			store.ProductLineTable: new(atomic.Int32),
			store.ComboLineTable:   new(atomic.Int32),
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.validator = NewValidator(e.currency)
	return e
}

// Columns reports the column set the next insert into table starts with.
func (e *Engine) Columns(table store.LineTable) store.ColumnSet {
	return store.ColumnSet(e.columns[table].Load())
}

// resolvedCart is everything read from the catalog for one sale.
type resolvedCart struct {
	products     map[string]domain.Product
	combos       map[string]domain.Combo
	comboCosts   map[string]decimal.Decimal
	requirements []domain.InventoryRequirement
}

// Fulfill runs one sale end to end. On failure the returned error is an
// *apperr.Error and no order or stock change from this sale remains, apart
// from compensation steps that themselves failed and were logged.
func (e *Engine) Fulfill(ctx context.Context, req domain.SaleRequest, createdBy string) (*domain.SaleResult, error) {
	started := e.now()
	result, err := e.fulfill(ctx, req, createdBy)
	e.metrics.ObserveSale(outcome(err), e.now().Sub(started))
	return result, err
}

func (e *Engine) fulfill(ctx context.Context, req domain.SaleRequest, createdBy string) (*domain.SaleResult, error) {
	sale := newSaga(e.log, e.metrics)

	req, err := e.validator.Validate(req)
	if err != nil {
		return nil, err
	}
	sale.advance(ctx, StageValidated)

	cart, err := e.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	sale.advance(ctx, StageResolved)

	if shortfalls := Shortfalls(cart.requirements); len(shortfalls) > 0 {
		return nil, insufficientStock(shortfalls)
	}

	order := e.buildOrder(req, cart, createdBy)
	if err := e.persist(ctx, sale, &order); err != nil {
		_ = sale.rollback(ctx, err)
		return nil, err
	}
	ctx = e.log.WithOrderID(ctx, order.ID)
	sale.advance(ctx, StageCommitted)

	if err := e.reconcile(ctx, sale, cart.requirements); err != nil {
		_ = sale.rollback(ctx, err)
		return nil, err
	}
	sale.advance(ctx, StageReconciled)

	e.log.Zerolog(ctx).Info().
		Str("receipt_number", order.ReceiptNumber).
		Str("total", order.Total.StringFixed(2)).
		Str("profit", order.Profit.StringFixed(2)).
		Msg("sale committed")

	return &domain.SaleResult{
		OrderID:       order.ID,
		ReceiptNumber: order.ReceiptNumber,
		ProfitAmount:  order.Profit,
	}, nil
}

func (e *Engine) resolve(ctx context.Context, req domain.SaleRequest) (*resolvedCart, error) {
	combos := map[string]domain.Combo{}
	if ids := comboIDs(req.ComboLines); len(ids) > 0 {
		loaded, err := e.catalog.GetCombosByIDs(ctx, ids)
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeInternal, err, "load combos")
		}
		missing, empty := unusableCombos(ids, loaded)
		if len(missing) > 0 || len(empty) > 0 {
			return nil, missingCombos(missing, empty)
		}
		combos = loaded
	}

	ids := productIDs(req.ProductLines, req.ComboLines, combos)
	products, err := e.catalog.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "load products")
	}
	if missing := missingProducts(ids, products); len(missing) > 0 {
		return nil, missingProductsError(missing)
	}

	requirements, missing := Aggregate(req.ProductLines, req.ComboLines, combos, products)
	if len(missing) > 0 {
		return nil, missingProductsError(missing)
	}

	costs, err := comboCosts(combos, products)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeMissingReference, err, "derive combo cost")
	}

	return &resolvedCart{
		products:     products,
		combos:       combos,
		comboCosts:   costs,
		requirements: requirements,
	}, nil
}

func (e *Engine) buildOrder(req domain.SaleRequest, cart *resolvedCart, createdBy string) domain.Order {
	lines := make([]pricing.Line, 0, len(req.ProductLines)+len(req.ComboLines))
	for _, line := range req.ProductLines {
		lines = append(lines, pricing.Line{Qty: line.Qty, UnitPrice: line.UnitPrice, UnitCost: cart.products[line.ProductID].UnitCost})
	}
	for _, line := range req.ComboLines {
		lines = append(lines, pricing.Line{Qty: line.Qty, UnitPrice: line.UnitPrice, UnitCost: cart.comboCosts[line.ComboID]})
	}
	totals := pricing.Compute(lines, req.Discount, req.Tax)

	now := e.now().UTC()
	order := domain.Order{
		ID:            xid.OrderID(),
		ReceiptNumber: req.ReceiptNumber,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Notes:         req.Notes,
		Status:        domain.OrderCompleted,
		PaymentMethod: req.PaymentMethod,
		Subtotal:      totals.Subtotal,
		Discount:      totals.Discount,
		Tax:           totals.Tax,
		Total:         totals.Total,
		TotalCost:     totals.TotalCost,
		Profit:        totals.Profit,
		Currency:      req.Currency,
		CreatedBy:     createdBy,
		CreatedAt:     now,
		UpdatedAt:     now,
		ProductLines:  make([]domain.OrderProductLine, 0, len(req.ProductLines)),
		ComboLines:    make([]domain.OrderComboLine, 0, len(req.ComboLines)),
	}
	if req.PaymentMethod == domain.PaymentTransfer {
		order.PaymentReference = req.ReceiptNumber
	}

	for i, line := range req.ProductLines {
		amounts := totals.Lines[i]
		order.ProductLines = append(order.ProductLines, domain.OrderProductLine{
			ProductID:     line.ProductID,
			Quantity:      line.Qty,
			UnitPrice:     line.UnitPrice,
			UnitCost:      lines[i].UnitCost,
			LineTotal:     amounts.LineTotal,
			LineCostTotal: amounts.LineCostTotal,
		})
	}
	offset := len(req.ProductLines)
	for i, line := range req.ComboLines {
		amounts := totals.Lines[offset+i]
		order.ComboLines = append(order.ComboLines, domain.OrderComboLine{
			ComboID:       line.ComboID,
			Quantity:      line.Qty,
			UnitPrice:     line.UnitPrice,
			UnitCost:      lines[offset+i].UnitCost,
			LineTotal:     amounts.LineTotal,
			LineCostTotal: amounts.LineCostTotal,
		})
	}
	return order
}

func outcome(err error) string {
	if err == nil {
		return "committed"
	}
	return strings.ToLower(string(apperr.CodeOf(err)))
}
