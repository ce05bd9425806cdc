package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductActive   ProductStatus = "active"
	ProductDraft    ProductStatus = "draft"
	ProductArchived ProductStatus = "archived"
)

// Product is a catalog entry as seen by a sale. A nil Quantity means stock is
// not tracked for the product.
type Product struct {
	ID        string              `json:"id" db:"id"`
	Name      string              `json:"name" db:"name"`
	UnitCost  decimal.Decimal     `json:"unitCost" db:"unit_cost"`
	SellPrice decimal.NullDecimal `json:"sellPrice" db:"sell_price"`
	Quantity  *int64              `json:"quantity" db:"quantity"`
	Status    ProductStatus       `json:"status" db:"status"`
}

func (p Product) Managed() bool {
	return p.Quantity != nil
}

type Combo struct {
	ID            string          `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	PackagingCost decimal.Decimal `json:"packagingCost" db:"packaging_cost"`
	Items         []ComboItem     `json:"items" db:"-"`
}

type ComboItem struct {
	ComboID   string `json:"-" db:"combo_id"`
	ProductID string `json:"productId" db:"product_id"`
	Quantity  int64  `json:"quantity" db:"quantity"`
}

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
)

type ProductLine struct {
	ProductID string          `json:"productId" validate:"required,max=64"`
	Qty       int64           `json:"qty" validate:"gt=0,lte=100000"`
	UnitPrice decimal.Decimal `json:"unitPrice" validate:"gte=0"`
}

type ComboLine struct {
	ComboID   string          `json:"comboId" validate:"required,max=64"`
	Qty       int64           `json:"qty" validate:"gt=0,lte=100000"`
	UnitPrice decimal.Decimal `json:"unitPrice" validate:"gte=0"`
}

type SaleRequest struct {
	CustomerName  string          `json:"customerName,omitempty" validate:"max=120"`
	CustomerPhone string          `json:"customerPhone,omitempty" validate:"max=32"`
	Notes         string          `json:"notes,omitempty" validate:"max=1000"`
	PaymentMethod PaymentMethod   `json:"paymentMethod" validate:"required,oneof=cash card transfer"`
	ReceiptNumber string          `json:"receiptNumber,omitempty" validate:"required_if=PaymentMethod transfer,max=64"`
	Currency      string          `json:"currency,omitempty" validate:"omitempty,iso4217"`
	Discount      decimal.Decimal `json:"discount" validate:"gte=0"`
	Tax           decimal.Decimal `json:"tax" validate:"gte=0"`
	ProductLines  []ProductLine   `json:"productLines" validate:"dive"`
	ComboLines    []ComboLine     `json:"comboLines" validate:"dive"`
}

// SaleResult is the outcome of a committed sale. Money fields here and on
// Order marshal as decimal strings.
type SaleResult struct {
	OrderID       string          `json:"orderId"`
	ReceiptNumber string          `json:"receiptNumber"`
	ProfitAmount  decimal.Decimal `json:"profitAmount"`
}

// InventoryRequirement is the combined demand for one product within a sale.
type InventoryRequirement struct {
	ProductID string
	Name      string
	Required  int64
	Available *int64
	Status    ProductStatus
}

type Shortfall struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Available int64  `json:"available"`
	Required  int64  `json:"required"`
}

// StockChange records one applied decrement so it can be reverted.
type StockChange struct {
	ProductID        string
	Quantity         int64
	PreviousQuantity int64
	NewQuantity      int64
	PreviousStatus   ProductStatus
	NewStatus        ProductStatus
}

func (c StockChange) StatusChanged() bool {
	return c.PreviousStatus != c.NewStatus
}

const OrderCompleted = "completed"

type Order struct {
	ID               string             `json:"orderId" db:"id"`
	ReceiptNumber    string             `json:"receiptNumber" db:"receipt_number"`
	CustomerName     string             `json:"customerName,omitempty" db:"customer_name"`
	CustomerPhone    string             `json:"customerPhone,omitempty" db:"customer_phone"`
	Notes            string             `json:"notes,omitempty" db:"notes"`
	Status           string             `json:"status" db:"status"`
	PaymentMethod    PaymentMethod      `json:"paymentMethod" db:"payment_method"`
	PaymentReference string             `json:"paymentReference,omitempty" db:"payment_reference"`
	Subtotal         decimal.Decimal    `json:"subtotal" db:"subtotal"`
	Discount         decimal.Decimal    `json:"discount" db:"discount"`
	Tax              decimal.Decimal    `json:"tax" db:"tax"`
	Total            decimal.Decimal    `json:"total" db:"total"`
	TotalCost        decimal.Decimal    `json:"totalCost" db:"total_cost"`
	Profit           decimal.Decimal    `json:"profit" db:"profit"`
	Currency         string             `json:"currency" db:"currency"`
	CreatedBy        string             `json:"createdBy" db:"created_by"`
	CreatedAt        time.Time          `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time          `json:"updatedAt" db:"updated_at"`
	ProductLines     []OrderProductLine `json:"productLines" db:"-"`
	ComboLines       []OrderComboLine   `json:"comboLines" db:"-"`
}

type OrderProductLine struct {
	ID            int64           `json:"id" db:"id"`
	OrderID       string          `json:"-" db:"order_id"`
	ProductID     string          `json:"productId" db:"product_id"`
	Quantity      int64           `json:"qty" db:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice" db:"unit_price"`
	UnitCost      decimal.Decimal `json:"unitCost" db:"unit_cost"`
	LineTotal     decimal.Decimal `json:"lineTotal" db:"line_total"`
	LineCostTotal decimal.Decimal `json:"lineCostTotal" db:"line_cost_total"`
}

type OrderComboLine struct {
	ID            int64           `json:"id" db:"id"`
	OrderID       string          `json:"-" db:"order_id"`
	ComboID       string          `json:"comboId" db:"combo_id"`
	Quantity      int64           `json:"qty" db:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice" db:"unit_price"`
	UnitCost      decimal.Decimal `json:"unitCost" db:"unit_cost"`
	LineTotal     decimal.Decimal `json:"lineTotal" db:"line_total"`
	LineCostTotal decimal.Decimal `json:"lineCostTotal" db:"line_cost_total"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string    `db:"username"`
	Password  string    `db:"password"`
	Role      string    `db:"role"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
}

type AuditLog struct {
	ID            string    `json:"id" db:"id"`
	ActorUsername string    `json:"actor_username" db:"actor_username"`
	ActorRole     string    `json:"actor_role" db:"actor_role"`
	Action        string    `json:"action" db:"action"`
	EntityType    string    `json:"entity_type" db:"entity_type"`
	EntityID      string    `json:"entity_id" db:"entity_id"`
	Detail        string    `json:"detail" db:"detail"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
