package memory

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"storefront/backend/internal/domain"
	"storefront/backend/internal/pricing"
	"storefront/backend/internal/store"
	"storefront/backend/internal/xid"
)

var _ store.Repository = (*Store)(nil)

type generatedColumns struct {
	lineTotal     bool
	lineCostTotal bool
}

type Store struct {
	mu              sync.RWMutex
	products        map[string]domain.Product
	combos          map[string]domain.Combo
	ordersByID      map[string]*domain.Order
	orderByReceipt  map[string]string
	productLines    map[string][]domain.OrderProductLine
	comboLines      map[string][]domain.OrderComboLine
	nextLineID      int64
	generated       map[store.LineTable]generatedColumns
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount
}

type Option func(*Store)

// WithGeneratedColumns makes the given line table compute its totals and
// reject explicit values for them, like a database with generated columns.
func WithGeneratedColumns(table store.LineTable, lineTotal bool, lineCostTotal bool) Option {
	return func(s *Store) {
		s.generated[table] = generatedColumns{lineTotal: lineTotal, lineCostTotal: lineCostTotal}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		products:        make(map[string]domain.Product),
		combos:          make(map[string]domain.Combo),
		ordersByID:      make(map[string]*domain.Order),
		orderByReceipt:  make(map[string]string),
		productLines:    make(map[string][]domain.OrderProductLine),
		comboLines:      make(map[string][]domain.OrderComboLine),
		generated:       make(map[store.LineTable]generatedColumns),
		auditLogs:       make([]domain.AuditLog, 0, 64),
		usersByUsername: make(map[string]domain.UserAccount),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// seedUsers builds the demo accounts. Passwords come from SEED_ADMIN_PASSWORD
// and SEED_CASHIER_PASSWORD, falling back to dev defaults.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Warn().Str("component", "memory-store").Msg("using default dev credentials; set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal().Err(err).Str("username", u.username).Msg("hash seed password")
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func stock(v int64) *int64 {
	return &v
}

func money(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func price(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(money(v))
}

func NewSeeded(opts ...Option) *Store {
	s := New(opts...)

	for _, p := range []domain.Product{
		{ID: "prod-kopi-bubuk", Name: "Kopi Bubuk 200g", UnitCost: money("24000"), SellPrice: price("32000"), Quantity: stock(40), Status: domain.ProductActive},
		{ID: "prod-gula-aren", Name: "Gula Aren 250g", UnitCost: money("9500"), SellPrice: price("14000"), Quantity: stock(60), Status: domain.ProductActive},
		{ID: "prod-susu-uht", Name: "Susu UHT 1L", UnitCost: money("13600"), SellPrice: price("18900"), Quantity: stock(36), Status: domain.ProductActive},
		{ID: "prod-roti-tawar", Name: "Roti Tawar", UnitCost: money("12450"), SellPrice: price("17800"), Quantity: stock(24), Status: domain.ProductActive},
		{ID: "prod-selai", Name: "Selai Srikaya", UnitCost: money("11000"), SellPrice: price("16500"), Quantity: stock(5), Status: domain.ProductActive},
		{ID: "prod-cangkir", Name: "Cangkir Keramik", UnitCost: money("18000"), SellPrice: price("35000"), Quantity: stock(12), Status: domain.ProductDraft},
		{ID: "prod-tas-kain", Name: "Tas Kain", UnitCost: money("3500"), Status: domain.ProductActive},
	} {
		s.products[p.ID] = p
	}

	for _, c := range []domain.Combo{
		{ID: "combo-sarapan", Name: "Paket Sarapan", PackagingCost: money("1500"), Items: []domain.ComboItem{
			{ComboID: "combo-sarapan", ProductID: "prod-roti-tawar", Quantity: 1},
			{ComboID: "combo-sarapan", ProductID: "prod-selai", Quantity: 1},
			{ComboID: "combo-sarapan", ProductID: "prod-susu-uht", Quantity: 1},
		}},
		{ID: "combo-ngopi", Name: "Paket Ngopi", PackagingCost: money("2500"), Items: []domain.ComboItem{
			{ComboID: "combo-ngopi", ProductID: "prod-kopi-bubuk", Quantity: 1},
			{ComboID: "combo-ngopi", ProductID: "prod-gula-aren", Quantity: 2},
			{ComboID: "combo-ngopi", ProductID: "prod-tas-kain", Quantity: 1},
		}},
	} {
		s.combos[c.ID] = c
	}

	s.usersByUsername = seedUsers()
	return s
}

// PutProduct inserts or replaces a catalog product.
func (s *Store) PutProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = cloneProduct(p)
}

// PutCombo inserts or replaces a combo definition.
func (s *Store) PutCombo(c domain.Combo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.combos[c.ID] = cloneCombo(c)
}

// LineColumns reports the widest column set the table accepts.
func (s *Store) LineColumns(table store.LineTable) store.ColumnSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g := s.generated[table]
	return store.ColumnsFor(g.lineTotal, g.lineCostTotal)
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, cloneProduct(p))
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return products, nil
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			result[id] = cloneProduct(p)
		}
	}
	return result, nil
}

func (s *Store) GetCombosByIDs(_ context.Context, ids []string) (map[string]domain.Combo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Combo, len(ids))
	for _, id := range ids {
		if c, ok := s.combos[id]; ok {
			result[id] = cloneCombo(c)
		}
	}
	return result, nil
}

func (s *Store) CreateOrder(_ context.Context, order domain.Order) error {
	if strings.TrimSpace(order.ID) == "" || strings.TrimSpace(order.ReceiptNumber) == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ordersByID[order.ID]; exists {
		return fmt.Errorf("%w: order %s already exists", store.ErrInvalidInput, order.ID)
	}
	if _, exists := s.orderByReceipt[order.ReceiptNumber]; exists {
		return fmt.Errorf("%w: %s", store.ErrDuplicateReceipt, order.ReceiptNumber)
	}

	stored := order
	stored.ProductLines = nil
	stored.ComboLines = nil
	s.ordersByID[order.ID] = &stored
	s.orderByReceipt[order.ReceiptNumber] = order.ID
	return nil
}

func (s *Store) InsertProductLines(_ context.Context, orderID string, lines []domain.OrderProductLine, columns store.ColumnSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ordersByID[orderID]; !ok {
		return fmt.Errorf("%w: order %s", store.ErrNotFound, orderID)
	}
	if err := s.checkGenerated(store.ProductLineTable, columns); err != nil {
		return err
	}

	g := s.generated[store.ProductLineTable]
	rows := make([]domain.OrderProductLine, 0, len(lines))
	for _, line := range lines {
		line.OrderID = orderID
		s.nextLineID++
		line.ID = s.nextLineID
		line.LineTotal, line.LineCostTotal = storedTotals(g, columns, line.Quantity, line.UnitPrice, line.UnitCost, line.LineTotal, line.LineCostTotal)
		rows = append(rows, line)
	}
	s.productLines[orderID] = append(s.productLines[orderID], rows...)
	return nil
}

func (s *Store) InsertComboLines(_ context.Context, orderID string, lines []domain.OrderComboLine, columns store.ColumnSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ordersByID[orderID]; !ok {
		return fmt.Errorf("%w: order %s", store.ErrNotFound, orderID)
	}
	if err := s.checkGenerated(store.ComboLineTable, columns); err != nil {
		return err
	}

	g := s.generated[store.ComboLineTable]
	rows := make([]domain.OrderComboLine, 0, len(lines))
	for _, line := range lines {
		line.OrderID = orderID
		s.nextLineID++
		line.ID = s.nextLineID
		line.LineTotal, line.LineCostTotal = storedTotals(g, columns, line.Quantity, line.UnitPrice, line.UnitCost, line.LineTotal, line.LineCostTotal)
		rows = append(rows, line)
	}
	s.comboLines[orderID] = append(s.comboLines[orderID], rows...)
	return nil
}

func (s *Store) checkGenerated(table store.LineTable, columns store.ColumnSet) error {
	g := s.generated[table]
	if g.lineTotal && columns.WritesLineTotal() {
		return fmt.Errorf("%w: cannot insert a non-DEFAULT value into column \"line_total\" of %s", store.ErrGeneratedColumn, table)
	}
	if g.lineCostTotal && columns.WritesLineCostTotal() {
		return fmt.Errorf("%w: cannot insert a non-DEFAULT value into column \"line_cost_total\" of %s", store.ErrGeneratedColumn, table)
	}
	return nil
}

// storedTotals mirrors what a database keeps: generated columns are computed,
// omitted plain columns stay zero.
func storedTotals(g generatedColumns, columns store.ColumnSet, quantity int64, unitPrice, unitCost, lineTotal, lineCostTotal decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	computed := pricing.Amounts(pricing.Line{Qty: quantity, UnitPrice: unitPrice, UnitCost: unitCost})
	switch {
	case g.lineTotal:
		lineTotal = computed.LineTotal
	case !columns.WritesLineTotal():
		lineTotal = decimal.Zero
	}
	switch {
	case g.lineCostTotal:
		lineCostTotal = computed.LineCostTotal
	case !columns.WritesLineCostTotal():
		lineCostTotal = decimal.Zero
	}
	return lineTotal, lineCostTotal
}

func (s *Store) DeleteOrder(_ context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.ordersByID[orderID]
	if !ok {
		return store.ErrNotFound
	}
	delete(s.orderByReceipt, order.ReceiptNumber)
	delete(s.ordersByID, orderID)
	delete(s.productLines, orderID)
	delete(s.comboLines, orderID)
	return nil
}

func (s *Store) FindOrderByID(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.ordersByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := *order
	found.ProductLines = slices.Clone(s.productLines[id])
	found.ComboLines = slices.Clone(s.comboLines[id])
	if found.ProductLines == nil {
		found.ProductLines = []domain.OrderProductLine{}
	}
	if found.ComboLines == nil {
		found.ComboLines = []domain.OrderComboLine{}
	}
	return &found, nil
}

func (s *Store) DecrementStock(_ context.Context, productID string, qty int64) (domain.StockChange, error) {
	if qty <= 0 {
		return domain.StockChange{}, fmt.Errorf("%w: decrement must be positive", store.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[productID]
	if !ok {
		return domain.StockChange{}, fmt.Errorf("%w: product %s", store.ErrNotFound, productID)
	}
	if product.Quantity == nil {
		return domain.StockChange{ProductID: productID}, nil
	}

	available := *product.Quantity
	if available < qty {
		return domain.StockChange{}, &store.StockShortError{ProductID: productID, Available: available, Requested: qty}
	}

	change := domain.StockChange{
		ProductID:        productID,
		Quantity:         qty,
		PreviousQuantity: available,
		NewQuantity:      available - qty,
		PreviousStatus:   product.Status,
		NewStatus:        product.Status,
	}
	if change.NewQuantity == 0 {
		change.NewStatus = domain.ProductArchived
	}

	remaining := change.NewQuantity
	product.Quantity = &remaining
	product.Status = change.NewStatus
	s.products[productID] = product
	return change, nil
}

func (s *Store) RestoreStock(_ context.Context, change domain.StockChange) error {
	if change.Quantity <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[change.ProductID]
	if !ok {
		return fmt.Errorf("%w: product %s", store.ErrNotFound, change.ProductID)
	}
	if product.Quantity == nil {
		return nil
	}

	restored := *product.Quantity + change.Quantity
	product.Quantity = &restored
	if change.StatusChanged() && product.Status == change.NewStatus {
		product.Status = change.PreviousStatus
	}
	s.products[change.ProductID] = product
	return nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

// AuditLogs returns a copy of the recorded entries, oldest first.
func (s *Store) AuditLogs() []domain.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.auditLogs)
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = "cashier"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrInvalidInput
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmp.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.usersByUsername[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cloneProduct(src domain.Product) domain.Product {
	dst := src
	if src.Quantity != nil {
		q := *src.Quantity
		dst.Quantity = &q
	}
	return dst
}

func cloneCombo(src domain.Combo) domain.Combo {
	dst := src
	dst.Items = slices.Clone(src.Items)
	return dst
}
