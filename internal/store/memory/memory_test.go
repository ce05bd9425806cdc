package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"storefront/backend/internal/domain"
	"storefront/backend/internal/store"
)

func TestDecrementStockArchivesAtZeroAndRestoreReverts(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.PutProduct(domain.Product{ID: "p-1", Name: "Teh", Quantity: stock(3), Status: domain.ProductActive})

	change, err := s.DecrementStock(ctx, "p-1", 3)
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if change.NewQuantity != 0 || change.NewStatus != domain.ProductArchived || change.PreviousStatus != domain.ProductActive {
		t.Fatalf("unexpected change: %+v", change)
	}

	products, _ := s.GetProductsByIDs(ctx, []string{"p-1"})
	if *products["p-1"].Quantity != 0 || products["p-1"].Status != domain.ProductArchived {
		t.Fatalf("expected archived sold-out product, got %+v", products["p-1"])
	}

	if err := s.RestoreStock(ctx, change); err != nil {
		t.Fatalf("restore: %v", err)
	}
	products, _ = s.GetProductsByIDs(ctx, []string{"p-1"})
	if *products["p-1"].Quantity != 3 || products["p-1"].Status != domain.ProductActive {
		t.Fatalf("expected restored product, got %+v", products["p-1"])
	}
}

func TestDecrementStockRejectsShortfall(t *testing.T) {
	s := New()
	s.PutProduct(domain.Product{ID: "p-1", Name: "Teh", Quantity: stock(1), Status: domain.ProductActive})

	_, err := s.DecrementStock(context.Background(), "p-1", 2)
	var short *store.StockShortError
	if !errors.As(err, &short) || !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected stock short error, got %v", err)
	}
	if short.Available != 1 || short.Requested != 2 {
		t.Fatalf("unexpected shortfall %+v", short)
	}
}

func TestDecrementStockIgnoresUntrackedProducts(t *testing.T) {
	s := New()
	s.PutProduct(domain.Product{ID: "p-free", Name: "Bag", Status: domain.ProductActive})

	change, err := s.DecrementStock(context.Background(), "p-free", 50)
	if err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if change.Quantity != 0 {
		t.Fatalf("expected no-op change, got %+v", change)
	}
}

func TestGeneratedColumnsRejectExplicitTotals(t *testing.T) {
	ctx := context.Background()
	s := New(WithGeneratedColumns(store.ProductLineTable, true, false))
	if err := s.CreateOrder(ctx, domain.Order{ID: "o-1", ReceiptNumber: "R-1"}); err != nil {
		t.Fatalf("create order: %v", err)
	}

	line := domain.OrderProductLine{ProductID: "p-1", Quantity: 2, UnitPrice: decimal.RequireFromString("1.25"), UnitCost: decimal.RequireFromString("0.5")}
	err := s.InsertProductLines(ctx, "o-1", []domain.OrderProductLine{line}, store.ColumnsFull)
	if !store.IsGeneratedColumnError(err) {
		t.Fatalf("expected generated column error, got %v", err)
	}
	if got := s.LineColumns(store.ProductLineTable); got != store.ColumnsWithoutLineTotal {
		t.Fatalf("expected without_line_total, got %s", got)
	}

	line.LineCostTotal = decimal.RequireFromString("1")
	if err := s.InsertProductLines(ctx, "o-1", []domain.OrderProductLine{line}, store.ColumnsWithoutLineTotal); err != nil {
		t.Fatalf("insert without line_total: %v", err)
	}
	order, err := s.FindOrderByID(ctx, "o-1")
	if err != nil {
		t.Fatalf("find order: %v", err)
	}
	if !order.ProductLines[0].LineTotal.Equal(decimal.RequireFromString("2.5")) {
		t.Fatalf("expected computed line total, got %s", order.ProductLines[0].LineTotal)
	}
}

func TestDeleteOrderRemovesLinesAndReceipt(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.CreateOrder(ctx, domain.Order{ID: "o-1", ReceiptNumber: "R-1"}); err != nil {
		t.Fatalf("create order: %v", err)
	}
	if err := s.CreateOrder(ctx, domain.Order{ID: "o-2", ReceiptNumber: "R-1"}); !errors.Is(err, store.ErrDuplicateReceipt) {
		t.Fatalf("expected duplicate receipt, got %v", err)
	}
	_ = s.InsertComboLines(ctx, "o-1", []domain.OrderComboLine{{ComboID: "c-1", Quantity: 1}}, store.ColumnsFull)

	if err := s.DeleteOrder(ctx, "o-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.FindOrderByID(ctx, "o-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.CreateOrder(ctx, domain.Order{ID: "o-2", ReceiptNumber: "R-1"}); err != nil {
		t.Fatalf("receipt should be free again: %v", err)
	}
}

func TestNewSeededHasCatalogAndUsers(t *testing.T) {
	s := NewSeeded()
	combos, _ := s.GetCombosByIDs(context.Background(), []string{"combo-ngopi", "missing"})
	if len(combos) != 1 || len(combos["combo-ngopi"].Items) != 3 {
		t.Fatalf("unexpected combos %+v", combos)
	}
	users, _ := s.ListUsers(context.Background())
	if len(users) != 2 || users[0].Username != "admin" {
		t.Fatalf("unexpected users %+v", users)
	}
}
