package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"storefront/backend/internal/apperr"
	"storefront/backend/internal/domain"
	"storefront/backend/internal/fulfillment"
	"storefront/backend/internal/store/memory"
)

func newTestService() (*Service, *memory.Store) {
	repo := memory.NewSeeded()
	engine := fulfillment.New(repo, repo, repo)
	return New(repo, engine, nil), repo
}

func price(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestCheckoutRecordsActorAndAudit(t *testing.T) {
	svc, repo := newTestService()
	ctx := WithActor(context.Background(), domain.Actor{Username: "cashier", Role: "cashier"})

	result, err := svc.Checkout(ctx, domain.SaleRequest{
		PaymentMethod: domain.PaymentCash,
		ProductLines:  []domain.ProductLine{{ProductID: "prod-kopi-bubuk", Qty: 2, UnitPrice: price("32000")}},
		ComboLines:    []domain.ComboLine{{ComboID: "combo-ngopi", Qty: 1, UnitPrice: price("60000")}},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if result.OrderID == "" || result.ReceiptNumber == "" {
		t.Fatalf("expected order id and receipt number, got %+v", result)
	}

	order, err := svc.GetOrder(ctx, result.OrderID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if order.CreatedBy != "cashier" {
		t.Fatalf("expected createdBy cashier, got %q", order.CreatedBy)
	}
	if len(order.ProductLines) != 1 || len(order.ComboLines) != 1 {
		t.Fatalf("expected one product and one combo line, got %d/%d", len(order.ProductLines), len(order.ComboLines))
	}

	logs := repo.AuditLogs()
	if len(logs) != 1 {
		t.Fatalf("expected one audit log, got %d", len(logs))
	}
	if logs[0].Action != "sale_commit" || logs[0].EntityID != result.OrderID || logs[0].ActorUsername != "cashier" {
		t.Fatalf("unexpected audit entry: %+v", logs[0])
	}
}

func TestCheckoutWithoutActorUsesSystem(t *testing.T) {
	svc, _ := newTestService()

	result, err := svc.Checkout(context.Background(), domain.SaleRequest{
		PaymentMethod: domain.PaymentCard,
		ProductLines:  []domain.ProductLine{{ProductID: "prod-tas-kain", Qty: 1, UnitPrice: price("5000")}},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	order, err := svc.GetOrder(context.Background(), result.OrderID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if order.CreatedBy != "system" {
		t.Fatalf("expected createdBy system, got %q", order.CreatedBy)
	}
}

func TestCheckoutFailureIsAudited(t *testing.T) {
	svc, repo := newTestService()

	_, err := svc.Checkout(context.Background(), domain.SaleRequest{
		PaymentMethod: domain.PaymentCash,
		ProductLines:  []domain.ProductLine{{ProductID: "prod-selai", Qty: 6, UnitPrice: price("16500")}},
	})
	if apperr.CodeOf(err) != apperr.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	logs := repo.AuditLogs()
	if len(logs) != 1 || logs[0].Action != "sale_failed" || logs[0].Detail != string(apperr.CodeInsufficientStock) {
		t.Fatalf("unexpected audit entries: %+v", logs)
	}
}

func TestGetOrderNotFound(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.GetOrder(context.Background(), "missing")
	if apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	_, err = svc.GetOrder(context.Background(), "  ")
	var typed *apperr.Error
	if !errors.As(err, &typed) || typed.Code() != apperr.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListProductsReturnsSeededCatalog(t *testing.T) {
	svc, _ := newTestService()

	products, err := svc.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("list products failed: %v", err)
	}
	if len(products) != 7 {
		t.Fatalf("expected 7 seeded products, got %d", len(products))
	}
}
