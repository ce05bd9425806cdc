// Package pricing holds the money arithmetic of a sale. Every amount is
// rounded to two decimal places, half away from zero.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"storefront/backend/internal/domain"
)

const moneyPlaces = 2

func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(moneyPlaces)
}

// CostLookup resolves the unit cost of a product.
type CostLookup func(productID string) (decimal.Decimal, bool)

// ComboUnitCost is the packaging cost plus the cost of every component.
func ComboUnitCost(packagingCost decimal.Decimal, items []domain.ComboItem, lookup CostLookup) (decimal.Decimal, error) {
	cost := packagingCost
	for _, item := range items {
		unitCost, ok := lookup(item.ProductID)
		if !ok {
			return decimal.Zero, fmt.Errorf("no cost for component %s", item.ProductID)
		}
		cost = cost.Add(unitCost.Mul(decimal.NewFromInt(item.Quantity)))
	}
	return cost, nil
}

type Line struct {
	Qty       int64
	UnitPrice decimal.Decimal
	UnitCost  decimal.Decimal
}

type LineAmounts struct {
	LineTotal     decimal.Decimal
	LineCostTotal decimal.Decimal
}

func Amounts(line Line) LineAmounts {
	qty := decimal.NewFromInt(line.Qty)
	return LineAmounts{
		LineTotal:     Round(line.UnitPrice.Mul(qty)),
		LineCostTotal: Round(line.UnitCost.Mul(qty)),
	}
}

type Totals struct {
	Subtotal  decimal.Decimal
	Discount  decimal.Decimal
	Tax       decimal.Decimal
	Total     decimal.Decimal
	TotalCost decimal.Decimal
	Profit    decimal.Decimal
	Lines     []LineAmounts
}

// Compute derives order totals. Total never goes below zero; profit may.
func Compute(lines []Line, discount, tax decimal.Decimal) Totals {
	totals := Totals{
		Subtotal:  decimal.Zero,
		TotalCost: decimal.Zero,
		Discount:  Round(discount),
		Tax:       Round(tax),
		Lines:     make([]LineAmounts, 0, len(lines)),
	}
	for _, line := range lines {
		amounts := Amounts(line)
		totals.Lines = append(totals.Lines, amounts)
		totals.Subtotal = totals.Subtotal.Add(amounts.LineTotal)
		totals.TotalCost = totals.TotalCost.Add(amounts.LineCostTotal)
	}

	total := Round(totals.Subtotal.Sub(totals.Discount).Add(totals.Tax))
	if total.IsNegative() {
		total = decimal.Zero
	}
	totals.Total = total
	totals.Profit = Round(total.Sub(totals.TotalCost))
	return totals
}
