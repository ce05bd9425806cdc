package fulfillment

import (
	"cmp"
	"slices"
	"sort"

	"github.com/shopspring/decimal"

	"storefront/backend/internal/domain"
	"storefront/backend/internal/pricing"
)

// comboIDs returns the distinct combo ids referenced by the cart, sorted.
func comboIDs(lines []domain.ComboLine) []string {
	set := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		set[line.ComboID] = struct{}{}
	}
	return sortedKeys(set)
}

// productIDs returns every product id the cart touches, directly or through a
// combo component, sorted.
func productIDs(lines []domain.ProductLine, comboLines []domain.ComboLine, combos map[string]domain.Combo) []string {
	set := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		set[line.ProductID] = struct{}{}
	}
	for _, line := range comboLines {
		for _, item := range combos[line.ComboID].Items {
			set[item.ProductID] = struct{}{}
		}
	}
	return sortedKeys(set)
}

// unusableCombos lists referenced combos that are unknown and those with no
// component that contributes a positive quantity.
func unusableCombos(ids []string, combos map[string]domain.Combo) (missing []string, empty []string) {
	for _, id := range ids {
		combo, ok := combos[id]
		switch {
		case !ok:
			missing = append(missing, id)
		case !hasUsableItems(combo):
			empty = append(empty, id)
		}
	}
	return missing, empty
}

func hasUsableItems(combo domain.Combo) bool {
	if len(combo.Items) == 0 {
		return false
	}
	for _, item := range combo.Items {
		if item.Quantity <= 0 {
			return false
		}
	}
	return true
}

func missingProducts(ids []string, products map[string]domain.Product) []string {
	var missing []string
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// Aggregate merges direct and combo-derived demand into one requirement per
// product, ordered by product id. Product ids absent from products are
// returned instead of a requirement.
func Aggregate(lines []domain.ProductLine, comboLines []domain.ComboLine, combos map[string]domain.Combo, products map[string]domain.Product) ([]domain.InventoryRequirement, []string) {
	required := make(map[string]int64)
	for _, line := range lines {
		required[line.ProductID] += line.Qty
	}
	for _, line := range comboLines {
		for _, item := range combos[line.ComboID].Items {
			required[item.ProductID] += item.Quantity * line.Qty
		}
	}

	var missing []string
	requirements := make([]domain.InventoryRequirement, 0, len(required))
	for productID, qty := range required {
		product, ok := products[productID]
		if !ok {
			missing = append(missing, productID)
			continue
		}
		requirements = append(requirements, domain.InventoryRequirement{
			ProductID: productID,
			Name:      product.Name,
			Required:  qty,
			Available: product.Quantity,
			Status:    product.Status,
		})
	}
	slices.SortFunc(requirements, func(a, b domain.InventoryRequirement) int {
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	sort.Strings(missing)
	return requirements, missing
}

// Shortfalls lists every requirement that exceeds its available stock.
// Products without tracked stock never fall short.
func Shortfalls(requirements []domain.InventoryRequirement) []domain.Shortfall {
	var shortfalls []domain.Shortfall
	for _, req := range requirements {
		if req.Available == nil || *req.Available >= req.Required {
			continue
		}
		shortfalls = append(shortfalls, domain.Shortfall{
			ProductID: req.ProductID,
			Name:      req.Name,
			Available: *req.Available,
			Required:  req.Required,
		})
	}
	return shortfalls
}

// comboCosts derives the unit cost of each combo from its packaging cost and
// the current cost of its components.
func comboCosts(combos map[string]domain.Combo, products map[string]domain.Product) (map[string]decimal.Decimal, error) {
	lookup := func(productID string) (decimal.Decimal, bool) {
		product, ok := products[productID]
		return product.UnitCost, ok
	}

	costs := make(map[string]decimal.Decimal, len(combos))
	for id, combo := range combos {
		cost, err := pricing.ComboUnitCost(combo.PackagingCost, combo.Items, lookup)
		if err != nil {
			return nil, err
		}
		costs[id] = cost
	}
	return costs, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
