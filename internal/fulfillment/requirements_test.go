package fulfillment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/backend/internal/domain"
)

func TestAggregateMergesDirectAndComboDemand(t *testing.T) {
	products := map[string]domain.Product{
		"a": {ID: "a", Name: "A", Quantity: units(2)},
		"b": {ID: "b", Name: "B", Quantity: units(5)},
		"z": {ID: "z", Name: "Z"},
	}
	combos := map[string]domain.Combo{
		"x": {ID: "x", Items: []domain.ComboItem{{ProductID: "a", Quantity: 1}, {ProductID: "b", Quantity: 3}}},
	}

	reqs, missing := Aggregate(
		[]domain.ProductLine{{ProductID: "z", Qty: 9}, {ProductID: "a", Qty: 2}, {ProductID: "a", Qty: 1}},
		[]domain.ComboLine{{ComboID: "x", Qty: 2}},
		combos, products,
	)
	require.Empty(t, missing)
	require.Len(t, reqs, 3)
	assert.Equal(t, []string{"a", "b", "z"}, []string{reqs[0].ProductID, reqs[1].ProductID, reqs[2].ProductID})
	assert.Equal(t, int64(5), reqs[0].Required)
	assert.Equal(t, int64(6), reqs[1].Required)
	assert.Nil(t, reqs[2].Available)

	shortfalls := Shortfalls(reqs)
	require.Equal(t, []domain.Shortfall{
		{ProductID: "a", Name: "A", Available: 2, Required: 5},
		{ProductID: "b", Name: "B", Available: 5, Required: 6},
	}, shortfalls)
}

func TestAggregateReportsUnknownProducts(t *testing.T) {
	_, missing := Aggregate(
		[]domain.ProductLine{{ProductID: "q", Qty: 1}, {ProductID: "p", Qty: 1}},
		nil, nil, map[string]domain.Product{},
	)
	assert.Equal(t, []string{"p", "q"}, missing)
}

func TestShortfallsIgnoresSatisfiedAndUntracked(t *testing.T) {
	assert.Empty(t, Shortfalls([]domain.InventoryRequirement{
		{ProductID: "a", Required: 3, Available: units(3)},
		{ProductID: "b", Required: 1000},
	}))
}

func TestUnusableCombos(t *testing.T) {
	missing, empty := unusableCombos([]string{"a", "b", "c", "d", "e"}, map[string]domain.Combo{
		"a": {ID: "a", Items: []domain.ComboItem{{ProductID: "p", Quantity: 1}}},
		"c": {ID: "c"},
		"d": {ID: "d", Items: []domain.ComboItem{{ProductID: "p", Quantity: 1}, {ProductID: "q", Quantity: 0}}},
		"e": {ID: "e", Items: []domain.ComboItem{{ProductID: "p", Quantity: -2}}},
	})
	assert.Equal(t, []string{"b"}, missing)
	assert.Equal(t, []string{"c", "d", "e"}, empty)
}

func TestComboCostsUsesCurrentComponentCost(t *testing.T) {
	costs, err := comboCosts(
		map[string]domain.Combo{"x": {ID: "x", PackagingCost: dec("1.25"), Items: []domain.ComboItem{{ProductID: "a", Quantity: 2}}}},
		map[string]domain.Product{"a": {ID: "a", UnitCost: dec("3.10")}},
	)
	require.NoError(t, err)
	assert.True(t, costs["x"].Equal(dec("7.45")), "cost %s", costs["x"])
}
