package sqlstore

import (
	"context"

	"github.com/jmoiron/sqlx"

	"storefront/backend/internal/domain"
)

const productColumns = `id, name, unit_cost, sell_price, quantity, status`

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products := make([]domain.Product, 0, 128)
	err := s.db.SelectContext(ctx, &products, `
		SELECT `+productColumns+`
		FROM products
		ORDER BY name, id
	`)
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	result := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT `+productColumns+` FROM products WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var products []domain.Product
	if err := s.db.SelectContext(ctx, &products, s.rebind(query), args...); err != nil {
		return nil, err
	}
	for _, p := range products {
		result[p.ID] = p
	}
	return result, nil
}

// GetCombosByIDs loads the combos and their components in two queries.
func (s *Store) GetCombosByIDs(ctx context.Context, ids []string) (map[string]domain.Combo, error) {
	result := make(map[string]domain.Combo, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT id, name, packaging_cost FROM combos WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	var combos []domain.Combo
	if err := s.db.SelectContext(ctx, &combos, s.rebind(query), args...); err != nil {
		return nil, err
	}
	if len(combos) == 0 {
		return result, nil
	}

	query, args, err = sqlx.In(`
		SELECT combo_id, product_id, quantity
		FROM combo_items
		WHERE combo_id IN (?)
		ORDER BY combo_id, product_id
	`, ids)
	if err != nil {
		return nil, err
	}
	var items []domain.ComboItem
	if err := s.db.SelectContext(ctx, &items, s.rebind(query), args...); err != nil {
		return nil, err
	}

	byCombo := make(map[string][]domain.ComboItem, len(combos))
	for _, item := range items {
		byCombo[item.ComboID] = append(byCombo[item.ComboID], item)
	}
	for _, combo := range combos {
		combo.Items = byCombo[combo.ID]
		result[combo.ID] = combo
	}
	return result, nil
}
