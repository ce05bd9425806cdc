package cache

import (
	"context"
	"time"

	"storefront/backend/internal/domain"
)

// ComboCache holds combo definitions keyed by combo id. Product stock is never
// cached.
type ComboCache interface {
	GetCombos(ctx context.Context, ids []string) (map[string]domain.Combo, error)
	SetCombos(ctx context.Context, combos map[string]domain.Combo, ttl time.Duration) error
	DeleteCombos(ctx context.Context, ids ...string) error
}

type NoopComboCache struct{}

func (NoopComboCache) GetCombos(_ context.Context, _ []string) (map[string]domain.Combo, error) {
	return map[string]domain.Combo{}, nil
}

func (NoopComboCache) SetCombos(_ context.Context, _ map[string]domain.Combo, _ time.Duration) error {
	return nil
}

func (NoopComboCache) DeleteCombos(_ context.Context, _ ...string) error {
	return nil
}
