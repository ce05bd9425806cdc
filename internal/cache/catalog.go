package cache

import (
	"context"
	"time"

	"storefront/backend/internal/domain"
	"storefront/backend/internal/logger"
	"storefront/backend/internal/metrics"
	"storefront/backend/internal/store"
)

// CachedCatalog serves combo definitions from a ComboCache and everything else
// from the underlying catalog. A failing cache degrades to direct reads.
type CachedCatalog struct {
	store.CatalogReader
	cache   ComboCache
	ttl     time.Duration
	log     *logger.Logger
	metrics *metrics.SaleMetrics
}

func NewCachedCatalog(base store.CatalogReader, cache ComboCache, ttl time.Duration, log *logger.Logger, m *metrics.SaleMetrics) *CachedCatalog {
	if cache == nil {
		cache = NoopComboCache{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CachedCatalog{CatalogReader: base, cache: cache, ttl: ttl, log: log, metrics: m}
}

func (c *CachedCatalog) GetCombosByIDs(ctx context.Context, ids []string) (map[string]domain.Combo, error) {
	cached, err := c.cache.GetCombos(ctx, ids)
	if err != nil {
		c.log.Zerolog(ctx).Warn().Err(err).Strs("combo_ids", ids).Msg("combo cache read failed")
		cached = map[string]domain.Combo{}
	}

	result := make(map[string]domain.Combo, len(ids))
	misses := make([]string, 0, len(ids))
	for _, id := range ids {
		if combo, ok := cached[id]; ok {
			result[id] = combo
			c.metrics.IncCacheLookup(true)
			continue
		}
		misses = append(misses, id)
		c.metrics.IncCacheLookup(false)
	}
	if len(misses) == 0 {
		return result, nil
	}

	loaded, err := c.CatalogReader.GetCombosByIDs(ctx, misses)
	if err != nil {
		return nil, err
	}
	for id, combo := range loaded {
		result[id] = combo
	}
	if err := c.cache.SetCombos(ctx, loaded, c.ttl); err != nil {
		c.log.Error(ctx, "combo cache write failed", err)
	}
	return result, nil
}

// Invalidate drops cached definitions after a combo is changed.
func (c *CachedCatalog) Invalidate(ctx context.Context, ids ...string) error {
	return c.cache.DeleteCombos(ctx, ids...)
}
