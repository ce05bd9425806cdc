package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"storefront/backend/internal/domain"
)

const comboKeyPrefix = "storefront:combo:v1:"

func comboKey(id string) string {
	return comboKeyPrefix + id
}

type RedisComboCache struct {
	client *redis.Client
}

func NewRedisComboCache(addr string, password string, db int) *RedisComboCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisComboCache{client: client}
}

func (c *RedisComboCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisComboCache) Close() error {
	return c.client.Close()
}

// GetCombos fetches every id with one MGET. Ids not cached are absent from
// the result.
func (c *RedisComboCache) GetCombos(ctx context.Context, ids []string) (map[string]domain.Combo, error) {
	found := make(map[string]domain.Combo, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = comboKey(id)
	}
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	for i, val := range values {
		raw, ok := val.(string)
		if !ok {
			continue
		}
		var combo domain.Combo
		if err := json.Unmarshal([]byte(raw), &combo); err != nil {
			return nil, fmt.Errorf("decode combo %s: %w", ids[i], err)
		}
		for j := range combo.Items {
			combo.Items[j].ComboID = combo.ID
		}
		found[ids[i]] = combo
	}
	return found, nil
}

func (c *RedisComboCache) SetCombos(ctx context.Context, combos map[string]domain.Combo, ttl time.Duration) error {
	if len(combos) == 0 {
		return nil
	}
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for id, combo := range combos {
			payload, err := json.Marshal(combo)
			if err != nil {
				return err
			}
			pipe.Set(ctx, comboKey(id), payload, ttl)
		}
		return nil
	})
	return err
}

func (c *RedisComboCache) DeleteCombos(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = comboKey(id)
	}
	return c.client.Del(ctx, keys...).Err()
}
