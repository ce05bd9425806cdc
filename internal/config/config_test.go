package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/backend/internal/store"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	unsetEnv(t, "LINE_COLUMNS", "COMBO_CACHE_TTL", "ACCESS_TOKEN_TTL", "DEFAULT_CURRENCY")
	t.Setenv("AUTH_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Auth.Secret)
}

// unsetEnv clears keys for the test and restores them afterwards.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadDefaults(t *testing.T) {
	unsetEnv(t, "PORT", "DATABASE_DRIVER", "DATABASE_URL", "LINE_COLUMNS", "COMBO_CACHE_TTL", "ACCESS_TOKEN_TTL", "DEFAULT_CURRENCY", "REDIS_ADDR")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Address())
	assert.Equal(t, "pgx", cfg.DB.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Redis.ComboTTL)
	assert.Equal(t, 8*time.Hour, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, "IDR", cfg.Sales.DefaultCurrency)

	_, fixed, err := cfg.DB.FixedLineColumns()
	require.NoError(t, err)
	assert.False(t, fixed)
}

func TestLoadReadsOverrides(t *testing.T) {
	unsetEnv(t, "ACCESS_TOKEN_TTL")
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_DRIVER", " SQLite ")
	t.Setenv("LINE_COLUMNS", "without_totals")
	t.Setenv("COMBO_CACHE_TTL", "30s")
	t.Setenv("DEFAULT_CURRENCY", "usd")
	t.Setenv("AUTH_SECRET", "  secret-with-spaces  ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Address())
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.Equal(t, 30*time.Second, cfg.Redis.ComboTTL)
	assert.Equal(t, "USD", cfg.Sales.DefaultCurrency)
	assert.Equal(t, "secret-with-spaces", cfg.Auth.Secret)

	columns, fixed, err := cfg.DB.FixedLineColumns()
	require.NoError(t, err)
	assert.True(t, fixed)
	assert.Equal(t, store.ColumnsWithoutTotals, columns)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	unsetEnv(t, "ACCESS_TOKEN_TTL", "DEFAULT_CURRENCY")
	t.Setenv("LINE_COLUMNS", "some")
	_, err := Load()
	assert.ErrorContains(t, err, "LINE_COLUMNS")

	t.Setenv("LINE_COLUMNS", "auto")
	t.Setenv("COMBO_CACHE_TTL", "0s")
	_, err = Load()
	assert.ErrorContains(t, err, "COMBO_CACHE_TTL")

	t.Setenv("COMBO_CACHE_TTL", "1m")
	t.Setenv("DEFAULT_CURRENCY", "RUPIAH")
	_, err = Load()
	assert.ErrorContains(t, err, "DEFAULT_CURRENCY")
}
