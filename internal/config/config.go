package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"storefront/backend/internal/store"
)

const lineColumnsAuto = "auto"

type Config struct {
	App   AppConfig
	DB    DBConfig
	Redis RedisConfig
	Auth  AuthConfig
	Sales SalesConfig
}

type AppConfig struct {
	Port          string `envconfig:"PORT" default:"8080"`
	AllowedOrigin string `envconfig:"ALLOWED_ORIGIN" default:"http://127.0.0.1:3000"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat     string `envconfig:"LOG_FORMAT" default:"json"`
}

type DBConfig struct {
	Driver      string `envconfig:"DATABASE_DRIVER" default:"pgx"`
	URL         string `envconfig:"DATABASE_URL"`
	AutoMigrate bool   `envconfig:"AUTO_MIGRATE" default:"false"`
	LineColumns string `envconfig:"LINE_COLUMNS" default:"auto"`
}

type RedisConfig struct {
	Addr     string        `envconfig:"REDIS_ADDR"`
	Password string        `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	ComboTTL time.Duration `envconfig:"COMBO_CACHE_TTL" default:"5m"`
}

type AuthConfig struct {
	Secret         string        `envconfig:"AUTH_SECRET"`
	AccessTokenTTL time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"8h"`
}

type SalesConfig struct {
	DefaultCurrency string `envconfig:"DEFAULT_CURRENCY" default:"IDR"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Auth.Secret = strings.TrimSpace(cfg.Auth.Secret)
	cfg.DB.URL = strings.TrimSpace(cfg.DB.URL)
	cfg.DB.Driver = strings.ToLower(strings.TrimSpace(cfg.DB.Driver))
	cfg.Sales.DefaultCurrency = strings.ToUpper(strings.TrimSpace(cfg.Sales.DefaultCurrency))

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if _, _, err := c.DB.FixedLineColumns(); err != nil {
		return err
	}
	if c.Redis.ComboTTL <= 0 {
		return fmt.Errorf("COMBO_CACHE_TTL must be positive")
	}
	if c.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be positive")
	}
	if len(c.Sales.DefaultCurrency) != 3 {
		return fmt.Errorf("DEFAULT_CURRENCY must be a three letter code, got %q", c.Sales.DefaultCurrency)
	}
	return nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.App.Port)
}

// FixedLineColumns reports the configured line column set. ok is false when
// the set should be probed from the database.
func (c DBConfig) FixedLineColumns() (columns store.ColumnSet, ok bool, err error) {
	value := strings.ToLower(strings.TrimSpace(c.LineColumns))
	if value == "" || value == lineColumnsAuto {
		return store.ColumnsFull, false, nil
	}
	columns, err = store.ParseColumnSet(value)
	if err != nil {
		return store.ColumnsFull, false, fmt.Errorf("LINE_COLUMNS: %w", err)
	}
	return columns, true, nil
}
