package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storefront/backend/internal/cache"
	"storefront/backend/internal/config"
	"storefront/backend/internal/fulfillment"
	"storefront/backend/internal/httpapi"
	"storefront/backend/internal/logger"
	"storefront/backend/internal/metrics"
	"storefront/backend/internal/service"
	"storefront/backend/internal/store"
	"storefront/backend/internal/store/memory"
	"storefront/backend/internal/store/sqlstore"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logg := logger.New(logger.Options{
		ServiceName: "storefront-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})
	ctx := context.Background()

	requireResource(ctx, logg, "security config", validateSecurityConfig(cfg))

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	be, err := openBackend(startCtx, cfg, logg)
	requireResource(ctx, logg, "repository", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	saleMetrics := metrics.NewSaleMetrics(registry)

	catalog := store.CatalogReader(be.repo)
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisComboCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := redisCache.Ping(startCtx); err != nil {
			logg.Error(ctx, "redis unavailable, combo cache disabled", err)
			_ = redisCache.Close()
		} else {
			catalog = cache.NewCachedCatalog(be.repo, redisCache, cfg.Redis.ComboTTL, logg, saleMetrics)
			be.closers = append(be.closers, redisCache.Close)
			logg.Info(ctx, "combo cache: redis")
		}
	}

	opts := []fulfillment.Option{
		fulfillment.WithLogger(logg),
		fulfillment.WithMetrics(saleMetrics),
		fulfillment.WithDefaultCurrency(cfg.Sales.DefaultCurrency),
	}
	for table, columns := range be.lineColumns {
		opts = append(opts, fulfillment.WithLineColumns(table, columns))
	}
	engine := fulfillment.New(catalog, be.repo, be.repo, opts...)

	svc := service.New(be.repo, engine, logg)
	auth := httpapi.NewAuthManager(startCtx, cfg.Auth.Secret, cfg.Auth.AccessTokenTTL, be.repo, logg)
	api := httpapi.New(svc, auth, logg, httpapi.Options{
		AllowedOrigin: cfg.App.AllowedOrigin,
		Metrics:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logg.Info(logg.WithField(ctx, "addr", cfg.Address()), "storefront backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			requireResource(ctx, logg, "http server", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "shutdown error", err)
	}

	for _, closeFn := range be.closers {
		if err := closeFn(); err != nil {
			logg.Error(ctx, "close error", err)
		}
	}

	logg.Info(ctx, "server stopped")
}

type backend struct {
	repo        store.Repository
	lineColumns map[store.LineTable]store.ColumnSet
	closers     []func() error
}

// openBackend picks the repository: in-memory when DATABASE_URL is empty,
// otherwise the SQL store for DATABASE_DRIVER. Line columns come from
// LINE_COLUMNS, or from the schema when it is "auto".
func openBackend(ctx context.Context, cfg config.Config, logg *logger.Logger) (*backend, error) {
	fixed, fixedOK, err := cfg.DB.FixedLineColumns()
	if err != nil {
		return nil, err
	}

	if cfg.DB.URL == "" {
		logg.Info(ctx, "repository: in-memory")
		b := &backend{repo: memory.NewSeeded()}
		if fixedOK {
			b.lineColumns = bothTables(fixed)
		}
		return b, nil
	}

	dialect, err := sqlstore.ParseDialect(cfg.DB.Driver)
	if err != nil {
		return nil, err
	}
	db, err := sqlstore.Open(ctx, dialect, cfg.DB.URL)
	if err != nil {
		return nil, fmt.Errorf("%s unavailable and DATABASE_URL is set; refusing to start with in-memory fallback: %w", dialect, err)
	}
	b := &backend{repo: db, closers: []func() error{db.Close}}

	if cfg.DB.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		logg.Info(ctx, "migrations applied")
	}

	if fixedOK {
		b.lineColumns = bothTables(fixed)
	} else {
		probed, err := db.ProbeLineColumns(ctx)
		if err != nil {
			logg.Error(ctx, "line column probe failed, starting from full column set", err)
		} else {
			b.lineColumns = probed
		}
	}

	logg.Info(logg.WithField(ctx, "dialect", string(dialect)), "repository: sql")
	return b, nil
}

func bothTables(columns store.ColumnSet) map[store.LineTable]store.ColumnSet {
	return map[store.LineTable]store.ColumnSet{
		store.ProductLineTable: columns,
		store.ComboLineTable:   columns,
	}
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.Auth.Secret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	return nil
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
