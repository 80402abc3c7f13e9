package main

import (
	"context"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gstbill-io/gstbill-backend/api/routes"
	"github.com/gstbill-io/gstbill-backend/internal/invoices"
	"github.com/gstbill-io/gstbill-backend/internal/numbering"
	"github.com/gstbill-io/gstbill-backend/internal/orders"
	"github.com/gstbill-io/gstbill-backend/internal/pricing"
	"github.com/gstbill-io/gstbill-backend/internal/stock"
	"github.com/gstbill-io/gstbill-backend/pkg/config"
	"github.com/gstbill-io/gstbill-backend/pkg/db"
	"github.com/gstbill-io/gstbill-backend/pkg/logger"
	"github.com/gstbill-io/gstbill-backend/pkg/metrics"
	"github.com/gstbill-io/gstbill-backend/pkg/migrate"
	pkgredis "github.com/gstbill-io/gstbill-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	// Redis is optional; without it number allocation relies solely on
	// the unique index plus the retry loop.
	var redisClient *pkgredis.Client
	var redisPinger pkgredis.Pinger
	lockFactory := invoices.LockFactory(func(uuid.UUID) numbering.Lock {
		return numbering.NoopLock{}
	})
	if cfg.Redis.URL != "" {
		redisClient, err = pkgredis.New(context.Background(), cfg.Redis)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		redisPinger = redisClient

		lockTTL := cfg.Numbering.LockTTL
		lockFactory = func(tenantID uuid.UUID) numbering.Lock {
			lock, err := numbering.NewRedisLock(redisClient, redisClient.NumberingLockKey(tenantID.String()), lockTTL)
			if err != nil {
				return numbering.NoopLock{}
			}
			return lock
		}
	}

	registry := prometheus.NewRegistry()
	engineMetrics := metrics.NewEngineMetrics(registry)

	pricingService, err := pricing.NewService(pricing.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing service", err)
		os.Exit(1)
	}

	stockService, err := stock.NewService(dbClient, stock.NewRepository(dbClient.DB()), engineMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create stock service", err)
		os.Exit(1)
	}

	invoiceService, err := invoices.NewService(
		dbClient,
		invoices.NewRepository(dbClient.DB()),
		pricingService,
		stockService,
		invoices.Options{
			MaxNumberAttempts: cfg.Numbering.MaxAttempts,
			DueDays:           cfg.Invoicing.DueDays,
			LockFactory:       lockFactory,
			Metrics:           engineMetrics,
		},
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create invoice service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(
		dbClient,
		orders.NewRepository(dbClient.DB()),
		pricingService,
		orders.Options{
			MaxNumberAttempts: cfg.Numbering.MaxAttempts,
			DueDays:           cfg.Invoicing.DueDays,
			Metrics:           engineMetrics,
		},
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	router, err := routes.New(routes.Deps{
		Logg:     logg,
		DB:       dbClient,
		Redis:    redisPinger,
		Registry: registry,
		Invoices: invoiceService,
		Orders:   orderService,
		Stock:    stockService,
		Pricing:  pricingService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build router", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
