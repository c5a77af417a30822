package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kgcashflow/cashflow-backend/api/routes"
	"github.com/kgcashflow/cashflow-backend/internal/bills"
	"github.com/kgcashflow/cashflow-backend/internal/incomes"
	"github.com/kgcashflow/cashflow-backend/internal/ledger"
	"github.com/kgcashflow/cashflow-backend/internal/summary"
	"github.com/kgcashflow/cashflow-backend/pkg/config"
	"github.com/kgcashflow/cashflow-backend/pkg/db"
	"github.com/kgcashflow/cashflow-backend/pkg/instance"
	"github.com/kgcashflow/cashflow-backend/pkg/logger"
	"github.com/kgcashflow/cashflow-backend/pkg/metrics"
	"github.com/kgcashflow/cashflow-backend/pkg/migrate"
	"github.com/kgcashflow/cashflow-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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
		Format:      cfg.App.LogFormat,
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	conn := dbClient.DB()
	incomeRepo := incomes.NewRepository(conn)
	billRepo := bills.NewRepository(conn)

	incomeService, err := incomes.NewService(incomeRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create income service", err)
		os.Exit(1)
	}
	billService, err := bills.NewService(billRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create bill service", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(
		ledger.NewRepository(conn),
		incomeRepo,
		billRepo,
		dbClient.WithLockTimeout(cfg.Ledger.LockTimeout),
		logg,
		metrics.NewLedgerMetrics(prometheus.DefaultRegisterer),
		ledger.OptionsFromConfig(cfg.Ledger),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	summaryService, err := summary.NewService(summary.NewRepository(conn), redisClient, cfg.Summary.CacheTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create summary service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:           cfg,
			Logger:           logg,
			DB:               dbClient,
			Redis:            redisClient,
			IdempotencyStore: redisClient,
			RateLimiter:      redisClient,
			Gatherer:         prometheus.DefaultGatherer,
			Incomes:          incomeService,
			Bills:            billService,
			Ledger:           ledgerService,
			Summary:          summaryService,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server shut down gracefully")
	}
}
