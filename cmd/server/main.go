package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appsettlement "github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/domain/shared/valueobject"
	"github.com/erp/settlement/internal/infrastructure/auth"
	"github.com/erp/settlement/internal/infrastructure/cache"
	"github.com/erp/settlement/internal/infrastructure/config"
	"github.com/erp/settlement/internal/infrastructure/event"
	"github.com/erp/settlement/internal/infrastructure/logger"
	"github.com/erp/settlement/internal/infrastructure/persistence"
	"github.com/erp/settlement/internal/infrastructure/persistence/memory"
	"github.com/erp/settlement/internal/infrastructure/storage"
	"github.com/erp/settlement/internal/infrastructure/telemetry"
	"github.com/erp/settlement/internal/interfaces/http/handler"
	"github.com/erp/settlement/internal/interfaces/http/middleware"
	"github.com/erp/settlement/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.FromAppConfig(cfg))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("Server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting settlement service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
		zap.String("database", cfg.Database.Driver),
	)

	// Telemetry
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.ConfigFrom(cfg.Telemetry), log)
	if err != nil {
		return fmt.Errorf("tracer provider: %w", err)
	}
	defer shutdown(log, "tracer provider", tp.Shutdown)

	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfigFrom(cfg.Telemetry), log)
	if err != nil {
		return fmt.Errorf("meter provider: %w", err)
	}
	defer shutdown(log, "meter provider", mp.Shutdown)

	// Storage
	var checks []handler.HealthCheck
	var scope appsettlement.TransactionScope
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn("Using in-memory store; data is lost on restart")
		scope = memory.NewStore()
	} else {
		gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
			logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
		db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("Error closing database", zap.Error(err))
			}
		}()
		if cfg.Database.Driver == config.DriverSQLite {
			if err := db.AutoMigrate(); err != nil {
				return fmt.Errorf("sqlite schema: %w", err)
			}
		}
		if err := telemetry.NewDBTracingPlugin(
			telemetry.DBTracingConfigFrom(cfg.Telemetry, cfg.Database.Driver), log,
		).Register(db.DB); err != nil {
			return fmt.Errorf("database tracing: %w", err)
		}
		dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, mp, telemetry.DBMetricsConfig{
			Enabled:            mp.IsEnabled(),
			SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
		}, log)
		if err != nil {
			return fmt.Errorf("database metrics: %w", err)
		}
		if dbMetrics != nil {
			defer dbMetrics.Stop()
		}
		log.Info("Database connected successfully")

		scope = persistence.NewGormTransactionScope(db.DB)
		checks = append(checks, handler.HealthCheck{
			Name:  "database",
			Check: func(context.Context) error { return db.Ping() },
		})
	}

	stores, err := cache.NewStoreFactory(cfg, cache.WithLogger(log)).Create(ctx)
	if err != nil {
		return fmt.Errorf("cache stores: %w", err)
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Error("Error closing cache stores", zap.Error(err))
		}
	}()
	var blacklist auth.TokenBlacklist = auth.NewInMemoryTokenBlacklist()
	if stores.Redis != nil {
		blacklist = auth.NewRedisTokenBlacklist(stores.Redis)
		checks = append(checks, handler.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return stores.Redis.Ping(ctx).Err() },
		})
	}

	// Application services
	opts, err := settlementOptions(cfg.Settlement)
	if err != nil {
		return err
	}
	orchestrator := appsettlement.NewApprovalOrchestrator(scope, log)
	ledger := appsettlement.NewLedgerPoster(stores.Rates, opts, log)
	billService := appsettlement.NewBillService(scope, orchestrator, ledger, log)
	requestService := appsettlement.NewRequestService(scope, orchestrator, ledger, log)
	entryService := appsettlement.NewPendingEntryService(scope, orchestrator, ledger, log)
	rebateService := appsettlement.NewRebateService(scope, log)
	accountService := appsettlement.NewAccountService(scope, ledger, stores.Rates, opts, log)
	agencyService := appsettlement.NewAgencyService(scope, log)

	if cfg.Storage.Enabled {
		vouchers, err := storage.NewS3VoucherStore(ctx, &cfg.Storage, storage.WithLogger(log))
		if err != nil {
			return fmt.Errorf("voucher storage: %w", err)
		}
		billService.SetVoucherVerifier(vouchers)
		requestService.SetVoucherVerifier(vouchers)
		log.Info("Voucher verification enabled", zap.String("bucket", vouchers.GetBucket()))
	}

	// Event bus
	bus := event.NewInMemoryEventBus(log)
	subs := []event.Subscription{
		{Name: "rebate_accrual", Handler: appsettlement.NewRebateAccrualHandler(scope, opts, log), Idempotent: true},
		{Name: "audit", Handler: appsettlement.NewAuditLogHandler(log)},
	}
	if mp.IsEnabled() {
		metrics, err := telemetry.NewSettlementMetrics(telemetry.SettlementMetricsConfig{
			Meter:  mp.Meter("settlement"),
			Logger: log,
		})
		if err != nil {
			return fmt.Errorf("settlement metrics: %w", err)
		}
		defer metrics.Stop()
		if err := metrics.ObserveHandlerFailures(bus); err != nil {
			return fmt.Errorf("settlement metrics: %w", err)
		}
		subs = append(subs, event.Subscription{Name: "metrics", Handler: appsettlement.NewMetricsHandler(metrics)})
	}
	handlerStats := event.RegisterHandlers(bus, stores.Idempotency, cfg.Event.IdempotencyTTL, log, subs...)
	if err := bus.Start(ctx); err != nil {
		return fmt.Errorf("event bus: %w", err)
	}
	defer shutdown(log, "event bus", bus.Stop)
	defer func() {
		stats := handlerStats.Stats()
		log.Info("Idempotent handler totals",
			zap.Int64("processed", stats.Processed),
			zap.Int64("duplicates", stats.Duplicates),
			zap.Int64("failed", stats.Failed),
		)
	}()

	billService.SetEventPublisher(bus)
	requestService.SetEventPublisher(bus)
	entryService.SetEventPublisher(bus)

	// HTTP
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	jwtService := auth.NewJWTService(cfg.JWT)
	jwtCfg := middleware.DefaultJWTConfig(jwtService)
	jwtCfg.TokenBlacklist = blacklist
	jwtCfg.Logger = log

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	engine, err := router.NewEngine(router.EngineConfig{
		Logger: log,
		JWT:    jwtCfg,
		CORS:   corsCfg,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     tp.IsEnabled(),
		},
		Meter:          mp.Meter("http.server"),
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	}, router.Handlers{
		Bills:          handler.NewBillHandler(billService),
		Requests:       handler.NewRequestHandler(requestService),
		Rebates:        handler.NewRebateHandler(rebateService),
		PendingEntries: handler.NewPendingEntryHandler(entryService),
		Accounts:       handler.NewAccountHandler(accountService),
		Agencies:       handler.NewAgencyHandler(agencyService),
		Auth:           handler.NewAuthHandler(blacklist, log),
		System:         handler.NewSystemHandler(cfg.App.Name, version, checks...),
	})
	if err != nil {
		return fmt.Errorf("http engine: %w", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           engine,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info("Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("Server exited gracefully")
	return nil
}

func settlementOptions(cfg config.SettlementConfig) (appsettlement.Options, error) {
	opts := appsettlement.DefaultOptions()
	if cfg.BaseCurrency != "" {
		currency, err := valueobject.ParseCurrency(cfg.BaseCurrency)
		if err != nil {
			return opts, fmt.Errorf("settlement.base_currency: %w", err)
		}
		opts.BaseCurrency = currency
	}
	if cfg.RebatePlaces > 0 {
		opts.RebatePlaces = cfg.RebatePlaces
	}
	return opts, nil
}

// shutdown runs a deferred stop function with its own deadline
func shutdown(log *zap.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Error("Error shutting down "+name, zap.Error(err))
	}
}
