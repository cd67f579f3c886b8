package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/kevin07696/billing-orchestrator/internal/adapters/portone"
	"github.com/kevin07696/billing-orchestrator/internal/adapters/postgres"
	redisadapter "github.com/kevin07696/billing-orchestrator/internal/adapters/redis"
	"github.com/kevin07696/billing-orchestrator/internal/adapters/secrets"
	"github.com/kevin07696/billing-orchestrator/internal/config"
	"github.com/kevin07696/billing-orchestrator/internal/domain/ports"
	paymentHandler "github.com/kevin07696/billing-orchestrator/internal/handlers/payment"
	subscriptionHandler "github.com/kevin07696/billing-orchestrator/internal/handlers/subscription"
	webhookHandler "github.com/kevin07696/billing-orchestrator/internal/handlers/webhook"
	"github.com/kevin07696/billing-orchestrator/internal/services/billing"
	paymentService "github.com/kevin07696/billing-orchestrator/internal/services/payment"
	pkghttp "github.com/kevin07696/billing-orchestrator/pkg/http"
	"github.com/kevin07696/billing-orchestrator/pkg/middleware"
	"github.com/kevin07696/billing-orchestrator/pkg/observability"
	"github.com/kevin07696/billing-orchestrator/pkg/resilience"
	"github.com/kevin07696/billing-orchestrator/pkg/shutdown"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Logger)
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Billing orchestrator stopped with error", zap.Error(err))
	}
	logger.Info("Billing orchestrator stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting billing orchestrator",
		zap.Int("port", cfg.Server.Port),
		zap.Int("metrics_port", cfg.Server.MetricsPort),
		zap.String("portone_base_url", cfg.PortOne.BaseURL),
		zap.String("secrets_backend", cfg.Secrets.Backend),
		zap.Bool("delivery_guard", cfg.Redis.URL != ""),
	)

	timeouts := &resilience.TimeoutConfig{
		HTTPWrite:    cfg.Billing.EventTimeout + 10*time.Second,
		Event:        cfg.Billing.EventTimeout,
		ProviderCall: cfg.PortOne.Timeout,
		Database:     resilience.DefaultTimeoutConfig().Database,
	}
	if err := timeouts.Validate(); err != nil {
		return fmt.Errorf("timeouts: %w", err)
	}

	apiSecret, err := resolveAPISecret(ctx, cfg, logger)
	if err != nil {
		return err
	}

	sm := shutdown.NewManager(logger, cfg.Server.ShutdownTimeout)

	dbPool, err := initDatabase(ctx, cfg, timeouts)
	if err != nil {
		return err
	}
	sm.RegisterNoErr("database", dbPool.Close)
	logger.Info("Database connection established", zap.String("database", cfg.Database.Database))

	ledger := postgres.NewLedgerRepository(dbPool, logger)

	breakerCfg := portone.DefaultCircuitBreakerConfig()
	breakerCfg.MaxFailures = uint32(cfg.PortOne.BreakerMaxFailures)
	breakerCfg.Timeout = cfg.PortOne.BreakerTimeout
	breakerCfg.IsFailure = portone.IsBreakerFailure

	gateway := portone.NewPaymentAdapter(
		portone.Config{
			BaseURL:    cfg.PortOne.BaseURL,
			APISecret:  apiSecret,
			StoreID:    cfg.PortOne.StoreID,
			Timeout:    cfg.PortOne.Timeout,
			MaxRetries: cfg.PortOne.MaxRetries,
		},
		pkghttp.NewHTTPClient(pkghttp.ProviderClientConfig(), cfg.PortOne.Timeout),
		portone.NewCircuitBreaker(breakerCfg),
		logger,
	)

	healthChecker := observability.NewHealthChecker(dbPool)

	var guard ports.DeliveryGuard
	if cfg.Redis.URL != "" {
		client, err := redisadapter.NewClient(cfg.Redis.URL)
		if err != nil {
			return err
		}
		sm.RegisterCloser("redis", client)

		redisGuard := redisadapter.NewDeliveryGuard(client, redisadapter.GuardConfig{
			InFlightTTL: cfg.Billing.InFlightTTL,
			DoneTTL:     cfg.Billing.DeliveryDoneTTL,
		}, logger)
		healthChecker.WithCheck("redis", redisGuard)
		guard = redisGuard
	}

	billingSvc := billing.NewService(ledger, gateway, guard, billing.Config{
		Timeout:       timeouts.Event,
		BillingPeriod: cfg.Billing.Period(),
	}, logger)
	paymentSvc := paymentService.NewService(gateway, logger)

	tracker := shutdown.NewInFlightTracker("http", logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.SecurityHeaders(cfg.Logger.Development))
	r.Use(observability.HTTPMetrics)
	r.Use(tracker.Middleware)
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, logger)
		sm.RegisterNoErr("rate_limiter", limiter.Shutdown)
		r.Use(limiter.Middleware)
	}

	webhookHandler.NewPortOneHandler(billingSvc, logger).RegisterRoutes(r)
	paymentHandler.NewHandler(paymentSvc, logger).RegisterRoutes(r)
	subscriptionHandler.NewHandler(billingSvc, logger).RegisterRoutes(r)
	r.Get("/healthz", healthChecker.HealthHandler())

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           otelhttp.NewHandler(r, "billing-orchestrator"),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      timeouts.HTTPWrite,
		IdleTimeout:       60 * time.Second,
	}
	metricsServer := observability.NewMetricsServer(
		net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.MetricsPort)),
		healthChecker,
	)

	// Shutdown runs in reverse registration order
	sm.Register("metrics_server", metricsServer.Shutdown)
	sm.Register("http_server", httpServer.Shutdown)
	sm.Register("inflight_requests", tracker.Shutdown)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("Metrics server listening", zap.String("address", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		if errs := sm.Shutdown(); len(errs) > 0 {
			return fmt.Errorf("shutdown: %d components failed", len(errs))
		}
		return nil
	})

	return g.Wait()
}

func initLogger(cfg config.LoggerConfig) *zap.Logger {
	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if level, err := zapcore.ParseLevel(cfg.Level); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := zapCfg.Build()
	if err != nil {
		return zap.NewExample()
	}
	return logger
}

// resolveAPISecret prefers PORTONE_API_SECRET and otherwise reads the
// configured secret backend
func resolveAPISecret(ctx context.Context, cfg *config.Config, logger *zap.Logger) (string, error) {
	if cfg.PortOne.APISecret != "" {
		return cfg.PortOne.APISecret, nil
	}

	store, err := secrets.NewSecretStore(ctx, secrets.Config{
		Backend:    cfg.Secrets.Backend,
		Region:     cfg.Secrets.Region,
		Endpoint:   cfg.Secrets.Endpoint,
		VaultAddr:  cfg.Secrets.VaultAddr,
		VaultToken: cfg.Secrets.VaultToken,
		VaultMount: cfg.Secrets.VaultMount,
		LocalDir:   cfg.Secrets.LocalDir,
		CacheTTL:   cfg.Secrets.CacheTTL,
	}, logger)
	if err != nil {
		return "", fmt.Errorf("init secret store: %w", err)
	}

	secret, err := secrets.Resolve(ctx, store, cfg.Secrets.Path)
	if err != nil {
		return "", fmt.Errorf("resolve portone api secret: %w", err)
	}
	return secret, nil
}

func initDatabase(ctx context.Context, cfg *config.Config, timeouts *resilience.TimeoutConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := timeouts.DatabaseContext(ctx)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}
