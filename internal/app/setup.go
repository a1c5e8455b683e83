package app

import (
	"context"
	"fmt"

	"github.com/acastellana/prediction-agent/internal/analysis"
	"github.com/acastellana/prediction-agent/internal/auditlog"
	"github.com/acastellana/prediction-agent/internal/ledger"
	"github.com/acastellana/prediction-agent/internal/marketdata"
	"github.com/acastellana/prediction-agent/internal/resolver"
	"github.com/acastellana/prediction-agent/internal/scheduler"
	"github.com/acastellana/prediction-agent/internal/strategy"
	"github.com/acastellana/prediction-agent/internal/trading"
	"github.com/acastellana/prediction-agent/pkg/cache"
	"github.com/acastellana/prediction-agent/pkg/clock"
	"github.com/acastellana/prediction-agent/pkg/config"
	"github.com/acastellana/prediction-agent/pkg/healthprobe"
	"github.com/acastellana/prediction-agent/pkg/httpserver"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())

	healthChecker := setupHealthChecker()

	// Setup cache
	marketCache, err := setupCache(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup cache: %w", err)
	}

	provider := setupProvider(cfg, logger, marketCache)

	// Setup ledger
	store, err := setupStore(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup ledger: %w", err)
	}

	// Setup audit log
	audit, err := setupAudit(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup audit log: %w", err)
	}

	clk := clock.System()
	registry := strategy.Default()

	engine := setupEngine(cfg, logger, store, audit, clk)
	scanner := trading.NewScanner(provider, registry, engine, cfg.ScanMarketLimit, logger)
	reporter := analysis.NewReporter(store, clk, logger)
	tradeResolver := resolver.New(store, provider, audit, clk, logger)

	// Setup scheduler (recurring scan and resolution sweeps)
	sched, err := setupScheduler(cfg, logger, scanner, tradeResolver)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup scheduler: %w", err)
	}

	httpServer := setupHTTPServer(cfg, logger, healthChecker, store, audit, clk,
		engine, scanner, registry, reporter, tradeResolver)

	return &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: healthChecker,
		httpServer:    httpServer,
		store:         store,
		audit:         audit,
		marketCache:   marketCache,
		provider:      provider,
		registry:      registry,
		engine:        engine,
		scanner:       scanner,
		reporter:      reporter,
		resolver:      tradeResolver,
		sched:         sched,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

func setupHealthChecker() *healthprobe.HealthChecker {
	return healthprobe.New()
}

func setupCache(cfg *config.Config, logger *zap.Logger) (cache.Cache, error) {
	return cache.NewRistrettoCache(&cache.RistrettoConfig{
		NumCounters: int64(cfg.CacheMaxItems) * 10, // 10x expected max items
		MaxCost:     int64(cfg.CacheMaxItems),
		BufferItems: 64, // Buffer size for Get operations
		Logger:      logger,
	})
}

func setupProvider(cfg *config.Config, logger *zap.Logger, marketCache cache.Cache) marketdata.Provider {
	client := marketdata.NewClient(cfg.PolymarketGammaURL, logger)
	gamma := marketdata.NewGammaProvider(client)
	return marketdata.NewCachedProvider(gamma, marketCache, cfg.CacheTTL)
}

func setupStore(cfg *config.Config, logger *zap.Logger) (ledger.Store, error) {
	if cfg.StorageMode == "postgres" {
		pgStore, err := ledger.NewPostgresStore(&ledger.PostgresConfig{
			Host:     cfg.PostgresHost,
			Port:     cfg.PostgresPort,
			User:     cfg.PostgresUser,
			Password: cfg.PostgresPass,
			Database: cfg.PostgresDB,
			SSLMode:  cfg.PostgresSSL,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create postgres store: %w", err)
		}
		return pgStore, nil
	}

	return ledger.NewMemoryStore(), nil
}

func setupAudit(cfg *config.Config, logger *zap.Logger) (auditlog.Sink, error) {
	if cfg.TradeLogPath == "" {
		return auditlog.NopSink{}, nil
	}
	return auditlog.NewFileSink(cfg.TradeLogPath, logger)
}

func setupEngine(
	cfg *config.Config,
	logger *zap.Logger,
	store ledger.Store,
	audit auditlog.Sink,
	clk clock.Clock,
) *trading.Engine {
	riskCfg := trading.RiskConfig{
		MaxPositionSize:       cfg.MaxPositionSize,
		MaxTotalExposure:      cfg.MaxTotalExposure,
		MaxDailyVolume:        cfg.MaxDailyVolume,
		MaxPositionsPerMarket: cfg.MaxPositionsPerMarket,
	}

	risk := trading.NewRiskManager(riskCfg)
	positions := trading.NewPositionManager(store, riskCfg, clk)

	var executor trading.Executor
	if cfg.PaperTrading {
		executor = trading.NewPaperExecutor(store, audit, clk, logger)
	} else {
		executor = trading.NewLiveExecutor(logger)
	}

	return trading.NewEngine(risk, positions, executor, cfg.PaperTrading, logger)
}

func setupScheduler(
	cfg *config.Config,
	logger *zap.Logger,
	scanner *trading.Scanner,
	tradeResolver *resolver.Resolver,
) (*scheduler.Scheduler, error) {
	sched := scheduler.New(logger)

	err := sched.AddInterval("market-scan", cfg.ScanInterval, func(ctx context.Context) error {
		_, err := scanner.Scan(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("schedule market scan: %w", err)
	}

	err = sched.AddInterval("resolution-sweep", cfg.ResolveInterval, func(ctx context.Context) error {
		_, err := tradeResolver.Sweep(ctx, false)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("schedule resolution sweep: %w", err)
	}

	return sched, nil
}

func setupHTTPServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthChecker *healthprobe.HealthChecker,
	store ledger.Store,
	audit auditlog.Sink,
	clk clock.Clock,
	engine *trading.Engine,
	scanner *trading.Scanner,
	registry *strategy.Registry,
	reporter *analysis.Reporter,
	tradeResolver *resolver.Resolver,
) *httpserver.Server {
	return httpserver.New(&httpserver.Config{
		Port:          cfg.HTTPPort,
		Logger:        logger,
		HealthChecker: healthChecker,
		Store:         store,
		Audit:         audit,
		Clock:         clk,
		Engine:        engine,
		Scanner:       scanner,
		Registry:      registry,
		Reporter:      reporter,
		Resolver:      tradeResolver,
	})
}
