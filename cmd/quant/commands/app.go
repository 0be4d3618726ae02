package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/aegis-momentum/internal/backtest"
	"github.com/wonny/aegis-momentum/internal/batchconfig"
	"github.com/wonny/aegis-momentum/internal/contracts"
	"github.com/wonny/aegis-momentum/internal/external/cached"
	"github.com/wonny/aegis-momentum/internal/external/naver"
	"github.com/wonny/aegis-momentum/internal/external/yahoo"
	"github.com/wonny/aegis-momentum/internal/factors"
	"github.com/wonny/aegis-momentum/internal/fetcher"
	"github.com/wonny/aegis-momentum/internal/lookback"
	"github.com/wonny/aegis-momentum/internal/metrics"
	"github.com/wonny/aegis-momentum/internal/selection"
	"github.com/wonny/aegis-momentum/internal/store"
	"github.com/wonny/aegis-momentum/pkg/config"
	"github.com/wonny/aegis-momentum/pkg/database"
	"github.com/wonny/aegis-momentum/pkg/httputil"
	"github.com/wonny/aegis-momentum/pkg/logger"
	"github.com/wonny/aegis-momentum/pkg/redis"
)

// app holds the wired engine shared by every command
type app struct {
	cfg          *config.Config
	log          *logger.Logger
	metrics      *metrics.Metrics
	resolver     *lookback.Resolver
	runner       *backtest.Runner
	orchestrator *backtest.Orchestrator
	store        *store.Repository // nil without DATABASE_URL
	provider     contracts.MarketDataProvider

	redis *redis.Client
	db    *database.DB
}

// appOptions selects optional infrastructure
type appOptions struct {
	useStore bool
}

// newApp loads config and wires provider → fetcher → runner → orchestrator
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	a := &app{cfg: cfg, log: log}
	if cfg.MetricsEnabled {
		a.metrics = metrics.New()
	}

	// 3. Market data provider (+ Redis cache)
	httpClient := httputil.New(log, cfg.Engine.FetchTimeout).WithRateLimit(cfg.Provider.RateLimit)

	var provider contracts.MarketDataProvider
	switch cfg.Provider.Name {
	case "naver":
		provider = naver.NewClient(httpClient, log, cfg.Provider.NaverBaseURL, "")
	default:
		provider = yahoo.NewClient(httpClient, log, cfg.Provider.YahooBaseURL)
	}

	a.redis, err = redis.New(ctx, cfg.Redis)
	if err != nil {
		// 캐시는 선택 사항
		log.WithError(err).Warn("Redis unavailable, continuing without frame cache")
		a.redis, _ = redis.New(ctx, config.RedisConfig{})
	}
	if a.redis.Enabled() {
		provider = cached.NewProvider(provider, a.redis, cfg.Redis.CacheTTL, log)
	}

	// 4. Engine components
	a.provider = provider
	a.resolver = lookback.NewResolver()
	a.useWeights(factors.DefaultWeights())

	// 5. Optional outcome store
	if opts.useStore {
		if err := a.openStore(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	log.WithFields(map[string]interface{}{
		"provider": provider.Name(),
		"cache":    a.redis.Enabled(),
		"store":    a.store != nil,
		"workers":  cfg.Engine.Workers,
	}).Debug("Engine wired")

	return a, nil
}

// useWeights rebuilds the scoring pipeline with the given composite weights
func (a *app) useWeights(weights factors.Weights) {
	cfg := a.cfg
	engine := factors.NewEngineWithWeights(weights, a.log)

	f := fetcher.New(a.provider, engine, fetcher.Config{
		MaxAttempts:       cfg.Engine.MaxAttempts,
		RequestTimeout:    cfg.Engine.FetchTimeout,
		MinRecords:        cfg.Engine.MinRecords,
		LongWindowMinBars: cfg.Engine.LongWindowMinBars,
		StrictValidation:  cfg.Engine.StrictValidation,
	}, a.log, a.metrics)

	a.runner = backtest.NewRunner(
		a.resolver,
		fetcher.NewCoordinator(f, a.log),
		engine,
		selection.NewSelector(a.log),
		backtest.RunnerConfig{
			DefaultTopN:    cfg.Engine.DefaultTopN,
			DefaultWorkers: cfg.Engine.Workers,
		},
		a.log,
		a.metrics,
	)
	a.orchestrator = backtest.NewOrchestrator(a.runner, cfg.Engine.BestPeriodsK, a.log, a.metrics)
}

// loadBatch reads path, then BATCH_CONFIG, then the built-in batch,
// and switches the engine to the batch weights
func (a *app) loadBatch(path string) (*batchconfig.Config, error) {
	if path == "" {
		path = a.cfg.BatchConfigPath
	}
	batch, err := batchconfig.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("load batch config: %w", err)
	}
	a.useWeights(batch.EffectiveWeights())
	return batch, nil
}

// openStore connects to PostgreSQL; a missing DATABASE_URL leaves the store nil
func (a *app) openStore(ctx context.Context) error {
	db, err := database.New(ctx, a.cfg.Database)
	if errors.Is(err, database.ErrNotConfigured) {
		a.log.Info("DATABASE_URL not set, batches will not be persisted")
		return nil
	}
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	repo := store.NewRepository(db.Pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return err
	}

	a.db = db
	a.store = repo
	a.log.Info("Connected to database")
	return nil
}

// Close releases connections
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
