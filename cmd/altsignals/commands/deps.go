package commands

import (
	"fmt"
	"os"

	"github.com/wonny/altsignals/internal/backtest"
	"github.com/wonny/altsignals/internal/contracts"
	"github.com/wonny/altsignals/internal/data/repos"
	"github.com/wonny/altsignals/internal/external/appstore"
	"github.com/wonny/altsignals/internal/external/careers"
	"github.com/wonny/altsignals/internal/external/edgar"
	"github.com/wonny/altsignals/internal/external/stooq"
	"github.com/wonny/altsignals/internal/external/wikipedia"
	"github.com/wonny/altsignals/internal/orchestrator"
	"github.com/wonny/altsignals/pkg/config"
	"github.com/wonny/altsignals/pkg/database"
	"github.com/wonny/altsignals/pkg/logger"
	"github.com/wonny/altsignals/pkg/redis"
)

// runtime bundles the shared dependencies every command needs: config,
// logger, database pool, repositories, and registries. Commands build
// only the pieces they use on top of it.
type runtime struct {
	cfg    *config.Config
	log    *logger.Logger
	db     *database.DB
	cache  *redis.Client
	orders *orchestrator.Orchestrator

	signals    *repos.SignalRepository
	state      *repos.UpdateStateRepository
	prices     *repos.PriceRepository
	companies  *contracts.CompanyRegistry
	collectors *contracts.CollectorRegistry
}

// initRuntime loads config and wires the full dependency graph:
// database, redis cache, repositories, company registry, collectors, and
// the orchestrator.
func initRuntime() (*runtime, error) {
	// 1. Load config
	if verbose {
		os.Setenv("LOG_LEVEL", "debug")
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// 4. Connect to redis (optional, degrades to no-op when disabled)
	cache, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	// 5. Create repositories
	signalRepo := repos.NewSignalRepository(db.Pool)
	stateRepo := repos.NewUpdateStateRepository(db.Pool)
	priceRepo := repos.NewPriceRepository(db.Pool)

	// 6. Register companies and collectors
	companies := contracts.DefaultCompanies()
	collectors := buildCollectorRegistry(cfg, cache, log)

	// 7. Create orchestrator
	orch := orchestrator.New(collectors, companies, signalRepo, stateRepo, cfg.Orchestrator, log)

	return &runtime{
		cfg:        cfg,
		log:        log,
		db:         db,
		cache:      cache,
		orders:     orch,
		signals:    signalRepo,
		state:      stateRepo,
		prices:     priceRepo,
		companies:  companies,
		collectors: collectors,
	}, nil
}

// buildCollectorRegistry registers every data source adapter.
func buildCollectorRegistry(cfg *config.Config, cache *redis.Client, log *logger.Logger) *contracts.CollectorRegistry {
	registry := contracts.NewCollectorRegistry()

	edgarCache := redis.NewCache(cache, "edgar")
	edgarLimiter := redis.NewRateLimiter(cache, "edgar")
	wikiCache := redis.NewCache(cache, "wikipedia")

	registry.Register(edgar.NewCollector(edgar.NewClient(cfg.EDGAR, edgarCache, edgarLimiter, log)))
	registry.Register(wikipedia.NewCollector(wikipedia.NewClient(cfg.EDGAR.UserAgent, wikiCache, log)))
	registry.Register(appstore.NewCollector(appstore.NewClient(log)))
	registry.Register(careers.NewCollector(careers.NewClient(log)))

	return registry
}

func (r *runtime) backtestEngine() *backtest.Engine {
	return backtest.NewEngine(r.signals, r.prices, r.cfg.Backtest, r.log)
}

func (r *runtime) stooqClient() *stooq.Client {
	return stooq.NewClient(r.cfg.Stooq, r.log)
}

func (r *runtime) Close() {
	if r.cache != nil {
		r.cache.Close()
	}
	if r.db != nil {
		r.db.Close()
	}
}
