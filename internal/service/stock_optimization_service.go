package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/andresuchdata/stockopt/internal/cache"
	"github.com/andresuchdata/stockopt/internal/config"
	"github.com/andresuchdata/stockopt/internal/domain"
	"github.com/andresuchdata/stockopt/internal/forecast"
	"github.com/andresuchdata/stockopt/internal/network"
	"github.com/andresuchdata/stockopt/internal/optimizer"
	"github.com/andresuchdata/stockopt/internal/pipeline"
	"github.com/andresuchdata/stockopt/internal/repository"
	"github.com/andresuchdata/stockopt/internal/risk"
	"github.com/andresuchdata/stockopt/internal/stats"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Options wires the engine policies and batch sizing into the service.
type Options struct {
	Engine      domain.EnginePolicy
	Rebalancing domain.RebalancingPolicy
	Pool        pipeline.PoolConfig
	HorizonDays int
	Clock       domain.Clock
}

// DefaultOptions returns the default policies with a 90-day horizon.
func DefaultOptions() Options {
	return Options{
		Engine:      domain.DefaultEnginePolicy(),
		Rebalancing: domain.DefaultRebalancingPolicy(),
		Pool:        pipeline.DefaultPoolConfig("stockopt"),
		HorizonDays: 90,
		Clock:       domain.SystemClock,
	}
}

// OptionsFromConfig maps loaded configuration onto service options.
func OptionsFromConfig(cfg *config.Config) Options {
	pool := pipeline.DefaultPoolConfig("stockopt")
	pool.WorkerCount = cfg.Engine.WorkerCount
	pool.LookbackDays = cfg.Engine.LookbackDays
	pool.RequestTimeout = cfg.Engine.RequestTimeout
	pool.FillGaps = cfg.Engine.FillGaps

	return Options{
		Engine:      cfg.EnginePolicy(),
		Rebalancing: cfg.RebalancingPolicy(),
		Pool:        pool,
		HorizonDays: cfg.Engine.HorizonDays,
		Clock:       domain.SystemClock,
	}
}

// StockOptimizationService fetches inputs from the inventory source, runs the
// engine and caches single-product results.
type StockOptimizationService struct {
	repo  repository.InventoryRepository
	cache cache.ResultCache
	opts  Options

	generator    *forecast.Generator
	optimizer    *optimizer.Optimizer
	analyzer     *risk.Analyzer
	orchestrator *pipeline.Orchestrator
	rebalancer   *network.Rebalancer
}

func NewStockOptimizationService(repo repository.InventoryRepository, cacheImpl cache.ResultCache, opts Options) (*StockOptimizationService, error) {
	if err := opts.Engine.Validate(); err != nil {
		return nil, fmt.Errorf("engine policy: %w", err)
	}
	if err := opts.Rebalancing.Validate(); err != nil {
		return nil, fmt.Errorf("rebalancing policy: %w", err)
	}
	if opts.HorizonDays < 1 {
		return nil, fmt.Errorf("%w: horizon_days=%d must be at least 1", domain.ErrInvalidParameters, opts.HorizonDays)
	}
	if opts.Clock == nil {
		opts.Clock = domain.SystemClock
	}
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopResultCache()
	}

	opt := optimizer.NewOptimizer(opts.Engine, opts.Clock)
	return &StockOptimizationService{
		repo:         repo,
		cache:        cacheImpl,
		opts:         opts,
		generator:    forecast.NewGenerator(opts.Engine, opts.Clock),
		optimizer:    opt,
		analyzer:     risk.NewAnalyzer(opts.Engine, opts.Clock),
		orchestrator: pipeline.NewOrchestrator(repo, pipeline.NewWorker(opts.Pool, repo, opt, opts.Clock)),
		rebalancer:   network.NewRebalancer(repo, opts.Rebalancing, opts.Clock, opts.Pool.WorkerCount),
	}, nil
}

// Forecast projects daily demand. horizonDays <= 0 uses the configured horizon.
func (s *StockOptimizationService) Forecast(ctx context.Context, productID, locationID string, horizonDays int) (*domain.DemandForecast, error) {
	if horizonDays <= 0 {
		horizonDays = s.opts.HorizonDays
	}

	key := cache.ForecastKey(productID, locationID, horizonDays, s.opts.Clock.Now(), s.opts.Engine)
	if cached, ok, err := s.cache.GetForecast(ctx, key); err == nil && ok {
		return cached, nil
	} else if err != nil {
		log.Warn().Err(err).Str("product_id", productID).Msg("stockopt: cache get forecast failed")
	}

	history, err := s.history(ctx, productID, locationID)
	if err != nil {
		return nil, err
	}

	result, err := s.generator.Forecast(productID, locationID, history, horizonDays)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetForecast(ctx, key, result); err != nil {
		log.Warn().Err(err).Str("product_id", productID).Msg("stockopt: cache set forecast failed")
	}
	return result, nil
}

// Optimize computes inventory control parameters for one product at one location.
func (s *StockOptimizationService) Optimize(ctx context.Context, productID, locationID string, params domain.OptimizationParameters) (*domain.OptimizationResult, error) {
	key := cache.OptimizationKey(productID, locationID, params)
	if cached, ok, err := s.cache.GetOptimization(ctx, key); err == nil && ok {
		return cached, nil
	} else if err != nil {
		log.Warn().Err(err).Str("product_id", productID).Msg("stockopt: cache get optimization failed")
	}

	history, err := s.history(ctx, productID, locationID)
	if err != nil {
		return nil, err
	}

	result, err := s.optimizer.Optimize(productID, locationID, history, params)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetOptimization(ctx, key, result); err != nil {
		log.Warn().Err(err).Str("product_id", productID).Msg("stockopt: cache set optimization failed")
	}
	return result, nil
}

// AnalyzeRisk forecasts demand and evaluates it against current stock.
func (s *StockOptimizationService) AnalyzeRisk(ctx context.Context, productID, locationID string, horizonDays int) (*domain.StockoutRiskAnalysis, error) {
	fc, err := s.Forecast(ctx, productID, locationID, horizonDays)
	if err != nil {
		return nil, err
	}

	stockCtx, cancel := s.requestContext(ctx)
	defer cancel()
	stock, err := s.repo.CurrentStock(stockCtx, productID, locationID)
	if err != nil {
		return nil, err
	}

	return s.analyzer.Analyze(stock, fc)
}

// OptimizeLocation runs the batch optimizer over every product at a location.
func (s *StockOptimizationService) OptimizeLocation(ctx context.Context, locationID string, params domain.OptimizationParameters) (*domain.BatchOptimizationResult, error) {
	return s.orchestrator.OptimizeLocation(ctx, locationID, params)
}

// Rebalance proposes stock transfers between locations.
func (s *StockOptimizationService) Rebalance(ctx context.Context, locationIDs []string, params domain.OptimizationParameters) (*domain.SupplyChainOptimization, error) {
	return s.rebalancer.Rebalance(ctx, locationIDs, params)
}

// OptimizeNetwork proposes stock transfers and attaches each location's batch result.
func (s *StockOptimizationService) OptimizeNetwork(ctx context.Context, locationIDs []string, params domain.OptimizationParameters) (*domain.SupplyChainOptimization, error) {
	plan, err := s.rebalancer.Rebalance(ctx, locationIDs, params)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	plan.LocationResults = make(map[string]*domain.BatchOptimizationResult, len(plan.LocationIDs))

	limit := s.opts.Pool.WorkerCount
	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, loc := range plan.LocationIDs {
		g.Go(func() error {
			batch, err := s.orchestrator.OptimizeLocation(gctx, loc, params)
			if err != nil {
				return err
			}
			mu.Lock()
			plan.LocationResults[loc] = batch
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return plan, nil
}

// FilterByUrgency keeps only transfers at least as urgent as minLevel.
func (s *StockOptimizationService) FilterByUrgency(plan *domain.SupplyChainOptimization, minLevel domain.RiskLevel) *domain.SupplyChainOptimization {
	return s.rebalancer.FilterByUrgency(plan, minLevel)
}

// InvalidateCache drops cached results for one product, or everything when productID is empty.
func (s *StockOptimizationService) InvalidateCache(ctx context.Context, productID, locationID string) error {
	if productID == "" {
		return s.cache.InvalidateAll(ctx)
	}
	return s.cache.InvalidateProduct(ctx, productID, locationID)
}

func (s *StockOptimizationService) history(ctx context.Context, productID, locationID string) ([]domain.DemandObservation, error) {
	fetchCtx, cancel := s.requestContext(ctx)
	defer cancel()

	history, err := s.repo.FetchHistory(fetchCtx, productID, locationID, s.opts.Pool.LookbackDays)
	if err != nil {
		return nil, fmt.Errorf("fetch history %s@%s: %w", productID, locationID, err)
	}
	if s.opts.Pool.FillGaps {
		// today is still accumulating; fill through yesterday
		history = stats.FillDailyGaps(history, s.opts.Clock.Now().AddDate(0, 0, -1))
	}
	return history, nil
}

func (s *StockOptimizationService) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.Pool.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.Pool.RequestTimeout)
}
