package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andresuchdata/stockopt/internal/cache"
	"github.com/andresuchdata/stockopt/internal/domain"
	"github.com/andresuchdata/stockopt/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

type recordingCache struct {
	cache.ResultCache
	optimizations map[string]*domain.OptimizationResult
	forecasts     map[string]*domain.DemandForecast
	hits          int
	failGets      bool
}

func newRecordingCache() *recordingCache {
	return &recordingCache{
		ResultCache:   cache.NewNoopResultCache(),
		optimizations: map[string]*domain.OptimizationResult{},
		forecasts:     map[string]*domain.DemandForecast{},
	}
}

func (c *recordingCache) GetOptimization(ctx context.Context, key string) (*domain.OptimizationResult, bool, error) {
	if c.failGets {
		return nil, false, errors.New("redis unavailable")
	}
	r, ok := c.optimizations[key]
	if ok {
		c.hits++
	}
	return r, ok, nil
}

func (c *recordingCache) SetOptimization(ctx context.Context, key string, result *domain.OptimizationResult) error {
	c.optimizations[key] = result
	return nil
}

func (c *recordingCache) GetForecast(ctx context.Context, key string) (*domain.DemandForecast, bool, error) {
	if c.failGets {
		return nil, false, errors.New("redis unavailable")
	}
	f, ok := c.forecasts[key]
	if ok {
		c.hits++
	}
	return f, ok, nil
}

func (c *recordingCache) SetForecast(ctx context.Context, key string, forecast *domain.DemandForecast) error {
	c.forecasts[key] = forecast
	return nil
}

func seed(repo *memory.InventoryRepository, productID, locationID string, days int, qty, stock float64) {
	for i := 1; i <= days; i++ {
		repo.AddMovement(productID, locationID, fixedNow.AddDate(0, 0, -i), qty)
	}
	repo.SetStock(productID, locationID, stock)
}

func newTestService(t *testing.T, c cache.ResultCache) (*StockOptimizationService, *memory.InventoryRepository) {
	t.Helper()
	clock := domain.FixedClock(fixedNow)
	repo := memory.NewInventoryRepository(clock)
	seed(repo, "SKU-1", "WH-1", 120, 10, 500)
	seed(repo, "SKU-1", "WH-2", 60, 5, 20)
	seed(repo, "SKU-2", "WH-1", 90, 3, 40)
	repo.SetStock("SKU-3", "WH-1", 15) // no history

	opts := DefaultOptions()
	opts.Clock = clock
	svc, err := NewStockOptimizationService(repo, c, opts)
	require.NoError(t, err)
	return svc, repo
}

func TestForecastUsesDefaultHorizonAndCache(t *testing.T) {
	rc := newRecordingCache()
	svc, _ := newTestService(t, rc)
	ctx := context.Background()

	fc, err := svc.Forecast(ctx, "SKU-1", "WH-1", 0)
	require.NoError(t, err)
	assert.Equal(t, 90, fc.HorizonDays)
	assert.Len(t, fc.DailyDemand, 90)
	assert.InDelta(t, 10, fc.DailyDemand[0], 0.5)

	again, err := svc.Forecast(ctx, "SKU-1", "WH-1", 0)
	require.NoError(t, err)
	assert.Same(t, fc, again)
	assert.Equal(t, 1, rc.hits)
}

func TestOptimizeCachesPerParameters(t *testing.T) {
	rc := newRecordingCache()
	svc, _ := newTestService(t, rc)
	ctx := context.Background()
	params := domain.DefaultOptimizationParameters()

	first, err := svc.Optimize(ctx, "SKU-1", "WH-1", params)
	require.NoError(t, err)
	assert.InDelta(t, 10, first.AverageDailyDemand, 1e-9)
	assert.Equal(t, fixedNow, first.CalculatedAt)

	second, err := svc.Optimize(ctx, "SKU-1", "WH-1", params)
	require.NoError(t, err)
	assert.Same(t, first, second)

	params.OrderingCost = 80
	third, err := svc.Optimize(ctx, "SKU-1", "WH-1", params)
	require.NoError(t, err)
	assert.NotSame(t, first, third)
	assert.Greater(t, third.OrderQuantity, first.OrderQuantity)
	assert.Len(t, rc.optimizations, 2)
}

func TestCacheFailuresDoNotFailRequests(t *testing.T) {
	rc := newRecordingCache()
	rc.failGets = true
	svc, _ := newTestService(t, rc)

	_, err := svc.Optimize(context.Background(), "SKU-1", "WH-1", domain.DefaultOptimizationParameters())
	require.NoError(t, err)
	_, err = svc.Forecast(context.Background(), "SKU-1", "WH-1", 30)
	require.NoError(t, err)
}

func TestOptimizeWithoutHistory(t *testing.T) {
	svc, _ := newTestService(t, nil)
	_, err := svc.Optimize(context.Background(), "SKU-3", "WH-1", domain.DefaultOptimizationParameters())
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
}

func TestAnalyzeRisk(t *testing.T) {
	svc, _ := newTestService(t, nil)

	analysis, err := svc.AnalyzeRisk(context.Background(), "SKU-1", "WH-1", 0)
	require.NoError(t, err)
	assert.Equal(t, 500.0, analysis.CurrentStock)
	require.NotNil(t, analysis.DaysUntilStockout)
	assert.InDelta(t, 51, *analysis.DaysUntilStockout, 1)
	assert.Equal(t, domain.RiskMedium, analysis.RiskLevel)
	assert.Equal(t, 0.0, analysis.StockoutProbability30)
	assert.Equal(t, 1.0, analysis.StockoutProbability90)

	_, err = svc.AnalyzeRisk(context.Background(), "SKU-1", "WH-9", 0)
	assert.Error(t, err)
}

func TestOptimizeLocationContinuesPastMissingHistory(t *testing.T) {
	svc, _ := newTestService(t, nil)

	batch, err := svc.OptimizeLocation(context.Background(), "WH-1", domain.DefaultOptimizationParameters())
	require.NoError(t, err)
	require.Len(t, batch.Results, 2)
	assert.Equal(t, "SKU-1", batch.Results[0].ProductID)
	assert.Equal(t, "SKU-2", batch.Results[1].ProductID)
	assert.Equal(t, []string{"SKU-3"}, batch.SkippedProducts)
}

func TestOptimizeNetwork(t *testing.T) {
	svc, _ := newTestService(t, nil)

	plan, err := svc.OptimizeNetwork(context.Background(), []string{"WH-1", "WH-2", "WH-1"}, domain.DefaultOptimizationParameters())
	require.NoError(t, err)
	assert.Equal(t, []string{"WH-1", "WH-2"}, plan.LocationIDs)
	assert.NotEmpty(t, plan.ID)

	require.Len(t, plan.RecommendedTransfers, 1)
	transfer := plan.RecommendedTransfers[0]
	assert.Equal(t, "WH-1", transfer.FromLocationID)
	assert.Equal(t, "WH-2", transfer.ToLocationID)
	assert.Equal(t, "SKU-1", transfer.ProductID)
	assert.Equal(t, 100.0, transfer.Quantity)
	assert.Equal(t, domain.RiskHigh, transfer.Urgency)
	assert.InDelta(t, 150, plan.CostSavingsPotential, 1e-9)

	require.Len(t, plan.LocationResults, 2)
	assert.Len(t, plan.LocationResults["WH-1"].Results, 2)
	assert.Len(t, plan.LocationResults["WH-2"].Results, 1)
}

// countingRepo tracks how many locations are being listed at once.
type countingRepo struct {
	*memory.InventoryRepository
	inFlight, peak atomic.Int32
}

func (r *countingRepo) ListProductIDs(ctx context.Context, locationID string) ([]string, error) {
	n := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		peak := r.peak.Load()
		if n <= peak || r.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	return r.InventoryRepository.ListProductIDs(ctx, locationID)
}

func TestOptimizeNetworkHonorsWorkerCount(t *testing.T) {
	clock := domain.FixedClock(fixedNow)
	repo := &countingRepo{InventoryRepository: memory.NewInventoryRepository(clock)}
	locations := []string{"WH-1", "WH-2", "WH-3", "WH-4"}
	for _, loc := range locations {
		seed(repo.InventoryRepository, "SKU-1", loc, 60, 5, 50)
	}

	opts := DefaultOptions()
	opts.Clock = clock
	opts.Pool.WorkerCount = 1
	svc, err := NewStockOptimizationService(repo, nil, opts)
	require.NoError(t, err)

	plan, err := svc.OptimizeNetwork(context.Background(), locations, domain.DefaultOptimizationParameters())
	require.NoError(t, err)
	assert.Len(t, plan.LocationResults, len(locations))
	assert.Equal(t, int32(1), repo.peak.Load())
}

func TestNewServiceValidatesOptions(t *testing.T) {
	repo := memory.NewInventoryRepository(domain.SystemClock)

	opts := DefaultOptions()
	opts.Engine.SmoothingAlpha = 0
	_, err := NewStockOptimizationService(repo, nil, opts)
	assert.ErrorIs(t, err, domain.ErrInvalidParameters)

	opts = DefaultOptions()
	opts.HorizonDays = 0
	_, err = NewStockOptimizationService(repo, nil, opts)
	assert.ErrorIs(t, err, domain.ErrInvalidParameters)
}
