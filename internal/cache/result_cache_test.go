package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/andresuchdata/stockopt/internal/config"
	"github.com/andresuchdata/stockopt/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizationKeyIsStable(t *testing.T) {
	a := domain.DefaultOptimizationParameters()
	a.StorageConstraints = map[string]float64{"WH-1": 500, "WH-2": 800, "WH-3": 100}
	b := domain.DefaultOptimizationParameters()
	b.StorageConstraints = map[string]float64{"WH-3": 100, "WH-1": 500, "WH-2": 800}

	keyA := OptimizationKey("SKU-1", "WH-1", a)
	assert.Equal(t, keyA, OptimizationKey("SKU-1", "WH-1", b))
	assert.True(t, strings.HasPrefix(keyA, "stockopt:optimization:SKU-1:WH-1:"))
	assert.Len(t, strings.TrimPrefix(keyA, "stockopt:optimization:SKU-1:WH-1:"), 40)
}

func TestOptimizationKeyChangesWithParameters(t *testing.T) {
	base := domain.DefaultOptimizationParameters()
	baseKey := OptimizationKey("SKU-1", "WH-1", base)

	budget := 1000.0
	mutations := map[string]func(p *domain.OptimizationParameters){
		"service level": func(p *domain.OptimizationParameters) { p.TargetServiceLevel = 0.99 },
		"ordering cost": func(p *domain.OptimizationParameters) { p.OrderingCost = 75 },
		"lead time":     func(p *domain.OptimizationParameters) { p.LeadTimeDays = 14 },
		"seasonality":   func(p *domain.OptimizationParameters) { p.SeasonalityFactors[11] = 1.5 },
		"budget":        func(p *domain.OptimizationParameters) { p.MaxInvestment = &budget },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			p := domain.DefaultOptimizationParameters()
			mutate(&p)
			assert.NotEqual(t, baseKey, OptimizationKey("SKU-1", "WH-1", p))
		})
	}

	assert.NotEqual(t, baseKey, OptimizationKey("SKU-2", "WH-1", base))
	assert.NotEqual(t, baseKey, OptimizationKey("SKU-1", "WH-2", base))
}

func TestForecastKey(t *testing.T) {
	policy := domain.DefaultEnginePolicy()
	morning := time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)
	key := ForecastKey("SKU-1", "WH-1", 30, morning, policy)
	assert.True(t, strings.HasPrefix(key, "stockopt:forecast:SKU-1:WH-1:"))
	assert.NotEqual(t, key, ForecastKey("SKU-1", "WH-1", 60, morning, policy))

	// same day, later hour
	assert.Equal(t, key, ForecastKey("SKU-1", "WH-1", 30, morning.Add(10*time.Hour), policy))
	// next day
	assert.NotEqual(t, key, ForecastKey("SKU-1", "WH-1", 30, morning.AddDate(0, 0, 1), policy))

	policy.SmoothingAlpha = 0.5
	assert.NotEqual(t, key, ForecastKey("SKU-1", "WH-1", 30, morning, policy))
}

func TestDisabledCacheIsNoop(t *testing.T) {
	c, err := NewResultCache(config.CacheConfig{Enabled: false})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.SetOptimization(ctx, "k", &domain.OptimizationResult{ProductID: "SKU-1"}))
	got, ok, err := c.GetOptimization(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)

	require.NoError(t, c.SetForecast(ctx, "k", &domain.DemandForecast{ProductID: "SKU-1"}))
	f, ok, err := c.GetForecast(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, f)

	assert.NoError(t, c.InvalidateProduct(ctx, "SKU-1", "WH-1"))
	assert.NoError(t, c.InvalidateAll(ctx))
}

func TestBuildRedisOptions(t *testing.T) {
	opts, err := buildRedisOptions(config.CacheConfig{RedisHost: "cache", RedisPort: "6380", RedisPassword: "pw", RedisDB: 2})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "pw", opts.Password)
	assert.Equal(t, 2, opts.DB)

	opts, err = buildRedisOptions(config.CacheConfig{})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6379", opts.Addr)

	opts, err = buildRedisOptions(config.CacheConfig{RedisURL: "redis://:secret@redis.internal:6390/3"})
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6390", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)

	_, err = buildRedisOptions(config.CacheConfig{RedisURL: "http://nope"})
	assert.Error(t, err)
}
