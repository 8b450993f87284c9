package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/stockopt/internal/config"
	"github.com/andresuchdata/stockopt/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	resultKeyPrefix     = "stockopt"
	optimizationKeyType = "optimization"
	forecastKeyType     = "forecast"
	resultScanBatchSize = 100
)

// ResultCache stores engine outputs for the calling service. A miss is
// reported as (nil, false, nil).
type ResultCache interface {
	GetOptimization(ctx context.Context, key string) (*domain.OptimizationResult, bool, error)
	SetOptimization(ctx context.Context, key string, result *domain.OptimizationResult) error
	GetForecast(ctx context.Context, key string) (*domain.DemandForecast, bool, error)
	SetForecast(ctx context.Context, key string, forecast *domain.DemandForecast) error
	InvalidateProduct(ctx context.Context, productID, locationID string) error
	InvalidateAll(ctx context.Context) error
}

type redisResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopResultCache struct{}

func NewResultCache(cfg config.CacheConfig) (ResultCache, error) {
	if !cfg.Enabled {
		return &noopResultCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisResultCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopResultCache() ResultCache {
	return &noopResultCache{}
}

func (c *redisResultCache) GetOptimization(ctx context.Context, key string) (*domain.OptimizationResult, bool, error) {
	var result domain.OptimizationResult
	ok, err := getJSON(ctx, c.client, key, &result)
	if !ok || err != nil {
		return nil, false, err
	}
	return &result, true, nil
}

func (c *redisResultCache) SetOptimization(ctx context.Context, key string, result *domain.OptimizationResult) error {
	return setJSON(ctx, c.client, key, result, c.ttl)
}

func (c *redisResultCache) GetForecast(ctx context.Context, key string) (*domain.DemandForecast, bool, error) {
	var forecast domain.DemandForecast
	ok, err := getJSON(ctx, c.client, key, &forecast)
	if !ok || err != nil {
		return nil, false, err
	}
	return &forecast, true, nil
}

func (c *redisResultCache) SetForecast(ctx context.Context, key string, forecast *domain.DemandForecast) error {
	return setJSON(ctx, c.client, key, forecast, c.ttl)
}

func (c *redisResultCache) InvalidateProduct(ctx context.Context, productID, locationID string) error {
	for _, kind := range []string{optimizationKeyType, forecastKeyType} {
		if err := deleteKeysWithPrefix(ctx, c.client, productPrefix(kind, productID, locationID), resultScanBatchSize); err != nil {
			return err
		}
	}
	return nil
}

func (c *redisResultCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, resultKeyPrefix+":", resultScanBatchSize)
}

func (n *noopResultCache) GetOptimization(ctx context.Context, key string) (*domain.OptimizationResult, bool, error) {
	return nil, false, nil
}

func (n *noopResultCache) SetOptimization(ctx context.Context, key string, result *domain.OptimizationResult) error {
	return nil
}

func (n *noopResultCache) GetForecast(ctx context.Context, key string) (*domain.DemandForecast, bool, error) {
	return nil, false, nil
}

func (n *noopResultCache) SetForecast(ctx context.Context, key string, forecast *domain.DemandForecast) error {
	return nil
}

func (n *noopResultCache) InvalidateProduct(ctx context.Context, productID, locationID string) error {
	return nil
}

func (n *noopResultCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func productPrefix(kind, productID, locationID string) string {
	return fmt.Sprintf("%s:%s:%s:%s:", resultKeyPrefix, kind, productID, locationID)
}

// OptimizationKey identifies an optimization by product, location and every
// parameter that changes its outcome.
func OptimizationKey(productID, locationID string, params domain.OptimizationParameters) string {
	parts := []string{
		fmt.Sprintf("service_level=%.6f", params.TargetServiceLevel),
		fmt.Sprintf("holding_rate=%.6f", params.HoldingCostRate),
		fmt.Sprintf("ordering_cost=%.6f", params.OrderingCost),
		fmt.Sprintf("stockout_cost=%.6f", params.StockoutCost),
		fmt.Sprintf("lead_time=%.6f", params.LeadTimeDays),
		fmt.Sprintf("lead_time_var=%.6f", params.LeadTimeVariability),
		fmt.Sprintf("demand_var=%.6f", params.DemandVariability),
		fmt.Sprintf("trend=%.6f", params.TrendFactor),
		"seasonality=" + joinFloats(params.SeasonalityFactors[:]),
	}
	if params.MaxInvestment != nil {
		parts = append(parts, fmt.Sprintf("max_investment=%.2f", *params.MaxInvestment))
	}
	if len(params.StorageConstraints) > 0 {
		locations := make([]string, 0, len(params.StorageConstraints))
		for loc, capacity := range params.StorageConstraints {
			locations = append(locations, fmt.Sprintf("%s:%.2f", loc, capacity))
		}
		sort.Strings(locations)
		parts = append(parts, "storage="+strings.Join(locations, ","))
	}

	return productPrefix(optimizationKeyType, productID, locationID) + hashParts(parts)
}

// ForecastKey identifies a forecast by product, location, horizon, forecast day
// and smoothing constant. Projections start at asOf, so a new day is a new key.
func ForecastKey(productID, locationID string, horizonDays int, asOf time.Time, policy domain.EnginePolicy) string {
	parts := []string{
		"forecast_date=" + asOf.UTC().Format("2006-01-02"),
		fmt.Sprintf("horizon=%d", horizonDays),
		fmt.Sprintf("alpha=%.6f", policy.SmoothingAlpha),
		fmt.Sprintf("probabilistic=%t", policy.ProbabilisticStockout),
	}
	return productPrefix(forecastKeyType, productID, locationID) + hashParts(parts)
}

func hashParts(parts []string) string {
	sort.Strings(parts)
	raw := strings.Join(parts, "|")
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func joinFloats(values []float64) string {
	strs := make([]string, len(values))
	for i, v := range values {
		strs[i] = fmt.Sprintf("%.6f", v)
	}
	return strings.Join(strs, ",")
}
