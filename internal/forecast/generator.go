// Package forecast builds day-by-day demand forecasts from a smoothed
// baseline, a linear trend and monthly seasonal indices.
package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/andresuchdata/stockopt/internal/domain"
	"github.com/andresuchdata/stockopt/internal/stats"
)

const (
	// MethodSmoothedTrendSeasonal labels forecasts produced by Generator.
	MethodSmoothedTrendSeasonal = "exponential_smoothing_trend_seasonal"

	// confidenceZ is the two-sided 95% normal quantile.
	confidenceZ = 1.96
)

// Generator produces DemandForecasts. It holds no mutable state and is safe
// for concurrent use.
type Generator struct {
	alpha float64
	clock domain.Clock
}

// NewGenerator creates a generator using the policy smoothing constant.
// A nil clock falls back to the system clock.
func NewGenerator(policy domain.EnginePolicy, clock domain.Clock) *Generator {
	if clock == nil {
		clock = domain.SystemClock
	}
	return &Generator{alpha: policy.SmoothingAlpha, clock: clock}
}

// Forecast projects demand for the next horizonDays days starting tomorrow.
func (g *Generator) Forecast(productID, locationID string, history []domain.DemandObservation, horizonDays int) (*domain.DemandForecast, error) {
	if horizonDays < 1 {
		return nil, fmt.Errorf("%w: horizon_days=%d must be at least 1", domain.ErrInvalidParameters, horizonDays)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("forecast %s@%s: %w", productID, locationID, domain.ErrInsufficientData)
	}

	quantities := stats.Quantities(history)
	baseline, fitted := Smooth(quantities, g.alpha)
	trend := stats.LinearTrendSlope(quantities)
	seasonal := stats.SeasonalFactors(stats.SeasonalIndex(history))
	variance := stats.Variance(quantities)
	margin := confidenceZ * math.Sqrt(variance)

	today := g.clock.Now()
	demand := make([]float64, horizonDays)
	intervals := make([]domain.ConfidenceInterval, horizonDays)
	for i := 1; i <= horizonDays; i++ {
		day := today.AddDate(0, 0, i)
		raw := baseline + trend*float64(i)
		adjusted := math.Max(0, raw*seasonal[day.Month()-1])

		demand[i-1] = adjusted
		intervals[i-1] = domain.ConfidenceInterval{
			Lower: math.Max(0, adjusted-margin),
			Upper: adjusted + margin,
		}
	}

	return &domain.DemandForecast{
		ProductID:           productID,
		LocationID:          locationID,
		ForecastDate:        startOfDay(today),
		HorizonDays:         horizonDays,
		DailyDemand:         demand,
		DemandVariance:      variance,
		Baseline:            baseline,
		SeasonalComponent:   seasonal,
		TrendComponent:      trend,
		ConfidenceIntervals: intervals,
		AccuracyEstimate:    accuracy(quantities, fitted),
		Method:              MethodSmoothedTrendSeasonal,
	}, nil
}

// Smooth runs simple exponential smoothing seeded with the first value. It
// returns the final level and the one-step-ahead fit for every position
// (fitted[0] is the seed itself).
func Smooth(values []float64, alpha float64) (float64, []float64) {
	if len(values) == 0 {
		return 0, nil
	}

	fitted := make([]float64, len(values))
	level := values[0]
	fitted[0] = level
	for i := 1; i < len(values); i++ {
		fitted[i] = level
		level = alpha*values[i] + (1-alpha)*level
	}
	return level, fitted
}

// accuracy is 1 - MAPE of the one-step fit over non-zero observations, clamped to [0,1].
func accuracy(actual, fitted []float64) float64 {
	var sum float64
	var n int
	for i := 1; i < len(actual); i++ {
		if actual[i] == 0 {
			continue
		}
		sum += math.Abs(actual[i]-fitted[i]) / actual[i]
		n++
	}
	if n == 0 {
		return 0
	}
	return math.Max(0, math.Min(1, 1-sum/float64(n)))
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
