package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/andresuchdata/stockopt/internal/domain"
	"github.com/andresuchdata/stockopt/internal/stats"
)

// highVariabilityCV is the coefficient of variation above which demand counts as erratic.
const highVariabilityCV = 0.5

var checkpoints = [3]int{30, 60, 90}

// Analyzer walks a forecast against current stock
type Analyzer struct {
	policy domain.EnginePolicy
	clock  domain.Clock
}

// NewAnalyzer creates an analyzer. A nil clock falls back to the system clock.
func NewAnalyzer(policy domain.EnginePolicy, clock domain.Clock) *Analyzer {
	if clock == nil {
		clock = domain.SystemClock
	}
	return &Analyzer{policy: policy, clock: clock}
}

// Analyze finds the first day cumulative forecast demand exceeds current stock
// and classifies the result.
func (a *Analyzer) Analyze(currentStock float64, forecast *domain.DemandForecast) (*domain.StockoutRiskAnalysis, error) {
	if currentStock < 0 || math.IsNaN(currentStock) {
		return nil, fmt.Errorf("%w: current_stock=%g must not be negative", domain.ErrInvalidParameters, currentStock)
	}
	if forecast == nil || len(forecast.DailyDemand) == 0 {
		return nil, fmt.Errorf("stockout analysis: empty forecast: %w", domain.ErrInsufficientData)
	}

	cumulative := make([]float64, len(forecast.DailyDemand))
	var daysUntil *int
	var running float64
	for i, d := range forecast.DailyDemand {
		running += d
		cumulative[i] = running
		if daysUntil == nil && running > currentStock {
			day := i + 1
			daysUntil = &day
		}
	}

	var probs [3]float64
	for i, days := range checkpoints {
		probs[i] = a.stockoutProbability(currentStock, cumulative, forecast.DemandVariance, days)
	}

	level := domain.ClassifyDaysUntilStockout(daysUntil)
	return &domain.StockoutRiskAnalysis{
		ProductID:             forecast.ProductID,
		LocationID:            forecast.LocationID,
		CurrentStock:          currentStock,
		StockoutProbability30: probs[0],
		StockoutProbability60: probs[1],
		StockoutProbability90: probs[2],
		DaysUntilStockout:     daysUntil,
		RiskLevel:             level,
		RecommendedActions:    level.RecommendedActions(),
		ContributingFactors:   a.contributingFactors(currentStock, forecast),
		AnalyzedAt:            a.clock.Now(),
	}, nil
}

// stockoutProbability evaluates one checkpoint. Checkpoints beyond the
// horizon use the cumulative demand at the last forecast day.
func (a *Analyzer) stockoutProbability(stock float64, cumulative []float64, variance float64, days int) float64 {
	if days > len(cumulative) {
		days = len(cumulative)
	}
	expected := cumulative[days-1]

	sigma := math.Sqrt(variance * float64(days))
	if !a.policy.ProbabilisticStockout || sigma == 0 {
		if expected > stock {
			return 1
		}
		return 0
	}
	return 1 - stats.NormalCDF((stock-expected)/sigma)
}

func (a *Analyzer) contributingFactors(stock float64, forecast *domain.DemandForecast) []string {
	factors := []string{}

	meanDemand := stats.Mean(forecast.DailyDemand)
	if meanDemand > 0 {
		daysOfCover := stock / meanDemand
		if daysOfCover < a.policy.DefaultLeadTimeDays {
			factors = append(factors, fmt.Sprintf(
				"stock covers %.1f days of demand, less than the %.0f-day lead time",
				daysOfCover, a.policy.DefaultLeadTimeDays))
		}

		if cv := math.Sqrt(forecast.DemandVariance) / meanDemand; cv > highVariabilityCV {
			factors = append(factors, fmt.Sprintf("high demand variability (CV %.2f)", cv))
		}
	}

	if forecast.TrendComponent > 0 {
		factors = append(factors, fmt.Sprintf("upward demand trend (+%.2f units/day)", forecast.TrendComponent))
	}

	inHorizon := monthsInHorizon(forecast.ForecastDate, forecast.HorizonDays)
	for _, m := range stats.PeakMonths(forecast.SeasonalComponent) {
		if inHorizon[m] {
			factors = append(factors, fmt.Sprintf("seasonal peak in %s falls within the forecast horizon", m))
		}
	}

	return factors
}

func monthsInHorizon(start time.Time, horizonDays int) map[time.Month]bool {
	months := make(map[time.Month]bool)
	for i := 1; i <= horizonDays; i++ {
		months[start.AddDate(0, 0, i).Month()] = true
	}
	return months
}
