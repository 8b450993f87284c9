package forecast

import (
	"testing"
	"time"

	"github.com/andresuchdata/stockopt/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, time.June, 15, 9, 30, 0, 0, time.UTC)

func newTestGenerator() *Generator {
	return NewGenerator(domain.DefaultEnginePolicy(), domain.FixedClock(fixedNow))
}

func history(start time.Time, quantities ...float64) []domain.DemandObservation {
	obs := make([]domain.DemandObservation, len(quantities))
	for i, q := range quantities {
		obs[i] = domain.DemandObservation{Date: start.AddDate(0, 0, i), Quantity: q}
	}
	return obs
}

func constantHistory(days int, qty float64) []domain.DemandObservation {
	quantities := make([]float64, days)
	for i := range quantities {
		quantities[i] = qty
	}
	return history(fixedNow.AddDate(0, 0, -days), quantities...)
}

func TestForecastLengthAndBounds(t *testing.T) {
	g := newTestGenerator()
	noisy := history(fixedNow.AddDate(0, 0, -10), 1, 30, 0, 2, 25, 0, 1, 40, 0, 3)

	for _, horizon := range []int{1, 7, 30, 90, 365} {
		f, err := g.Forecast("SKU-1", "LOC-1", noisy, horizon)
		require.NoError(t, err)
		assert.Len(t, f.DailyDemand, horizon)
		assert.Len(t, f.ConfidenceIntervals, horizon)
		assert.Equal(t, horizon, f.HorizonDays)
		for i, ci := range f.ConfidenceIntervals {
			assert.GreaterOrEqual(t, ci.Lower, 0.0, "day %d", i+1)
			assert.GreaterOrEqual(t, f.DailyDemand[i], 0.0, "day %d", i+1)
			assert.LessOrEqual(t, ci.Lower, f.DailyDemand[i])
			assert.GreaterOrEqual(t, ci.Upper, f.DailyDemand[i])
		}
	}
}

func TestForecastFlatDemand(t *testing.T) {
	f, err := newTestGenerator().Forecast("SKU-1", "LOC-1", constantHistory(365, 10), 30)
	require.NoError(t, err)

	assert.InDelta(t, 10.0, f.Baseline, 1e-9)
	assert.InDelta(t, 0.0, f.TrendComponent, 1e-9)
	assert.Equal(t, 0.0, f.DemandVariance)
	assert.Equal(t, 1.0, f.AccuracyEstimate)
	for i, d := range f.DailyDemand {
		assert.InDelta(t, 10.0, d, 1e-9, "day %d", i+1)
		assert.InDelta(t, 10.0, f.ConfidenceIntervals[i].Lower, 1e-9)
		assert.InDelta(t, 10.0, f.ConfidenceIntervals[i].Upper, 1e-9)
	}
	assert.Equal(t, time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC), f.ForecastDate)
	assert.Equal(t, MethodSmoothedTrendSeasonal, f.Method)
}

func TestForecastTrendAndClampAtZero(t *testing.T) {
	// Falling demand: slope -1/day, smoothed level well above zero at the end.
	falling := history(fixedNow.AddDate(0, 0, -10), 10, 9, 8, 7, 6, 5, 4, 3, 2, 1)
	f, err := newTestGenerator().Forecast("SKU-1", "LOC-1", falling, 20)
	require.NoError(t, err)

	assert.InDelta(t, -1.0, f.TrendComponent, 1e-9)
	for i := 1; i < len(f.DailyDemand); i++ {
		assert.LessOrEqual(t, f.DailyDemand[i], f.DailyDemand[i-1])
	}
	assert.Equal(t, 0.0, f.DailyDemand[len(f.DailyDemand)-1])
}

func TestForecastUsesInjectedClockForSeasonality(t *testing.T) {
	// History only in June (index 1.5) and July (index 0.5).
	var obs []domain.DemandObservation
	obs = append(obs, history(time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC), 15, 15, 15)...)
	obs = append(obs, history(time.Date(2023, time.July, 1, 0, 0, 0, 0, time.UTC), 5, 5, 5)...)

	clock := domain.FixedClock(time.Date(2024, time.June, 28, 0, 0, 0, 0, time.UTC))
	f, err := NewGenerator(domain.DefaultEnginePolicy(), clock).Forecast("SKU-1", "LOC-1", obs, 4)
	require.NoError(t, err)

	assert.InDelta(t, 1.5, f.SeasonalComponent[time.June-1], 1e-9)
	assert.InDelta(t, 0.5, f.SeasonalComponent[time.July-1], 1e-9)
	assert.Equal(t, 1.0, f.SeasonalComponent[time.January-1])

	// Days 1-2 fall in June (x1.5), days 3-4 in July (x0.5).
	assert.Greater(t, f.DailyDemand[0], f.DailyDemand[1])
	assert.Greater(t, f.DailyDemand[1], 3*f.DailyDemand[2])

	again, err := NewGenerator(domain.DefaultEnginePolicy(), clock).Forecast("SKU-1", "LOC-1", obs, 4)
	require.NoError(t, err)
	assert.Equal(t, f, again)
}

func TestForecastErrors(t *testing.T) {
	g := newTestGenerator()

	_, err := g.Forecast("SKU-1", "LOC-1", nil, 30)
	assert.ErrorIs(t, err, domain.ErrInsufficientData)

	_, err = g.Forecast("SKU-1", "LOC-1", constantHistory(5, 1), 0)
	assert.ErrorIs(t, err, domain.ErrInvalidParameters)
}

func TestSmooth(t *testing.T) {
	level, fitted := Smooth([]float64{10, 20}, 0.3)
	assert.InDelta(t, 13.0, level, 1e-12)
	assert.Equal(t, []float64{10, 10}, fitted)

	level, fitted = Smooth(nil, 0.3)
	assert.Equal(t, 0.0, level)
	assert.Nil(t, fitted)
}
