package stats

import (
	"math"
	"testing"
	"time"

	"github.com/andresuchdata/stockopt/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariance(t *testing.T) {
	testCases := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"single value", []float64{42}, 0},
		{"constant", []float64{10, 10, 10, 10}, 0},
		{"sample variance", []float64{2, 4, 4, 4, 5, 5, 7, 9}, 32.0 / 7.0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Variance(tc.values), 1e-12)
		})
	}
}

func TestLinearTrendSlope(t *testing.T) {
	assert.Equal(t, 0.0, LinearTrendSlope(nil))
	assert.Equal(t, 0.0, LinearTrendSlope([]float64{3}))
	assert.InDelta(t, 1.0, LinearTrendSlope([]float64{1, 2, 3, 4, 5}), 1e-12)
	assert.InDelta(t, -2.0, LinearTrendSlope([]float64{10, 8, 6, 4}), 1e-12)
	assert.InDelta(t, 0.0, LinearTrendSlope([]float64{5, 5, 5, 5}), 1e-12)
}

func TestInverseNormalCDF(t *testing.T) {
	assert.InDelta(t, 0.0, InverseNormalCDF(0.5), 1e-9)
	assert.InDelta(t, 1.6449, InverseNormalCDF(0.95), 1e-3)
	assert.InDelta(t, 1.9600, InverseNormalCDF(0.975), 1e-3)
	assert.InDelta(t, 2.3263, InverseNormalCDF(0.99), 1e-3)
	assert.InDelta(t, 0.8416, InverseNormalCDF(0.80), 1e-3)

	for _, p := range []float64{0.01, 0.1, 0.3, 0.45} {
		assert.InDelta(t, -InverseNormalCDF(1-p), InverseNormalCDF(p), 1e-9, "p=%v", p)
	}

	for _, p := range []float64{0, 1, -0.2, 1.5, math.NaN()} {
		assert.Equal(t, 0.0, InverseNormalCDF(p), "p=%v", p)
	}
}

func TestNormalCDFRoundTrip(t *testing.T) {
	for _, p := range []float64{0.05, 0.5, 0.9, 0.95, 0.99} {
		assert.InDelta(t, p, NormalCDF(InverseNormalCDF(p)), 1e-4, "p=%v", p)
	}
}

func dailyHistory(start time.Time, days int, qty func(time.Time) float64) []domain.DemandObservation {
	history := make([]domain.DemandObservation, 0, days)
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i)
		history = append(history, domain.DemandObservation{Date: d, Quantity: qty(d)})
	}
	return history
}

func TestSeasonalIndexDecemberPeak(t *testing.T) {
	start := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	history := dailyHistory(start, 731, func(d time.Time) float64 {
		if d.Month() == time.December {
			return 20
		}
		return 10
	})

	index := SeasonalIndex(history)
	require.Len(t, index, 12)

	// December averages exactly twice any other month.
	for m := time.January; m < time.December; m++ {
		assert.InDelta(t, 2.0, index[time.December]/index[m], 1e-9, "month %s", m)
	}
	// Absolute December index is about 1.84 (20 over the overall daily average).
	assert.Greater(t, index[time.December], 1.8)

	peaks := PeakMonths(SeasonalFactors(index))
	assert.Equal(t, []time.Month{time.December}, peaks)
}

func TestSeasonalIndexOmitsMissingMonths(t *testing.T) {
	history := []domain.DemandObservation{
		{Date: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), Quantity: 10},
		{Date: time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), Quantity: 30},
	}

	index := SeasonalIndex(history)
	assert.Len(t, index, 2)
	assert.InDelta(t, 0.5, index[time.March], 1e-12)
	assert.InDelta(t, 1.5, index[time.April], 1e-12)

	factors := SeasonalFactors(index)
	assert.Equal(t, 1.0, factors[0])
	assert.InDelta(t, 0.5, factors[2], 1e-12)
	assert.InDelta(t, 1.5, factors[3], 1e-12)
}

func TestSeasonalIndexZeroDemand(t *testing.T) {
	history := []domain.DemandObservation{
		{Date: time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), Quantity: 0},
	}
	assert.Equal(t, map[time.Month]float64{time.May: 1.0}, SeasonalIndex(history))
	assert.Empty(t, SeasonalIndex(nil))
}

func TestFillDailyGaps(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC) }
	history := []domain.DemandObservation{
		{Date: day(1), Quantity: 5},
		{Date: day(3), Quantity: 4},
		{Date: day(3).Add(6 * time.Hour), Quantity: 3},
	}

	filled := FillDailyGaps(history, day(4).Add(15*time.Hour))
	require.Len(t, filled, 4)
	assert.Equal(t, []float64{5, 0, 7, 0}, Quantities(filled))
	assert.Equal(t, day(2), filled[1].Date)

	assert.Nil(t, FillDailyGaps(nil, day(4)))
}
