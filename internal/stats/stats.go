// Package stats holds the pure numerical primitives behind forecasting and
// stock sizing. Nothing here performs I/O or reads the clock.
package stats

import (
	"math"
	"time"

	"github.com/andresuchdata/stockopt/internal/domain"
)

// slopeEpsilon guards the least-squares denominator against singular inputs.
const slopeEpsilon = 1e-10

// PeakThreshold is the multiple of the mean seasonal index above which a month is a peak.
const PeakThreshold = 1.2

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Variance returns the sample variance (n-1 denominator); 0 when n < 2.
func Variance(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	mean := Mean(values)
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return ss / float64(n-1)
}

// StdDev is the square root of Variance.
func StdDev(values []float64) float64 {
	return math.Sqrt(Variance(values))
}

// LinearTrendSlope fits quantity against index position 0..n-1 by ordinary
// least squares and returns the slope; 0 for n < 2 or a singular fit.
func LinearTrendSlope(values []float64) float64 {
	n := float64(len(values))
	if len(values) < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denominator := n*sumXX - sumX*sumX
	if math.Abs(denominator) < slopeEpsilon {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denominator
}

// SeasonalIndex averages demand per calendar month and divides by the overall
// average. Months without observations are omitted.
func SeasonalIndex(history []domain.DemandObservation) map[time.Month]float64 {
	index := make(map[time.Month]float64)
	if len(history) == 0 {
		return index
	}

	sums := make(map[time.Month]float64)
	counts := make(map[time.Month]int)
	var total float64
	for _, obs := range history {
		m := obs.Date.Month()
		sums[m] += obs.Quantity
		counts[m]++
		total += obs.Quantity
	}

	overall := total / float64(len(history))
	if overall == 0 {
		// Zero demand everywhere: no month stands out.
		for m := range counts {
			index[m] = 1.0
		}
		return index
	}

	for m, sum := range sums {
		index[m] = (sum / float64(counts[m])) / overall
	}
	return index
}

// SeasonalFactors expands a month index into a January..December array,
// defaulting missing months to 1.0.
func SeasonalFactors(index map[time.Month]float64) [12]float64 {
	var factors [12]float64
	for i := range factors {
		factors[i] = 1.0
		if v, ok := index[time.Month(i+1)]; ok {
			factors[i] = v
		}
	}
	return factors
}

// PeakMonths returns the months whose index exceeds PeakThreshold times the mean index.
func PeakMonths(factors [12]float64) []time.Month {
	mean := Mean(factors[:])
	var peaks []time.Month
	for i, v := range factors {
		if v > PeakThreshold*mean {
			peaks = append(peaks, time.Month(i+1))
		}
	}
	return peaks
}

// Beasley-Springer-Moro coefficients.
var (
	bsmA = [4]float64{2.50662823884, -18.61500062529, 41.39119773534, -25.44106049637}
	bsmB = [4]float64{-8.47351093090, 23.08336743743, -21.06224101826, 3.13082909833}
	bsmC = [9]float64{
		0.3374754822726147, 0.9761690190917186, 0.1607979714918209,
		0.0276438810333863, 0.0038405729373609, 0.0003951896511919,
		0.0000321767881768, 0.0000002888167364, 0.0000003960315187,
	}
)

// InverseNormalCDF maps a probability in (0,1) to a standard normal z-score.
// Probabilities outside (0,1) return 0.
func InverseNormalCDF(p float64) float64 {
	if p <= 0 || p >= 1 || math.IsNaN(p) {
		return 0
	}

	y := p - 0.5
	if math.Abs(y) < 0.42 {
		r := y * y
		num := y * (((bsmA[3]*r+bsmA[2])*r+bsmA[1])*r + bsmA[0])
		den := (((bsmB[3]*r+bsmB[2])*r+bsmB[1])*r+bsmB[0])*r + 1
		return num / den
	}

	r := p
	if y > 0 {
		r = 1 - p
	}
	r = math.Log(-math.Log(r))
	x := bsmC[8]
	for i := 7; i >= 0; i-- {
		x = bsmC[i] + r*x
	}
	if y < 0 {
		x = -x
	}
	return x
}

// NormalCDF is the standard normal cumulative distribution function.
func NormalCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// Quantities extracts the quantity column of a history.
func Quantities(history []domain.DemandObservation) []float64 {
	values := make([]float64, len(history))
	for i, obs := range history {
		values[i] = obs.Quantity
	}
	return values
}

// FillDailyGaps expands an ascending history into one observation per
// UTC calendar day, from the first observation through `through`. Missing days
// carry zero demand and same-day rows are summed.
func FillDailyGaps(history []domain.DemandObservation, through time.Time) []domain.DemandObservation {
	if len(history) == 0 {
		return nil
	}

	start := truncateDay(history[0].Date)
	end := truncateDay(through)
	if last := truncateDay(history[len(history)-1].Date); last.After(end) {
		end = last
	}

	byDay := make(map[time.Time]float64, len(history))
	for _, obs := range history {
		byDay[truncateDay(obs.Date)] += obs.Quantity
	}

	days := int(end.Sub(start).Hours()/24) + 1
	filled := make([]domain.DemandObservation, 0, days)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		filled = append(filled, domain.DemandObservation{Date: d, Quantity: byDay[d]})
	}
	return filled
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
