package features

import (
	"math"

	"FinScope/internal/domain/models"
)

// Returns holds per-bar simple and log returns aligned with the input bars.
// The first valid bar and every bar without a usable close are unavailable.
type Returns struct {
	Simple []models.NullFloat
	Log    []models.NullFloat
}

// BuildReturns derives returns against the previous bar with a usable close.
// Bars with a missing close are skipped, never read as a zero return.
func BuildReturns(bars []models.PriceBar) Returns {
	out := Returns{
		Simple: make([]models.NullFloat, len(bars)),
		Log:    make([]models.NullFloat, len(bars)),
	}
	prev := math.NaN()
	for i, b := range bars {
		if !b.HasClose() {
			continue
		}
		if !math.IsNaN(prev) {
			out.Simple[i] = models.Float(b.Close/prev - 1)
			out.Log[i] = models.Float(math.Log(b.Close / prev))
		}
		prev = b.Close
	}
	return out
}

// ComputeSimpleReturns returns only the defined simple returns, in order.
func ComputeSimpleReturns(bars []models.PriceBar) []float64 {
	return compact(BuildReturns(bars).Simple)
}

// ComputeLogReturns computes log returns r_t = ln(C_t / C_{t-1}) over usable closes.
func ComputeLogReturns(bars []models.PriceBar) []float64 {
	return compact(BuildReturns(bars).Log)
}

// ReturnsFromCloses computes simple returns of a close series with no gaps.
func ReturnsFromCloses(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		out = append(out, closes[i]/closes[i-1]-1)
	}
	return out
}

// ValidBars keeps bars with a usable close, preserving order.
func ValidBars(bars []models.PriceBar) []models.PriceBar {
	out := make([]models.PriceBar, 0, len(bars))
	for _, b := range bars {
		if b.HasClose() {
			out = append(out, b)
		}
	}
	return out
}

// RealizedVolatility computes annualized volatility over the trailing window
// using the sample variance. Returns 0 when the window is not filled.
func RealizedVolatility(returns []float64, window int, periodsPerYear float64) float64 {
	if window <= 1 || len(returns) < window {
		return 0
	}
	sum := 0.0
	sum2 := 0.0
	for i := len(returns) - window; i < len(returns); i++ {
		r := returns[i]
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance * periodsPerYear)
}

func compact(xs []models.NullFloat) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if x.Valid {
			out = append(out, x.Float64)
		}
	}
	return out
}
