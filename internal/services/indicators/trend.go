package indicators

import (
	"math"

	"FinScope/internal/domain/models"
)

// ADXResult holds the directional index and both directional indicators.
type ADXResult struct {
	ADX     []models.NullFloat
	PlusDI  []models.NullFloat
	MinusDI []models.NullFloat
}

// ADX sums true range and directional movement over the trailing p bars
// (no Wilder smoothing). Values start at i = p, the first full window of
// directional moves.
func ADX(bars []models.PriceBar, p int) ADXResult {
	n := len(bars)
	res := ADXResult{
		ADX:     make([]models.NullFloat, n),
		PlusDI:  make([]models.NullFloat, n),
		MinusDI: make([]models.NullFloat, n),
	}
	if p <= 0 {
		return res
	}
	tr := TrueRange(bars)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := bars[i].High - bars[i-1].High
		down := bars[i-1].Low - bars[i].Low
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	for i := p; i < n; i++ {
		var sumTR, sumPlus, sumMinus float64
		for j := i - p + 1; j <= i; j++ {
			sumTR += tr[j]
			sumPlus += plusDM[j]
			sumMinus += minusDM[j]
		}
		var pdi, mdi float64
		if sumTR > 0 {
			pdi = 100 * sumPlus / sumTR
			mdi = 100 * sumMinus / sumTR
		}
		adx := 0.0
		if pdi+mdi > 0 {
			adx = 100 * math.Abs(pdi-mdi) / (pdi + mdi)
		}
		res.PlusDI[i] = models.Float(pdi)
		res.MinusDI[i] = models.Float(mdi)
		res.ADX[i] = models.Float(adx)
	}
	return res
}

// DefaultHurst is returned when too few lags can be measured.
const DefaultHurst = 0.5

// Hurst estimates the exponent as the OLS slope of log(√MSD) on log(lag)
// for lags in [2, maxLag). Lags with no displacement are skipped.
func Hurst(closes []float64, maxLag int) float64 {
	var xs, ys []float64
	for lag := 2; lag < maxLag && lag < len(closes); lag++ {
		sum := 0.0
		for i := lag; i < len(closes); i++ {
			d := closes[i] - closes[i-lag]
			sum += d * d
		}
		msd := sum / float64(len(closes)-lag)
		if msd <= 0 {
			continue
		}
		xs = append(xs, math.Log(float64(lag)))
		ys = append(ys, math.Log(math.Sqrt(msd)))
	}
	if len(xs) < 2 {
		return DefaultHurst
	}
	mx, my := Mean(xs), Mean(ys)
	var sxx, sxy float64
	for i := range xs {
		dx := xs[i] - mx
		sxx += dx * dx
		sxy += dx * (ys[i] - my)
	}
	if sxx == 0 {
		return DefaultHurst
	}
	return sxy / sxx
}

// Closes extracts close prices.
func Closes(bars []models.PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Volumes extracts volumes.
func Volumes(bars []models.PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}
