package indicators

import (
	"math"

	"FinScope/internal/domain/models"

	talib "github.com/markcheno/go-talib"
)

// BandsResult holds Bollinger upper, middle and lower bands.
type BandsResult struct {
	Upper  []models.NullFloat
	Middle []models.NullFloat
	Lower  []models.NullFloat
}

// Bollinger bands: middle = SMA(w), upper/lower = middle ± k·σ with the
// population standard deviation of the window. Windows under 2 bars yield
// no bands.
func Bollinger(closes []float64, w int, k float64) BandsResult {
	n := len(closes)
	if w < 2 || n < w {
		return BandsResult{
			Upper:  make([]models.NullFloat, n),
			Middle: make([]models.NullFloat, n),
			Lower:  make([]models.NullFloat, n),
		}
	}
	upper, middle, lower := talib.BBands(closes, w, k, k, talib.SMA)
	return BandsResult{
		Upper:  warmedUp(upper, w-1),
		Middle: warmedUp(middle, w-1),
		Lower:  warmedUp(lower, w-1),
	}
}

// TrueRange is max(H-L, |H-prevC|, |L-prevC|), and H-L on the first bar.
func TrueRange(bars []models.PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		hl := b.High - b.Low
		if i == 0 {
			out[i] = hl
			continue
		}
		pc := bars[i-1].Close
		out[i] = math.Max(hl, math.Max(math.Abs(b.High-pc), math.Abs(b.Low-pc)))
	}
	return out
}

// ATR is the p-bar SMA of the true range.
func ATR(bars []models.PriceBar, p int) []models.NullFloat {
	return SMA(TrueRange(bars), p)
}
