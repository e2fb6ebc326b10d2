package indicators

import "FinScope/internal/domain/models"

// RSI averages gains and losses over the trailing p diffs at every i >= p.
// Each window is recomputed rather than Wilder-smoothed.
func RSI(closes []float64, p int) []models.NullFloat {
	out := make([]models.NullFloat, len(closes))
	if p <= 0 {
		return out
	}
	for i := p; i < len(closes); i++ {
		var gain, loss float64
		for j := i - p + 1; j <= i; j++ {
			d := closes[j] - closes[j-1]
			if d > 0 {
				gain += d
			} else {
				loss -= d
			}
		}
		avgGain := gain / float64(p)
		avgLoss := loss / float64(p)
		if avgLoss == 0 {
			out[i] = models.Float(100)
			continue
		}
		out[i] = models.Float(100 - 100/(1+avgGain/avgLoss))
	}
	return out
}

// MACDResult holds the MACD line, its signal line and the histogram.
type MACDResult struct {
	MACD   []models.NullFloat
	Signal []models.NullFloat
	Hist   []models.NullFloat
}

// MACD is EMA(fast) - EMA(slow) with an EMA(signal) of that line. The line is
// reported once the slow EMA has seen slow bars, the signal after a further
// signal-1 bars.
func MACD(closes []float64, fast, slow, signal int) MACDResult {
	n := len(closes)
	res := MACDResult{
		MACD:   make([]models.NullFloat, n),
		Signal: make([]models.NullFloat, n),
		Hist:   make([]models.NullFloat, n),
	}
	ef := EMA(closes, fast)
	es := EMA(closes, slow)
	line := make([]float64, n)
	for i := range closes {
		line[i] = ef[i] - es[i]
	}
	sig := EMA(line, signal)

	lineFrom := slow - 1
	sigFrom := slow + signal - 2
	for i := range closes {
		if i >= lineFrom {
			res.MACD[i] = models.Float(line[i])
		}
		if i >= sigFrom {
			res.Signal[i] = models.Float(sig[i])
			res.Hist[i] = models.Float(line[i] - sig[i])
		}
	}
	return res
}

// StochasticResult holds %K and %D.
type StochasticResult struct {
	K []models.NullFloat
	D []models.NullFloat
}

// Stochastic computes %K over the trailing k bars (50 on a flat range) and
// %D as the d-bar SMA of %K with unavailable values read as 50. %D is only
// reported where %K is.
func Stochastic(bars []models.PriceBar, k, d int) StochasticResult {
	n := len(bars)
	res := StochasticResult{
		K: make([]models.NullFloat, n),
		D: make([]models.NullFloat, n),
	}
	if k <= 0 {
		return res
	}
	for i := k - 1; i < n; i++ {
		lo, hi := bars[i-k+1].Low, bars[i-k+1].High
		for j := i - k + 2; j <= i; j++ {
			if bars[j].Low < lo {
				lo = bars[j].Low
			}
			if bars[j].High > hi {
				hi = bars[j].High
			}
		}
		if hi-lo == 0 {
			res.K[i] = models.Float(50)
			continue
		}
		res.K[i] = models.Float(100 * (bars[i].Close - lo) / (hi - lo))
	}

	filled := make([]float64, n)
	for i, v := range res.K {
		filled[i] = v.Or(50)
	}
	smoothed := SMA(filled, d)
	for i := range smoothed {
		if res.K[i].Valid {
			res.D[i] = smoothed[i]
		}
	}
	return res
}
