package signals

import (
	"fmt"

	"FinScope/internal/domain/models"
	"FinScope/internal/services/indicators"
)

// ZScore reads the latest close against the trailing window mean and
// population stdev. A flat window yields z = 0.
func ZScore(closes []float64, window int) models.SignalResult {
	n := len(closes)
	if window < 2 || n < window {
		return neutral("insufficient data")
	}
	w := closes[n-window:]
	mean := indicators.Mean(w)
	sd := indicators.StdDev(w)
	z := 0.0
	if sd > 0 {
		z = (closes[n-1] - mean) / sd
	}

	res := models.SignalResult{
		Signal:      models.Neutral,
		Diagnostics: map[string]float64{"zscore": z, "mean": mean, "stdev": sd},
	}
	switch {
	case z > 2:
		res.Signal = models.StrongSell
	case z > 1:
		res.Signal = models.Sell
	case z < -2:
		res.Signal = models.StrongBuy
	case z < -1:
		res.Signal = models.Buy
	}
	res.Reason = fmt.Sprintf("price %.2f stdev from %d-bar mean", z, window)
	return res
}

// Momentum averages the percent return over each period the history covers.
// STRONG tiers also require every period to agree in sign.
func Momentum(closes []float64, periods []int) models.SignalResult {
	n := len(closes)
	diag := map[string]float64{}
	var sum float64
	var used, pos, neg int
	for _, p := range periods {
		if p <= 0 || n <= p {
			continue
		}
		ret := (closes[n-1]/closes[n-1-p] - 1) * 100
		diag[fmt.Sprintf("ret_%d", p)] = ret
		sum += ret
		used++
		if ret > 0 {
			pos++
		} else if ret < 0 {
			neg++
		}
	}
	if used == 0 {
		return neutral("insufficient data")
	}
	avg := sum / float64(used)
	diag["average"] = avg

	res := models.SignalResult{Signal: models.Neutral, Diagnostics: diag}
	switch {
	case avg > 5 && pos == used:
		res.Signal = models.StrongBuy
	case avg > 2:
		res.Signal = models.Buy
	case avg < -5 && neg == used:
		res.Signal = models.StrongSell
	case avg < -2:
		res.Signal = models.Sell
	}
	res.Reason = fmt.Sprintf("average %.2f%% over %d periods", avg, used)
	return res
}

// Volume scores the latest volume against the window of bars before it and
// takes the direction from the latest close-to-close move.
func Volume(volumes, closes []float64, window int) models.SignalResult {
	n := len(volumes)
	if window < 2 || n < window+1 || len(closes) != n {
		return neutral("insufficient data")
	}
	w := volumes[n-1-window : n-1]
	mean := indicators.Mean(w)
	sd := indicators.StdDev(w)
	if sd == 0 {
		return neutral("flat volume")
	}
	z := (volumes[n-1] - mean) / sd
	move := closes[n-1] - closes[n-2]

	res := models.SignalResult{
		Signal:      models.Neutral,
		Diagnostics: map[string]float64{"zscore": z, "mean": mean, "priceChange": move},
	}
	if z > 1 && move != 0 {
		strong := z > 2
		switch {
		case move > 0 && strong:
			res.Signal = models.StrongBuy
		case move > 0:
			res.Signal = models.Buy
		case strong:
			res.Signal = models.StrongSell
		default:
			res.Signal = models.Sell
		}
	}
	res.Reason = fmt.Sprintf("volume %.2f stdev from %d-bar mean", z, window)
	return res
}

func neutral(reason string) models.SignalResult {
	return models.SignalResult{Signal: models.Neutral, Reason: reason}
}
