package signals

import (
	"fmt"

	"FinScope/internal/domain/models"
)

// Indicator names reported on TechSignal.
const (
	IndicatorRSI       = "RSI"
	IndicatorMACD      = "MACD"
	IndicatorBollinger = "Bollinger"
	IndicatorADX       = "ADX"
)

// Technical reads RSI, MACD, Bollinger and ADX at the latest enriched bar.
func Technical(last models.EnrichedBar) []models.TechSignal {
	return []models.TechSignal{
		rsiSignal(last.RSI),
		macdSignal(last.MACD, last.MACDSignal),
		bollingerSignal(last.Close, last.BBUpper, last.BBLower),
		adxSignal(last.ADX, last.PlusDI, last.MinusDI),
	}
}

// TechnicalScore sums the signal scores, each in -2..2.
func TechnicalScore(ts []models.TechSignal) float64 {
	total := 0
	for _, s := range ts {
		total += s.Signal.Score()
	}
	return float64(total)
}

func unavailable(name string) models.TechSignal {
	return models.TechSignal{Indicator: name, Signal: models.Neutral, Reason: "insufficient data"}
}

func rsiSignal(rsi models.NullFloat) models.TechSignal {
	if !rsi.Valid {
		return unavailable(IndicatorRSI)
	}
	s := models.TechSignal{Indicator: IndicatorRSI, Signal: models.Neutral, Value: rsi}
	switch {
	case rsi.Float64 < 30:
		s.Signal = models.Buy
		s.Reason = fmt.Sprintf("oversold at %.1f", rsi.Float64)
	case rsi.Float64 > 70:
		s.Signal = models.Sell
		s.Reason = fmt.Sprintf("overbought at %.1f", rsi.Float64)
	default:
		s.Reason = fmt.Sprintf("neutral at %.1f", rsi.Float64)
	}
	return s
}

func macdSignal(line, signal models.NullFloat) models.TechSignal {
	if !line.Valid {
		return unavailable(IndicatorMACD)
	}
	s := models.TechSignal{Indicator: IndicatorMACD, Signal: models.Neutral, Value: line, Reason: "flat"}
	crossed := signal.Valid
	switch {
	case line.Float64 > 0 && crossed && line.Float64 > signal.Float64:
		s.Signal, s.Reason = models.StrongBuy, "positive and above signal line"
	case line.Float64 > 0:
		s.Signal, s.Reason = models.Buy, "positive"
	case line.Float64 < 0 && crossed && line.Float64 < signal.Float64:
		s.Signal, s.Reason = models.StrongSell, "negative and below signal line"
	case line.Float64 < 0:
		s.Signal, s.Reason = models.Sell, "negative"
	}
	return s
}

func bollingerSignal(price float64, upper, lower models.NullFloat) models.TechSignal {
	if !upper.Valid || !lower.Valid {
		return unavailable(IndicatorBollinger)
	}
	s := models.TechSignal{Indicator: IndicatorBollinger, Signal: models.Neutral, Reason: "inside bands"}
	if width := upper.Float64 - lower.Float64; width > 0 {
		s.Value = models.Float((price - lower.Float64) / width)
	}
	switch {
	case price < lower.Float64:
		s.Signal, s.Reason = models.Buy, "below lower band"
	case price > upper.Float64:
		s.Signal, s.Reason = models.Sell, "above upper band"
	}
	return s
}

func adxSignal(adx, plus, minus models.NullFloat) models.TechSignal {
	if !adx.Valid || !plus.Valid || !minus.Valid {
		return unavailable(IndicatorADX)
	}
	s := models.TechSignal{Indicator: IndicatorADX, Signal: models.Neutral, Value: adx}
	if adx.Float64 < 20 || plus.Float64 == minus.Float64 {
		s.Reason = fmt.Sprintf("weak trend at %.1f", adx.Float64)
		return s
	}
	strong := adx.Float64 >= 40
	up := plus.Float64 > minus.Float64
	switch {
	case up && strong:
		s.Signal = models.StrongBuy
	case up:
		s.Signal = models.Buy
	case strong:
		s.Signal = models.StrongSell
	default:
		s.Signal = models.Sell
	}
	dir := "bearish"
	if up {
		dir = "bullish"
	}
	s.Reason = fmt.Sprintf("%s trend at %.1f", dir, adx.Float64)
	return s
}
