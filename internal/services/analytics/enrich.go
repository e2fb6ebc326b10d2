package analytics

import (
	"FinScope/internal/domain/models"
	"FinScope/internal/services/features"
	"FinScope/internal/services/indicators"
)

// Enrich attaches returns and every indicator to each bar. Bars must all
// carry a usable close.
func Enrich(bars []models.PriceBar, cfg IndicatorConfig) []models.EnrichedBar {
	n := len(bars)
	out := make([]models.EnrichedBar, n)
	if n == 0 {
		return out
	}
	closes := indicators.Closes(bars)
	rets := features.BuildReturns(bars)
	smaFast := indicators.SMA(closes, cfg.SMAFast)
	smaMid := indicators.SMA(closes, cfg.SMAMid)
	smaLong := indicators.SMA(closes, cfg.SMALong)
	emaFast := indicators.EMA(closes, cfg.EMAFast)
	emaSlow := indicators.EMA(closes, cfg.EMASlow)
	rsi := indicators.RSI(closes, cfg.RSIPeriod)
	macd := indicators.MACD(closes, cfg.EMAFast, cfg.EMASlow, cfg.MACDSignal)
	bands := indicators.Bollinger(closes, cfg.BollingerWindow, cfg.BollingerK)
	atr := indicators.ATR(bars, cfg.ATRPeriod)
	stoch := indicators.Stochastic(bars, cfg.StochK, cfg.StochD)
	adx := indicators.ADX(bars, cfg.ADXPeriod)

	for i, b := range bars {
		out[i] = models.EnrichedBar{
			Time:       b.Time,
			Open:       b.Open,
			High:       b.High,
			Low:        b.Low,
			Close:      b.Close,
			Volume:     b.Volume,
			Return:     rets.Simple[i],
			LogReturn:  rets.Log[i],
			SMA20:      smaFast[i],
			SMA50:      smaMid[i],
			SMA200:     smaLong[i],
			EMA12:      models.Float(emaFast[i]),
			EMA26:      models.Float(emaSlow[i]),
			RSI:        rsi[i],
			MACD:       macd.MACD[i],
			MACDSignal: macd.Signal[i],
			MACDHist:   macd.Hist[i],
			BBUpper:    bands.Upper[i],
			BBMiddle:   bands.Middle[i],
			BBLower:    bands.Lower[i],
			ATR:        atr[i],
			StochK:     stoch.K[i],
			StochD:     stoch.D[i],
			ADX:        adx.ADX[i],
			PlusDI:     adx.PlusDI[i],
			MinusDI:    adx.MinusDI[i],
		}
	}
	return out
}
