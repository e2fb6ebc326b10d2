package models

import (
	"encoding/json"
	"math"
	"time"
)

// NullFloat is a float64 that may be unavailable, e.g. an indicator before
// its warm-up window. It marshals to JSON null when not valid.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Float returns a NullFloat that is valid only for finite values.
func Float(v float64) NullFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NullFloat{}
	}
	return NullFloat{Float64: v, Valid: true}
}

// Or returns the value, or def when unavailable.
func (n NullFloat) Or(def float64) float64 {
	if !n.Valid {
		return def
	}
	return n.Float64
}

func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}

func (n *NullFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = NullFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = Float(v)
	return nil
}

// PriceBar is one OHLCV record. A missing close is carried as NaN.
type PriceBar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

type priceBarJSON struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  NullFloat `json:"close"`
	Volume float64   `json:"volume"`
}

// HasClose reports whether the bar carries a usable close price.
func (b PriceBar) HasClose() bool {
	return !math.IsNaN(b.Close) && !math.IsInf(b.Close, 0) && b.Close > 0
}

func (b PriceBar) MarshalJSON() ([]byte, error) {
	return json.Marshal(priceBarJSON{
		Time:   b.Time,
		Open:   b.Open,
		High:   b.High,
		Low:    b.Low,
		Close:  Float(b.Close),
		Volume: b.Volume,
	})
}

func (b *PriceBar) UnmarshalJSON(data []byte) error {
	var raw priceBarJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = PriceBar{
		Time:   raw.Time,
		Open:   raw.Open,
		High:   raw.High,
		Low:    raw.Low,
		Close:  raw.Close.Or(math.NaN()),
		Volume: raw.Volume,
	}
	return nil
}

// EnrichedBar is a PriceBar with returns and every indicator output at that index.
type EnrichedBar struct {
	Time       time.Time `json:"time"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     float64   `json:"volume"`
	Return     NullFloat `json:"return"`
	LogReturn  NullFloat `json:"logReturn"`
	SMA20      NullFloat `json:"sma20"`
	SMA50      NullFloat `json:"sma50"`
	SMA200     NullFloat `json:"sma200"`
	EMA12      NullFloat `json:"ema12"`
	EMA26      NullFloat `json:"ema26"`
	RSI        NullFloat `json:"rsi"`
	MACD       NullFloat `json:"macd"`
	MACDSignal NullFloat `json:"macdSignal"`
	MACDHist   NullFloat `json:"macdHist"`
	BBUpper    NullFloat `json:"bbUpper"`
	BBMiddle   NullFloat `json:"bbMiddle"`
	BBLower    NullFloat `json:"bbLower"`
	ATR        NullFloat `json:"atr"`
	StochK     NullFloat `json:"stochK"`
	StochD     NullFloat `json:"stochD"`
	ADX        NullFloat `json:"adx"`
	PlusDI     NullFloat `json:"plusDI"`
	MinusDI    NullFloat `json:"minusDI"`
}
