package analytics

import (
	"FinScope/internal/services/regime"
	"FinScope/internal/services/risk"
	"FinScope/internal/services/signals"
	"FinScope/internal/services/valuation"
)

// IndicatorConfig holds the indicator windows used to enrich a series.
type IndicatorConfig struct {
	SMAFast         int     `yaml:"sma_fast" default:"20"`
	SMAMid          int     `yaml:"sma_mid" default:"50"`
	SMALong         int     `yaml:"sma_long" default:"200"`
	EMAFast         int     `yaml:"ema_fast" default:"12"`
	EMASlow         int     `yaml:"ema_slow" default:"26"`
	MACDSignal      int     `yaml:"macd_signal" default:"9"`
	RSIPeriod       int     `yaml:"rsi_period" default:"14"`
	BollingerWindow int     `yaml:"bollinger_window" default:"20"`
	BollingerK      float64 `yaml:"bollinger_k" default:"2"`
	ATRPeriod       int     `yaml:"atr_period" default:"14"`
	StochK          int     `yaml:"stoch_k" default:"14"`
	StochD          int     `yaml:"stoch_d" default:"3"`
	ADXPeriod       int     `yaml:"adx_period" default:"14"`
}

// RecommendConfig weights the recommendation components.
type RecommendConfig struct {
	TechnicalWeight   float64 `yaml:"technical_weight" default:"0.3"`
	StatisticalWeight float64 `yaml:"statistical_weight" default:"0.35"`
	RegimeWeight      float64 `yaml:"regime_weight" default:"0.25"`
	ValuationWeight   float64 `yaml:"valuation_weight" default:"0.1"`
	// HighRiskFactor damps the final score when risk is HIGH.
	HighRiskFactor float64 `yaml:"high_risk_factor" default:"0.7"`
}

// Config is the full engine configuration. The engine reads no globals.
type Config struct {
	Indicators     IndicatorConfig  `yaml:"indicators"`
	Regime         regime.Config    `yaml:"regime"`
	Signals        signals.Config   `yaml:"signals"`
	Risk           risk.Config      `yaml:"risk"`
	Valuation      valuation.Config `yaml:"valuation"`
	Recommendation RecommendConfig  `yaml:"recommendation"`
}

func DefaultIndicatorConfig() IndicatorConfig {
	return IndicatorConfig{
		SMAFast:         20,
		SMAMid:          50,
		SMALong:         200,
		EMAFast:         12,
		EMASlow:         26,
		MACDSignal:      9,
		RSIPeriod:       14,
		BollingerWindow: 20,
		BollingerK:      2,
		ATRPeriod:       14,
		StochK:          14,
		StochD:          3,
		ADXPeriod:       14,
	}
}

func DefaultRecommendConfig() RecommendConfig {
	return RecommendConfig{
		TechnicalWeight:   0.3,
		StatisticalWeight: 0.35,
		RegimeWeight:      0.25,
		ValuationWeight:   0.1,
		HighRiskFactor:    0.7,
	}
}

func DefaultConfig() Config {
	return Config{
		Indicators:     DefaultIndicatorConfig(),
		Regime:         regime.DefaultConfig(),
		Signals:        signals.DefaultConfig(),
		Risk:           risk.DefaultConfig(),
		Valuation:      valuation.DefaultConfig(),
		Recommendation: DefaultRecommendConfig(),
	}
}
