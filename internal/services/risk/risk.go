package risk

import (
	"math"
	"sort"

	"FinScope/internal/domain/models"
	"FinScope/internal/services/indicators"
)

// Config carries the annualisation and risk-free assumptions.
type Config struct {
	RiskFreeRate float64 `yaml:"risk_free_rate" default:"0.02"`
	TradingDays  float64 `yaml:"trading_days" default:"252"`
	// TailQuantile is the VaR/CVaR percentile, 0.05 for 95%.
	TailQuantile float64 `yaml:"tail_quantile" default:"0.05"`
}

func DefaultConfig() Config {
	return Config{RiskFreeRate: 0.02, TradingDays: 252, TailQuantile: 0.05}
}

// Level rules, first match wins.
type LevelRule struct {
	Level string
	Match func(volatility, maxDrawdown float64) bool
}

func LevelRules() []LevelRule {
	return []LevelRule{
		{models.RiskHigh, func(v, dd float64) bool { return v > 40 || dd < -30 }},
		{models.RiskMedium, func(v, dd float64) bool { return v > 25 || dd < -20 }},
	}
}

// Level classifies annualised volatility and max drawdown, both in percent.
func Level(volatility, maxDrawdown float64) string {
	for _, r := range LevelRules() {
		if r.Match(volatility, maxDrawdown) {
			return r.Level
		}
	}
	return models.RiskLow
}

// Compute derives the risk metrics of a simple-return series. Volatility,
// drawdown, VaR and CVaR are reported in percent.
func Compute(returns []float64, cfg Config) models.RiskMetrics {
	if len(returns) < 2 {
		return models.RiskMetrics{RiskLevel: models.RiskLow}
	}
	ann := math.Sqrt(cfg.TradingDays)
	mean := indicators.Mean(returns)
	sd := indicators.SampleStdDev(returns)
	if negligible(sd, mean) {
		sd = 0
	}
	annReturn := mean * cfg.TradingDays

	m := models.RiskMetrics{Volatility: sd * ann * 100}
	if sd > 0 {
		m.Sharpe = (annReturn - cfg.RiskFreeRate) / (sd * ann)
	}
	if dd := DownsideDeviation(returns); dd > 0 {
		m.Sortino = (annReturn - cfg.RiskFreeRate) / (dd * ann)
	}
	m.MaxDrawdown = MaxDrawdown(returns) * 100
	v, cv := HistoricalVaR(returns, cfg.TailQuantile)
	m.VaR95 = v * 100
	m.CVaR95 = cv * 100
	m.RiskLevel = Level(m.Volatility, m.MaxDrawdown)
	return m
}

// negligible reports whether a dispersion is rounding noise around mean.
func negligible(sd, mean float64) bool {
	return sd <= zeroTolerance*math.Max(1, math.Abs(mean))
}

const zeroTolerance = 1e-12

// DownsideDeviation is the root mean square of the negative returns. Returns
// within rounding noise of zero do not count as losses.
func DownsideDeviation(returns []float64) float64 {
	var sum float64
	var n int
	for _, r := range returns {
		if r < -zeroTolerance {
			sum += r * r
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}

// MaxDrawdown is the deepest fall of the compounded equity curve from its
// running peak, as a non-positive fraction.
func MaxDrawdown(returns []float64) float64 {
	equity, peak, maxDD := 1.0, 1.0, 0.0
	for _, r := range returns {
		equity *= 1 + r
		if equity > peak {
			peak = equity
		}
		if dd := equity/peak - 1; dd < maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// HistoricalVaR returns the q-quantile return and the mean of every return
// at or below it. Both are signed fractions.
func HistoricalVaR(returns []float64, q float64) (float64, float64) {
	if len(returns) == 0 {
		return 0, 0
	}
	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)
	idx := int(math.Floor(q * float64(len(sorted))))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx], indicators.Mean(sorted[:idx+1])
}
