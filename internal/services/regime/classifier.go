package regime

import (
	"math"

	"FinScope/internal/domain/models"
	"FinScope/internal/services/features"
	"FinScope/internal/services/indicators"
)

// Config holds the windows and thresholds of the regime classifier.
type Config struct {
	TrendWindow    int     `yaml:"trend_window" default:"50"`
	FastMA         int     `yaml:"fast_ma" default:"20"`
	SlowMA         int     `yaml:"slow_ma" default:"50"`
	SlopeThreshold float64 `yaml:"slope_threshold" default:"0.1"`
	VolWindow      int     `yaml:"vol_window" default:"20"`
	PeriodsPerYear float64 `yaml:"periods_per_year" default:"252"`
	HurstMaxLag    int     `yaml:"hurst_max_lag" default:"20"`
}

// DefaultConfig returns the standard classifier settings.
func DefaultConfig() Config {
	return Config{
		TrendWindow:    50,
		FastMA:         20,
		SlowMA:         50,
		SlopeThreshold: 0.1,
		VolWindow:      20,
		PeriodsPerYear: 252,
		HurstMaxLag:    20,
	}
}

// Classifier combines trend, volatility and the Hurst estimate into a regime.
type Classifier struct {
	cfg      Config
	rules    []Rule
	volRules []VolRule
}

func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg, rules: Rules(), volRules: VolatilityRules()}
}

// Detect classifies a close series. Closes must be positive.
func (c *Classifier) Detect(closes []float64) models.Regime {
	trend := c.Trend(closes)
	vol := c.Volatility(closes)
	h := indicators.Hurst(closes, c.cfg.HurstMaxLag)
	return models.Regime{
		Trend:      trend,
		Volatility: vol,
		Hurst:      h,
		Overall: Classify(Facts{
			Direction:  trend.Direction,
			Strength:   trend.Strength,
			Hurst:      h,
			Volatility: vol.Classification,
		}, c.rules),
	}
}

// Trend fits the last TrendWindow closes. The slope is normalised to percent
// of the window mean per bar.
func (c *Classifier) Trend(closes []float64) models.Trend {
	out := models.Trend{Direction: models.Sideways, MAAlignment: c.alignment(closes)}
	n := len(closes)
	if n == 0 {
		return out
	}
	w := closes[n-min(c.cfg.TrendWindow, n):]
	fit := indicators.FitLine(w)
	mean := indicators.Mean(w)
	if mean != 0 {
		out.Slope = fit.Slope / mean * 100
	}
	out.RSquared = fit.RSquared
	out.Strength = math.Min(100, math.Abs(out.Slope)*10*fit.RSquared)

	switch {
	case out.Slope > c.cfg.SlopeThreshold && out.MAAlignment == models.Uptrend:
		out.Direction = models.Uptrend
	case out.Slope < -c.cfg.SlopeThreshold && out.MAAlignment == models.Downtrend:
		out.Direction = models.Downtrend
	}
	return out
}

func (c *Classifier) alignment(closes []float64) string {
	n := len(closes)
	if n == 0 {
		return models.Flat
	}
	fast := indicators.SMA(closes, c.cfg.FastMA)[n-1]
	slow := indicators.SMA(closes, c.cfg.SlowMA)[n-1]
	if !fast.Valid || !slow.Valid {
		return models.Flat
	}
	if fast.Float64 > slow.Float64 {
		return models.Uptrend
	}
	return models.Downtrend
}

// Volatility compares the latest rolling stdev of returns with the mean of
// every rolling window in the history, both annualised in percent. Without
// a full window the whole return series stands in for both.
func (c *Classifier) Volatility(closes []float64) models.Volatility {
	rets := features.ReturnsFromCloses(closes)
	ann := math.Sqrt(c.cfg.PeriodsPerYear) * 100
	w := c.cfg.VolWindow

	var cur, avg float64
	if w > 1 && len(rets) >= w {
		rolling := make([]float64, 0, len(rets)-w+1)
		for i := w; i <= len(rets); i++ {
			rolling = append(rolling, indicators.SampleStdDev(rets[i-w:i])*ann)
		}
		cur = rolling[len(rolling)-1]
		avg = indicators.Mean(rolling)
	} else {
		cur = indicators.SampleStdDev(rets) * ann
		avg = cur
	}

	ratio := 1.0
	if avg > 0 {
		ratio = cur / avg
	}
	return models.Volatility{
		Current:        cur,
		Average:        avg,
		Ratio:          ratio,
		Classification: ClassifyVolatility(ratio, c.volRules),
	}
}
