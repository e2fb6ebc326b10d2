package valuation

import (
	"math"

	"FinScope/internal/domain/models"
	"FinScope/internal/services/indicators"
)

// Verdicts of the stretch score.
const (
	SignificantlyOvervalued  = "SIGNIFICANTLY OVERVALUED"
	Overvalued               = "OVERVALUED"
	SlightlyOvervalued       = "SLIGHTLY OVERVALUED"
	FairlyValued             = "FAIRLY VALUED"
	SlightlyUndervalued      = "SLIGHTLY UNDERVALUED"
	Undervalued              = "UNDERVALUED"
	SignificantlyUndervalued = "SIGNIFICANTLY UNDERVALUED"
)

// Stretch component names.
const (
	ComponentSMA200    = "sma200Deviation"
	ComponentSMA50     = "sma50Deviation"
	ComponentBollinger = "bollingerPercentB"
	ComponentRSI       = "rsi"
	ComponentRange     = "rangePercentile"
)

// VerdictRule labels a stretch score; rules are evaluated in order.
type VerdictRule struct {
	Verdict string
	Match   func(score float64) bool
}

func VerdictRules() []VerdictRule {
	return []VerdictRule{
		{SignificantlyOvervalued, func(s float64) bool { return s > 80 }},
		{Overvalued, func(s float64) bool { return s > 65 }},
		{SlightlyOvervalued, func(s float64) bool { return s > 55 }},
		{SignificantlyUndervalued, func(s float64) bool { return s < 20 }},
		{Undervalued, func(s float64) bool { return s < 35 }},
		{SlightlyUndervalued, func(s float64) bool { return s < 45 }},
	}
}

// Verdict returns the first matching verdict, or FAIRLY VALUED.
func Verdict(score float64) string {
	for _, r := range VerdictRules() {
		if r.Match(score) {
			return r.Verdict
		}
	}
	return FairlyValued
}

// RangeWindow is the 52-week lookback in daily bars.
const RangeWindow = 252

// StretchScore averages the available components, each on a 0..100 scale.
// The last enriched bar supplies price and indicators; bars supply the range.
func StretchScore(series []models.EnrichedBar) models.Stretch {
	if len(series) == 0 {
		return models.Stretch{Score: 50, Verdict: Verdict(50)}
	}
	last := series[len(series)-1]
	price := last.Close

	var comps []models.StretchComponent
	add := func(name string, v float64, ok bool) {
		if ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
			comps = append(comps, models.StretchComponent{Name: name, Value: v})
		}
	}

	if last.SMA200.Valid && last.SMA200.Float64 > 0 {
		add(ComponentSMA200, deviation(price, last.SMA200.Float64, 1), true)
	}
	if last.SMA50.Valid && last.SMA50.Float64 > 0 {
		add(ComponentSMA50, deviation(price, last.SMA50.Float64, 1.5), true)
	}
	if last.BBUpper.Valid && last.BBLower.Valid {
		if width := last.BBUpper.Float64 - last.BBLower.Float64; width > 0 {
			add(ComponentBollinger, indicators.Clamp((price-last.BBLower.Float64)/width*100, 0, 100), true)
		}
	}
	add(ComponentRSI, last.RSI.Float64, last.RSI.Valid)
	add(ComponentRange, rangePercentile(series, price), true)

	out := models.Stretch{Score: 50, Components: comps}
	if len(comps) > 0 {
		var sum float64
		for _, c := range comps {
			sum += c.Value
		}
		out.Score = sum / float64(len(comps))
	}
	out.Verdict = Verdict(out.Score)
	return out
}

// deviation maps the percent distance from a reference onto 0..100.
func deviation(price, ref, scale float64) float64 {
	d := (price/ref - 1) * 100 * scale
	return indicators.Clamp(d, -50, 50) + 50
}

func rangePercentile(series []models.EnrichedBar, price float64) float64 {
	w := series[len(series)-min(RangeWindow, len(series)):]
	hi, lo := math.Inf(-1), math.Inf(1)
	for _, b := range w {
		hi = math.Max(hi, b.High)
		lo = math.Min(lo, b.Low)
	}
	if hi <= lo {
		return 50
	}
	return indicators.Clamp((price-lo)/(hi-lo)*100, 0, 100)
}
