package regime

import "FinScope/internal/domain/models"

// Facts are the inputs the regime rules are evaluated against.
type Facts struct {
	Direction  string
	Strength   float64
	Hurst      float64
	Volatility string
}

// Rule labels a regime when Match holds. Rules are evaluated in order and
// the first match wins.
type Rule struct {
	Label string
	Match func(Facts) bool
}

// Rules returns the regime rules in priority order.
func Rules() []Rule {
	return []Rule{
		{models.RegimeStrongUptrend, func(f Facts) bool {
			return f.Direction == models.Uptrend && f.Strength > 60 && f.Hurst > 0.55
		}},
		{models.RegimeStrongDowntrend, func(f Facts) bool {
			return f.Direction == models.Downtrend && f.Strength > 60 && f.Hurst > 0.55
		}},
		{models.RegimeTrendingUptrend, func(f Facts) bool {
			return f.Direction == models.Uptrend && f.Strength > 40
		}},
		{models.RegimeTrendingDowntrend, func(f Facts) bool {
			return f.Direction == models.Downtrend && f.Strength > 40
		}},
		{models.RegimeMeanReverting, func(f Facts) bool {
			return f.Hurst < 0.45 && calm(f.Volatility)
		}},
		{models.RegimeHighVolatility, func(f Facts) bool {
			return f.Volatility == models.VolHigh
		}},
		{models.RegimeRanging, func(f Facts) bool {
			return f.Direction == models.Sideways && calm(f.Volatility)
		}},
	}
}

// Classify returns the label of the first matching rule, or TRANSITIONING.
func Classify(f Facts, rules []Rule) string {
	for _, r := range rules {
		if r.Match(f) {
			return r.Label
		}
	}
	return models.RegimeTransitioning
}

func calm(vol string) bool { return vol == models.VolLow || vol == models.VolNormal }

// VolRule maps a current/average volatility ratio onto a class.
type VolRule struct {
	Label string
	Match func(ratio float64) bool
}

// VolatilityRules returns the volatility classes in priority order.
func VolatilityRules() []VolRule {
	return []VolRule{
		{models.VolHigh, func(r float64) bool { return r > 1.5 }},
		{models.VolElevated, func(r float64) bool { return r > 1.2 }},
		{models.VolLow, func(r float64) bool { return r < 0.8 }},
	}
}

// ClassifyVolatility returns the first matching class, or NORMAL.
func ClassifyVolatility(ratio float64, rules []VolRule) string {
	for _, r := range rules {
		if r.Match(ratio) {
			return r.Label
		}
	}
	return models.VolNormal
}
