package valuation

import (
	"math"

	"FinScope/internal/domain/models"
	"FinScope/internal/services/indicators"
)

// Config holds the intrinsic-value model assumptions.
type Config struct {
	RiskFreeRate      float64 `yaml:"risk_free_rate" default:"0.04"`
	EquityRiskPremium float64 `yaml:"equity_risk_premium" default:"0.055"`
	MinDiscountRate   float64 `yaml:"min_discount_rate" default:"0.06"`
	MaxDiscountRate   float64 `yaml:"max_discount_rate" default:"0.16"`
	TerminalGrowth    float64 `yaml:"terminal_growth" default:"0.025"`
	MinGrowth         float64 `yaml:"min_growth" default:"-0.05"`
	MaxGrowth         float64 `yaml:"max_growth" default:"0.20"`
	MaxDividendGrowth float64 `yaml:"max_dividend_growth" default:"0.06"`
	ProjectionYears   int     `yaml:"projection_years" default:"5"`
	SignalThreshold   float64 `yaml:"signal_threshold" default:"0.15"`
}

func DefaultConfig() Config {
	return Config{
		RiskFreeRate:      0.04,
		EquityRiskPremium: 0.055,
		MinDiscountRate:   0.06,
		MaxDiscountRate:   0.16,
		TerminalGrowth:    0.025,
		MinGrowth:         -0.05,
		MaxGrowth:         0.20,
		MaxDividendGrowth: 0.06,
		ProjectionYears:   5,
		SignalThreshold:   0.15,
	}
}

// Assumptions derives discount rate, growth and target multiple from a snapshot.
func (c Config) Assumptions(f models.Fundamentals) models.ValuationAssumptions {
	g := indicators.Clamp(f.EarningsGrowth, c.MinGrowth, c.MaxGrowth)
	return models.ValuationAssumptions{
		DiscountRate:    indicators.Clamp(c.RiskFreeRate+f.Beta*c.EquityRiskPremium, c.MinDiscountRate, c.MaxDiscountRate),
		TerminalGrowth:  c.TerminalGrowth,
		Growth:          g,
		DividendGrowth:  math.Min(g, c.MaxDividendGrowth),
		TargetPE:        TargetPE(g),
		ProjectionYears: c.ProjectionYears,
	}
}

// TargetPE scales a base multiple of 12 with growth, bounded to 10..28.
func TargetPE(g float64) float64 {
	return indicators.Clamp(12+0.8*g*100, 10, 28)
}

// DCF discounts projected free cash flow per share plus a Gordon terminal
// value. Unavailable when the discount rate does not exceed terminal growth.
func DCF(fcfPerShare float64, a models.ValuationAssumptions) models.NullFloat {
	r, tg := a.DiscountRate, a.TerminalGrowth
	if r <= tg || a.ProjectionYears <= 0 {
		return models.NullFloat{}
	}
	pv := 0.0
	cf := fcfPerShare
	for t := 1; t <= a.ProjectionYears; t++ {
		cf *= 1 + a.Growth
		pv += cf / math.Pow(1+r, float64(t))
	}
	terminal := cf * (1 + tg) / (r - tg)
	pv += terminal / math.Pow(1+r, float64(a.ProjectionYears))
	return models.Float(pv)
}

// DDM is the Gordon growth value of next year's dividend. Unavailable without
// a dividend or when the discount rate does not exceed dividend growth.
func DDM(dividendPerShare float64, a models.ValuationAssumptions) models.NullFloat {
	if dividendPerShare <= 0 || a.DiscountRate <= a.DividendGrowth {
		return models.NullFloat{}
	}
	return models.Float(dividendPerShare * (1 + a.DividendGrowth) / (a.DiscountRate - a.DividendGrowth))
}

// Multiples prices earnings at the target P/E.
func Multiples(eps float64, a models.ValuationAssumptions) models.NullFloat {
	return models.Float(eps * a.TargetPE)
}

// Anchor averages the model values that are valid, positive and finite.
func Anchor(values ...models.NullFloat) models.NullFloat {
	var sum float64
	var n int
	for _, v := range values {
		if v.Valid && v.Float64 > 0 {
			sum += v.Float64
			n++
		}
	}
	if n == 0 {
		return models.NullFloat{}
	}
	return models.Float(sum / float64(n))
}

// Evaluate runs every model against the snapshot and compares the anchor
// with price.
func (c Config) Evaluate(f models.Fundamentals, price float64) models.ValuationModels {
	a := c.Assumptions(f)
	out := models.ValuationModels{
		DCF:         DCF(f.FCFPerShare, a),
		DDM:         DDM(f.DividendPerShare, a),
		Multiples:   Multiples(f.EPS, a),
		Signal:      models.FairlyValued,
		Assumptions: a,
	}
	out.Anchor = Anchor(out.DCF, out.DDM, out.Multiples)
	if !out.Anchor.Valid || price <= 0 {
		return out
	}
	up := out.Anchor.Float64/price - 1
	out.Upside = models.Float(up)
	switch {
	case up > c.SignalThreshold:
		out.Signal = models.Undervalued
	case up < -c.SignalThreshold:
		out.Signal = models.Overvalued
	}
	return out
}

// UnavailableModels is the model block reported when no fundamentals exist.
func UnavailableModels() models.ValuationModels {
	return models.ValuationModels{Signal: models.FairlyValued}
}
