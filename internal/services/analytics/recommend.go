package analytics

import (
	"fmt"
	"math"

	"FinScope/internal/domain/models"
	"FinScope/internal/services/signals"
)

// RecommendInput gathers everything the synthesizer reads.
type RecommendInput struct {
	Tech      []models.TechSignal
	Aggregate models.AggregateSignal
	Regime    models.Regime
	Valuation models.ValuationModels
	RiskLevel string
}

type actionRule struct {
	action string
	match  func(score float64) bool
	cap    float64
}

var actionRules = []actionRule{
	{models.ActionStrongBuy, func(s float64) bool { return s >= 1.2 }, 0.90},
	{models.ActionBuy, func(s float64) bool { return s >= 0.4 }, 0.75},
	{models.ActionStrongSell, func(s float64) bool { return s <= -1.2 }, 0.90},
	{models.ActionSell, func(s float64) bool { return s <= -0.4 }, 0.75},
}

// RegimeScore is +1/-1 for strong trends, +0.5/-0.5 for trending ones.
func RegimeScore(overall string) float64 {
	switch overall {
	case models.RegimeStrongUptrend:
		return 1
	case models.RegimeTrendingUptrend:
		return 0.5
	case models.RegimeStrongDowntrend:
		return -1
	case models.RegimeTrendingDowntrend:
		return -0.5
	}
	return 0
}

// ValuationBias maps the intrinsic-value signal onto -1..1.
func ValuationBias(signal string) float64 {
	switch signal {
	case models.Undervalued:
		return 1
	case models.Overvalued:
		return -1
	}
	return 0
}

// Recommend merges the component scores into one action.
func Recommend(in RecommendInput, cfg RecommendConfig) models.Recommendation {
	comp := models.RecommendationComponents{
		Technical:   signals.TechnicalScore(in.Tech),
		Statistical: float64(in.Aggregate.Signal.Score()),
		Regime:      RegimeScore(in.Regime.Overall),
		Valuation:   ValuationBias(in.Valuation.Signal),
	}
	score := cfg.TechnicalWeight*comp.Technical +
		cfg.StatisticalWeight*comp.Statistical +
		cfg.RegimeWeight*comp.Regime +
		cfg.ValuationWeight*comp.Valuation
	if in.RiskLevel == models.RiskHigh {
		score *= cfg.HighRiskFactor
	}

	rec := models.Recommendation{Action: models.ActionHold, Score: score, Components: comp}
	capAt := 0.75
	for _, r := range actionRules {
		if r.match(score) {
			rec.Action = r.action
			capAt = r.cap
			break
		}
	}
	rec.Confidence = math.Min(capAt, 0.5+math.Abs(score)*0.15)
	rec.Reasons = reasons(in, comp)
	return rec
}

func reasons(in RecommendInput, comp models.RecommendationComponents) []string {
	out := make([]string, 0, 5)
	out = append(out, fmt.Sprintf("technical indicators net %+.0f", comp.Technical))
	out = append(out, fmt.Sprintf("statistical signals %s (score %.2f)", in.Aggregate.Signal, in.Aggregate.Score))
	out = append(out, fmt.Sprintf("regime %s", in.Regime.Overall))
	if in.Valuation.Upside.Valid {
		out = append(out, fmt.Sprintf("valuation %s, %.1f%% to anchor", in.Valuation.Signal, in.Valuation.Upside.Float64*100))
	} else {
		out = append(out, "valuation anchor unavailable")
	}
	if in.RiskLevel == models.RiskHigh {
		out = append(out, "high risk, score damped")
	}
	return out
}

// Levels returns the ATR-based target and stop for an action.
func Levels(action string, price, atr float64) (target, stop float64) {
	switch action {
	case models.ActionStrongBuy:
		return price + atr*3, price - atr*1.5
	case models.ActionBuy:
		return price + atr*2, price - atr
	case models.ActionSell, models.ActionStrongSell:
		return price - atr*2, price + atr
	}
	return price + atr, price - atr
}

// LatestATR reads ATR at the last bar, falling back to the mean of the true
// ranges that exist when the ATR window is not yet filled.
func LatestATR(series []models.EnrichedBar, trueRanges []float64) float64 {
	if n := len(series); n > 0 && series[n-1].ATR.Valid {
		return series[n-1].ATR.Float64
	}
	if len(trueRanges) == 0 {
		return 0
	}
	var sum float64
	for _, tr := range trueRanges {
		sum += tr
	}
	return sum / float64(len(trueRanges))
}
