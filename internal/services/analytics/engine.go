package analytics

import (
	"context"
	"errors"
	"strings"

	"FinScope/internal/domain/models"
	domsvc "FinScope/internal/domain/service"
	"FinScope/internal/services/features"
	"FinScope/internal/services/indicators"
	"FinScope/internal/services/regime"
	"FinScope/internal/services/risk"
	"FinScope/internal/services/signals"
	"FinScope/internal/services/valuation"
)

var (
	ErrEmptySeries = errors.New("empty price series")
	ErrNoPrice     = errors.New("no bar with a usable close")
)

// Engine runs the full analysis pipeline over one bar series. It holds no
// mutable state and is safe for concurrent use.
type Engine struct {
	cfg        Config
	provider   domsvc.FundamentalsProvider
	classifier *regime.Classifier
}

type Option func(*Engine)

func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// NewEngine builds an engine. A nil provider falls back to synthetic fundamentals.
func NewEngine(provider domsvc.FundamentalsProvider, opts ...Option) *Engine {
	e := &Engine{cfg: DefaultConfig(), provider: provider}
	for _, o := range opts {
		o(e)
	}
	if e.provider == nil {
		e.provider = valuation.NewSyntheticProvider()
	}
	e.classifier = regime.NewClassifier(e.cfg.Regime)
	return e
}

func (e *Engine) Config() Config { return e.cfg }

// Analyze enriches the bars and derives regime, signals, risk, valuation and
// a recommendation. Bars without a usable close are dropped. A failing
// fundamentals provider only leaves the valuation models unavailable.
func (e *Engine) Analyze(ctx context.Context, ticker string, bars []models.PriceBar) (*models.AnalysisResult, error) {
	if len(bars) == 0 {
		return nil, ErrEmptySeries
	}
	valid := features.ValidBars(bars)
	if len(valid) == 0 {
		return nil, ErrNoPrice
	}

	series := Enrich(valid, e.cfg.Indicators)
	last := series[len(series)-1]
	price := last.Close
	closes := indicators.Closes(valid)
	volumes := indicators.Volumes(valid)

	res := &models.AnalysisResult{
		Ticker:       strings.ToUpper(ticker),
		Series:       series,
		CurrentPrice: price,
		TechSignals:  signals.Technical(last),
		Regime:       e.classifier.Detect(closes),
		StatSignals:  signals.Stat(closes, volumes, e.cfg.Signals),
		Risk:         risk.Compute(features.ComputeSimpleReturns(valid), e.cfg.Risk),
		Valuation:    valuation.StretchScore(series),
	}

	res.ValuationModels = valuation.UnavailableModels()
	if f, err := e.provider.Fundamentals(ctx, res.Ticker, price); err == nil {
		res.Fundamentals = &f
		res.ValuationModels = e.cfg.Valuation.Evaluate(f, price)
	}

	res.Recommendation = Recommend(RecommendInput{
		Tech:      res.TechSignals,
		Aggregate: res.StatSignals.Aggregate,
		Regime:    res.Regime,
		Valuation: res.ValuationModels,
		RiskLevel: res.Risk.RiskLevel,
	}, e.cfg.Recommendation)

	atr := LatestATR(series, indicators.TrueRange(valid))
	res.Target, res.StopLoss = Levels(res.Recommendation.Action, price, atr)
	return res, nil
}

var _ domsvc.Analyzer = (*Engine)(nil)
