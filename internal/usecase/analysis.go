package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
	domsvc "FinScope/internal/domain/service"
	"FinScope/internal/service/cache"
	applogger "FinScope/pkg/logger"
	"FinScope/pkg/metrics"
)

var ErrTickerRequired = errors.New("ticker required")

const (
	defaultLookback = 252
	maxLookback     = 5000
)

// AnalysisUseCase loads bars for a ticker and runs the engine over them.
type AnalysisUseCase struct {
	source    domrepo.BarSource
	engine    domsvc.Analyzer
	cache     *cache.ResultCache
	publisher domrepo.ResultPublisher
	metrics   domrepo.Metrics
	l         *applogger.Logger
	now       func() time.Time
}

type AnalysisOption func(*AnalysisUseCase)

// WithResultCache enables result caching. A nil cache disables it.
func WithResultCache(c *cache.ResultCache) AnalysisOption {
	return func(uc *AnalysisUseCase) { uc.cache = c }
}

func WithPublisher(p domrepo.ResultPublisher) AnalysisOption {
	return func(uc *AnalysisUseCase) {
		if p != nil {
			uc.publisher = p
		}
	}
}

func WithMetrics(m domrepo.Metrics) AnalysisOption {
	return func(uc *AnalysisUseCase) {
		if m != nil {
			uc.metrics = m
		}
	}
}

func WithLogger(l *applogger.Logger) AnalysisOption {
	return func(uc *AnalysisUseCase) {
		if l != nil {
			uc.l = l
		}
	}
}

func NewAnalysisUseCase(source domrepo.BarSource, engine domsvc.Analyzer, opts ...AnalysisOption) *AnalysisUseCase {
	uc := &AnalysisUseCase{
		source:    source,
		engine:    engine,
		publisher: nopPublisher{},
		metrics:   metrics.Nop{},
		l:         applogger.Nop(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(uc)
	}
	return uc
}

type AnalyzeParams struct {
	Ticker   string
	Interval domrepo.Interval
	Lookback int
	// RequestID marks a request-driven analysis; its summary is published
	// even when served from cache.
	RequestID string
}

func (p *AnalyzeParams) normalize() error {
	p.Ticker = strings.ToUpper(strings.TrimSpace(p.Ticker))
	if p.Ticker == "" {
		return ErrTickerRequired
	}
	p.Interval = domrepo.NormalizeInterval(string(p.Interval))
	if p.Lookback <= 0 {
		p.Lookback = defaultLookback
	}
	if p.Lookback > maxLookback {
		p.Lookback = maxLookback
	}
	return nil
}

// Analyze returns the analysis of the latest Lookback bars of a ticker.
func (uc *AnalysisUseCase) Analyze(ctx context.Context, p AnalyzeParams) (*models.AnalysisResult, error) {
	if err := p.normalize(); err != nil {
		return nil, err
	}
	start := uc.now()
	key := cache.AnalysisKey(p.Ticker, string(p.Interval), p.Lookback)

	if uc.cache != nil {
		res, ok, err := uc.cache.Get(ctx, key)
		if err != nil {
			uc.l.Warn("result cache get failed", applogger.String("key", key), applogger.Error(err))
		}
		if ok {
			uc.metrics.RecordLatency("analyze_cached", uc.now().Sub(start).Seconds())
			if p.RequestID != "" {
				uc.publish(ctx, res, p)
			}
			return res, nil
		}
	}

	bars, err := uc.source.GetLatestBars(ctx, p.Ticker, p.Lookback, p.Interval)
	if err != nil {
		uc.metrics.RecordError("bar_source")
		return nil, fmt.Errorf("load bars %s: %w", p.Ticker, err)
	}

	res, err := uc.engine.Analyze(ctx, p.Ticker, bars)
	if err != nil {
		uc.metrics.RecordError("engine")
		return nil, fmt.Errorf("analyze %s: %w", p.Ticker, err)
	}

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, key, res); err != nil {
			uc.l.Warn("result cache set failed", applogger.String("key", key), applogger.Error(err))
		}
	}
	uc.publish(ctx, res, p)
	uc.record(res, "analyze", start)

	uc.l.Debug("analysis complete",
		applogger.String("ticker", p.Ticker),
		applogger.String("interval", string(p.Interval)),
		applogger.Int("bars", len(bars)),
		applogger.String("action", res.Recommendation.Action),
		applogger.Int64("duration_ms", uc.now().Sub(start).Milliseconds()),
	)
	return res, nil
}

// AnalyzeBars runs the engine over caller-supplied bars. Nothing is cached or published.
func (uc *AnalysisUseCase) AnalyzeBars(ctx context.Context, ticker string, bars []models.PriceBar) (*models.AnalysisResult, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, ErrTickerRequired
	}
	start := uc.now()
	res, err := uc.engine.Analyze(ctx, ticker, bars)
	if err != nil {
		uc.metrics.RecordError("engine")
		return nil, fmt.Errorf("analyze %s: %w", ticker, err)
	}
	uc.record(res, "analyze_bars", start)
	return res, nil
}

func (uc *AnalysisUseCase) publish(ctx context.Context, res *models.AnalysisResult, p AnalyzeParams) {
	s := res.Summary()
	s.RequestID = p.RequestID
	s.Interval = string(p.Interval)
	if err := uc.publisher.Publish(ctx, &s); err != nil {
		uc.metrics.RecordError("publish")
		uc.l.Warn("publish summary failed", applogger.String("ticker", p.Ticker), applogger.Error(err))
	}
}

func (uc *AnalysisUseCase) record(res *models.AnalysisResult, op string, start time.Time) {
	uc.metrics.RecordAnalysis(res.Ticker, res.Recommendation.Action)
	uc.metrics.RecordLastPrice(res.Ticker, res.CurrentPrice)
	uc.metrics.RecordLatency(op, uc.now().Sub(start).Seconds())
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, *models.AnalysisSummary) error        { return nil }
func (nopPublisher) PublishBatch(context.Context, []*models.AnalysisSummary) error { return nil }
func (nopPublisher) Close() error                                                  { return nil }
