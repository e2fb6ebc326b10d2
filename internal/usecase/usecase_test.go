package usecase

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
	"FinScope/internal/service/cache"
	"FinScope/internal/services/analytics"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trendBars(n int, step float64) []models.PriceBar {
	out := make([]models.PriceBar, n)
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	prev := 100.0
	for i := range out {
		c := 100 * math.Pow(step, float64(i)) * (1 + 0.0002*math.Sin(float64(i)))
		open := c
		if i > 0 {
			open = prev
		}
		out[i] = models.PriceBar{
			Time:   start.AddDate(0, 0, i),
			Open:   open,
			High:   math.Max(open, c) * 1.001,
			Low:    math.Min(open, c) * 0.999,
			Close:  c,
			Volume: 1e6,
		}
		prev = c
	}
	return out
}

type fakeSource struct {
	mu     sync.Mutex
	bars   map[string][]models.PriceBar
	calls  int
	lastN  int
	ranged bool
}

func (s *fakeSource) get(symbol string) ([]models.PriceBar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	b, ok := s.bars[symbol]
	if !ok {
		return nil, domrepo.ErrNoBars
	}
	return b, nil
}

func (s *fakeSource) GetBars(_ context.Context, symbol string, _, _ time.Time, _ domrepo.Interval) ([]models.PriceBar, error) {
	s.mu.Lock()
	s.ranged = true
	s.mu.Unlock()
	return s.get(symbol)
}

func (s *fakeSource) GetLatestBars(_ context.Context, symbol string, n int, _ domrepo.Interval) ([]models.PriceBar, error) {
	s.mu.Lock()
	s.lastN = n
	s.mu.Unlock()
	b, err := s.get(symbol)
	if err == nil && len(b) > n {
		b = b[len(b)-n:]
	}
	return b, err
}

type recordingPublisher struct {
	mu   sync.Mutex
	sums []models.AnalysisSummary
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, s *models.AnalysisSummary) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sums = append(p.sums, *s)
	return nil
}

func (p *recordingPublisher) PublishBatch(ctx context.Context, items []*models.AnalysisSummary) error {
	for _, s := range items {
		if err := p.Publish(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type recordingMetrics struct {
	mu       sync.Mutex
	errors   []string
	analyses []string
}

func (m *recordingMetrics) RecordAnalysis(symbol, action string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyses = append(m.analyses, symbol+":"+action)
}

func (m *recordingMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, kind)
}

func (m *recordingMetrics) RecordLastPrice(string, float64) {}
func (m *recordingMetrics) RecordLatency(string, float64)   {}

type fixture struct {
	src *fakeSource
	pub *recordingPublisher
	met *recordingMetrics
	uc  *AnalysisUseCase
}

func newFixture(withCache bool) *fixture {
	f := &fixture{
		src: &fakeSource{bars: map[string][]models.PriceBar{
			"UPCO":   trendBars(252, 1.0014),
			"DOWNCO": trendBars(252, 1/1.0014),
			"EMPTY":  {},
		}},
		pub: &recordingPublisher{},
		met: &recordingMetrics{},
	}
	opts := []AnalysisOption{WithPublisher(f.pub), WithMetrics(f.met)}
	if withCache {
		opts = append(opts, WithResultCache(cache.NewResultCache(cache.NewTTLCache(16), time.Minute)))
	}
	f.uc = NewAnalysisUseCase(f.src, analytics.NewEngine(nil), opts...)
	return f
}

func TestAnalyzeLoadsAnalysesCachesAndPublishes(t *testing.T) {
	f := newFixture(true)
	ctx := context.Background()

	res, err := f.uc.Analyze(ctx, AnalyzeParams{Ticker: " upco ", Interval: "1d"})
	require.NoError(t, err)
	assert.Equal(t, "UPCO", res.Ticker)
	assert.Equal(t, models.ActionBuy, res.Recommendation.Action)
	assert.Len(t, res.Series, defaultLookback)
	assert.Equal(t, defaultLookback, f.src.lastN)

	require.Len(t, f.pub.sums, 1)
	assert.Equal(t, "UPCO", f.pub.sums[0].Ticker)
	assert.Equal(t, "1d", f.pub.sums[0].Interval)
	assert.Empty(t, f.pub.sums[0].RequestID)
	assert.Equal(t, []string{"UPCO:BUY"}, f.met.analyses)

	cached, err := f.uc.Analyze(ctx, AnalyzeParams{Ticker: "UPCO"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.src.calls, "second call served from cache")
	assert.Equal(t, res.Recommendation.Action, cached.Recommendation.Action)
	assert.Len(t, f.pub.sums, 1, "plain cache hits are not republished")

	_, err = f.uc.Analyze(ctx, AnalyzeParams{Ticker: "UPCO", RequestID: "req-7"})
	require.NoError(t, err)
	require.Len(t, f.pub.sums, 2)
	assert.Equal(t, "req-7", f.pub.sums[1].RequestID)
	assert.Equal(t, 1, f.src.calls)
}

func TestAnalyzeErrors(t *testing.T) {
	f := newFixture(false)
	ctx := context.Background()

	_, err := f.uc.Analyze(ctx, AnalyzeParams{Ticker: "  "})
	assert.ErrorIs(t, err, ErrTickerRequired)

	_, err = f.uc.Analyze(ctx, AnalyzeParams{Ticker: "NOPE"})
	assert.ErrorIs(t, err, domrepo.ErrNoBars)

	_, err = f.uc.Analyze(ctx, AnalyzeParams{Ticker: "EMPTY"})
	assert.ErrorIs(t, err, analytics.ErrEmptySeries)

	assert.Equal(t, []string{"bar_source", "engine"}, f.met.errors)
	assert.Empty(t, f.pub.sums)
}

func TestAnalyzeClampsLookbackAndSurvivesPublishFailure(t *testing.T) {
	f := newFixture(false)
	f.pub.err = errors.New("broker down")

	res, err := f.uc.Analyze(context.Background(), AnalyzeParams{Ticker: "DOWNCO", Lookback: 1_000_000, Interval: "5m"})
	require.NoError(t, err)
	assert.Equal(t, maxLookback, f.src.lastN)
	assert.Equal(t, models.ActionSell, res.Recommendation.Action)
	assert.Contains(t, f.met.errors, "publish")
}

func TestAnalyzeBarsSkipsSourceAndPublisher(t *testing.T) {
	f := newFixture(true)
	res, err := f.uc.AnalyzeBars(context.Background(), "mine", trendBars(120, 1.0014))
	require.NoError(t, err)
	assert.Equal(t, "MINE", res.Ticker)
	assert.Zero(t, f.src.calls)
	assert.Empty(t, f.pub.sums)

	_, err = f.uc.AnalyzeBars(context.Background(), "", nil)
	assert.ErrorIs(t, err, ErrTickerRequired)
	_, err = f.uc.AnalyzeBars(context.Background(), "X", nil)
	assert.ErrorIs(t, err, analytics.ErrEmptySeries)
}

func TestScreenSortsByScoreAndCollectsErrors(t *testing.T) {
	f := newFixture(false)
	sc := NewScreenUseCase(f.uc, 2, time.Second, nil)

	out, err := sc.Screen(context.Background(), ScreenParams{
		Tickers:  []string{"downco", "UPCO", "missing", "upco", ""},
		Interval: domrepo.Interval1d,
	})
	require.NoError(t, err)
	require.Len(t, out.Rows, 2)
	assert.Equal(t, "UPCO", out.Rows[0].Ticker)
	assert.Equal(t, "DOWNCO", out.Rows[1].Ticker)
	assert.Greater(t, out.Rows[0].Score, out.Rows[1].Score)
	assert.Equal(t, "1d", out.Rows[0].Interval)
	require.Contains(t, out.Errors, "MISSING")
	assert.Contains(t, out.Errors["MISSING"], "no bars")

	_, err = sc.Screen(context.Background(), ScreenParams{Tickers: []string{" "}})
	assert.ErrorIs(t, err, ErrTickerRequired)
}

func TestBarsUseCase(t *testing.T) {
	src := &fakeSource{bars: map[string][]models.PriceBar{"UPCO": trendBars(50, 1.001)}}
	uc := NewBarsUseCase(src)
	ctx := context.Background()

	out, err := uc.Bars(ctx, BarsParams{Symbol: "upco", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 10, out.Count)
	assert.Equal(t, 10, src.lastN)
	assert.False(t, src.ranged)
	assert.Equal(t, out.Bars[9].Time, out.To)

	from := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	out, err = uc.Bars(ctx, BarsParams{Symbol: "UPCO", From: from, To: from.AddDate(1, 0, 0), Limit: 20})
	require.NoError(t, err)
	assert.True(t, src.ranged)
	require.Equal(t, 20, out.Count)
	assert.Equal(t, trendBars(50, 1.001)[49].Time, out.Bars[19].Time, "range keeps the most recent bars")

	_, err = uc.Bars(ctx, BarsParams{Symbol: "UPCO", From: from.AddDate(1, 0, 0), To: from})
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = uc.Bars(ctx, BarsParams{})
	assert.ErrorIs(t, err, ErrTickerRequired)
	_, err = uc.Bars(ctx, BarsParams{Symbol: "NONE"})
	assert.ErrorIs(t, err, domrepo.ErrNoBars)
}

func TestAnalysisRequestHandler(t *testing.T) {
	f := newFixture(false)
	h := NewAnalysisRequestHandler("finscope.analysis.requests", f.uc, nil)
	ctx := context.Background()
	assert.Equal(t, "finscope.analysis.requests", h.Topic())

	require.NoError(t, h.Handle(ctx, []byte(`{"request_id":"r1","ticker":"upco","interval":"1d","lookback":200}`)))
	require.Len(t, f.pub.sums, 1)
	assert.Equal(t, "r1", f.pub.sums[0].RequestID)
	assert.Equal(t, 200, f.src.lastN)

	require.NoError(t, h.Handle(ctx, []byte(`{"ticker":"DOWNCO"}`)))
	require.Len(t, f.pub.sums, 2)
	assert.Len(t, f.pub.sums[1].RequestID, 36)
	assert.Equal(t, defaultLookback, f.src.lastN)

	assert.Error(t, h.Handle(ctx, []byte(`{not json`)))
	assert.Error(t, h.Handle(ctx, []byte(`{"interval":"1d"}`)))
	assert.Error(t, h.Handle(ctx, []byte(`{"ticker":"UPCO","interval":"5m"}`)))
	assert.ErrorIs(t, h.Handle(ctx, []byte(`{"ticker":"NONE"}`)), domrepo.ErrNoBars)
	assert.Subset(t, f.met.errors, []string{"request_decode", "request_invalid"})

	h.FailureHook().OnError(ctx, h.Topic(), kafka.Message{Key: []byte("NONE")}, nil, domrepo.ErrNoBars)
	assert.Contains(t, f.met.errors, "request_failed")
}
