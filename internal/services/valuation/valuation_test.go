package valuation

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"FinScope/internal/domain/models"
	xhttp "FinScope/pkg/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerdictBoundaries(t *testing.T) {
	cases := map[float64]string{
		90:   SignificantlyOvervalued,
		80:   Overvalued,
		65.5: Overvalued,
		65:   SlightlyOvervalued,
		55:   FairlyValued,
		50:   FairlyValued,
		45:   FairlyValued,
		44.9: SlightlyUndervalued,
		34:   Undervalued,
		20:   Undervalued,
		19.9: SignificantlyUndervalued,
	}
	for score, want := range cases {
		assert.Equal(t, want, Verdict(score), "score %v", score)
	}
}

func TestStretchScore(t *testing.T) {
	empty := StretchScore(nil)
	assert.Equal(t, 50.0, empty.Score)
	assert.Equal(t, FairlyValued, empty.Verdict)

	series := []models.EnrichedBar{
		{High: 120, Low: 90, Close: 100},
		{High: 105, Low: 80, Close: 95},
		{
			High: 112, Low: 108, Close: 110,
			SMA200:  models.Float(100),
			SMA50:   models.Float(100),
			BBUpper: models.Float(120),
			BBLower: models.Float(100),
			RSI:     models.Float(70),
		},
	}
	s := StretchScore(series)
	require.Len(t, s.Components, 5)
	want := map[string]float64{
		ComponentSMA200:    60,
		ComponentSMA50:     65,
		ComponentBollinger: 50,
		ComponentRSI:       70,
		ComponentRange:     75,
	}
	for _, c := range s.Components {
		assert.InDelta(t, want[c.Name], c.Value, 1e-9, c.Name)
	}
	assert.InDelta(t, 64.0, s.Score, 1e-9)
	assert.Equal(t, SlightlyOvervalued, s.Verdict)

	// only the range component is available
	bare := StretchScore([]models.EnrichedBar{{High: 10, Low: 10, Close: 10}})
	require.Len(t, bare.Components, 1)
	assert.Equal(t, 50.0, bare.Score)

	far := StretchScore([]models.EnrichedBar{{High: 200, Low: 100, Close: 200, SMA200: models.Float(100)}})
	assert.Equal(t, 100.0, far.Components[0].Value)
}

func TestSynthesizeIsReproducible(t *testing.T) {
	a := Synthesize("AAPL", 187.5)
	b := Synthesize("AAPL", 187.5)
	assert.Equal(t, a, b)
	assert.Equal(t, a, Synthesize("aapl", 187.5))
	assert.NotEqual(t, a.Revenue, Synthesize("MSFT", 187.5).Revenue)
	assert.NotEqual(t, a.Revenue, Synthesize("AAPL", 188).Revenue)

	assert.True(t, a.Synthetic)
	assert.Equal(t, SourceSynthetic, a.Source)
	assert.Len(t, a.History, 3)
	assert.GreaterOrEqual(t, a.GrossMargin, 0.2)
	assert.Less(t, a.GrossMargin, 0.7)
	assert.Less(t, a.OperatingMargin, a.GrossMargin)
	assert.Less(t, a.NetMargin, a.OperatingMargin)
	assert.GreaterOrEqual(t, a.SharesOutstanding, 20e6)
	assert.InDelta(t, a.Price*a.SharesOutstanding, a.MarketCap, 1e-3)
	assert.Greater(t, a.EPS, 0.0)
	assert.True(t, a.PE.Valid)
	assert.GreaterOrEqual(t, a.Beta, 0.6)
	assert.Less(t, a.Beta, 1.8)
}

func TestSyntheticProvider(t *testing.T) {
	p := NewSyntheticProvider()
	assert.Equal(t, "synthetic", p.Name())
	f, err := p.Fundamentals(context.Background(), "NVDA", 450)
	require.NoError(t, err)
	assert.Equal(t, "NVDA", f.Ticker)

	_, err = p.Fundamentals(context.Background(), "NVDA", 0)
	assert.Error(t, err)
	_, err = p.Fundamentals(context.Background(), "NVDA", math.NaN())
	assert.Error(t, err)
}

func TestSineRandRange(t *testing.T) {
	r := newSineRand("XYZ", 10)
	for i := 0; i < 1000; i++ {
		v := r.next()
		assert.GreaterOrEqual(t, v, 0.0)
		assert.Less(t, v, 1.0)
	}
}

func TestAssumptions(t *testing.T) {
	c := DefaultConfig()
	a := c.Assumptions(models.Fundamentals{Beta: 1, EarningsGrowth: 0.1})
	assert.InDelta(t, 0.095, a.DiscountRate, 1e-12)
	assert.InDelta(t, 0.1, a.Growth, 1e-12)
	assert.InDelta(t, 0.06, a.DividendGrowth, 1e-12)
	assert.InDelta(t, 20.0, a.TargetPE, 1e-9)
	assert.Equal(t, 5, a.ProjectionYears)

	assert.InDelta(t, 0.16, c.Assumptions(models.Fundamentals{Beta: 3}).DiscountRate, 1e-12)
	assert.InDelta(t, 0.06, c.Assumptions(models.Fundamentals{Beta: 0}).DiscountRate, 1e-12)
	assert.InDelta(t, 0.20, c.Assumptions(models.Fundamentals{EarningsGrowth: 0.5}).Growth, 1e-12)

	assert.Equal(t, 12.0, TargetPE(0))
	assert.InDelta(t, 28.0, TargetPE(0.2), 1e-9)
	assert.Equal(t, 10.0, TargetPE(-0.05))
}

func TestDCF(t *testing.T) {
	a := models.ValuationAssumptions{DiscountRate: 0.1, TerminalGrowth: 0.025, ProjectionYears: 5}
	want := 0.0
	for y := 1; y <= 5; y++ {
		want += 1 / math.Pow(1.1, float64(y))
	}
	want += (1.025 / 0.075) / math.Pow(1.1, 5)
	got := DCF(1, a)
	require.True(t, got.Valid)
	assert.InDelta(t, want, got.Float64, 1e-9)

	a.DiscountRate = 0.025
	assert.False(t, DCF(1, a).Valid)
	a.DiscountRate = 0.02
	assert.False(t, DCF(1, a).Valid)
}

func TestDDM(t *testing.T) {
	a := models.ValuationAssumptions{DiscountRate: 0.1, DividendGrowth: 0.03}
	got := DDM(1, a)
	require.True(t, got.Valid)
	assert.InDelta(t, 1.03/0.07, got.Float64, 1e-9)

	assert.False(t, DDM(0, a).Valid)
	a.DiscountRate = 0.03
	assert.False(t, DDM(1, a).Valid)
}

func TestAnchorSkipsInvalidAndNonPositive(t *testing.T) {
	got := Anchor(models.Float(100), models.NullFloat{}, models.Float(-20), models.Float(200))
	assert.InDelta(t, 150.0, got.Float64, 1e-12)
	assert.False(t, Anchor(models.Float(-1), models.Float(0)).Valid)
}

func TestEvaluate(t *testing.T) {
	c := DefaultConfig()
	f := models.Fundamentals{Beta: 1, EarningsGrowth: 0.1, EPS: 10}

	cheap := c.Evaluate(f, 100)
	assert.InDelta(t, 200.0, cheap.Multiples.Float64, 1e-9)
	assert.False(t, cheap.DDM.Valid)
	assert.InDelta(t, 200.0, cheap.Anchor.Float64, 1e-9)
	assert.InDelta(t, 1.0, cheap.Upside.Float64, 1e-9)
	assert.Equal(t, models.Undervalued, cheap.Signal)

	rich := c.Evaluate(f, 300)
	assert.Equal(t, models.Overvalued, rich.Signal)

	fair := c.Evaluate(f, 190)
	assert.Equal(t, models.FairlyValued, fair.Signal)

	none := c.Evaluate(models.Fundamentals{Beta: 1}, 100)
	assert.False(t, none.Anchor.Valid)
	assert.False(t, none.Upside.Valid)
	assert.Equal(t, models.FairlyValued, none.Signal)

	assert.Equal(t, models.FairlyValued, UnavailableModels().Signal)
}

func TestHTTPProvider(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		switch r.URL.Path {
		case "/fundamentals/AAPL":
			if n == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
			assert.Equal(t, "190", r.URL.Query().Get("price"))
			_ = json.NewEncoder(w).Encode(models.Fundamentals{EPS: 6.1, Beta: 1.2, Synthetic: true})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL+"/", WithAPIKey("secret"), WithAttempts(3))
	f, err := p.Fundamentals(context.Background(), "aapl", 190)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "AAPL", f.Ticker)
	assert.Equal(t, "http", f.Source)
	assert.False(t, f.Synthetic)
	assert.Equal(t, 190.0, f.Price)
	assert.Equal(t, 6.1, f.EPS)

	calls.Store(0)
	_, err = p.Fundamentals(context.Background(), "ZZZZ", 10)
	require.Error(t, err)
	var se *xhttp.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPProviderBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL,
		WithAttempts(1),
		WithBreaker(xhttp.BreakerConfig{FailureThreshold: 2, Timeout: time.Minute}))
	for i := 0; i < 2; i++ {
		_, err := p.Fundamentals(context.Background(), "AAPL", 1)
		require.Error(t, err)
	}
	_, err := p.Fundamentals(context.Background(), "AAPL", 1)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, int32(2), calls.Load())
}
