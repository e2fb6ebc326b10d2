package risk

import (
	"math"
	"testing"

	"FinScope/internal/domain/models"

	"github.com/stretchr/testify/assert"
)

func TestComputeConstantSeries(t *testing.T) {
	m := Compute(make([]float64, 100), DefaultConfig())
	assert.Equal(t, 0.0, m.Volatility)
	assert.Equal(t, 0.0, m.MaxDrawdown)
	assert.Equal(t, 0.0, m.VaR95)
	assert.Equal(t, 0.0, m.CVaR95)
	assert.False(t, math.IsNaN(m.Sharpe))
	assert.False(t, math.IsNaN(m.Sortino))
	assert.Equal(t, models.RiskLow, m.RiskLevel)
}

func TestComputeShortSeries(t *testing.T) {
	assert.Equal(t, models.RiskMetrics{RiskLevel: models.RiskLow}, Compute([]float64{0.01}, DefaultConfig()))
	assert.Equal(t, models.RiskMetrics{RiskLevel: models.RiskLow}, Compute(nil, DefaultConfig()))
}

func TestComputeTrendingSeries(t *testing.T) {
	rets := make([]float64, 252)
	for i := range rets {
		rets[i] = 0.002 + 0.001*math.Sin(float64(i))
	}
	m := Compute(rets, DefaultConfig())
	assert.Greater(t, m.Sharpe, 0.0)
	assert.Greater(t, m.Volatility, 0.0)
	assert.Equal(t, 0.0, m.Sortino)
	assert.Equal(t, 0.0, m.MaxDrawdown)
	assert.Equal(t, models.RiskLow, m.RiskLevel)
}

func TestMaxDrawdown(t *testing.T) {
	// 100 -> 110 -> 88 -> 96.8
	assert.InDelta(t, -0.2, MaxDrawdown([]float64{0.1, -0.2, 0.1}), 1e-12)
	assert.Equal(t, 0.0, MaxDrawdown([]float64{0.01, 0.02}))
}

func TestHistoricalVaR(t *testing.T) {
	rets := make([]float64, 100)
	for i := range rets {
		rets[i] = float64(i-50) / 1000
	}
	v, cv := HistoricalVaR(rets, 0.05)
	// index 5 of ascending -0.050..0.049
	assert.InDelta(t, -0.045, v, 1e-12)
	assert.InDelta(t, -0.0475, cv, 1e-12)
	assert.LessOrEqual(t, cv, v)

	v, cv = HistoricalVaR([]float64{0.01, -0.02}, 0.05)
	assert.Equal(t, -0.02, v)
	assert.Equal(t, -0.02, cv)
}

func TestDownsideDeviation(t *testing.T) {
	assert.Equal(t, 0.0, DownsideDeviation([]float64{0.1, 0.2}))
	assert.InDelta(t, math.Sqrt((0.01+0.04)/2), DownsideDeviation([]float64{-0.1, 0.3, -0.2}), 1e-12)
}

func TestLevel(t *testing.T) {
	assert.Equal(t, models.RiskHigh, Level(41, 0))
	assert.Equal(t, models.RiskHigh, Level(10, -31))
	assert.Equal(t, models.RiskMedium, Level(26, 0))
	assert.Equal(t, models.RiskMedium, Level(10, -29.6))
	assert.Equal(t, models.RiskLow, Level(25, -20))
}

func TestComputeDownsideSortino(t *testing.T) {
	rets := []float64{0.03, -0.01, 0.02, -0.02, 0.01}
	m := Compute(rets, DefaultConfig())
	ann := math.Sqrt(252.0)
	dd := math.Sqrt((0.0001 + 0.0004) / 2)
	assert.InDelta(t, (0.006*252-0.02)/(dd*ann), m.Sortino, 1e-9)
	assert.Less(t, m.MaxDrawdown, 0.0)
}

func geometricReturns(n int, step float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 * math.Pow(step, float64(i))
	}
	rets := make([]float64, n-1)
	for i := 1; i < n; i++ {
		rets[i-1] = closes[i]/closes[i-1] - 1
	}
	return rets
}

func TestComputeGeometricSeriesHasNoDispersion(t *testing.T) {
	up := Compute(geometricReturns(252, 1.001), DefaultConfig())
	assert.Equal(t, 0.0, up.Sharpe)
	assert.Equal(t, 0.0, up.Sortino)
	assert.Equal(t, 0.0, up.Volatility)
	assert.Equal(t, 0.0, up.MaxDrawdown)
	assert.Equal(t, models.RiskLow, up.RiskLevel)

	down := Compute(geometricReturns(252, 1/1.001), DefaultConfig())
	assert.Equal(t, 0.0, down.Sharpe)
	assert.Equal(t, 0.0, down.Volatility)
	assert.Less(t, down.Sortino, 0.0)
	assert.Greater(t, down.Sortino, -100.0)
	assert.Less(t, down.MaxDrawdown, 0.0)
}

func TestDownsideDeviationIgnoresRoundingNoise(t *testing.T) {
	assert.Equal(t, 0.0, DownsideDeviation([]float64{1e-17, -1e-17, -2e-18}))
}
