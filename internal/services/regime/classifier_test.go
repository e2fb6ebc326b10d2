package regime

import (
	"math"
	"testing"

	"FinScope/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestClassifyPriority(t *testing.T) {
	rules := Rules()
	cases := []struct {
		name  string
		facts Facts
		want  string
	}{
		{"strong up", Facts{models.Uptrend, 70, 0.6, models.VolHigh}, models.RegimeStrongUptrend},
		{"strong down", Facts{models.Downtrend, 61, 0.56, models.VolNormal}, models.RegimeStrongDowntrend},
		{"strong needs persistence", Facts{models.Uptrend, 70, 0.5, models.VolNormal}, models.RegimeTrendingUptrend},
		{"trending down", Facts{models.Downtrend, 45, 0.3, models.VolLow}, models.RegimeTrendingDowntrend},
		{"sideways never trends", Facts{models.Sideways, 90, 0.9, models.VolNormal}, models.RegimeRanging},
		{"mean reverting before ranging", Facts{models.Sideways, 10, 0.4, models.VolLow}, models.RegimeMeanReverting},
		{"mean reverting needs calm", Facts{models.Sideways, 10, 0.4, models.VolHigh}, models.RegimeHighVolatility},
		{"elevated sideways", Facts{models.Sideways, 10, 0.5, models.VolElevated}, models.RegimeTransitioning},
		{"weak uptrend", Facts{models.Uptrend, 30, 0.5, models.VolNormal}, models.RegimeTransitioning},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.facts, rules))
		})
	}
	assert.Equal(t, models.RegimeTransitioning, Classify(Facts{}, nil))
}

func TestClassifyVolatility(t *testing.T) {
	rules := VolatilityRules()
	assert.Equal(t, models.VolHigh, ClassifyVolatility(1.6, rules))
	assert.Equal(t, models.VolElevated, ClassifyVolatility(1.5, rules))
	assert.Equal(t, models.VolNormal, ClassifyVolatility(1.2, rules))
	assert.Equal(t, models.VolNormal, ClassifyVolatility(0.8, rules))
	assert.Equal(t, models.VolLow, ClassifyVolatility(0.79, rules))
}

func TestTrendDirection(t *testing.T) {
	c := NewClassifier(DefaultConfig())

	up := c.Trend(line(80, 100, 1))
	assert.Equal(t, models.Uptrend, up.MAAlignment)
	assert.Equal(t, models.Uptrend, up.Direction)
	assert.InDelta(t, 1.0, up.RSquared, 1e-9)
	// last 50 closes run 130..179, mean 154.5
	assert.InDelta(t, 100/154.5, up.Slope, 1e-9)
	assert.InDelta(t, up.Slope*10, up.Strength, 1e-9)

	down := c.Trend(line(80, 200, -1))
	assert.Equal(t, models.Downtrend, down.Direction)
	assert.Less(t, down.Slope, -0.1)

	flat := c.Trend(line(80, 100, 0))
	assert.Equal(t, models.Sideways, flat.Direction)
	assert.Equal(t, 0.0, flat.Strength)
}

func TestTrendNeedsAlignment(t *testing.T) {
	c := NewClassifier(DefaultConfig())
	// too short for SMA50, so alignment never confirms a direction
	tr := c.Trend(line(30, 100, 1))
	assert.Equal(t, models.Flat, tr.MAAlignment)
	assert.Equal(t, models.Sideways, tr.Direction)
	assert.Greater(t, tr.Slope, 0.1)
}

func TestVolatility(t *testing.T) {
	c := NewClassifier(DefaultConfig())

	flat := c.Volatility(line(60, 100, 0))
	assert.Equal(t, 0.0, flat.Current)
	assert.Equal(t, 1.0, flat.Ratio)
	assert.Equal(t, models.VolNormal, flat.Classification)

	// calm history followed by a choppy tail
	closes := make([]float64, 0, 120)
	for i := 0; i < 100; i++ {
		closes = append(closes, 100*(1+0.001*math.Sin(float64(i))))
	}
	for i := 0; i < 20; i++ {
		closes = append(closes, 100*(1+0.05*math.Sin(float64(i))))
	}
	v := c.Volatility(closes)
	assert.Greater(t, v.Ratio, 1.5)
	assert.Equal(t, models.VolHigh, v.Classification)

	short := c.Volatility([]float64{100, 101, 100, 102})
	assert.Equal(t, short.Current, short.Average)
	assert.Equal(t, 1.0, short.Ratio)
}

func TestDetect(t *testing.T) {
	c := NewClassifier(DefaultConfig())

	r := c.Detect(line(100, 100, 0))
	assert.Equal(t, 0.5, r.Hurst)
	assert.Equal(t, models.RegimeRanging, r.Overall)

	r = c.Detect(line(10, 100, 0.5))
	require.NotEmpty(t, r.Overall)
	assert.Equal(t, models.Sideways, r.Trend.Direction)

	assert.Equal(t, models.Sideways, c.Detect(nil).Trend.Direction)
}
