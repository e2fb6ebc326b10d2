package features

import (
	"encoding/json"
	"math"
	"testing"

	"FinScope/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closes(cs ...float64) []models.PriceBar {
	out := make([]models.PriceBar, len(cs))
	for i, c := range cs {
		out[i] = models.PriceBar{Open: c, High: c, Low: c, Close: c}
	}
	return out
}

func TestBuildReturns(t *testing.T) {
	r := BuildReturns(closes(100, 110, 99))
	assert.False(t, r.Simple[0].Valid)
	assert.InDelta(t, 0.1, r.Simple[1].Float64, 1e-12)
	assert.InDelta(t, -0.1, r.Simple[2].Float64, 1e-12)
	assert.InDelta(t, math.Log(1.1), r.Log[1].Float64, 1e-12)
}

func TestBuildReturnsSkipsMissingClose(t *testing.T) {
	bars := closes(100, 0, 120)
	bars[1].Close = math.NaN()
	r := BuildReturns(bars)
	assert.False(t, r.Simple[1].Valid)
	// bridged to the last usable close instead of producing a zero return
	assert.InDelta(t, 0.2, r.Simple[2].Float64, 1e-12)
	assert.Equal(t, []float64{0.2}, roundAll(ComputeSimpleReturns(bars)))
}

func TestBuildReturnsFromJSONNullClose(t *testing.T) {
	payload := `[{"close":100},{"close":null},{"close":0},{"close":105}]`
	var bars []models.PriceBar
	require.NoError(t, json.Unmarshal([]byte(payload), &bars))
	assert.False(t, bars[1].HasClose())
	assert.False(t, bars[2].HasClose())
	got := ComputeLogReturns(bars)
	require.Len(t, got, 1)
	assert.InDelta(t, math.Log(1.05), got[0], 1e-12)
	assert.Len(t, ValidBars(bars), 2)
}

func TestReturnsFromCloses(t *testing.T) {
	assert.Nil(t, ReturnsFromCloses([]float64{1}))
	assert.Equal(t, []float64{1, -0.5}, ReturnsFromCloses([]float64{1, 2, 1}))
}

func TestRealizedVolatility(t *testing.T) {
	assert.Equal(t, 0.0, RealizedVolatility([]float64{0.01}, 5, 252))
	assert.InDelta(t, 0.0, RealizedVolatility([]float64{0.01, 0.01, 0.01}, 3, 252), 1e-6)
	v := RealizedVolatility([]float64{0.01, -0.01, 0.01, -0.01}, 4, 252)
	assert.InDelta(t, math.Sqrt(4*0.0001/3*252), v, 1e-12)
}

func roundAll(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = math.Round(x*1e9) / 1e9
	}
	return out
}
