package indicators

import (
	"FinScope/internal/domain/models"

	talib "github.com/markcheno/go-talib"
)

// SMA is the mean of the trailing w values, unavailable for i < w-1 and
// everywhere when the series is shorter than w.
func SMA(values []float64, w int) []models.NullFloat {
	if w <= 0 || len(values) < w {
		return make([]models.NullFloat, len(values))
	}
	return warmedUp(talib.Sma(values, w), w-1)
}

// warmedUp converts a talib output, whose first skip entries are zero fill.
func warmedUp(raw []float64, skip int) []models.NullFloat {
	out := make([]models.NullFloat, len(raw))
	for i := skip; i < len(raw); i++ {
		out[i] = models.Float(raw[i])
	}
	return out
}

// EMA uses k = 2/(span+1) seeded with the first value; defined at every index.
func EMA(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	k := 2 / (float64(span) + 1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}
