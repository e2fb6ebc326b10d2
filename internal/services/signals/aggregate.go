package signals

import (
	"math"

	"FinScope/internal/domain/models"
)

// Weights are the per-generator weights of the aggregate score.
type Weights struct {
	ZScore   float64 `yaml:"zscore" default:"0.25"`
	Momentum float64 `yaml:"momentum" default:"0.30"`
	Volume   float64 `yaml:"volume" default:"0.25"`
}

// DefaultWeights sum to 0.8, so the aggregate never reaches the full ±2 range.
func DefaultWeights() Weights {
	return Weights{ZScore: 0.25, Momentum: 0.30, Volume: 0.25}
}

// Sum returns the total weight.
func (w Weights) Sum() float64 { return w.ZScore + w.Momentum + w.Volume }

// Normalized reports whether the weights sum to 1.
func (w Weights) Normalized() bool { return math.Abs(w.Sum()-1) < 1e-9 }

type tier struct {
	signal models.Signal
	match  func(score float64) bool
	cap    float64
}

var tiers = []tier{
	{models.StrongBuy, func(s float64) bool { return s >= 1.5 }, 0.95},
	{models.Buy, func(s float64) bool { return s >= 0.5 }, 0.80},
	{models.StrongSell, func(s float64) bool { return s <= -1.5 }, 0.95},
	{models.Sell, func(s float64) bool { return s <= -0.5 }, 0.80},
}

// Aggregate combines the three generator signals into one weighted score.
func Aggregate(z, m, v models.SignalResult, w Weights) models.AggregateSignal {
	score := float64(z.Signal.Score())*w.ZScore +
		float64(m.Signal.Score())*w.Momentum +
		float64(v.Signal.Score())*w.Volume

	out := models.AggregateSignal{
		Signal:            models.Neutral,
		Score:             score,
		WeightsNormalized: w.Normalized(),
	}
	capAt := 0.60
	for _, t := range tiers {
		if t.match(score) {
			out.Signal = t.signal
			capAt = t.cap
			break
		}
	}
	out.Confidence = math.Min(capAt, math.Min(0.95, 0.5+math.Abs(score)*0.3))
	return out
}

// Stat runs every generator with the given windows and aggregates them.
func Stat(closes, volumes []float64, cfg Config) models.StatSignals {
	z := ZScore(closes, cfg.ZScoreWindow)
	m := Momentum(closes, cfg.MomentumPeriods)
	v := Volume(volumes, closes, cfg.VolumeWindow)
	return models.StatSignals{
		ZScore:    z,
		Momentum:  m,
		Volume:    v,
		Aggregate: Aggregate(z, m, v, cfg.Weights),
	}
}

// Config holds the generator windows and aggregate weights.
type Config struct {
	ZScoreWindow    int     `yaml:"zscore_window" default:"20"`
	MomentumPeriods []int   `yaml:"momentum_periods" default:"[5,10,20,50]"`
	VolumeWindow    int     `yaml:"volume_window" default:"20"`
	Weights         Weights `yaml:"weights"`
}

func DefaultConfig() Config {
	return Config{
		ZScoreWindow:    20,
		MomentumPeriods: []int{5, 10, 20, 50},
		VolumeWindow:    20,
		Weights:         DefaultWeights(),
	}
}
