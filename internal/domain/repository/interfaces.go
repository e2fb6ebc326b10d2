package repository

import (
	"context"
	"errors"
	"time"

	"FinScope/internal/domain/models"
)

var (
	// ErrNoBars is returned when a source has no data for the symbol.
	ErrNoBars = errors.New("no bars for symbol")
	// ErrSourceUnavailable is returned while the upstream source is tripped.
	ErrSourceUnavailable = errors.New("bar source unavailable")
)

// BarSource provides read-only access to OHLCV history, ascending by time.
type BarSource interface {
	GetBars(ctx context.Context, symbol string, from, to time.Time, iv Interval) ([]models.PriceBar, error)
	GetLatestBars(ctx context.Context, symbol string, n int, iv Interval) ([]models.PriceBar, error)
}

// ResultPublisher emits analysis summaries to downstream consumers.
type ResultPublisher interface {
	Publish(ctx context.Context, s *models.AnalysisSummary) error
	PublishBatch(ctx context.Context, items []*models.AnalysisSummary) error
	Close() error
}

type Metrics interface {
	RecordAnalysis(symbol, action string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
