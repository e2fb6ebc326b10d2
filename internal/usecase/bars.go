package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
)

const (
	defaultBarsLimit = 1000
	maxBarsLimit     = 50000
)

var ErrInvalidRange = errors.New("from must be <= to")

// BarsUseCase serves raw bars for charting.
type BarsUseCase struct {
	source domrepo.BarSource
}

func NewBarsUseCase(source domrepo.BarSource) *BarsUseCase {
	return &BarsUseCase{source: source}
}

// BarsParams selects bars by range. A zero From returns the latest Limit bars.
type BarsParams struct {
	Symbol   string
	Interval domrepo.Interval
	From     time.Time
	To       time.Time
	Limit    int
}

type BarsResult struct {
	Symbol   string            `json:"symbol"`
	Interval string            `json:"interval"`
	From     time.Time         `json:"from"`
	To       time.Time         `json:"to"`
	Count    int               `json:"count"`
	Bars     []models.PriceBar `json:"bars"`
}

func (uc *BarsUseCase) Bars(ctx context.Context, p BarsParams) (*BarsResult, error) {
	p.Symbol = strings.ToUpper(strings.TrimSpace(p.Symbol))
	if p.Symbol == "" {
		return nil, ErrTickerRequired
	}
	if p.Limit <= 0 {
		p.Limit = defaultBarsLimit
	}
	if p.Limit > maxBarsLimit {
		p.Limit = maxBarsLimit
	}
	p.Interval = domrepo.NormalizeInterval(string(p.Interval))

	var (
		bars []models.PriceBar
		err  error
	)
	if p.From.IsZero() {
		bars, err = uc.source.GetLatestBars(ctx, p.Symbol, p.Limit, p.Interval)
	} else {
		if p.To.IsZero() {
			p.To = time.Now().UTC()
		}
		if p.From.After(p.To) {
			return nil, ErrInvalidRange
		}
		bars, err = uc.source.GetBars(ctx, p.Symbol, p.From, p.To, p.Interval)
	}
	if err != nil {
		return nil, fmt.Errorf("get bars %s: %w", p.Symbol, err)
	}
	if len(bars) > p.Limit {
		bars = bars[len(bars)-p.Limit:]
	}

	out := &BarsResult{Symbol: p.Symbol, Interval: string(p.Interval), From: p.From, To: p.To, Count: len(bars), Bars: bars}
	if len(bars) > 0 {
		out.From, out.To = bars[0].Time, bars[len(bars)-1].Time
	}
	return out, nil
}
