package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
	applogger "FinScope/pkg/logger"
)

// ScreenUseCase analyses many tickers with bounded concurrency.
type ScreenUseCase struct {
	analysis    *AnalysisUseCase
	concurrency int
	timeout     time.Duration
	l           *applogger.Logger
}

func NewScreenUseCase(analysis *AnalysisUseCase, concurrency int, timeout time.Duration, l *applogger.Logger) *ScreenUseCase {
	if concurrency <= 0 {
		concurrency = 4
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &ScreenUseCase{analysis: analysis, concurrency: concurrency, timeout: timeout, l: l}
}

type ScreenParams struct {
	Tickers  []string
	Interval domrepo.Interval
	Lookback int
}

// ScreenResult holds one comparison row per analysed ticker, best score
// first, and the error text for every ticker that failed.
type ScreenResult struct {
	Interval string                   `json:"interval"`
	Rows     []models.AnalysisSummary `json:"rows"`
	Errors   map[string]string        `json:"errors,omitempty"`
}

func (uc *ScreenUseCase) Screen(ctx context.Context, p ScreenParams) (*ScreenResult, error) {
	tickers := dedupe(p.Tickers)
	if len(tickers) == 0 {
		return nil, ErrTickerRequired
	}
	iv := domrepo.NormalizeInterval(string(p.Interval))

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	type item struct {
		ticker string
		sum    models.AnalysisSummary
		err    error
	}
	ch := make(chan item, len(tickers))
	sem := make(chan struct{}, uc.concurrency)
	var wg sync.WaitGroup

	for _, t := range tickers {
		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				ch <- item{ticker: ticker, err: ctx.Err()}
				return
			}
			defer func() { <-sem }()

			res, err := uc.analysis.Analyze(ctx, AnalyzeParams{Ticker: ticker, Interval: iv, Lookback: p.Lookback})
			if err != nil {
				ch <- item{ticker: ticker, err: err}
				return
			}
			s := res.Summary()
			s.Interval = string(iv)
			ch <- item{ticker: ticker, sum: s}
		}(t)
	}
	wg.Wait()
	close(ch)

	out := &ScreenResult{Interval: string(iv), Rows: make([]models.AnalysisSummary, 0, len(tickers))}
	for it := range ch {
		if it.err != nil {
			if out.Errors == nil {
				out.Errors = map[string]string{}
			}
			out.Errors[it.ticker] = it.err.Error()
			uc.l.Warn("screen ticker failed", applogger.String("ticker", it.ticker), applogger.Error(it.err))
			continue
		}
		out.Rows = append(out.Rows, it.sum)
	}
	sort.SliceStable(out.Rows, func(i, j int) bool {
		if out.Rows[i].Score != out.Rows[j].Score {
			return out.Rows[i].Score > out.Rows[j].Score
		}
		return out.Rows[i].Ticker < out.Rows[j].Ticker
	})
	return out, nil
}

func dedupe(tickers []string) []string {
	seen := make(map[string]struct{}, len(tickers))
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
