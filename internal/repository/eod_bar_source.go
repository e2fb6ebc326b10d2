package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
	xhttp "FinScope/pkg/http"
	applogger "FinScope/pkg/logger"
)

const (
	DefaultEODBaseURL = "https://eodhd.com/api"
	eodDateLayout     = "2006-01-02"
	eodTimeLayout     = "2006-01-02 15:04:05"
)

// EODBarSource reads OHLCV history from an EOD-style HTTP API. Requests are
// paced by a token bucket and guarded by a circuit breaker.
type EODBarSource struct {
	baseURL  string
	apiKey   string
	exchange string
	client   *xhttp.Client
	limiter  *rate.Limiter
	breaker  xhttp.BreakerConfig
	cb       *gobreaker.CircuitBreaker
	now      func() time.Time
	l        *applogger.Logger
}

type EODOption func(*EODBarSource)

func WithEODBaseURL(u string) EODOption {
	return func(s *EODBarSource) { s.baseURL = strings.TrimRight(u, "/") }
}

// WithEODExchange sets the suffix appended to bare tickers, e.g. "US".
func WithEODExchange(ex string) EODOption {
	return func(s *EODBarSource) { s.exchange = ex }
}

func WithEODRateLimit(perSecond float64, burst int) EODOption {
	return func(s *EODBarSource) { s.limiter = rate.NewLimiter(rate.Limit(perSecond), max(1, burst)) }
}

func WithEODBreaker(cfg xhttp.BreakerConfig) EODOption {
	return func(s *EODBarSource) { s.breaker = cfg }
}

func WithEODClient(c *xhttp.Client) EODOption {
	return func(s *EODBarSource) { s.client = c }
}

func WithEODLogger(l *applogger.Logger) EODOption {
	return func(s *EODBarSource) {
		if l != nil {
			s.l = l
		}
	}
}

func withEODClock(now func() time.Time) EODOption {
	return func(s *EODBarSource) { s.now = now }
}

func NewEODBarSource(apiKey string, opts ...EODOption) *EODBarSource {
	s := &EODBarSource{
		baseURL:  DefaultEODBaseURL,
		apiKey:   apiKey,
		exchange: "US",
		limiter:  rate.NewLimiter(rate.Limit(10), 10),
		now:      time.Now,
		l:        applogger.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.client == nil {
		s.client = xhttp.NewClient(xhttp.WithTimeout(30 * time.Second))
	}
	s.cb = xhttp.NewBreaker("eod", s.breaker, s.l)
	return s
}

type eodRow struct {
	Date     string           `json:"date"`
	Datetime string           `json:"datetime"`
	Open     float64          `json:"open"`
	High     float64          `json:"high"`
	Low      float64          `json:"low"`
	Close    models.NullFloat `json:"close"`
	Volume   float64          `json:"volume"`
}

func (s *EODBarSource) GetBars(ctx context.Context, symbol string, from, to time.Time, iv domrepo.Interval) ([]models.PriceBar, error) {
	start := time.Now()
	path, params, err := s.request(symbol, from, to, iv)
	if err != nil {
		return nil, err
	}
	rows, err := s.fetch(ctx, path, params)
	if err != nil {
		s.l.Error("eod get_bars error",
			applogger.String("symbol", symbol),
			applogger.String("interval", string(iv)),
			applogger.Error(err),
		)
		return nil, err
	}
	bars := make([]models.PriceBar, 0, len(rows))
	for _, r := range rows {
		b, ok := r.toBar()
		if !ok {
			continue
		}
		bars = append(bars, b)
	}
	s.l.Debug("eod get_bars ok",
		applogger.String("symbol", symbol),
		applogger.String("interval", string(iv)),
		applogger.Int("rows", len(bars)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	if len(bars) == 0 {
		return nil, domrepo.ErrNoBars
	}
	return bars, nil
}

// GetLatestBars requests a calendar window wide enough for n bars and keeps
// the last n.
func (s *EODBarSource) GetLatestBars(ctx context.Context, symbol string, n int, iv domrepo.Interval) ([]models.PriceBar, error) {
	to := s.now().UTC()
	span := time.Duration(n) * iv.Duration()
	if iv == domrepo.Interval1d {
		// trading days are ~5/7 of calendar days
		span = span * 7 / 5
	}
	from := to.Add(-span - 7*24*time.Hour)
	bars, err := s.GetBars(ctx, symbol, from, to, iv)
	if err != nil {
		return nil, err
	}
	if len(bars) > n {
		bars = bars[len(bars)-n:]
	}
	return bars, nil
}

func (s *EODBarSource) request(symbol string, from, to time.Time, iv domrepo.Interval) (string, url.Values, error) {
	code := strings.ToUpper(symbol)
	if s.exchange != "" && !strings.Contains(code, ".") {
		code += "." + s.exchange
	}
	params := url.Values{}
	switch iv {
	case domrepo.Interval1d, domrepo.Interval1wk:
		period := "d"
		if iv == domrepo.Interval1wk {
			period = "w"
		}
		params.Set("period", period)
		params.Set("order", "a")
		if !from.IsZero() {
			params.Set("from", from.UTC().Format(eodDateLayout))
		}
		if !to.IsZero() {
			params.Set("to", to.UTC().Format(eodDateLayout))
		}
		return "/eod/" + url.PathEscape(code), params, nil
	case domrepo.Interval1h:
		params.Set("interval", "1h")
		if !from.IsZero() {
			params.Set("from", fmt.Sprintf("%d", from.Unix()))
		}
		if !to.IsZero() {
			params.Set("to", fmt.Sprintf("%d", to.Unix()))
		}
		return "/intraday/" + url.PathEscape(code), params, nil
	default:
		return "", nil, fmt.Errorf("unsupported interval: %s", iv)
	}
}

func (s *EODBarSource) fetch(ctx context.Context, path string, params url.Values) ([]eodRow, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	params.Set("api_token", s.apiKey)
	params.Set("fmt", "json")

	out, err := s.cb.Execute(func() (interface{}, error) {
		var rows []eodRow
		err := s.client.FetchJSON(ctx, xhttp.Request{URL: s.baseURL + path, Query: params}, &rows)
		return rows, err
	})
	if err != nil {
		if xhttp.IsOpen(err) {
			return nil, fmt.Errorf("%w: %v", domrepo.ErrSourceUnavailable, err)
		}
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.Code == 404 {
			return nil, domrepo.ErrNoBars
		}
		return nil, fmt.Errorf("eod %s: %w", path, err)
	}
	return out.([]eodRow), nil
}

func (r eodRow) toBar() (models.PriceBar, bool) {
	var ts time.Time
	var err error
	switch {
	case r.Datetime != "":
		ts, err = time.ParseInLocation(eodTimeLayout, r.Datetime, time.UTC)
	default:
		ts, err = time.ParseInLocation(eodDateLayout, r.Date, time.UTC)
	}
	if err != nil {
		return models.PriceBar{}, false
	}
	return models.PriceBar{
		Time:   ts,
		Open:   r.Open,
		High:   r.High,
		Low:    r.Low,
		Close:  r.Close.Or(math.NaN()),
		Volume: r.Volume,
	}, true
}

var _ domrepo.BarSource = (*EODBarSource)(nil)
