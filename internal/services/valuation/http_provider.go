package valuation

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"FinScope/internal/domain/models"
	domsvc "FinScope/internal/domain/service"
	xhttp "FinScope/pkg/http"
	applogger "FinScope/pkg/logger"
)

// ErrProviderUnavailable is returned while the provider's breaker is open.
var ErrProviderUnavailable = errors.New("fundamentals provider unavailable")

// HTTPProvider fetches fundamentals from a JSON endpoint:
// GET {baseURL}/fundamentals/{ticker}?price=...
type HTTPProvider struct {
	baseURL  string
	apiKey   string
	attempts int
	client   *xhttp.Client
	breaker  xhttp.BreakerConfig
	cb       *gobreaker.CircuitBreaker
	l        *applogger.Logger
}

type HTTPProviderOption func(*HTTPProvider)

func WithAPIKey(key string) HTTPProviderOption {
	return func(p *HTTPProvider) { p.apiKey = key }
}

func WithAttempts(n int) HTTPProviderOption {
	return func(p *HTTPProvider) { p.attempts = n }
}

func WithClient(c *xhttp.Client) HTTPProviderOption {
	return func(p *HTTPProvider) { p.client = c }
}

func WithBreaker(cfg xhttp.BreakerConfig) HTTPProviderOption {
	return func(p *HTTPProvider) { p.breaker = cfg }
}

func WithLogger(l *applogger.Logger) HTTPProviderOption {
	return func(p *HTTPProvider) {
		if l != nil {
			p.l = l
		}
	}
}

func NewHTTPProvider(baseURL string, opts ...HTTPProviderOption) *HTTPProvider {
	p := &HTTPProvider{
		baseURL:  strings.TrimRight(baseURL, "/"),
		attempts: 3,
		l:        applogger.Nop(),
	}
	for _, o := range opts {
		o(p)
	}
	if p.client == nil {
		p.client = xhttp.NewClient(xhttp.WithTimeout(5 * time.Second))
	}
	p.cb = xhttp.NewBreaker("fundamentals", p.breaker, p.l)
	return p
}

func (p *HTTPProvider) Name() string { return "http" }

// Fundamentals fetches the snapshot, retrying transient failures with a
// linear backoff. The response is trusted to be real data.
func (p *HTTPProvider) Fundamentals(ctx context.Context, ticker string, price float64) (models.Fundamentals, error) {
	var f models.Fundamentals
	var err error
	for i := 1; i <= max(1, p.attempts); i++ {
		f, err = p.fetch(ctx, ticker, price)
		if err == nil || !retryable(err) || i == p.attempts {
			break
		}
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return models.Fundamentals{}, ctx.Err()
		}
	}
	if err != nil {
		return models.Fundamentals{}, err
	}
	f.Ticker = strings.ToUpper(ticker)
	f.Source = p.Name()
	f.Synthetic = false
	if f.Price == 0 {
		f.Price = price
	}
	return f, nil
}

func (p *HTTPProvider) fetch(ctx context.Context, ticker string, price float64) (models.Fundamentals, error) {
	out, err := p.cb.Execute(func() (interface{}, error) {
		var f models.Fundamentals
		req := xhttp.Request{
			URL:   p.baseURL + "/fundamentals/" + url.PathEscape(strings.ToUpper(ticker)),
			Query: url.Values{"price": {fmt.Sprintf("%g", price)}},
		}
		if p.apiKey != "" {
			req.Headers = map[string]string{"X-API-Key": p.apiKey}
		}
		if err := p.client.FetchJSON(ctx, req, &f); err != nil {
			return nil, err
		}
		return f, nil
	})
	if err != nil {
		if xhttp.IsOpen(err) {
			return models.Fundamentals{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
		}
		return models.Fundamentals{}, fmt.Errorf("get fundamentals %s: %w", ticker, err)
	}
	return out.(models.Fundamentals), nil
}

func retryable(err error) bool {
	if errors.Is(err, ErrProviderUnavailable) || errors.Is(err, context.Canceled) {
		return false
	}
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

var _ domsvc.FundamentalsProvider = (*HTTPProvider)(nil)
