package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
	"FinScope/internal/service/ratelimit"
	"FinScope/internal/services/analytics"
	"FinScope/internal/usecase"
	xhttp "FinScope/pkg/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trendBars(n int, step float64) []models.PriceBar {
	out := make([]models.PriceBar, n)
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	prev := 100.0
	for i := range out {
		c := 100 * math.Pow(step, float64(i)) * (1 + 0.0002*math.Sin(float64(i)))
		open := c
		if i > 0 {
			open = prev
		}
		out[i] = models.PriceBar{
			Time: start.AddDate(0, 0, i), Open: open,
			High: math.Max(open, c) * 1.001, Low: math.Min(open, c) * 0.999,
			Close: c, Volume: 1e6,
		}
		prev = c
	}
	return out
}

type stubSource struct{}

func (stubSource) lookup(symbol string) ([]models.PriceBar, error) {
	switch symbol {
	case "UPCO":
		return trendBars(252, 1.0014), nil
	case "DOWN":
		return nil, domrepo.ErrSourceUnavailable
	case "BROKEN":
		return nil, errors.New("disk on fire")
	default:
		return nil, domrepo.ErrNoBars
	}
}

func (s stubSource) GetBars(_ context.Context, symbol string, _, _ time.Time, _ domrepo.Interval) ([]models.PriceBar, error) {
	return s.lookup(symbol)
}

func (s stubSource) GetLatestBars(_ context.Context, symbol string, n int, _ domrepo.Interval) ([]models.PriceBar, error) {
	b, err := s.lookup(symbol)
	if err == nil && len(b) > n {
		b = b[len(b)-n:]
	}
	return b, err
}

func newTestEcho(t *testing.T, opts ...AnalysisHandlerOption) *echo.Echo {
	t.Helper()
	src := stubSource{}
	uc := usecase.NewAnalysisUseCase(src, analytics.NewEngine(nil))
	h := NewAnalysisHandler(nil, uc,
		usecase.NewScreenUseCase(uc, 2, 5*time.Second, nil),
		usecase.NewBarsUseCase(src),
		opts...,
	)
	sh := NewStreamHandler(nil, uc, time.Hour, 2, 252)
	return xhttp.NewServer([]xhttp.Handler{h, sh}).Echo()
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func do(t *testing.T, e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestAnalyzeEndpoint(t *testing.T) {
	e := newTestEcho(t)

	rec, env := do(t, e, http.MethodGet, "/api/analysis?symbol=upco", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var full models.AnalysisResult
	require.NoError(t, json.Unmarshal(env.Data, &full))
	assert.Equal(t, "UPCO", full.Ticker)
	assert.Equal(t, models.ActionBuy, full.Recommendation.Action)
	assert.Len(t, full.Series, 252)

	rec, env = do(t, e, http.MethodGet, "/api/analysis?symbol=UPCO&compact=true&interval=1d", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sum models.AnalysisSummary
	require.NoError(t, json.Unmarshal(env.Data, &sum))
	assert.Equal(t, models.ActionBuy, sum.Action)
	assert.Equal(t, "1d", sum.Interval)
	assert.Equal(t, 252, sum.Bars)
	assert.NotContains(t, string(env.Data), `"series"`)
}

func TestAnalyzeEndpointErrors(t *testing.T) {
	e := newTestEcho(t)
	cases := []struct {
		target  string
		code    int
		errCode string
	}{
		{"/api/analysis", http.StatusBadRequest, "ERR_REQUIRED"},
		{"/api/analysis?symbol=UPCO&interval=5m", http.StatusBadRequest, "ERR_ONEOF"},
		{"/api/analysis?symbol=UPCO&lookback=0", http.StatusOK, ""},
		{"/api/analysis?symbol=NONE", http.StatusNotFound, "ERR_NO_BARS"},
		{"/api/analysis?symbol=DOWN", http.StatusServiceUnavailable, "ERR_SOURCE_UNAVAILABLE"},
		{"/api/analysis?symbol=BROKEN", http.StatusInternalServerError, "ERR_INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.target, func(t *testing.T) {
			rec, env := do(t, e, http.MethodGet, tc.target, "")
			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, tc.code, env.Status)
			if tc.errCode == "" {
				assert.Equal(t, "private, max-age=15", rec.Header().Get(echo.HeaderCacheControl))
				return
			}
			var errs []struct {
				Code string `json:"code"`
			}
			require.NoError(t, json.Unmarshal(env.Data, &errs))
			require.NotEmpty(t, errs)
			assert.Equal(t, tc.errCode, errs[0].Code)
		})
	}
}

func TestAnalyzeBarsEndpoint(t *testing.T) {
	e := newTestEcho(t)
	body, err := json.Marshal(models.AnalyzeBarsRequest{Symbol: "mine", Bars: trendBars(120, 1.0014)})
	require.NoError(t, err)

	rec, env := do(t, e, http.MethodPost, "/api/analysis", string(body))
	require.Equal(t, http.StatusOK, rec.Code)
	var res models.AnalysisResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "MINE", res.Ticker)
	assert.Len(t, res.Series, 120)

	rec, _ = do(t, e, http.MethodPost, "/api/analysis", `{"symbol":"mine","bars":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, e, http.MethodPost, "/api/analysis", `{"symbol":"mine","bars":[{"time":"2024-01-02T00:00:00Z","close":null}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "no usable close")
}

func TestScreenEndpoint(t *testing.T) {
	e := newTestEcho(t, WithMaxScreenSymbols(3))

	rec, env := do(t, e, http.MethodGet, "/api/screen?symbols=upco,none,UPCO", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out usecase.ScreenResult
	require.NoError(t, json.Unmarshal(env.Data, &out))
	require.Len(t, out.Rows, 1)
	assert.Equal(t, "UPCO", out.Rows[0].Ticker)
	assert.Contains(t, out.Errors, "NONE")

	rec, _ = do(t, e, http.MethodGet, "/api/screen?symbols=A,B,C,D", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = do(t, e, http.MethodGet, "/api/screen?symbols=A&lookback=10", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBarsEndpoint(t *testing.T) {
	e := newTestEcho(t)
	rec, env := do(t, e, http.MethodGet, "/api/bars?symbol=UPCO&limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out usecase.BarsResult
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, 5, out.Count)
	assert.Equal(t, "1d", out.Interval)

	rec, _ = do(t, e, http.MethodGet, "/api/bars?symbol=UPCO&from=2024-02-01&to=2024-01-01", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	e := newTestEcho(t, WithHealthCheck("clickhouse", func(context.Context) error { return nil }))
	rec, env := do(t, e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"clickhouse":"ok"}`, string(env.Data))

	e = newTestEcho(t, WithHealthCheck("redis", func(context.Context) error { return errors.New("refused") }))
	rec, _ = do(t, e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPIMiddlewareRateLimits(t *testing.T) {
	lim := ratelimit.New(0.001, 1, time.Minute)
	e := newTestEcho(t, WithAPIMiddleware(lim.Middleware(nil)))

	rec, _ := do(t, e, http.MethodGet, "/api/bars?symbol=UPCO&limit=1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, e, http.MethodGet, "/api/bars?symbol=UPCO&limit=1", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec, _ = do(t, e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code, "health is outside the limited group")
}

func TestStreamSubscribePushesSummaries(t *testing.T) {
	srv := httptest.NewServer(newTestEcho(t))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))

	require.NoError(t, conn.WriteJSON(streamCommand{Action: "subscribe", Symbols: []string{"upco", "none", "extra"}}))

	var ack streamMessage
	require.NoError(t, conn.ReadJSON(&ack))
	assert.Equal(t, "subscribed", ack.Type)
	assert.Equal(t, []string{"UPCO", "NONE"}, ack.Symbols, "capped at max symbols")
	assert.Len(t, ack.Session, 36)

	var first, second streamMessage
	require.NoError(t, conn.ReadJSON(&first))
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, "summary", first.Type)
	require.NotNil(t, first.Data)
	assert.Equal(t, models.ActionBuy, first.Data.Action)
	assert.Equal(t, "1d", first.Data.Interval)
	assert.Equal(t, "error", second.Type)
	assert.Equal(t, "NONE", second.Symbol)
	assert.Equal(t, ack.Session, second.Session)

	require.NoError(t, conn.WriteJSON(streamCommand{Action: "bogus"}))
	var bad streamMessage
	require.NoError(t, conn.ReadJSON(&bad))
	assert.Equal(t, "error", bad.Type)
	assert.Contains(t, bad.Error, "bogus")
}

func TestStreamPingsKeepListeningClientAlive(t *testing.T) {
	uc := usecase.NewAnalysisUseCase(stubSource{}, analytics.NewEngine(nil))
	sh := NewStreamHandler(nil, uc, time.Hour, 2, 252)
	sh.pongWait = 500 * time.Millisecond
	srv := httptest.NewServer(xhttp.NewServer([]xhttp.Handler{sh}).Echo())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	pings := 0
	conn.SetPingHandler(func(data string) error {
		pings++
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	require.NoError(t, conn.WriteJSON(streamCommand{Action: "subscribe", Symbols: []string{"upco"}}))
	var ack, summary streamMessage
	require.NoError(t, conn.ReadJSON(&ack))
	require.NoError(t, conn.ReadJSON(&summary))
	assert.Equal(t, "summary", summary.Type)

	// listen only, well past the server read deadline
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	var ne net.Error
	require.True(t, errors.As(err, &ne) && ne.Timeout(), "connection dropped: %v", err)
	assert.GreaterOrEqual(t, pings, 2)
}
