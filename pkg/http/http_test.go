package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pageRequest struct {
	Symbol string `json:"symbol" validate:"required,max=5,ticker"`
	Limit  int    `json:"limit" default:"100" validate:"gte=1,lte=500"`
}

func TestApplyDefaultsAndValidate(t *testing.T) {
	req := &pageRequest{Symbol: "AAPL"}
	require.NoError(t, ApplyDefaultsAndValidate(req))
	assert.Equal(t, 100, req.Limit)

	err := ApplyDefaultsAndValidate(&pageRequest{Symbol: "TOOLONG", Limit: 900})
	require.Error(t, err)
	verrs := ValidationErrors(err)
	require.Len(t, verrs, 2)
	assert.Equal(t, "ERR_MAX", verrs[0].Code)
	assert.Equal(t, "symbol must be at most 5 characters", verrs[0].Message)
	assert.Equal(t, "ERR_LTE", verrs[1].Code)
	assert.Equal(t, "500", verrs[1].Params["max"])
}

func TestAppErrorResponse(t *testing.T) {
	e := echo.New()
	cases := []struct {
		err  error
		code int
	}{
		{NotFoundError("no bars for X"), http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", UnavailableError("breaker open")), http.StatusServiceUnavailable},
		{BadRequestError("bad"), http.StatusBadRequest},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		require.NoError(t, AppErrorResponse(c, tc.err))
		assert.Equal(t, tc.code, rec.Code)

		var body APIResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tc.code, body.Status)
		assert.Equal(t, http.StatusText(tc.code), body.Message)
	}
}

func TestClientStatusErrorsTripBreaker(t *testing.T) {
	var status atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"ok":false}`))
	}))
	defer srv.Close()

	c := NewClient(WithTimeout(time.Second))
	cb := NewBreaker("test", BreakerConfig{FailureThreshold: 2, Timeout: time.Minute}, nil)
	call := func() error {
		_, err := cb.Execute(func() (interface{}, error) {
			return nil, c.FetchJSON(context.Background(), Request{URL: srv.URL}, nil)
		})
		return err
	}

	status.Store(http.StatusNotFound)
	for i := 0; i < 3; i++ {
		err := call()
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.False(t, se.Temporary())
	}
	assert.False(t, IsOpen(call()), "4xx does not trip the breaker")

	status.Store(http.StatusBadGateway)
	require.Error(t, call())
	require.Error(t, call())
	assert.True(t, IsOpen(call()))
}

var errMissing = errors.New("missing")

func TestMapError(t *testing.T) {
	rules := []ErrorRule{{Target: errMissing, Status: http.StatusNotFound, Code: "ERR_MISSING"}}

	got := MapError(fmt.Errorf("load AAPL: %w", errMissing), rules)
	require.NotNil(t, got)
	assert.Equal(t, http.StatusNotFound, got.Status)
	assert.Equal(t, "ERR_MISSING", got.Code)
	assert.ErrorIs(t, got, errMissing)

	own := BadRequestErrorf("at most %d", 3).WithParam("max", 3)
	assert.Same(t, own, MapError(fmt.Errorf("wrap: %w", own), rules))
	assert.Nil(t, MapError(errors.New("other"), rules))
	assert.Nil(t, MapError(nil, rules))
}

func TestCachedResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, CachedResponse(c, map[string]int{"n": 1}, 15*time.Second))
	assert.Equal(t, "private, max-age=15", rec.Header().Get(echo.HeaderCacheControl))
	assert.JSONEq(t, `{"status":200,"message":"OK","data":{"n":1}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, CachedResponse(c, nil, 0))
	assert.Equal(t, "no-store", rec.Header().Get(echo.HeaderCacheControl))
}

func TestClientFetchJSON(t *testing.T) {
	var gotQuery url.Values
	var gotKey, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotKey, gotUA = r.Header.Get("X-API-Key"), r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`{"price":12.5}`))
	}))
	defer srv.Close()

	var out struct {
		Price float64 `json:"price"`
	}
	c := NewClient(WithTimeout(time.Second), WithUserAgent("test-agent"))
	err := c.FetchJSON(context.Background(), Request{
		URL:     srv.URL + "/quote?fmt=json",
		Query:   url.Values{"symbol": {"AAPL"}},
		Headers: map[string]string{"X-API-Key": "k"},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, 12.5, out.Price)
	assert.Equal(t, "json", gotQuery.Get("fmt"))
	assert.Equal(t, "AAPL", gotQuery.Get("symbol"))
	assert.Equal(t, "k", gotKey)
	assert.Equal(t, "test-agent", gotUA)
}

func TestClientErrorsHideQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	err := NewClient(WithTimeout(time.Second)).FetchJSON(context.Background(),
		Request{URL: addr + "/eod/AAPL.US", Query: url.Values{"api_token": {"secret"}}}, nil)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret")
	assert.Contains(t, err.Error(), "/eod/AAPL.US")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = NewClient().FetchJSON(ctx, Request{URL: addr}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

type tickerRequest struct {
	Symbol  string `query:"symbol" validate:"required,ticker"`
	Symbols string `json:"symbols" validate:"omitempty,tickers"`
}

func TestTickerValidation(t *testing.T) {
	for _, sym := range []string{"AAPL", "brk.b", "^GSPC", "ES=F", "VOD.L"} {
		assert.NoError(t, ApplyDefaultsAndValidate(&tickerRequest{Symbol: sym}), sym)
	}
	assert.NoError(t, ApplyDefaultsAndValidate(&tickerRequest{Symbol: "A", Symbols: "aapl, msft,,"}))

	verrs := ValidationErrors(ApplyDefaultsAndValidate(&tickerRequest{Symbol: "AA PL", Symbols: "AAPL,M$FT"}))
	require.Len(t, verrs, 2)
	assert.Equal(t, "ERR_TICKER", verrs[0].Code)
	assert.Equal(t, "symbol", verrs[0].Field)
	assert.Equal(t, "ERR_TICKERS", verrs[1].Code)
	assert.Equal(t, "symbols", verrs[1].Field)

	verrs = ValidationErrors(ApplyDefaultsAndValidate(&tickerRequest{Symbol: "A", Symbols: " , "}))
	require.Len(t, verrs, 1)
	assert.Equal(t, "ERR_TICKERS", verrs[0].Code)

	verrs = ValidationErrors(errors.New("unexpected EOF"))
	require.Len(t, verrs, 1)
	assert.Equal(t, "ERR_MALFORMED", verrs[0].Code)
}
