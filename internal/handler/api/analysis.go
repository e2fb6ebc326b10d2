package api

import (
	"context"
	"net/http"
	"time"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
	"FinScope/internal/services/analytics"
	"FinScope/internal/usecase"
	xhttp "FinScope/pkg/http"
	xlogger "FinScope/pkg/logger"
	xutil "FinScope/pkg/util"

	"github.com/labstack/echo/v4"
)

const analysisMaxAge = 15 * time.Second

// HealthCheck reports the health of one dependency.
type HealthCheck func(ctx context.Context) error

// AnalysisHandler serves analysis, screening and bar endpoints.
type AnalysisHandler struct {
	logger     *xlogger.Logger
	analysis   *usecase.AnalysisUseCase
	screen     *usecase.ScreenUseCase
	bars       *usecase.BarsUseCase
	maxScreen  int
	middleware []echo.MiddlewareFunc
	checks     map[string]HealthCheck
}

type AnalysisHandlerOption func(*AnalysisHandler)

// WithAPIMiddleware adds middleware to the /api group, e.g. rate limiting.
func WithAPIMiddleware(mw ...echo.MiddlewareFunc) AnalysisHandlerOption {
	return func(h *AnalysisHandler) { h.middleware = append(h.middleware, mw...) }
}

func WithMaxScreenSymbols(n int) AnalysisHandlerOption {
	return func(h *AnalysisHandler) {
		if n > 0 {
			h.maxScreen = n
		}
	}
}

// WithHealthCheck registers a dependency checked by /healthz.
func WithHealthCheck(name string, check HealthCheck) AnalysisHandlerOption {
	return func(h *AnalysisHandler) {
		if check != nil {
			h.checks[name] = check
		}
	}
}

func NewAnalysisHandler(logger *xlogger.Logger, analysis *usecase.AnalysisUseCase, screen *usecase.ScreenUseCase, bars *usecase.BarsUseCase, opts ...AnalysisHandlerOption) *AnalysisHandler {
	h := &AnalysisHandler{
		logger:    logger,
		analysis:  analysis,
		screen:    screen,
		bars:      bars,
		maxScreen: 50,
		checks:    map[string]HealthCheck{},
	}
	if h.logger == nil {
		h.logger = xlogger.Nop()
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *AnalysisHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api", h.middleware...)
	g.GET("/analysis", h.Analyze)
	g.POST("/analysis", h.AnalyzeBars)
	g.GET("/screen", h.Screen)
	g.GET("/bars", h.Bars)
}

// Analyze returns the full analysis, or only its summary when compact=true.
func (h *AnalysisHandler) Analyze(c echo.Context) error {
	req := &models.AnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	iv := domrepo.NormalizeInterval(req.Interval)

	res, err := h.analysis.Analyze(c.Request().Context(), usecase.AnalyzeParams{
		Ticker:   req.Symbol,
		Interval: iv,
		Lookback: req.Lookback,
	})
	if err != nil {
		return h.fail(c, "analysis", err)
	}
	if req.Compact {
		s := res.Summary()
		s.Interval = string(iv)
		return xhttp.CachedResponse(c, s, analysisMaxAge)
	}
	return xhttp.CachedResponse(c, res, analysisMaxAge)
}

// AnalyzeBars analyses a caller-supplied series.
func (h *AnalysisHandler) AnalyzeBars(c echo.Context) error {
	req := &models.AnalyzeBarsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res, err := h.analysis.AnalyzeBars(c.Request().Context(), req.Symbol, req.Bars)
	if err != nil {
		return h.fail(c, "analysis bars", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *AnalysisHandler) Screen(c echo.Context) error {
	req := &models.ScreenRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	tickers := xutil.SplitSymbols(req.Symbols, 0)
	if len(tickers) > h.maxScreen {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("at most %d symbols per screen", h.maxScreen).
			WithParam("max", h.maxScreen))
	}

	out, err := h.screen.Screen(c.Request().Context(), usecase.ScreenParams{
		Tickers:  tickers,
		Interval: domrepo.NormalizeInterval(req.Interval),
		Lookback: req.Lookback,
	})
	if err != nil {
		return h.fail(c, "screen", err)
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *AnalysisHandler) Bars(c echo.Context) error {
	req := &models.BarsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	out, err := h.bars.Bars(c.Request().Context(), usecase.BarsParams{
		Symbol:   req.Symbol,
		Interval: domrepo.NormalizeInterval(req.Interval),
		From:     xutil.ParseTimeDefault(req.From, time.Time{}),
		To:       xutil.ParseTimeDefault(req.To, time.Time{}),
		Limit:    req.Limit,
	})
	if err != nil {
		return h.fail(c, "bars", err)
	}
	return xhttp.SuccessResponse(c, out)
}

// Health checks every registered dependency and answers 503 if any fails.
func (h *AnalysisHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{}
	healthy := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	if !healthy {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, status)
	}
	return xhttp.SuccessResponse(c, status)
}

func (h *AnalysisHandler) fail(c echo.Context, op string, err error) error {
	return xhttp.AppErrorResponse(c, toAppError(h.logger, op, err))
}

// analysisErrors maps use case errors onto HTTP statuses and codes.
var analysisErrors = []xhttp.ErrorRule{
	{Target: domrepo.ErrNoBars, Status: http.StatusNotFound, Code: "ERR_NO_BARS"},
	{Target: domrepo.ErrSourceUnavailable, Status: http.StatusServiceUnavailable, Code: "ERR_SOURCE_UNAVAILABLE"},
	{Target: context.DeadlineExceeded, Status: http.StatusServiceUnavailable, Code: "ERR_TIMEOUT"},
	{Target: analytics.ErrEmptySeries, Status: http.StatusBadRequest, Code: "ERR_EMPTY_SERIES"},
	{Target: analytics.ErrNoPrice, Status: http.StatusBadRequest, Code: "ERR_NO_PRICE"},
	{Target: usecase.ErrTickerRequired, Status: http.StatusBadRequest, Code: "ERR_TICKER_REQUIRED"},
	{Target: usecase.ErrInvalidRange, Status: http.StatusBadRequest, Code: "ERR_INVALID_RANGE"},
}

func toAppError(l *xlogger.Logger, op string, err error) *xhttp.AppError {
	if appErr := xhttp.MapError(err, analysisErrors); appErr != nil {
		return appErr
	}
	l.Error(op+" usecase error", xlogger.Error(err))
	return xhttp.InternalError("analysis failed").WithError(err)
}
