package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
	"FinScope/internal/usecase"
	xlogger "FinScope/pkg/logger"
	xutil "FinScope/pkg/util"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	streamWriteWait = 10 * time.Second
	streamPongWait  = 60 * time.Second
)

// streamCommand is a client message on /api/stream.
type streamCommand struct {
	Action   string   `json:"action"`
	Symbols  []string `json:"symbols"`
	Interval string   `json:"interval"`
}

// streamMessage is a server message on /api/stream.
type streamMessage struct {
	Type    string                  `json:"type"`
	Session string                  `json:"session"`
	Symbols []string                `json:"symbols,omitempty"`
	Symbol  string                  `json:"symbol,omitempty"`
	Data    *models.AnalysisSummary `json:"data,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

type subscription struct {
	symbols  []string
	interval domrepo.Interval
}

// StreamHandler pushes fresh analysis summaries for subscribed symbols over
// a WebSocket every interval.
type StreamHandler struct {
	logger     *xlogger.Logger
	analysis   *usecase.AnalysisUseCase
	interval   time.Duration
	maxSymbols int
	lookback   int
	pongWait   time.Duration
	upgrader   websocket.Upgrader
}

func NewStreamHandler(logger *xlogger.Logger, analysis *usecase.AnalysisUseCase, interval time.Duration, maxSymbols, lookback int) *StreamHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if maxSymbols <= 0 {
		maxSymbols = 20
	}
	return &StreamHandler{
		logger:     logger,
		analysis:   analysis,
		interval:   interval,
		maxSymbols: maxSymbols,
		lookback:   lookback,
		pongWait:   streamPongWait,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *StreamHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/stream", h.Stream)
}

func (h *StreamHandler) Stream(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	session := uuid.NewString()
	l := h.logger.With(xlogger.String("session", session))
	l.Info("stream opened", xlogger.String("remote", c.RealIP()))

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	cmds := make(chan streamCommand)
	go h.readLoop(ctx, cancel, conn, cmds, l)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	// pings keep the peer's pongs flowing while it only listens
	ping := time.NewTicker(h.pongWait * 9 / 10)
	defer ping.Stop()

	var sub subscription
	for {
		select {
		case <-ctx.Done():
			l.Info("stream closed")
			return nil
		case cmd := <-cmds:
			next, reply := h.apply(sub, cmd, session)
			sub = next
			if err := h.write(conn, reply); err != nil {
				return nil
			}
			if reply.Type == "subscribed" {
				if err := h.push(ctx, conn, sub, session); err != nil {
					return nil
				}
			}
		case <-ticker.C:
			if err := h.push(ctx, conn, sub, session); err != nil {
				return nil
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				l.Debug("stream ping failed", xlogger.Error(err))
				return nil
			}
		}
	}
}

func (h *StreamHandler) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, cmds chan<- streamCommand, l *xlogger.Logger) {
	defer cancel()
	_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})
	for {
		var cmd streamCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				l.Warn("stream read failed", xlogger.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
		select {
		case cmds <- cmd:
		case <-ctx.Done():
			return
		}
	}
}

// apply turns a client command into the next subscription and its reply.
func (h *StreamHandler) apply(sub subscription, cmd streamCommand, session string) (subscription, streamMessage) {
	switch strings.ToLower(cmd.Action) {
	case "subscribe":
		symbols := xutil.SplitSymbols(strings.Join(cmd.Symbols, ","), h.maxSymbols)
		if len(symbols) == 0 {
			return sub, streamMessage{Type: "error", Session: session, Error: "no symbols"}
		}
		next := subscription{symbols: symbols, interval: domrepo.NormalizeInterval(cmd.Interval)}
		return next, streamMessage{Type: "subscribed", Session: session, Symbols: symbols}
	case "unsubscribe":
		return subscription{}, streamMessage{Type: "unsubscribed", Session: session}
	default:
		return sub, streamMessage{Type: "error", Session: session, Error: "unknown action " + cmd.Action}
	}
}

func (h *StreamHandler) push(ctx context.Context, conn *websocket.Conn, sub subscription, session string) error {
	for _, sym := range sub.symbols {
		msg := streamMessage{Type: "summary", Session: session, Symbol: sym}
		res, err := h.analysis.Analyze(ctx, usecase.AnalyzeParams{Ticker: sym, Interval: sub.interval, Lookback: h.lookback})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			msg.Type, msg.Error = "error", err.Error()
		} else {
			s := res.Summary()
			s.Interval = string(sub.interval)
			msg.Data = &s
		}
		if err := h.write(conn, msg); err != nil {
			return err
		}
	}
	return nil
}

func (h *StreamHandler) write(conn *websocket.Conn, msg streamMessage) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(msg)
}
