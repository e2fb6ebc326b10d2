package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
	xhttp "FinScope/pkg/http"
	pkgkafka "FinScope/pkg/kafka"
	applogger "FinScope/pkg/logger"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// AnalysisRequestHandler consumes analysis requests from Kafka. Every
// request is analysed and its summary published; any failure is returned
// so the consumer retries and then dead-letters the message.
type AnalysisRequestHandler struct {
	topic    string
	analysis *AnalysisUseCase
	l        *applogger.Logger
}

func NewAnalysisRequestHandler(topic string, analysis *AnalysisUseCase, l *applogger.Logger) *AnalysisRequestHandler {
	if l == nil {
		l = applogger.Nop()
	}
	return &AnalysisRequestHandler{topic: topic, analysis: analysis, l: l}
}

func (h *AnalysisRequestHandler) Topic() string { return h.topic }

// incoming message schema: {request_id, ticker, interval, lookback}
func (h *AnalysisRequestHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.AnalysisRequestEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.analysis.metrics.RecordError("request_decode")
		return fmt.Errorf("decode analysis request: %w", err)
	}
	if err := xhttp.ApplyDefaultsAndValidate(&ev); err != nil {
		h.analysis.metrics.RecordError("request_invalid")
		return fmt.Errorf("invalid analysis request: %w", err)
	}
	if ev.RequestID == "" {
		ev.RequestID = pkgkafka.RequestIDFrom(ctx)
	}
	if ev.RequestID == "" {
		ev.RequestID = uuid.NewString()
	}

	res, err := h.analysis.Analyze(ctx, AnalyzeParams{
		Ticker:    ev.Ticker,
		Interval:  domrepo.Interval(ev.Interval),
		Lookback:  ev.Lookback,
		RequestID: ev.RequestID,
	})
	if err != nil {
		return err
	}
	h.l.Info("analysis request served",
		applogger.String("request_id", ev.RequestID),
		applogger.String("ticker", res.Ticker),
		applogger.String("action", res.Recommendation.Action),
	)
	return nil
}

// FailureHook counts and logs requests that exhausted their retries.
func (h *AnalysisRequestHandler) FailureHook() pkgkafka.ConsumerHook {
	return pkgkafka.HookFuncs{
		Err: func(_ context.Context, topic string, km kafka.Message, _ []byte, err error) {
			h.analysis.metrics.RecordError("request_failed")
			h.l.Warn("analysis request failed",
				applogger.String("topic", topic),
				applogger.String("key", string(km.Key)),
				applogger.Error(err))
		},
	}
}

var _ pkgkafka.MessageHandler = (*AnalysisRequestHandler)(nil)
