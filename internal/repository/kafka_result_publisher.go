package repository

import (
	"context"
	"fmt"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
	pkgkafka "FinScope/pkg/kafka"
)

type summaryProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaResultPublisher emits analysis summaries keyed by ticker, so every
// summary of one ticker lands on the same partition.
type KafkaResultPublisher struct {
	producer summaryProducer
	topic    string
}

var _ domrepo.ResultPublisher = (*KafkaResultPublisher)(nil)

func NewKafkaResultPublisher(producer *pkgkafka.Producer, topic string) *KafkaResultPublisher {
	return newKafkaResultPublisher(producer, topic)
}

func newKafkaResultPublisher(p summaryProducer, topic string) *KafkaResultPublisher {
	if topic == "" {
		topic = "finscope.analysis.results"
	}
	return &KafkaResultPublisher{producer: p, topic: topic}
}

func (p *KafkaResultPublisher) Publish(ctx context.Context, s *models.AnalysisSummary) error {
	if s == nil {
		return nil
	}
	if err := p.producer.Publish(ctx, p.topic, []byte(s.Ticker), s); err != nil {
		return fmt.Errorf("publish %s summary: %w", s.Ticker, err)
	}
	return nil
}

func (p *KafkaResultPublisher) PublishBatch(ctx context.Context, items []*models.AnalysisSummary) error {
	msgs := make([]pkgkafka.Message, 0, len(items))
	for _, s := range items {
		if s == nil {
			continue
		}
		msgs = append(msgs, pkgkafka.Message{Key: []byte(s.Ticker), Value: s})
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := p.producer.PublishBatch(ctx, p.topic, msgs); err != nil {
		return fmt.Errorf("publish %d summaries: %w", len(msgs), err)
	}
	return nil
}

func (p *KafkaResultPublisher) Close() error {
	if p.producer == nil {
		return nil
	}
	return p.producer.Close()
}

// NopPublisher drops summaries. It is used when Kafka is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *models.AnalysisSummary) error        { return nil }
func (NopPublisher) PublishBatch(context.Context, []*models.AnalysisSummary) error { return nil }
func (NopPublisher) Close() error                                                  { return nil }
