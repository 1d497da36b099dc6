package repository

import (
	"context"
	"time"

	"PerpDesk/internal/domain/models"
	domrepo "PerpDesk/internal/domain/repository"
	pkgkafka "PerpDesk/pkg/kafka"
)

// messageWriter is the subset of pkg/kafka.Producer the publisher needs.
type messageWriter interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaPublisher implements EventPublisher. Signals are keyed by asset so
// per-asset order survives partitioning; analyses are keyed by record ID.
type KafkaPublisher struct {
	producer      messageWriter
	signalTopic   string
	analysisTopic string
}

var _ domrepo.EventPublisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(producer messageWriter, signalTopic, analysisTopic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, signalTopic: signalTopic, analysisTopic: analysisTopic}
}

type analysisEvent struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Output    string    `json:"output"`
	Issues    []string  `json:"issues"`
}

func (p *KafkaPublisher) PublishSignals(ctx context.Context, signals []models.Signal) error {
	if len(signals) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(signals))
	for i, s := range signals {
		msgs[i] = pkgkafka.Message{Key: []byte(s.Asset), Value: s}
	}
	return p.producer.PublishBatch(ctx, p.signalTopic, msgs)
}

func (p *KafkaPublisher) PublishAnalysis(ctx context.Context, rec models.AnalysisRecord) error {
	return p.producer.Publish(ctx, p.analysisTopic, []byte(rec.ID), analysisEvent{
		ID:        rec.ID,
		Timestamp: rec.Timestamp,
		Output:    rec.Raw,
		Issues:    rec.Issues,
	})
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopPublisher drops every event. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishSignals(context.Context, []models.Signal) error        { return nil }
func (NopPublisher) PublishAnalysis(context.Context, models.AnalysisRecord) error { return nil }
func (NopPublisher) Close() error                                                 { return nil }
