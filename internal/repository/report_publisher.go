package repository

import (
	"context"

	"TrendPulse/internal/domain/models"
	"TrendPulse/internal/domain/repository"
	pkgkafka "TrendPulse/pkg/kafka"
)

// KafkaPublisher implements ReportPublisher for Kafka. Reports are keyed by keyword
// so one keyword's history stays on one partition.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaPublisher creates Kafka publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) repository.ReportPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, r models.TrendReport) error {
	return p.producer.Publish(ctx, p.topic, []byte(r.Keyword), r)
}

func (p *KafkaPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopPublisher drops every report. It is used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.TrendReport) error { return nil }

func (NopPublisher) Close() error { return nil }
