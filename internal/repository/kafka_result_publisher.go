package repository

import (
	"context"

	"ClaimReserve/internal/domain/models"
	"ClaimReserve/internal/domain/repository"
)

type keyedProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaResultPublisher implements ResultPublisher for Kafka.
type KafkaResultPublisher struct {
	producer keyedProducer
	topic    string
}

// NewKafkaResultPublisher creates a publisher writing to topic.
func NewKafkaResultPublisher(producer keyedProducer, topic string) *KafkaResultPublisher {
	return &KafkaResultPublisher{producer: producer, topic: topic}
}

// PublishReserve sends the event keyed by its run ID.
func (p *KafkaResultPublisher) PublishReserve(ctx context.Context, event models.ReserveComputedEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(event.RunID), event)
}

var _ repository.ResultPublisher = (*KafkaResultPublisher)(nil)
