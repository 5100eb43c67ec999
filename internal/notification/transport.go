package notification

import (
	"context"

	"github.com/Domenick1991/airline-ticketing/internal/domain"
)

type kafkaPublisher interface {
	PublishWithRetry(ctx context.Context, topic, key string, payload any, maxRetries int) error
}

// KafkaEmitter keys messages by email so one recipient's notifications stay ordered.
type KafkaEmitter struct {
	producer   kafkaPublisher
	topic      string
	maxRetries int
}

func NewKafkaEmitter(producer kafkaPublisher, topic string) *KafkaEmitter {
	return &KafkaEmitter{producer: producer, topic: topic, maxRetries: 3}
}

func (e *KafkaEmitter) Enqueue(ctx context.Context, n domain.Notification) error {
	return e.producer.PublishWithRetry(ctx, e.topic, n.Email, n, e.maxRetries)
}

type amqpPublisher interface {
	Publish(ctx context.Context, payload any) error
}

type AMQPEmitter struct {
	publisher amqpPublisher
}

func NewAMQPEmitter(publisher amqpPublisher) *AMQPEmitter {
	return &AMQPEmitter{publisher: publisher}
}

func (e *AMQPEmitter) Enqueue(ctx context.Context, n domain.Notification) error {
	return e.publisher.Publish(ctx, n)
}
