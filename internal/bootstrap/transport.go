package bootstrap

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Domenick1991/airline-ticketing/config"
	"github.com/Domenick1991/airline-ticketing/internal/kafka"
	"github.com/Domenick1991/airline-ticketing/internal/notification"
	"github.com/Domenick1991/airline-ticketing/internal/rabbitmq"
)

// NewEmitter returns the notification transport selected by configuration and
// a function releasing its connections.
func NewEmitter(cfg *config.Config) (notification.Emitter, func()) {
	switch cfg.Notifications.Transport {
	case config.TransportKafka:
		producer := kafka.NewProducer(cfg.Kafka.Brokers)
		checkCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := producer.CheckConnection(checkCtx); err != nil {
			log.Printf("kafka: brokers not reachable yet: %v", err)
		}
		return notification.NewKafkaEmitter(producer, cfg.Kafka.NotificationsTopic), func() { producer.Close() }
	case config.TransportAMQP:
		publisher := rabbitmq.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
		return notification.NewAMQPEmitter(publisher), func() { publisher.Close() }
	default:
		return notification.LogEmitter{}, func() {}
	}
}

// Consumer delivers raw notification payloads to a handler until ctx ends.
type Consumer interface {
	Consume(ctx context.Context, handler func(context.Context, []byte) error) error
}

const maxConsumerBackoff = 30 * time.Second

var consumerBackoff = time.Second

// ConsumeForever runs consumer until ctx ends, restarting it with backoff
// whenever Consume returns early.
func ConsumeForever(ctx context.Context, consumer Consumer, handler func(context.Context, []byte) error) {
	backoff := consumerBackoff
	for {
		started := time.Now()
		err := consumer.Consume(ctx, handler)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errors.New("consumer returned without error")
		}
		if time.Since(started) > maxConsumerBackoff {
			backoff = consumerBackoff
		}
		log.Printf("mailer: consumer stopped: %v; restarting in %s", err, backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < maxConsumerBackoff {
			backoff *= 2
		}
	}
}

// NewConsumer returns the consumer side of the configured transport, or nil
// for the log transport.
func NewConsumer(cfg *config.Config) (Consumer, func()) {
	switch cfg.Notifications.Transport {
	case config.TransportKafka:
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
		return consumer, func() { consumer.Close() }
	case config.TransportAMQP:
		return rabbitmq.NewConsumer(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue), func() {}
	default:
		return nil, func() {}
	}
}
