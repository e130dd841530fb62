package messaging

import (
	"context"
	"fmt"
	"strings"

	"seqrview.backend/internal/config"
	"seqrview.backend/internal/domain/entities"
)

// Publisher delivers a domain event to a broker
type Publisher interface {
	Publish(ctx context.Context, event entities.DomainEvent) error
	Close() error
}

// NewPublisher builds the publisher selected by cfg.Events.Broker
func NewPublisher(cfg *config.Config) (Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Events.Broker)) {
	case "rabbitmq", "amqp":
		return NewRabbitMQPublisher(cfg.RabbitMQ.URL, cfg.Events.Exchange)
	case "kafka":
		return NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic), nil
	case "log", "":
		return NewLogPublisher(), nil
	default:
		return nil, fmt.Errorf("unknown events broker %q", cfg.Events.Broker)
	}
}
