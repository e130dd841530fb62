package messaging

import (
	"context"

	"go.uber.org/zap"
	"seqrview.backend/internal/domain/entities"
	"seqrview.backend/pkg/logger"
)

// LogPublisher writes events to the structured log. Used in development
// and when no broker is configured.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Publish(ctx context.Context, event entities.DomainEvent) error {
	logger.Info(ctx, "Domain event",
		zap.String("event_id", event.ID.String()),
		zap.String("type", event.Type),
		zap.String("aggregate_id", event.AggregateID.String()),
		zap.String("user_id", event.UserID.String()),
		zap.Any("payload", event.Payload),
	)
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
