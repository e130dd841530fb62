package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"seqrview.backend/internal/domain/entities"
	"seqrview.backend/internal/infrastructure/metrics"
	"seqrview.backend/pkg/logger"
)

const (
	defaultQueueSize      = 256
	defaultPublishTimeout = 5 * time.Second
	drainTimeout          = 10 * time.Second
)

// Dispatcher decouples request handling from broker delivery. Emit never
// blocks; when the queue is full the event is dropped and counted.
type Dispatcher struct {
	queue          chan entities.DomainEvent
	publisher      Publisher
	metrics        *metrics.Metrics
	publishTimeout time.Duration
	now            func() time.Time
}

// NewDispatcher creates a dispatcher with a bounded queue. m may be nil.
func NewDispatcher(publisher Publisher, queueSize int, m *metrics.Metrics) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Dispatcher{
		queue:          make(chan entities.DomainEvent, queueSize),
		publisher:      publisher,
		metrics:        m,
		publishTimeout: defaultPublishTimeout,
		now:            time.Now,
	}
}

// Emit enqueues event, filling ID and OccurredAt when unset
func (d *Dispatcher) Emit(ctx context.Context, event entities.DomainEvent) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = d.now().UTC()
	}

	select {
	case d.queue <- event:
	default:
		d.metrics.IncEventsDropped()
		logger.Warn(ctx, "Event queue full, dropping event",
			zap.String("type", event.Type),
			zap.String("aggregate_id", event.AggregateID.String()),
		)
	}
}

// Run publishes queued events until ctx is cancelled, then drains what is
// left with a bounded deadline and closes the publisher.
func (d *Dispatcher) Run(ctx context.Context) error {
	logger.Info(ctx, "Event dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.drain()
			logger.Info(context.Background(), "Event dispatcher stopped")
			return d.publisher.Close()
		case event := <-d.queue:
			d.publish(ctx, event)
		}
	}
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case event := <-d.queue:
			d.publish(ctx, event)
		default:
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, event entities.DomainEvent) {
	pubCtx, cancel := context.WithTimeout(ctx, d.publishTimeout)
	defer cancel()
	if err := d.publisher.Publish(pubCtx, event); err != nil {
		logger.Error(ctx, "Failed to publish event",
			zap.String("type", event.Type),
			zap.String("event_id", event.ID.String()),
			zap.Error(err),
		)
	}
}

// Pending returns the number of queued events
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}
