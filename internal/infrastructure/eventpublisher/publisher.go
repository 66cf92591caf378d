package eventpublisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/veilflow/veilflow/internal/domain"
	"github.com/veilflow/veilflow/internal/usecase"
)

// Publisher defines the interface for publishing events to external
// systems, e.g. a notification relay.
type Publisher interface {
	Publish(ctx context.Context, event *domain.OutboxEvent) error
}

// Retrier retries an operation on transient infrastructure failures.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// EventPublisher drains the outbox: events are written in the same
// database transaction as the change they describe and relayed here
// asynchronously, so consumers never see an event for an uncommitted
// mutation.
type EventPublisher struct {
	outboxRepo usecase.OutboxRepository
	publisher  Publisher
	retrier    Retrier
	logger     zerolog.Logger
	batchSize  int
	interval   time.Duration
}

// Config for EventPublisher.
type Config struct {
	OutboxRepo usecase.OutboxRepository
	Publisher  Publisher
	Retrier    Retrier
	Logger     zerolog.Logger
	BatchSize  int
	Interval   time.Duration
}

// NewEventPublisher creates a new EventPublisher.
func NewEventPublisher(cfg Config) *EventPublisher {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval == 0 {
		cfg.Interval = 5 * time.Second
	}

	return &EventPublisher{
		outboxRepo: cfg.OutboxRepo,
		publisher:  cfg.Publisher,
		retrier:    cfg.Retrier,
		logger:     cfg.Logger,
		batchSize:  cfg.BatchSize,
		interval:   cfg.Interval,
	}
}

// Start runs the publishing loop until the context is cancelled.
func (ep *EventPublisher) Start(ctx context.Context) error {
	ep.logger.Info().
		Int("batch_size", ep.batchSize).
		Dur("interval", ep.interval).
		Msg("event publisher started")

	ticker := time.NewTicker(ep.interval)
	defer ticker.Stop()

	if err := ep.processEvents(ctx); err != nil {
		ep.logger.Error().Err(err).Msg("error processing events on start")
	}

	for {
		select {
		case <-ctx.Done():
			ep.logger.Info().Msg("event publisher shutting down")
			return ctx.Err()
		case <-ticker.C:
			if err := ep.processEvents(ctx); err != nil {
				ep.logger.Error().Err(err).Msg("error processing events")
			}
		}
	}
}

func (ep *EventPublisher) processEvents(ctx context.Context) error {
	var events []*domain.OutboxEvent

	err := ep.retry(ctx, func() error {
		var err error
		events, err = ep.outboxRepo.GetUnpublished(ctx, ep.batchSize)
		return err
	})
	if err != nil {
		return err
	}

	if len(events) == 0 {
		return nil
	}

	for _, event := range events {
		if err := ep.publisher.Publish(ctx, event); err != nil {
			ep.logger.Error().Err(err).
				Str("event_id", event.ID).
				Str("event_type", event.EventType).
				Msg("failed to publish event")
			// Keep draining; the event stays unpublished and is retried
			// on the next tick.
			continue
		}

		err := ep.retry(ctx, func() error {
			return ep.outboxRepo.MarkPublished(ctx, event.ID, time.Now().UTC())
		})
		if err != nil {
			ep.logger.Error().Err(err).
				Str("event_id", event.ID).
				Msg("failed to mark event as published")
		}
	}

	return nil
}

func (ep *EventPublisher) retry(ctx context.Context, op func() error) error {
	if ep.retrier == nil {
		return op()
	}
	return ep.retrier.Retry(ctx, op)
}

// LogPublisher is a publisher that writes events to the log; the default
// sink when no external relay is configured.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(ctx context.Context, event *domain.OutboxEvent) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	p.logger.Info().
		Str("event_id", event.ID).
		Str("event_type", event.EventType).
		Str("aggregate_type", event.AggregateType).
		Str("aggregate_id", event.AggregateID).
		RawJSON("payload", payload).
		Msg("event published")

	return nil
}
