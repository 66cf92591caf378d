package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veilflow/veilflow/internal/domain"
	"github.com/veilflow/veilflow/internal/usecase"
)

// OutboxRepository implements usecase.OutboxRepository.
type OutboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

// Create inserts an outbox event. With a non-nil tx the event commits
// atomically with the change it describes; a nil tx writes directly,
// used for events that have no surrounding ledger transaction.
func (r *OutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	var db dbtx = r.pool
	if tx != nil {
		db = tx.(*Tx).PgxTx()
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO outbox_events (
			id, aggregate_id, aggregate_type, event_type, payload,
			created_at, published_at, published
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = db.Exec(ctx, query,
		event.ID,
		event.AggregateID,
		event.AggregateType,
		event.EventType,
		payload,
		timeToPgTimestamptz(event.CreatedAt),
		event.PublishedAt,
		event.Published,
	)

	return err
}

// GetUnpublished returns up to limit unpublished events, oldest first.
func (r *OutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	query := `
		SELECT id, aggregate_id, aggregate_type, event_type, payload,
		       created_at, published_at, published
		FROM outbox_events
		WHERE published = FALSE
		ORDER BY created_at
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.OutboxEvent

	for rows.Next() {
		var (
			event   domain.OutboxEvent
			payload []byte
		)

		err := rows.Scan(
			&event.ID,
			&event.AggregateID,
			&event.AggregateType,
			&event.EventType,
			&payload,
			&event.CreatedAt,
			&event.PublishedAt,
			&event.Published,
		)
		if err != nil {
			return nil, err
		}

		if payload != nil {
			_ = json.Unmarshal(payload, &event.Payload)
		}

		events = append(events, &event)
	}

	return events, rows.Err()
}

// MarkPublished marks an event as published.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE outbox_events
		SET published = TRUE, published_at = $1
		WHERE id = $2
	`, timeToPgTimestamptz(publishedAt), id)

	return err
}
