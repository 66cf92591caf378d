package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veilflow/veilflow/internal/domain"
	"github.com/veilflow/veilflow/internal/usecase"
)

// AuditRepository implements append-only audit trail persistence.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Create inserts a new audit log entry.
func (r *AuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	return r.create(ctx, r.pool, log)
}

// CreateTx inserts a new audit log entry inside the caller's transaction,
// so the trail entry commits or rolls back with the transfer it documents.
func (r *AuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	return r.create(ctx, tx.(*Tx).PgxTx(), log)
}

func (r *AuditRepository) create(ctx context.Context, db dbtx, log *domain.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}

	var detailJSON []byte
	if log.Detail != nil {
		var err error

		detailJSON, err = json.Marshal(log.Detail)
		if err != nil {
			return err
		}
	}

	query := `
		INSERT INTO audit_logs (
			id, action, entity_id, entity_name, related_entity_id, related_name,
			from_account_id, to_account_id, amount, transfer_kind,
			execution_id, detail, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := db.Exec(ctx, query,
		log.ID,
		log.Action,
		log.EntityID,
		log.EntityName,
		log.RelatedEntityID,
		log.RelatedName,
		log.FromAccountID,
		log.ToAccountID,
		log.Amount,
		log.TransferKind,
		log.ExecutionID,
		detailJSON,
		timeToPgTimestamptz(log.CreatedAt),
	)

	return err
}

// List retrieves audit logs with filtering.
func (r *AuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	query := `
		SELECT id, action, entity_id, entity_name, related_entity_id, related_name,
		       from_account_id, to_account_id, amount, transfer_kind,
		       execution_id, detail, created_at
		FROM audit_logs
		WHERE 1=1
	`
	args := []any{}
	argPos := 1

	if filter.EntityID != "" {
		query += fmt.Sprintf(` AND (entity_id = $%d OR related_entity_id = $%d)`, argPos, argPos)
		args = append(args, filter.EntityID)
		argPos++
	}

	if filter.Action != "" {
		query += fmt.Sprintf(` AND action = $%d`, argPos)
		args = append(args, filter.Action)
		argPos++
	}

	if filter.StartDate != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, argPos)
		args = append(args, *filter.StartDate)
		argPos++
	}

	if filter.EndDate != nil {
		query += fmt.Sprintf(` AND created_at <= $%d`, argPos)
		args = append(args, *filter.EndDate)
		argPos++
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argPos)
		args = append(args, filter.Limit)
		argPos++
	}

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argPos)
		args = append(args, filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.AuditLog

	for rows.Next() {
		var (
			log        domain.AuditLog
			detailJSON []byte
		)

		err := rows.Scan(
			&log.ID,
			&log.Action,
			&log.EntityID,
			&log.EntityName,
			&log.RelatedEntityID,
			&log.RelatedName,
			&log.FromAccountID,
			&log.ToAccountID,
			&log.Amount,
			&log.TransferKind,
			&log.ExecutionID,
			&detailJSON,
			&log.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if detailJSON != nil {
			_ = json.Unmarshal(detailJSON, &log.Detail)
		}

		logs = append(logs, &log)
	}

	return logs, rows.Err()
}
