package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veilflow/veilflow/internal/domain"
	"github.com/veilflow/veilflow/internal/usecase"
)

const pgErrUniqueViolation = "23505"

// IdempotencyRepository implements usecase.IdempotencyRepository: the
// durable key index that makes transfer retries replay instead of repeat.
type IdempotencyRepository struct {
	pool *pgxpool.Pool
}

// NewIdempotencyRepository creates a new IdempotencyRepository.
func NewIdempotencyRepository(pool *pgxpool.Pool) *IdempotencyRepository {
	return &IdempotencyRepository{pool: pool}
}

// Get looks up a committed record by key. A missing key is not an error;
// it returns (nil, nil).
func (r *IdempotencyRepository) Get(ctx context.Context, key string) (*usecase.IdempotencyRecord, error) {
	var record usecase.IdempotencyRecord

	err := r.pool.QueryRow(ctx, `
		SELECT key, debit_transaction_id, credit_transaction_id, created_at
		FROM transfer_idempotency
		WHERE key = $1
	`, key).Scan(
		&record.Key,
		&record.DebitTransactionID,
		&record.CreditTransactionID,
		&record.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, err
	}

	return &record, nil
}

// Create inserts the key inside the transfer's transaction. The unique
// constraint is the race arbiter: a concurrent duplicate surfaces as
// domain.ErrConcurrencyConflict and the loser rolls back.
func (r *IdempotencyRepository) Create(ctx context.Context, tx usecase.Transaction, record *usecase.IdempotencyRecord) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx, `
		INSERT INTO transfer_idempotency (key, debit_transaction_id, credit_transaction_id, created_at)
		VALUES ($1, $2, $3, $4)
	`,
		record.Key,
		record.DebitTransactionID,
		record.CreditTransactionID,
		timeToPgTimestamptz(record.CreatedAt),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
			return domain.ErrConcurrencyConflict
		}

		return err
	}

	return nil
}
