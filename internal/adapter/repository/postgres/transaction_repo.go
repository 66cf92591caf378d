package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veilflow/veilflow/internal/domain"
	"github.com/veilflow/veilflow/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
// Ledger rows are append-only; there is deliberately no update or delete.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

// Create inserts a ledger transaction inside the caller's transaction.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		INSERT INTO transactions (
			id, entity_id, account_id, direction, amount, occurred_at,
			category, description, is_inter_entity, inter_entity_kind,
			pair_id, related_entity_id, execution_id, import_source, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := pgxTx.Exec(ctx, query,
		txn.ID,
		txn.EntityID,
		txn.AccountID,
		txn.Direction,
		decimalToNumeric(txn.Amount),
		timeToPgTimestamptz(txn.OccurredAt),
		txn.Category,
		txn.Description,
		txn.IsInterEntity,
		txn.InterEntityKind,
		txn.PairID,
		txn.RelatedEntityID,
		txn.ExecutionID,
		txn.ImportSource,
		timeToPgTimestamptz(txn.CreatedAt),
	)

	return err
}

// GetByID retrieves a transaction by ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	row := r.pool.QueryRow(ctx, transactionSelect+` WHERE id = $1`, id)

	txn, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}

		return nil, err
	}

	return txn, nil
}

// GetByIDs retrieves multiple transactions by ID.
func (r *TransactionRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Transaction, error) {
	rows, err := r.pool.Query(ctx, transactionSelect+` WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// ListByAccount lists an account's transactions, newest first.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transaction, error) {
	query := transactionSelect + `
		WHERE account_id = $1
		ORDER BY occurred_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

// ListByExecution lists the transactions produced by a workflow execution.
func (r *TransactionRepository) ListByExecution(ctx context.Context, executionID string) ([]*domain.Transaction, error) {
	query := transactionSelect + `
		WHERE execution_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query, executionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

const transactionSelect = `
	SELECT id, entity_id, account_id, direction, amount, occurred_at,
	       category, description, is_inter_entity, inter_entity_kind,
	       pair_id, related_entity_id, execution_id, import_source, created_at
	FROM transactions
`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		txn    domain.Transaction
		amount pgtype.Numeric
	)

	err := row.Scan(
		&txn.ID,
		&txn.EntityID,
		&txn.AccountID,
		&txn.Direction,
		&amount,
		&txn.OccurredAt,
		&txn.Category,
		&txn.Description,
		&txn.IsInterEntity,
		&txn.InterEntityKind,
		&txn.PairID,
		&txn.RelatedEntityID,
		&txn.ExecutionID,
		&txn.ImportSource,
		&txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	txn.Amount = numericToDecimal(amount)

	return &txn, nil
}

func scanTransactions(rows pgx.Rows) ([]*domain.Transaction, error) {
	var txns []*domain.Transaction

	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}

		txns = append(txns, txn)
	}

	return txns, rows.Err()
}
