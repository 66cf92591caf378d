package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/veilflow/veilflow/internal/domain"
	"github.com/veilflow/veilflow/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Create creates a new account.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (
			id, entity_id, name, type, current_balance, available_balance,
			version, active, institution_name, masked_number, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.pool.Exec(ctx, query,
		account.ID,
		account.EntityID,
		account.Name,
		account.Type,
		decimalToNumeric(account.CurrentBalance),
		decimalToNumeric(account.AvailableBalance),
		account.Version,
		account.Active,
		account.InstitutionName,
		account.MaskedNumber,
		timeToPgTimestamptz(account.CreatedAt),
		timeToPgTimestamptz(account.UpdatedAt),
	)

	return err
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, accountSelect+` WHERE id = $1`, id)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	return account, nil
}

// GetByIDsForUpdate retrieves multiple accounts with FOR UPDATE locks.
// Rows are locked in ascending id order; callers must sort ids the same
// way so concurrent transfers cannot deadlock on each other.
func (r *AccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	pgxTx := tx.(*Tx).PgxTx()

	query := accountSelect + `
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`

	rows, err := pgxTx.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.Account

	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}

		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

// UpdateBalances writes both balances under an optimistic version check.
// Zero rows affected means the row moved underneath us; the write fails
// closed with domain.ErrConcurrencyConflict.
func (r *AccountRepository) UpdateBalances(ctx context.Context, tx usecase.Transaction, id string, current, available decimal.Decimal, expectedVersion int64, updatedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		UPDATE accounts
		SET current_balance = $1,
		    available_balance = $2,
		    version = version + 1,
		    updated_at = $3
		WHERE id = $4 AND version = $5
	`

	tag, err := pgxTx.Exec(ctx, query,
		decimalToNumeric(current),
		decimalToNumeric(available),
		timeToPgTimestamptz(updatedAt),
		id,
		expectedVersion,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrencyConflict
	}

	return nil
}

// ListByEntity lists an entity's accounts with pagination.
func (r *AccountRepository) ListByEntity(ctx context.Context, entityID string, limit, offset int) ([]*domain.Account, error) {
	query := accountSelect + `
		WHERE entity_id = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, entityID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.Account

	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}

		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

// SetActive toggles the active flag of an account.
func (r *AccountRepository) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE accounts SET active = $1, updated_at = NOW() WHERE id = $2`,
		active, id,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

const accountSelect = `
	SELECT id, entity_id, name, type, current_balance, available_balance,
	       version, active, institution_name, masked_number, created_at, updated_at
	FROM accounts
`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account            domain.Account
		current, available pgtype.Numeric
	)

	err := row.Scan(
		&account.ID,
		&account.EntityID,
		&account.Name,
		&account.Type,
		&current,
		&available,
		&account.Version,
		&account.Active,
		&account.InstitutionName,
		&account.MaskedNumber,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	account.CurrentBalance = numericToDecimal(current)
	account.AvailableBalance = numericToDecimal(available)

	return &account, nil
}

// Type conversion helpers.
func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric

	_ = n.Scan(d.String())

	return n
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}

	d, _ := decimal.NewFromString(n.Int.String())
	if n.Exp != 0 {
		d = d.Shift(n.Exp)
	}

	return d
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}
