package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerRepository implements usecase.LedgerRepository: whole-ledger
// integrity queries used by the consistency report.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// UnpairedInterEntityCount counts inter-entity rows missing their
// counterpart leg. A healthy ledger reports zero.
func (r *LedgerRepository) UnpairedInterEntityCount(ctx context.Context) (int64, error) {
	var count int64

	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM transactions
		WHERE is_inter_entity = TRUE AND pair_id IS NULL
	`).Scan(&count)

	return count, err
}

// PairMismatchCount counts debit/credit pairs whose amounts or kinds
// disagree. A healthy ledger reports zero.
func (r *LedgerRepository) PairMismatchCount(ctx context.Context) (int64, error) {
	var count int64

	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM transactions d
		JOIN transactions c ON c.id = d.pair_id
		WHERE d.direction = 'debit'
		  AND (d.amount <> c.amount OR d.inter_entity_kind <> c.inter_entity_kind)
	`).Scan(&count)

	return count, err
}
