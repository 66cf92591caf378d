package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veilflow/veilflow/internal/domain"
)

// EntityRepository implements usecase.EntityRepository.
type EntityRepository struct {
	pool *pgxpool.Pool
}

// NewEntityRepository creates a new EntityRepository.
func NewEntityRepository(pool *pgxpool.Pool) *EntityRepository {
	return &EntityRepository{pool: pool}
}

// Create creates a new entity.
func (r *EntityRepository) Create(ctx context.Context, entity *domain.Entity) error {
	query := `
		INSERT INTO entities (
			id, name, type, owner_id, ein, state_of_formation,
			formation_date, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		entity.ID,
		entity.Name,
		entity.Type,
		entity.OwnerID,
		entity.EIN,
		entity.StateOfFormation,
		entity.FormationDate,
		timeToPgTimestamptz(entity.CreatedAt),
		timeToPgTimestamptz(entity.UpdatedAt),
	)

	return err
}

// GetByID retrieves an entity by ID.
func (r *EntityRepository) GetByID(ctx context.Context, id string) (*domain.Entity, error) {
	row := r.pool.QueryRow(ctx, entitySelect+` WHERE id = $1`, id)

	entity, err := scanEntity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntityNotFound
		}

		return nil, err
	}

	return entity, nil
}

// GetByIDs retrieves multiple entities by ID.
func (r *EntityRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Entity, error) {
	rows, err := r.pool.Query(ctx, entitySelect+` WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntities(rows)
}

// List lists entities belonging to an owner with pagination.
func (r *EntityRepository) List(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Entity, error) {
	query := entitySelect + `
		WHERE owner_id = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntities(rows)
}

// CountAccounts counts the accounts attached to an entity.
func (r *EntityRepository) CountAccounts(ctx context.Context, id string) (int64, error) {
	var count int64

	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM accounts WHERE entity_id = $1`, id,
	).Scan(&count)

	return count, err
}

// Delete removes an entity.
func (r *EntityRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM entities WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrEntityNotFound
	}

	return nil
}

const entitySelect = `
	SELECT id, name, type, owner_id, ein, state_of_formation,
	       formation_date, created_at, updated_at
	FROM entities
`

func scanEntity(row pgx.Row) (*domain.Entity, error) {
	var entity domain.Entity

	err := row.Scan(
		&entity.ID,
		&entity.Name,
		&entity.Type,
		&entity.OwnerID,
		&entity.EIN,
		&entity.StateOfFormation,
		&entity.FormationDate,
		&entity.CreatedAt,
		&entity.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &entity, nil
}

func scanEntities(rows pgx.Rows) ([]*domain.Entity, error) {
	var entities []*domain.Entity

	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}

		entities = append(entities, entity)
	}

	return entities, rows.Err()
}
