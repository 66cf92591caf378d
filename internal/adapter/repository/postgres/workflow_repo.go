package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veilflow/veilflow/internal/domain"
)

// WorkflowRepository implements usecase.WorkflowRepository. Graphs are
// stored as immutable jsonb documents keyed by (workflow_id, version), so
// an in-flight execution can always reload the exact version it pinned.
type WorkflowRepository struct {
	pool *pgxpool.Pool
}

// NewWorkflowRepository creates a new WorkflowRepository.
func NewWorkflowRepository(pool *pgxpool.Pool) *WorkflowRepository {
	return &WorkflowRepository{pool: pool}
}

// Create inserts a workflow and its first graph version atomically.
func (r *WorkflowRepository) Create(ctx context.Context, workflow *domain.Workflow, graph *domain.Graph) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO workflows (
			id, name, description, owner_id, status, version,
			max_retries, timeout_seconds, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = tx.Exec(ctx, query,
		workflow.ID,
		workflow.Name,
		workflow.Description,
		workflow.OwnerID,
		workflow.Status,
		workflow.Version,
		workflow.MaxRetries,
		workflow.TimeoutSeconds,
		timeToPgTimestamptz(workflow.CreatedAt),
		timeToPgTimestamptz(workflow.UpdatedAt),
	)
	if err != nil {
		return err
	}

	if err := insertGraph(ctx, tx, graph, workflow.CreatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// GetByID retrieves a workflow by ID.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*domain.Workflow, error) {
	row := r.pool.QueryRow(ctx, workflowSelect+` WHERE id = $1`, id)

	workflow, err := scanWorkflow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWorkflowNotFound
		}

		return nil, err
	}

	return workflow, nil
}

// List lists an owner's workflows with pagination.
func (r *WorkflowRepository) List(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Workflow, error) {
	query := workflowSelect + `
		WHERE owner_id = $1
		ORDER BY created_at
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanWorkflows(rows)
}

// ListActive lists all active workflows; the scheduler refreshes from this.
func (r *WorkflowRepository) ListActive(ctx context.Context) ([]*domain.Workflow, error) {
	rows, err := r.pool.Query(ctx, workflowSelect+` WHERE status = 'active' ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanWorkflows(rows)
}

// GetGraph loads one immutable graph version.
func (r *WorkflowRepository) GetGraph(ctx context.Context, workflowID string, version int) (*domain.Graph, error) {
	var document []byte

	err := r.pool.QueryRow(ctx, `
		SELECT document
		FROM workflow_graphs
		WHERE workflow_id = $1 AND version = $2
	`, workflowID, version).Scan(&document)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrGraphNotFound
		}

		return nil, err
	}

	var graph domain.Graph
	if err := json.Unmarshal(document, &graph); err != nil {
		return nil, err
	}

	return &graph, nil
}

// SaveGraphVersion persists a new graph version and bumps the workflow's
// current version pointer atomically.
func (r *WorkflowRepository) SaveGraphVersion(ctx context.Context, workflow *domain.Workflow, graph *domain.Graph) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE workflows
		SET version = $1, updated_at = $2
		WHERE id = $3
	`, workflow.Version, timeToPgTimestamptz(workflow.UpdatedAt), workflow.ID)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrWorkflowNotFound
	}

	if err := insertGraph(ctx, tx, graph, workflow.UpdatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// UpdateStatus transitions the workflow lifecycle state.
func (r *WorkflowRepository) UpdateStatus(ctx context.Context, id string, status domain.WorkflowStatus, updatedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE workflows
		SET status = $1, updated_at = $2
		WHERE id = $3
	`, status, timeToPgTimestamptz(updatedAt), id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrWorkflowNotFound
	}

	return nil
}

func insertGraph(ctx context.Context, tx pgx.Tx, graph *domain.Graph, createdAt time.Time) error {
	document, err := json.Marshal(graph)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO workflow_graphs (workflow_id, version, document, created_at)
		VALUES ($1, $2, $3, $4)
	`, graph.WorkflowID, graph.Version, document, timeToPgTimestamptz(createdAt))

	return err
}

const workflowSelect = `
	SELECT id, name, description, owner_id, status, version,
	       max_retries, timeout_seconds, created_at, updated_at
	FROM workflows
`

func scanWorkflow(row pgx.Row) (*domain.Workflow, error) {
	var workflow domain.Workflow

	err := row.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.Description,
		&workflow.OwnerID,
		&workflow.Status,
		&workflow.Version,
		&workflow.MaxRetries,
		&workflow.TimeoutSeconds,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &workflow, nil
}

func scanWorkflows(rows pgx.Rows) ([]*domain.Workflow, error) {
	var workflows []*domain.Workflow

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, rows.Err()
}
