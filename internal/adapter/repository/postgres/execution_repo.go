package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veilflow/veilflow/internal/domain"
)

// ExecutionRepository implements usecase.ExecutionRepository. The
// node-outcome log is append-only and ordered by an insertion sequence,
// which is what makes crash replay deterministic.
type ExecutionRepository struct {
	pool *pgxpool.Pool
}

// NewExecutionRepository creates a new ExecutionRepository.
func NewExecutionRepository(pool *pgxpool.Pool) *ExecutionRepository {
	return &ExecutionRepository{pool: pool}
}

// Create inserts a new execution record.
func (r *ExecutionRepository) Create(ctx context.Context, execution *domain.Execution) error {
	trigger, err := json.Marshal(execution.Trigger)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO executions (
			id, workflow_id, graph_version, status, trigger_context,
			started_at, completed_at, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.pool.Exec(ctx, query,
		execution.ID,
		execution.WorkflowID,
		execution.GraphVersion,
		execution.Status,
		trigger,
		timeToPgTimestamptz(execution.StartedAt),
		execution.CompletedAt,
		execution.Error,
	)

	return err
}

// GetByID retrieves an execution by ID.
func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*domain.Execution, error) {
	row := r.pool.QueryRow(ctx, executionSelect+` WHERE id = $1`, id)

	execution, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrExecutionNotFound
		}

		return nil, err
	}

	return execution, nil
}

// ListByWorkflow lists a workflow's executions, newest first.
func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string, limit, offset int) ([]*domain.Execution, error) {
	query := executionSelect + `
		WHERE workflow_id = $1
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, workflowID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var executions []*domain.Execution

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}

		executions = append(executions, execution)
	}

	return executions, rows.Err()
}

// Finish moves a running execution to a terminal status. Guarded on
// status = 'running' so a terminal record can never transition again.
func (r *ExecutionRepository) Finish(ctx context.Context, id string, status domain.ExecutionStatus, errMsg string, completedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE executions
		SET status = $1, error = $2, completed_at = $3
		WHERE id = $4 AND status = 'running'
	`, status, errMsg, timeToPgTimestamptz(completedAt), id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrExecutionTerminal
	}

	return nil
}

// Cancel marks a running execution cancelled.
func (r *ExecutionRepository) Cancel(ctx context.Context, id string) error {
	return r.Finish(ctx, id, domain.ExecutionStatusCancelled, "", time.Now().UTC())
}

// AppendOutcome appends a node outcome to the execution's log.
func (r *ExecutionRepository) AppendOutcome(ctx context.Context, outcome *domain.NodeOutcome) error {
	query := `
		INSERT INTO execution_node_outcomes (
			execution_id, node_id, status, input_amount, output_amount,
			branch_taken, transaction_id, attempts, error, recorded_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, query,
		outcome.ExecutionID,
		outcome.NodeID,
		outcome.Status,
		decimalToNumeric(outcome.InputAmount),
		decimalToNumeric(outcome.OutputAmount),
		outcome.BranchTaken,
		outcome.TransactionID,
		outcome.Attempts,
		outcome.Error,
		timeToPgTimestamptz(outcome.RecordedAt),
	)

	return err
}

// ListOutcomes returns the node-outcome log in insertion order.
func (r *ExecutionRepository) ListOutcomes(ctx context.Context, executionID string) ([]*domain.NodeOutcome, error) {
	query := `
		SELECT execution_id, node_id, status, input_amount, output_amount,
		       branch_taken, transaction_id, attempts, error, recorded_at
		FROM execution_node_outcomes
		WHERE execution_id = $1
		ORDER BY seq
	`

	rows, err := r.pool.Query(ctx, query, executionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []*domain.NodeOutcome

	for rows.Next() {
		var (
			outcome       domain.NodeOutcome
			input, output pgtype.Numeric
		)

		err := rows.Scan(
			&outcome.ExecutionID,
			&outcome.NodeID,
			&outcome.Status,
			&input,
			&output,
			&outcome.BranchTaken,
			&outcome.TransactionID,
			&outcome.Attempts,
			&outcome.Error,
			&outcome.RecordedAt,
		)
		if err != nil {
			return nil, err
		}

		outcome.InputAmount = numericToDecimal(input)
		outcome.OutputAmount = numericToDecimal(output)

		outcomes = append(outcomes, &outcome)
	}

	return outcomes, rows.Err()
}

const executionSelect = `
	SELECT id, workflow_id, graph_version, status, trigger_context,
	       started_at, completed_at, error
	FROM executions
`

func scanExecution(row pgx.Row) (*domain.Execution, error) {
	var (
		execution domain.Execution
		trigger   []byte
	)

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.GraphVersion,
		&execution.Status,
		&trigger,
		&execution.StartedAt,
		&execution.CompletedAt,
		&execution.Error,
	)
	if err != nil {
		return nil, err
	}

	if trigger != nil {
		if err := json.Unmarshal(trigger, &execution.Trigger); err != nil {
			return nil, err
		}
	}

	return &execution, nil
}
