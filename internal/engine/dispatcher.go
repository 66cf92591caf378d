package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/veilflow/veilflow/internal/domain"
	"github.com/veilflow/veilflow/internal/infrastructure/metrics"
	"github.com/veilflow/veilflow/internal/usecase"
)

// ErrQueueFull is returned when the execution queue cannot accept another
// run; the trigger should back off and re-fire.
var ErrQueueFull = errors.New("execution queue is full")

// Dispatcher accepts trigger firings, creates execution records, and feeds
// them to a pool of workers. One worker owns one execution's node loop to
// completion, so the node-outcome log has a single writer per execution.
type Dispatcher struct {
	runner     *Runner
	workflows  usecase.WorkflowRepository
	executions usecase.ExecutionRepository
	idGen      usecase.IDGenerator
	metrics    *metrics.Metrics
	logger     zerolog.Logger

	queue   chan *domain.Execution
	workers int
	wg      sync.WaitGroup
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(
	runner *Runner,
	workflows usecase.WorkflowRepository,
	executions usecase.ExecutionRepository,
	idGen usecase.IDGenerator,
	m *metrics.Metrics,
	logger zerolog.Logger,
	workers, queueSize int,
) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 64
	}

	return &Dispatcher{
		runner:     runner,
		workflows:  workflows,
		executions: executions,
		idGen:      idGen,
		metrics:    m,
		logger:     logger,
		queue:      make(chan *domain.Execution, queueSize),
		workers:    workers,
	}
}

// Start launches the worker pool. Workers drain until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(ctx, i)
	}
}

// Wait blocks until every worker has exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) work(ctx context.Context, id int) {
	defer d.wg.Done()

	logger := d.logger.With().Int("worker", id).Logger()
	logger.Debug().Msg("engine worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("engine worker stopping")
			return
		case execution := <-d.queue:
			if err := d.runner.Run(ctx, execution); err != nil {
				logger.Error().Err(err).
					Str("execution_id", execution.ID).
					Msg("execution run aborted")
			}
		}
	}
}

// StartExecution creates an execution for one trigger firing and returns
// its id immediately; the run proceeds asynchronously on a worker.
func (d *Dispatcher) StartExecution(ctx context.Context, workflowID string, graphVersion int, trigger domain.TriggerContext) (string, error) {
	workflow, err := d.workflows.GetByID(ctx, workflowID)
	if err != nil {
		return "", err
	}
	if workflow.Status != domain.WorkflowStatusActive {
		return "", domain.ErrWorkflowNotActive
	}

	if graphVersion <= 0 {
		graphVersion = workflow.Version
	}

	if trigger.FiredAt.IsZero() {
		trigger.FiredAt = time.Now().UTC()
	}

	execution := &domain.Execution{
		ID:           d.idGen.Generate(),
		WorkflowID:   workflowID,
		GraphVersion: graphVersion,
		Status:       domain.ExecutionStatusRunning,
		Trigger:      trigger,
		StartedAt:    time.Now().UTC(),
	}

	if err := d.executions.Create(ctx, execution); err != nil {
		return "", err
	}

	select {
	case d.queue <- execution:
	default:
		// The record exists and can be re-enqueued by a replay; do not
		// block the trigger path.
		return "", ErrQueueFull
	}

	if d.metrics != nil {
		d.metrics.ExecutionsStarted.Inc()
	}

	d.logger.Info().
		Str("execution_id", execution.ID).
		Str("workflow_id", workflowID).
		Str("trigger", string(trigger.Type)).
		Msg("execution enqueued")

	return execution.ID, nil
}

// Resume re-enqueues a still-running execution, e.g. after a crash. The
// runner replays recorded outcomes, so completed nodes are not re-applied.
func (d *Dispatcher) Resume(ctx context.Context, executionID string) error {
	execution, err := d.executions.GetByID(ctx, executionID)
	if err != nil {
		return err
	}
	if execution.Status.Terminal() {
		return domain.ErrExecutionTerminal
	}

	select {
	case d.queue <- execution:
		return nil
	default:
		return ErrQueueFull
	}
}

// Cancel marks a running execution cancelled. The owning worker stops
// before its next node; a transfer already in flight completes atomically.
func (d *Dispatcher) Cancel(ctx context.Context, executionID string) error {
	return d.executions.Cancel(ctx, executionID)
}
