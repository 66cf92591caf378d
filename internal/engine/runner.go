package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/veilflow/veilflow/internal/domain"
	"github.com/veilflow/veilflow/internal/infrastructure/metrics"
	"github.com/veilflow/veilflow/internal/usecase"
)

// TransferService is the ledger boundary the engine delegates all
// monetary effects to.
type TransferService interface {
	Transfer(ctx context.Context, input usecase.TransferInput) (*domain.TransactionPair, error)
}

// GraphProvider loads pinned graph versions.
type GraphProvider interface {
	GetGraph(ctx context.Context, workflowID string, version int) (*domain.Graph, error)
}

// AccountReader is the read-only registry view the engine uses for
// condition evaluation and account resolution.
type AccountReader interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
}

// Runner walks one validated graph version for one execution, recording a
// per-node outcome before advancing so a crashed run can be replayed.
type Runner struct {
	workflows  usecase.WorkflowRepository
	graphs     GraphProvider
	executions usecase.ExecutionRepository
	accounts   AccountReader
	transfers  TransferService
	auditRepo  usecase.AuditRepository
	outboxRepo usecase.OutboxRepository
	idGen      usecase.IDGenerator
	metrics    *metrics.Metrics
	logger     zerolog.Logger

	initialBackoff time.Duration
}

// NewRunner creates a new Runner.
func NewRunner(
	workflows usecase.WorkflowRepository,
	graphs GraphProvider,
	executions usecase.ExecutionRepository,
	accounts AccountReader,
	transfers TransferService,
	auditRepo usecase.AuditRepository,
	outboxRepo usecase.OutboxRepository,
	idGen usecase.IDGenerator,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *Runner {
	return &Runner{
		workflows:      workflows,
		graphs:         graphs,
		executions:     executions,
		accounts:       accounts,
		transfers:      transfers,
		auditRepo:      auditRepo,
		outboxRepo:     outboxRepo,
		idGen:          idGen,
		metrics:        m,
		logger:         logger,
		initialBackoff: 100 * time.Millisecond,
	}
}

// runState carries the per-execution dataflow. Everything derivable is
// recomputed from the graph and recorded outcomes, so a replay after a
// crash reaches the same state.
type runState struct {
	graph       *domain.Graph
	trigger     domain.TriggerContext
	status      map[string]domain.NodeStatus
	output      map[string]decimal.Decimal
	branch      map[string]string
	splitAlloc  map[string]map[string]decimal.Decimal
	fromAccount map[string]string
}

func (s *runState) edgeAmount(e domain.Edge) decimal.Decimal {
	if alloc, ok := s.splitAlloc[e.From]; ok {
		return alloc[e.To]
	}
	return s.output[e.From]
}

// activeIncoming returns incoming edges whose origin succeeded and whose
// label matches the branch the origin took.
func (s *runState) activeIncoming(id string) []domain.Edge {
	var active []domain.Edge
	for _, e := range s.graph.Incoming(id) {
		if s.status[e.From] != domain.NodeStatusSucceeded {
			continue
		}
		if e.Label != "" && e.Label != s.branch[e.From] {
			continue
		}
		active = append(active, e)
	}
	return active
}

func (s *runState) inputAmount(id string, active []domain.Edge) decimal.Decimal {
	if len(s.graph.Incoming(id)) == 0 {
		if s.trigger.Amount != nil {
			return *s.trigger.Amount
		}
		return decimal.Zero
	}

	total := decimal.Zero
	for _, e := range active {
		total = total.Add(s.edgeAmount(e))
	}
	return total
}

func (s *runState) inheritedAccount(active []domain.Edge) string {
	for _, e := range active {
		if acct := s.fromAccount[e.From]; acct != "" {
			return acct
		}
	}
	return ""
}

// Run executes one workflow run to a terminal status. Re-running a
// partially completed execution reuses its recorded outcomes and the
// ledger's idempotency index, so monetary effects apply at most once per
// (execution, node).
func (r *Runner) Run(ctx context.Context, execution *domain.Execution) error {
	logger := r.logger.With().
		Str("execution_id", execution.ID).
		Str("workflow_id", execution.WorkflowID).
		Int("graph_version", execution.GraphVersion).
		Logger()

	workflow, err := r.workflows.GetByID(ctx, execution.WorkflowID)
	if err != nil {
		return r.finish(ctx, execution, domain.ExecutionStatusFailed, err.Error())
	}

	graph, err := r.graphs.GetGraph(ctx, execution.WorkflowID, execution.GraphVersion)
	if err != nil {
		return r.finish(ctx, execution, domain.ExecutionStatusFailed, err.Error())
	}

	order, err := topoSort(graph)
	if err != nil {
		return r.finish(ctx, execution, domain.ExecutionStatusFailed, err.Error())
	}

	prior, err := r.executions.ListOutcomes(ctx, execution.ID)
	if err != nil {
		return err
	}

	state := &runState{
		graph:       graph,
		trigger:     execution.Trigger,
		status:      make(map[string]domain.NodeStatus),
		output:      make(map[string]decimal.Decimal),
		branch:      make(map[string]string),
		splitAlloc:  make(map[string]map[string]decimal.Decimal),
		fromAccount: make(map[string]string),
	}

	recorded := make(map[string]*domain.NodeOutcome, len(prior))
	for _, o := range prior {
		recorded[o.NodeID] = o
	}

	anyFailed := false
	moneyMoved := false
	firstErr := ""

	for _, nodeID := range order {
		if cancelled, err := r.cancelled(ctx, execution.ID); err != nil {
			return err
		} else if cancelled {
			logger.Info().Str("node_id", nodeID).Msg("execution cancelled, stopping before node")
			return nil
		}

		node := graph.NodeByID(nodeID)

		outcome, replayed := recorded[nodeID]
		if !replayed {
			outcome = r.evaluateNode(ctx, workflow, execution, state, node)
			if err := r.executions.AppendOutcome(ctx, outcome); err != nil {
				return err
			}
			if r.metrics != nil {
				r.metrics.NodeEvaluations.WithLabelValues(string(node.Kind), string(outcome.Status)).Inc()
			}
		}

		r.restore(state, node, outcome)

		switch outcome.Status {
		case domain.NodeStatusFailed:
			anyFailed = true
			if firstErr == "" {
				firstErr = fmt.Sprintf("node %s: %s", nodeID, outcome.Error)
			}
			logger.Warn().Str("node_id", nodeID).Str("error", outcome.Error).Msg("node failed")
		case domain.NodeStatusSucceeded:
			if node.Kind == domain.NodeKindAction && outcome.TransactionID != nil {
				moneyMoved = true
			}
		}
	}

	status := domain.ExecutionStatusSucceeded
	switch {
	case anyFailed && moneyMoved:
		status = domain.ExecutionStatusPartiallyFailed
	case anyFailed:
		status = domain.ExecutionStatusFailed
	}

	logger.Info().Str("status", string(status)).Msg("execution finished")

	return r.finish(ctx, execution, status, firstErr)
}

// restore rebuilds the pure dataflow state from an outcome, whether it was
// just produced or recorded by a previous run.
func (r *Runner) restore(state *runState, node *domain.Node, outcome *domain.NodeOutcome) {
	state.status[node.ID] = outcome.Status
	state.branch[node.ID] = outcome.BranchTaken
	state.output[node.ID] = outcome.OutputAmount

	if outcome.Status != domain.NodeStatusSucceeded {
		return
	}

	active := state.activeIncoming(node.ID)

	switch node.Kind {
	case domain.NodeKindSource:
		state.fromAccount[node.ID] = node.Source.AccountID
	case domain.NodeKindDestination:
		state.fromAccount[node.ID] = node.Destination.AccountID
	case domain.NodeKindSplit:
		// Allocation is a pure function of the recorded input.
		if alloc, err := evaluateSplit(node.Split, outcome.InputAmount); err == nil {
			state.splitAlloc[node.ID] = alloc
		}
		state.fromAccount[node.ID] = state.inheritedAccount(active)
	default:
		state.fromAccount[node.ID] = state.inheritedAccount(active)
	}
}

// evaluateNode dispatches on the node kind. The switch is exhaustive over
// the variant tags; an unknown kind fails the node at runtime instead of
// silently skipping it.
func (r *Runner) evaluateNode(
	ctx context.Context,
	workflow *domain.Workflow,
	execution *domain.Execution,
	state *runState,
	node *domain.Node,
) *domain.NodeOutcome {
	outcome := &domain.NodeOutcome{
		ExecutionID: execution.ID,
		NodeID:      node.ID,
		Attempts:    1,
		RecordedAt:  time.Now().UTC(),
	}

	incoming := state.graph.Incoming(node.ID)
	active := state.activeIncoming(node.ID)

	// A node whose every path from the sources went through a failed,
	// skipped, or untaken branch never runs.
	if len(incoming) > 0 && len(active) == 0 {
		outcome.Status = domain.NodeStatusSkipped
		return outcome
	}

	input := state.inputAmount(node.ID, active)
	outcome.InputAmount = input
	outcome.OutputAmount = input

	fail := func(err error) *domain.NodeOutcome {
		outcome.Status = domain.NodeStatusFailed
		outcome.Error = err.Error()
		outcome.OutputAmount = decimal.Zero
		return outcome
	}

	switch node.Kind {
	case domain.NodeKindSource:
		err := r.withRetry(ctx, workflow.MaxRetries, &outcome.Attempts, func() error {
			account, err := r.accounts.GetByID(ctx, node.Source.AccountID)
			if err != nil {
				return err
			}
			if !account.Active {
				return domain.ErrAccountInactive
			}
			return nil
		})
		if err != nil {
			return fail(err)
		}

	case domain.NodeKindDestination:
		err := r.withRetry(ctx, workflow.MaxRetries, &outcome.Attempts, func() error {
			_, err := r.accounts.GetByID(ctx, node.Destination.AccountID)
			return err
		})
		if err != nil {
			return fail(err)
		}

	case domain.NodeKindCondition:
		var branch string
		err := r.withRetry(ctx, workflow.MaxRetries, &outcome.Attempts, func() error {
			b, err := r.evaluateCondition(ctx, node.Condition, state.trigger)
			if err != nil {
				return err
			}
			branch = b
			return nil
		})
		if err != nil {
			return fail(err)
		}
		outcome.BranchTaken = branch

	case domain.NodeKindSplit:
		alloc, err := evaluateSplit(node.Split, input)
		if err != nil {
			return fail(err)
		}
		state.splitAlloc[node.ID] = alloc

	case domain.NodeKindMerge:
		for _, e := range incoming {
			if state.status[e.From] == domain.NodeStatusFailed {
				return fail(fmt.Errorf("upstream branch %s failed", e.From))
			}
		}

	case domain.NodeKindAction:
		pair, err := r.performAction(ctx, workflow, execution, state, node, input, &outcome.Attempts)
		if err != nil {
			return fail(err)
		}
		outcome.TransactionID = &pair.Debit.ID
		outcome.OutputAmount = pair.Amount()

	case domain.NodeKindSchedule:
		// The schedule is the trigger that started this run; inline it is
		// just the start of the flow.

	default:
		return fail(fmt.Errorf("unknown node kind %q: %w", node.Kind, domain.ErrGraphInvalid))
	}

	outcome.Status = domain.NodeStatusSucceeded
	return outcome
}

func (r *Runner) performAction(
	ctx context.Context,
	workflow *domain.Workflow,
	execution *domain.Execution,
	state *runState,
	node *domain.Node,
	input decimal.Decimal,
	attempts *int,
) (*domain.TransactionPair, error) {
	amount := input
	if node.Action.Amount != nil {
		amount = *node.Action.Amount
	}

	fromAccount := state.inheritedAccount(state.activeIncoming(node.ID))
	if fromAccount == "" {
		return nil, domain.ErrNoSourceAccount
	}

	toAccount, err := resolveToAccount(state.graph, node)
	if err != nil {
		return nil, err
	}

	description := node.Action.Description
	if description == "" {
		description = workflow.Name + ": " + node.Name
	}

	transferInput := usecase.TransferInput{
		ActorID:       workflow.OwnerID,
		FromAccountID: fromAccount,
		ToAccountID:   toAccount,
		Amount:        amount,
		Kind:          node.Action.Kind,
		Description:   description,
		Category:      node.Action.Category,
		// Stable across retries and engine restarts: a repeated submission
		// for the same (execution, node) cannot double-apply.
		IdempotencyKey: fmt.Sprintf("exec:%s:%s", execution.ID, node.ID),
		ExecutionID:    &execution.ID,
	}

	started := time.Now()

	var pair *domain.TransactionPair
	err = r.withRetry(ctx, workflow.MaxRetries, attempts, func() error {
		p, err := r.transfers.Transfer(ctx, transferInput)
		if err != nil {
			return err
		}
		pair = p
		return nil
	})
	if err != nil {
		if r.metrics != nil {
			r.metrics.TransferErrors.WithLabelValues(errorReason(err)).Inc()
		}
		return nil, err
	}

	if r.metrics != nil {
		r.metrics.TransfersCreated.Inc()
		r.metrics.TransferDuration.Observe(time.Since(started).Seconds())
	}

	return pair, nil
}

// withRetry retries transient failures with exponential backoff, bounded
// by the workflow's max_retries. Precondition and resource errors are
// permanent for the node.
func (r *Runner) withRetry(ctx context.Context, maxRetries int, attempts *int, op func() error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialBackoff

	tries := 0
	return backoff.Retry(func() error {
		if tries > 0 {
			*attempts++
			if r.metrics != nil {
				r.metrics.NodeRetries.Inc()
			}
		}
		tries++

		err := op()
		if err == nil {
			return nil
		}
		if isPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxRetries)), ctx))
}

// isPermanent reports whether an error can never succeed on retry: bad
// input or a resource state a retry will not change.
func isPermanent(err error) bool {
	for _, sentinel := range []error{
		domain.ErrInvalidAmount,
		domain.ErrSameAccount,
		domain.ErrAccountNotFound,
		domain.ErrAccountInactive,
		domain.ErrUnauthorized,
		domain.ErrInvalidTransferKind,
		domain.ErrKindOnSameEntity,
		domain.ErrInsufficientFunds,
		domain.ErrEntityNotFound,
		domain.ErrNoSourceAccount,
		domain.ErrNoTargetAccount,
		domain.ErrGraphInvalid,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return "concurrency_conflict"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrAccountNotFound), errors.Is(err, domain.ErrAccountInactive):
		return "account"
	case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrInvalidTransferKind), errors.Is(err, domain.ErrKindOnSameEntity):
		return "invalid_input"
	default:
		return "other"
	}
}

func (r *Runner) cancelled(ctx context.Context, executionID string) (bool, error) {
	execution, err := r.executions.GetByID(ctx, executionID)
	if err != nil {
		return false, err
	}
	return execution.Status == domain.ExecutionStatusCancelled, nil
}

// finish records the terminal status, audit entry, and outbox event. The
// repository only transitions running executions, so a concurrent cancel
// wins and stays terminal.
func (r *Runner) finish(ctx context.Context, execution *domain.Execution, status domain.ExecutionStatus, errMsg string) error {
	now := time.Now().UTC()

	if err := r.executions.Finish(ctx, execution.ID, status, errMsg, now); err != nil {
		return err
	}

	if r.metrics != nil {
		r.metrics.ExecutionsFinished.WithLabelValues(string(status)).Inc()
	}

	audit := &domain.AuditLog{
		Action:      domain.AuditActionExecutionFinished,
		ExecutionID: &execution.ID,
		Detail: map[string]any{
			"workflow_id":   execution.WorkflowID,
			"graph_version": execution.GraphVersion,
			"status":        string(status),
			"error":         errMsg,
		},
		CreatedAt: now,
	}
	if err := r.auditRepo.Create(ctx, audit); err != nil {
		r.logger.Error().Err(err).Str("execution_id", execution.ID).Msg("failed to append execution audit entry")
	} else if r.metrics != nil {
		r.metrics.AuditEntriesCreated.WithLabelValues(string(audit.Action)).Inc()
	}

	event := &domain.OutboxEvent{
		ID:            r.idGen.Generate(),
		AggregateID:   execution.ID,
		AggregateType: domain.AggregateTypeExecution,
		EventType:     domain.EventTypeExecutionFinished,
		Payload: map[string]any{
			"execution_id":  execution.ID,
			"workflow_id":   execution.WorkflowID,
			"graph_version": execution.GraphVersion,
			"status":        string(status),
		},
		CreatedAt: now,
	}
	if err := r.outboxRepo.Create(ctx, nil, event); err != nil {
		r.logger.Error().Err(err).Str("execution_id", execution.ID).Msg("failed to append execution outbox event")
	}

	return nil
}
