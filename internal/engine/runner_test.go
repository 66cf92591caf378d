package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilflow/veilflow/internal/domain"
	"github.com/veilflow/veilflow/internal/usecase"
	"github.com/veilflow/veilflow/internal/usecase/mocks"
)

// runnerFixture backs the runner with a real ledger use case over mock
// repositories, so engine tests exercise the same money-movement path
// production does.
type runnerFixture struct {
	entityRepo      *mocks.MockEntityRepository
	accountRepo     *mocks.MockAccountRepository
	transactionRepo *mocks.MockTransactionRepository
	idempotencyRepo *mocks.MockIdempotencyRepository
	auditRepo       *mocks.MockAuditRepository
	outboxRepo      *mocks.MockOutboxRepository
	workflowRepo    *mocks.MockWorkflowRepository
	executionRepo   *mocks.MockExecutionRepository
	runner          *Runner
}

// Accounts: acc-1 ($500, entity ent-personal), acc-2 (entity ent-llc),
// acc-3 (entity ent-personal), acc-bad (inactive). All owned by user-1.
func newRunnerFixture() *runnerFixture {
	f := &runnerFixture{
		entityRepo:      mocks.NewMockEntityRepository(),
		accountRepo:     mocks.NewMockAccountRepository(),
		transactionRepo: mocks.NewMockTransactionRepository(),
		idempotencyRepo: mocks.NewMockIdempotencyRepository(),
		auditRepo:       mocks.NewMockAuditRepository(),
		outboxRepo:      mocks.NewMockOutboxRepository(),
		workflowRepo:    mocks.NewMockWorkflowRepository(),
		executionRepo:   mocks.NewMockExecutionRepository(),
	}

	f.entityRepo.Seed(&domain.Entity{ID: "ent-personal", Name: "Personal", OwnerID: "user-1"})
	f.entityRepo.Seed(&domain.Entity{ID: "ent-llc", Name: "Rentals LLC", OwnerID: "user-1"})

	f.accountRepo.Seed(&domain.Account{
		ID: "acc-1", EntityID: "ent-personal", Active: true,
		CurrentBalance: decimal.NewFromInt(500), AvailableBalance: decimal.NewFromInt(500),
	})
	f.accountRepo.Seed(&domain.Account{
		ID: "acc-2", EntityID: "ent-llc", Active: true,
		CurrentBalance: decimal.Zero, AvailableBalance: decimal.Zero,
	})
	f.accountRepo.Seed(&domain.Account{
		ID: "acc-3", EntityID: "ent-personal", Active: true,
		CurrentBalance: decimal.Zero, AvailableBalance: decimal.Zero,
	})
	f.accountRepo.Seed(&domain.Account{
		ID: "acc-bad", EntityID: "ent-llc", Active: false,
		CurrentBalance: decimal.Zero, AvailableBalance: decimal.Zero,
	})

	ledgerUC := usecase.NewLedgerUseCase(
		mocks.NewMockTransactionManager(),
		f.entityRepo,
		f.accountRepo,
		f.transactionRepo,
		f.idempotencyRepo,
		f.auditRepo,
		f.outboxRepo,
		mocks.NewMockLedgerRepository(),
		mocks.NewMockIDGenerator(),
	)

	f.runner = NewRunner(
		f.workflowRepo,
		f.workflowRepo,
		f.executionRepo,
		f.accountRepo,
		ledgerUC,
		f.auditRepo,
		f.outboxRepo,
		mocks.NewMockIDGenerator(),
		nil,
		zerolog.Nop(),
	)
	f.runner.initialBackoff = time.Millisecond

	return f
}

func (f *runnerFixture) seed(graph *domain.Graph, trigger domain.TriggerContext) *domain.Execution {
	f.workflowRepo.Seed(&domain.Workflow{
		ID:         "wf-1",
		Name:       "sweep",
		OwnerID:    "user-1",
		Status:     domain.WorkflowStatusActive,
		Version:    1,
		MaxRetries: 3,
	}, graph)

	execution := &domain.Execution{
		ID:           "exec-1",
		WorkflowID:   "wf-1",
		GraphVersion: 1,
		Status:       domain.ExecutionStatusRunning,
		Trigger:      trigger,
		StartedAt:    time.Now().UTC(),
	}
	f.executionRepo.Seed(execution)
	return execution
}

func graphV1(nodes []domain.Node, edges []domain.Edge) *domain.Graph {
	return &domain.Graph{WorkflowID: "wf-1", Version: 1, Nodes: nodes, Edges: edges}
}

func manualTrigger(amount string) domain.TriggerContext {
	t := domain.TriggerContext{
		Type:    domain.TriggerTypeManual,
		FiredAt: time.Now().UTC(),
	}
	if amount != "" {
		a := dec(amount)
		t.Amount = &a
	}
	return t
}

func TestRunner_Run_LinearTransfer(t *testing.T) {
	f := newRunnerFixture()

	graph := graphV1(
		[]domain.Node{
			{ID: "src", Kind: domain.NodeKindSource, Source: &domain.SourceParams{AccountID: "acc-1"}},
			{ID: "pay", Kind: domain.NodeKindAction, Name: "fund llc", Action: &domain.ActionParams{
				Amount: decPtr("100"),
				Kind:   domain.KindEquityContribution,
			}},
			{ID: "dst", Kind: domain.NodeKindDestination, Destination: &domain.DestinationParams{AccountID: "acc-2"}},
		},
		[]domain.Edge{
			{From: "src", To: "pay"},
			{From: "pay", To: "dst"},
		},
	)
	execution := f.seed(graph, manualTrigger(""))

	require.NoError(t, f.runner.Run(context.Background(), execution))

	got, err := f.executionRepo.GetByID(context.Background(), "exec-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionStatusSucceeded, got.Status)
	require.NotNil(t, got.CompletedAt)

	// Money moved exactly once, through a balanced pair.
	txns := f.transactionRepo.All()
	require.Len(t, txns, 2)
	from, _ := f.accountRepo.GetByID(context.Background(), "acc-1")
	to, _ := f.accountRepo.GetByID(context.Background(), "acc-2")
	assert.True(t, from.CurrentBalance.Equal(dec("400")), "source balance %s", from.CurrentBalance)
	assert.True(t, to.CurrentBalance.Equal(dec("100")), "destination balance %s", to.CurrentBalance)

	// One outcome per node, the action's carrying the debit transaction.
	outcomes, err := f.executionRepo.ListOutcomes(context.Background(), "exec-1")
	require.NoError(t, err)
	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		assert.Equal(t, domain.NodeStatusSucceeded, o.Status, "node %s", o.NodeID)
	}
	assert.NotNil(t, outcomes[1].TransactionID)

	// The ledger idempotency key is derived from (execution, node).
	record, err := f.idempotencyRepo.Get(context.Background(), "exec:exec-1:pay")
	require.NoError(t, err)
	assert.NotNil(t, record)

	// Inter-entity audit entry plus the terminal execution entry.
	logs := f.auditRepo.Logs()
	require.Len(t, logs, 2)
	assert.Equal(t, domain.AuditActionInterEntityTransfer, logs[0].Action)
	assert.Equal(t, domain.AuditActionExecutionFinished, logs[1].Action)

	// Transfer event plus execution-finished event.
	assert.Len(t, f.outboxRepo.Events(), 2)
}

func TestRunner_Run_ConditionSkipsUntakenBranch(t *testing.T) {
	f := newRunnerFixture()

	graph := graphV1(
		[]domain.Node{
			{ID: "src", Kind: domain.NodeKindSource, Source: &domain.SourceParams{AccountID: "acc-1"}},
			{ID: "if", Kind: domain.NodeKindCondition, Condition: &domain.ConditionParams{
				Subject:  domain.SubjectTriggerAmount,
				Operator: domain.OpGreaterThan,
				Value:    dec("1000"),
			}},
			{ID: "pay-big", Kind: domain.NodeKindAction, Action: &domain.ActionParams{ToAccountID: "acc-3"}},
			{ID: "pay-small", Kind: domain.NodeKindAction, Action: &domain.ActionParams{ToAccountID: "acc-3"}},
		},
		[]domain.Edge{
			{From: "src", To: "if"},
			{From: "if", To: "pay-big", Label: domain.BranchTrue},
			{From: "if", To: "pay-small", Label: domain.BranchFalse},
		},
	)
	execution := f.seed(graph, manualTrigger("500"))

	require.NoError(t, f.runner.Run(context.Background(), execution))

	got, _ := f.executionRepo.GetByID(context.Background(), "exec-1")
	assert.Equal(t, domain.ExecutionStatusSucceeded, got.Status)

	outcomes, err := f.executionRepo.ListOutcomes(context.Background(), "exec-1")
	require.NoError(t, err)

	byNode := make(map[string]*domain.NodeOutcome, len(outcomes))
	for _, o := range outcomes {
		byNode[o.NodeID] = o
	}

	assert.Equal(t, domain.BranchFalse, byNode["if"].BranchTaken)
	assert.Equal(t, domain.NodeStatusSkipped, byNode["pay-big"].Status)
	assert.Equal(t, domain.NodeStatusSucceeded, byNode["pay-small"].Status)

	// Only the taken branch moved money, using the full flow amount.
	txns := f.transactionRepo.All()
	require.Len(t, txns, 2)
	assert.True(t, txns[0].Amount.Equal(dec("500")))
}

func TestRunner_Run_SplitFansOut(t *testing.T) {
	f := newRunnerFixture()

	graph := graphV1(
		[]domain.Node{
			{ID: "src", Kind: domain.NodeKindSource, Source: &domain.SourceParams{AccountID: "acc-1"}},
			{ID: "fan", Kind: domain.NodeKindSplit, Split: &domain.SplitParams{Branches: []domain.SplitBranch{
				{Target: "to-llc", Percent: decPtr("60")},
				{Target: "to-self", Percent: decPtr("40")},
			}}},
			{ID: "to-llc", Kind: domain.NodeKindAction, Action: &domain.ActionParams{
				ToAccountID: "acc-2",
				Kind:        domain.KindEquityContribution,
			}},
			{ID: "to-self", Kind: domain.NodeKindAction, Action: &domain.ActionParams{ToAccountID: "acc-3"}},
		},
		[]domain.Edge{
			{From: "src", To: "fan"},
			{From: "fan", To: "to-llc"},
			{From: "fan", To: "to-self"},
		},
	)
	execution := f.seed(graph, manualTrigger("100"))

	require.NoError(t, f.runner.Run(context.Background(), execution))

	got, _ := f.executionRepo.GetByID(context.Background(), "exec-1")
	assert.Equal(t, domain.ExecutionStatusSucceeded, got.Status)

	from, _ := f.accountRepo.GetByID(context.Background(), "acc-1")
	llc, _ := f.accountRepo.GetByID(context.Background(), "acc-2")
	self, _ := f.accountRepo.GetByID(context.Background(), "acc-3")
	assert.True(t, from.CurrentBalance.Equal(dec("400")), "source balance %s", from.CurrentBalance)
	assert.True(t, llc.CurrentBalance.Equal(dec("60")), "llc balance %s", llc.CurrentBalance)
	assert.True(t, self.CurrentBalance.Equal(dec("40")), "self balance %s", self.CurrentBalance)
}

func TestRunner_Run_MergeFailsAfterMoneyMoved(t *testing.T) {
	f := newRunnerFixture()

	graph := graphV1(
		[]domain.Node{
			{ID: "s1", Kind: domain.NodeKindSource, Source: &domain.SourceParams{AccountID: "acc-1"}},
			{ID: "pay", Kind: domain.NodeKindAction, Action: &domain.ActionParams{
				Amount:      decPtr("50"),
				ToAccountID: "acc-3",
			}},
			{ID: "s2", Kind: domain.NodeKindSource, Source: &domain.SourceParams{AccountID: "acc-bad"}},
			{ID: "join", Kind: domain.NodeKindMerge, Merge: &domain.MergeParams{}},
		},
		[]domain.Edge{
			{From: "s1", To: "pay"},
			{From: "pay", To: "join"},
			{From: "s2", To: "join"},
		},
	)
	execution := f.seed(graph, manualTrigger(""))

	require.NoError(t, f.runner.Run(context.Background(), execution))

	got, _ := f.executionRepo.GetByID(context.Background(), "exec-1")
	assert.Equal(t, domain.ExecutionStatusPartiallyFailed, got.Status)
	assert.Contains(t, got.Error, "s2")

	// The committed transfer stays committed.
	assert.Len(t, f.transactionRepo.All(), 2)

	outcomes, _ := f.executionRepo.ListOutcomes(context.Background(), "exec-1")
	byNode := make(map[string]*domain.NodeOutcome, len(outcomes))
	for _, o := range outcomes {
		byNode[o.NodeID] = o
	}
	assert.Equal(t, domain.NodeStatusFailed, byNode["s2"].Status)
	assert.Equal(t, domain.NodeStatusFailed, byNode["join"].Status)
}

func TestRunner_Run_FailureWithoutMoneyIsFailed(t *testing.T) {
	f := newRunnerFixture()

	graph := graphV1(
		[]domain.Node{
			{ID: "src", Kind: domain.NodeKindSource, Source: &domain.SourceParams{AccountID: "acc-bad"}},
		},
		nil,
	)
	execution := f.seed(graph, manualTrigger(""))

	require.NoError(t, f.runner.Run(context.Background(), execution))

	got, _ := f.executionRepo.GetByID(context.Background(), "exec-1")
	assert.Equal(t, domain.ExecutionStatusFailed, got.Status)
	assert.Empty(t, f.transactionRepo.All())
}

// transferStub satisfies TransferService without a ledger behind it.
type transferStub struct {
	calls int
	fn    func(input usecase.TransferInput) (*domain.TransactionPair, error)
}

func (s *transferStub) Transfer(ctx context.Context, input usecase.TransferInput) (*domain.TransactionPair, error) {
	s.calls++
	return s.fn(input)
}

func stubPair() *domain.TransactionPair {
	debitID, creditID := "txn-d", "txn-c"
	return &domain.TransactionPair{
		Debit:  &domain.Transaction{ID: debitID, Direction: domain.DirectionDebit, Amount: dec("100"), PairID: &creditID},
		Credit: &domain.Transaction{ID: creditID, Direction: domain.DirectionCredit, Amount: dec("100"), PairID: &debitID},
	}
}

func (f *runnerFixture) withTransfers(stub *transferStub) {
	f.runner = &Runner{
		workflows:      f.workflowRepo,
		graphs:         f.workflowRepo,
		executions:     f.executionRepo,
		accounts:       f.accountRepo,
		transfers:      stub,
		auditRepo:      f.auditRepo,
		outboxRepo:     f.outboxRepo,
		idGen:          mocks.NewMockIDGenerator(),
		logger:         zerolog.Nop(),
		initialBackoff: time.Millisecond,
	}
}

func TestRunner_Run_ReplaySkipsRecordedNodes(t *testing.T) {
	f := newRunnerFixture()

	stub := &transferStub{fn: func(usecase.TransferInput) (*domain.TransactionPair, error) {
		return nil, errors.New("transfer must not be re-submitted on replay")
	}}
	f.withTransfers(stub)

	graph := graphV1(
		[]domain.Node{
			{ID: "src", Kind: domain.NodeKindSource, Source: &domain.SourceParams{AccountID: "acc-1"}},
			{ID: "pay", Kind: domain.NodeKindAction, Action: &domain.ActionParams{Amount: decPtr("100")}},
			{ID: "dst", Kind: domain.NodeKindDestination, Destination: &domain.DestinationParams{AccountID: "acc-2"}},
		},
		[]domain.Edge{
			{From: "src", To: "pay"},
			{From: "pay", To: "dst"},
		},
	)
	execution := f.seed(graph, manualTrigger(""))

	// The previous run crashed after the action committed.
	txnID := "txn-committed"
	f.executionRepo.SeedOutcomes("exec-1", []*domain.NodeOutcome{
		{ExecutionID: "exec-1", NodeID: "src", Status: domain.NodeStatusSucceeded, Attempts: 1},
		{
			ExecutionID: "exec-1", NodeID: "pay", Status: domain.NodeStatusSucceeded,
			InputAmount: dec("100"), OutputAmount: dec("100"), TransactionID: &txnID, Attempts: 1,
		},
	})

	require.NoError(t, f.runner.Run(context.Background(), execution))

	got, _ := f.executionRepo.GetByID(context.Background(), "exec-1")
	assert.Equal(t, domain.ExecutionStatusSucceeded, got.Status)

	// Only the unrecorded node was evaluated; no transfer was re-submitted.
	assert.Zero(t, stub.calls)
	outcomes, _ := f.executionRepo.ListOutcomes(context.Background(), "exec-1")
	assert.Len(t, outcomes, 3)
}

func TestRunner_Run_RetriesTransientFailures(t *testing.T) {
	f := newRunnerFixture()

	failures := 2
	stub := &transferStub{fn: func(usecase.TransferInput) (*domain.TransactionPair, error) {
		if failures > 0 {
			failures--
			return nil, errors.New("connection reset")
		}
		return stubPair(), nil
	}}
	f.withTransfers(stub)

	graph := graphV1(
		[]domain.Node{
			{ID: "src", Kind: domain.NodeKindSource, Source: &domain.SourceParams{AccountID: "acc-1"}},
			{ID: "pay", Kind: domain.NodeKindAction, Action: &domain.ActionParams{Amount: decPtr("100"), ToAccountID: "acc-3"}},
		},
		[]domain.Edge{{From: "src", To: "pay"}},
	)
	execution := f.seed(graph, manualTrigger(""))

	require.NoError(t, f.runner.Run(context.Background(), execution))

	got, _ := f.executionRepo.GetByID(context.Background(), "exec-1")
	assert.Equal(t, domain.ExecutionStatusSucceeded, got.Status)
	assert.Equal(t, 3, stub.calls)

	outcomes, _ := f.executionRepo.ListOutcomes(context.Background(), "exec-1")
	require.Len(t, outcomes, 2)
	assert.Equal(t, 3, outcomes[1].Attempts)
}

func TestRunner_Run_PreconditionFailureIsNotRetried(t *testing.T) {
	f := newRunnerFixture()

	stub := &transferStub{fn: func(usecase.TransferInput) (*domain.TransactionPair, error) {
		return nil, domain.ErrInsufficientFunds
	}}
	f.withTransfers(stub)

	graph := graphV1(
		[]domain.Node{
			{ID: "src", Kind: domain.NodeKindSource, Source: &domain.SourceParams{AccountID: "acc-1"}},
			{ID: "pay", Kind: domain.NodeKindAction, Action: &domain.ActionParams{Amount: decPtr("9999"), ToAccountID: "acc-3"}},
		},
		[]domain.Edge{{From: "src", To: "pay"}},
	)
	execution := f.seed(graph, manualTrigger(""))

	require.NoError(t, f.runner.Run(context.Background(), execution))

	got, _ := f.executionRepo.GetByID(context.Background(), "exec-1")
	assert.Equal(t, domain.ExecutionStatusFailed, got.Status)
	assert.Equal(t, 1, stub.calls)
}

func TestRunner_Run_CancelledExecutionStops(t *testing.T) {
	f := newRunnerFixture()

	graph := graphV1(
		[]domain.Node{
			{ID: "src", Kind: domain.NodeKindSource, Source: &domain.SourceParams{AccountID: "acc-1"}},
		},
		nil,
	)
	execution := f.seed(graph, manualTrigger(""))

	require.NoError(t, f.executionRepo.Cancel(context.Background(), "exec-1"))

	require.NoError(t, f.runner.Run(context.Background(), execution))

	outcomes, _ := f.executionRepo.ListOutcomes(context.Background(), "exec-1")
	assert.Empty(t, outcomes)

	got, _ := f.executionRepo.GetByID(context.Background(), "exec-1")
	assert.Equal(t, domain.ExecutionStatusCancelled, got.Status)
}
