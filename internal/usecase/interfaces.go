package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/veilflow/veilflow/internal/domain"
)

// EntityRepository defines data access for entities.
type EntityRepository interface {
	Create(ctx context.Context, entity *domain.Entity) error
	GetByID(ctx context.Context, id string) (*domain.Entity, error)
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Entity, error)
	List(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Entity, error)
	CountAccounts(ctx context.Context, id string) (int64, error)
	Delete(ctx context.Context, id string) error
}

// AccountRepository defines data access for accounts. Balance writes go
// through UpdateBalances, which compares the optimistic version and fails
// closed with domain.ErrConcurrencyConflict on a stale write.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByIDsForUpdate(ctx context.Context, tx Transaction, ids []string) ([]*domain.Account, error)
	UpdateBalances(ctx context.Context, tx Transaction, id string, current, available decimal.Decimal, expectedVersion int64, updatedAt time.Time) error
	ListByEntity(ctx context.Context, entityID string, limit, offset int) ([]*domain.Account, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// TransactionRepository defines data access for ledger transactions.
type TransactionRepository interface {
	Create(ctx context.Context, tx Transaction, txn *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Transaction, error)
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transaction, error)
	ListByExecution(ctx context.Context, executionID string) ([]*domain.Transaction, error)
}

// LedgerRepository defines ledger-wide integrity queries.
type LedgerRepository interface {
	UnpairedInterEntityCount(ctx context.Context) (int64, error)
	PairMismatchCount(ctx context.Context) (int64, error)
}

// IdempotencyRecord maps an idempotency key to the committed pair.
type IdempotencyRecord struct {
	Key                 string
	DebitTransactionID  string
	CreditTransactionID string
	CreatedAt           time.Time
}

// IdempotencyRepository is the durable idempotency-key index for
// transfers. Create participates in the transfer's transaction; a
// duplicate key surfaces domain.ErrConcurrencyConflict.
type IdempotencyRepository interface {
	Get(ctx context.Context, key string) (*IdempotencyRecord, error)
	Create(ctx context.Context, tx Transaction, record *IdempotencyRecord) error
}

// WorkflowRepository defines data access for workflows and their
// versioned graph documents.
type WorkflowRepository interface {
	Create(ctx context.Context, workflow *domain.Workflow, graph *domain.Graph) error
	GetByID(ctx context.Context, id string) (*domain.Workflow, error)
	List(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Workflow, error)
	ListActive(ctx context.Context) ([]*domain.Workflow, error)
	GetGraph(ctx context.Context, workflowID string, version int) (*domain.Graph, error)
	SaveGraphVersion(ctx context.Context, workflow *domain.Workflow, graph *domain.Graph) error
	UpdateStatus(ctx context.Context, id string, status domain.WorkflowStatus, updatedAt time.Time) error
}

// ExecutionRepository defines data access for executions and their
// node-outcome logs.
type ExecutionRepository interface {
	Create(ctx context.Context, execution *domain.Execution) error
	GetByID(ctx context.Context, id string) (*domain.Execution, error)
	ListByWorkflow(ctx context.Context, workflowID string, limit, offset int) ([]*domain.Execution, error)
	Finish(ctx context.Context, id string, status domain.ExecutionStatus, errMsg string, completedAt time.Time) error
	Cancel(ctx context.Context, id string) error
	AppendOutcome(ctx context.Context, outcome *domain.NodeOutcome) error
	ListOutcomes(ctx context.Context, executionID string) ([]*domain.NodeOutcome, error)
}

// AuditRepository defines append-only access to the audit trail.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	CreateTx(ctx context.Context, tx Transaction, log *domain.AuditLog) error
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles request-level idempotency at the HTTP edge.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
