package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/veilflow/veilflow/internal/domain"
	"github.com/veilflow/veilflow/internal/usecase"
)

// MockEntityRepository is a mock implementation of EntityRepository.
type MockEntityRepository struct {
	mu       sync.RWMutex
	entities map[string]*domain.Entity
	accounts map[string]int64

	CreateFunc  func(ctx context.Context, entity *domain.Entity) error
	GetByIDFunc func(ctx context.Context, id string) (*domain.Entity, error)
}

func NewMockEntityRepository() *MockEntityRepository {
	return &MockEntityRepository{
		entities: make(map[string]*domain.Entity),
		accounts: make(map[string]int64),
	}
}

// Seed adds an entity directly to the backing store.
func (m *MockEntityRepository) Seed(entity *domain.Entity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[entity.ID] = entity
}

// SetAccountCount overrides the value CountAccounts reports for an entity.
func (m *MockEntityRepository) SetAccountCount(entityID string, count int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[entityID] = count
}

func (m *MockEntityRepository) Create(ctx context.Context, entity *domain.Entity) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, entity)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[entity.ID] = entity
	return nil
}

func (m *MockEntityRepository) GetByID(ctx context.Context, id string) (*domain.Entity, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entities[id]; ok {
		return e, nil
	}
	return nil, domain.ErrEntityNotFound
}

func (m *MockEntityRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entities []*domain.Entity
	for _, id := range ids {
		if e, ok := m.entities[id]; ok {
			entities = append(entities, e)
		}
	}
	return entities, nil
}

func (m *MockEntityRepository) List(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entities []*domain.Entity
	for _, e := range m.entities {
		if e.OwnerID == ownerID {
			entities = append(entities, e)
		}
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i].ID < entities[j].ID })
	return entities, nil
}

func (m *MockEntityRepository) CountAccounts(ctx context.Context, id string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accounts[id], nil
}

func (m *MockEntityRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entities[id]; !ok {
		return domain.ErrEntityNotFound
	}
	delete(m.entities, id)
	return nil
}

// MockAccountRepository is a mock implementation of AccountRepository.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account

	CreateFunc            func(ctx context.Context, account *domain.Account) error
	GetByIDFunc           func(ctx context.Context, id string) (*domain.Account, error)
	GetByIDsForUpdateFunc func(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error)
	UpdateBalancesFunc    func(ctx context.Context, tx usecase.Transaction, id string, current, available decimal.Decimal, expectedVersion int64, updatedAt time.Time) error
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		accounts: make(map[string]*domain.Account),
	}
}

// Seed adds an account directly to the backing store.
func (m *MockAccountRepository) Seed(account *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
}

func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
	return nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[id]; ok {
		return acc, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	if m.GetByIDsForUpdateFunc != nil {
		return m.GetByIDsForUpdateFunc(ctx, tx, ids)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var accounts []*domain.Account
	for _, id := range ids {
		if acc, ok := m.accounts[id]; ok {
			accounts = append(accounts, acc)
		}
	}
	return accounts, nil
}

func (m *MockAccountRepository) UpdateBalances(ctx context.Context, tx usecase.Transaction, id string, current, available decimal.Decimal, expectedVersion int64, updatedAt time.Time) error {
	if m.UpdateBalancesFunc != nil {
		return m.UpdateBalancesFunc(ctx, tx, id, current, available, expectedVersion, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if acc.Version != expectedVersion {
		return domain.ErrConcurrencyConflict
	}
	acc.CurrentBalance = current
	acc.AvailableBalance = available
	acc.Version++
	acc.UpdatedAt = updatedAt
	return nil
}

func (m *MockAccountRepository) ListByEntity(ctx context.Context, entityID string, limit, offset int) ([]*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var accounts []*domain.Account
	for _, acc := range m.accounts {
		if acc.EntityID == entityID {
			accounts = append(accounts, acc)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

func (m *MockAccountRepository) SetActive(ctx context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	acc.Active = active
	return nil
}

// MockTransactionRepository is a mock implementation of TransactionRepository.
type MockTransactionRepository struct {
	mu           sync.RWMutex
	transactions map[string]*domain.Transaction
	order        []string

	CreateFunc func(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		transactions: make(map[string]*domain.Transaction),
	}
}

// All returns every stored transaction in insertion order.
func (m *MockTransactionRepository) All() []*domain.Transaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	txns := make([]*domain.Transaction, 0, len(m.order))
	for _, id := range m.order {
		txns = append(txns, m.transactions[id])
	}
	return txns
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx usecase.Transaction, txn *domain.Transaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, txn)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[txn.ID] = txn
	m.order = append(m.order, txn.ID)
	return nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.transactions[id]; ok {
		return t, nil
	}
	return nil, domain.ErrTransactionNotFound
}

func (m *MockTransactionRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var txns []*domain.Transaction
	for _, id := range ids {
		if t, ok := m.transactions[id]; ok {
			txns = append(txns, t)
		}
	}
	return txns, nil
}

func (m *MockTransactionRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var txns []*domain.Transaction
	for _, id := range m.order {
		if t := m.transactions[id]; t.AccountID == accountID {
			txns = append(txns, t)
		}
	}
	return txns, nil
}

func (m *MockTransactionRepository) ListByExecution(ctx context.Context, executionID string) ([]*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var txns []*domain.Transaction
	for _, id := range m.order {
		if t := m.transactions[id]; t.ExecutionID != nil && *t.ExecutionID == executionID {
			txns = append(txns, t)
		}
	}
	return txns, nil
}

// MockLedgerRepository is a mock implementation of LedgerRepository.
type MockLedgerRepository struct {
	Unpaired   int64
	Mismatched int64
}

func NewMockLedgerRepository() *MockLedgerRepository {
	return &MockLedgerRepository{}
}

func (m *MockLedgerRepository) UnpairedInterEntityCount(ctx context.Context) (int64, error) {
	return m.Unpaired, nil
}

func (m *MockLedgerRepository) PairMismatchCount(ctx context.Context) (int64, error) {
	return m.Mismatched, nil
}

// MockIdempotencyRepository is a mock implementation of IdempotencyRepository.
type MockIdempotencyRepository struct {
	mu      sync.RWMutex
	records map[string]*usecase.IdempotencyRecord

	GetFunc    func(ctx context.Context, key string) (*usecase.IdempotencyRecord, error)
	CreateFunc func(ctx context.Context, tx usecase.Transaction, record *usecase.IdempotencyRecord) error
}

func NewMockIdempotencyRepository() *MockIdempotencyRepository {
	return &MockIdempotencyRepository{
		records: make(map[string]*usecase.IdempotencyRecord),
	}
}

func (m *MockIdempotencyRepository) Get(ctx context.Context, key string) (*usecase.IdempotencyRecord, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.records[key], nil
}

func (m *MockIdempotencyRepository) Create(ctx context.Context, tx usecase.Transaction, record *usecase.IdempotencyRecord) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, record)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[record.Key]; ok {
		return domain.ErrConcurrencyConflict
	}
	m.records[record.Key] = record
	return nil
}

// MockWorkflowRepository is a mock implementation of WorkflowRepository.
type MockWorkflowRepository struct {
	mu        sync.RWMutex
	workflows map[string]*domain.Workflow
	graphs    map[string]*domain.Graph

	GetByIDFunc  func(ctx context.Context, id string) (*domain.Workflow, error)
	GetGraphFunc func(ctx context.Context, workflowID string, version int) (*domain.Graph, error)
}

func NewMockWorkflowRepository() *MockWorkflowRepository {
	return &MockWorkflowRepository{
		workflows: make(map[string]*domain.Workflow),
		graphs:    make(map[string]*domain.Graph),
	}
}

func graphKey(workflowID string, version int) string {
	return fmt.Sprintf("%s:%d", workflowID, version)
}

// Seed adds a workflow and graph directly to the backing store.
func (m *MockWorkflowRepository) Seed(workflow *domain.Workflow, graph *domain.Graph) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workflows[workflow.ID] = workflow
	if graph != nil {
		m.graphs[graphKey(graph.WorkflowID, graph.Version)] = graph
	}
}

func (m *MockWorkflowRepository) Create(ctx context.Context, workflow *domain.Workflow, graph *domain.Graph) error {
	m.Seed(workflow, graph)
	return nil
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, id string) (*domain.Workflow, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if w, ok := m.workflows[id]; ok {
		return w, nil
	}
	return nil, domain.ErrWorkflowNotFound
}

func (m *MockWorkflowRepository) List(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Workflow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var workflows []*domain.Workflow
	for _, w := range m.workflows {
		if w.OwnerID == ownerID {
			workflows = append(workflows, w)
		}
	}
	sort.Slice(workflows, func(i, j int) bool { return workflows[i].ID < workflows[j].ID })
	return workflows, nil
}

func (m *MockWorkflowRepository) ListActive(ctx context.Context) ([]*domain.Workflow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var workflows []*domain.Workflow
	for _, w := range m.workflows {
		if w.Status == domain.WorkflowStatusActive {
			workflows = append(workflows, w)
		}
	}
	sort.Slice(workflows, func(i, j int) bool { return workflows[i].ID < workflows[j].ID })
	return workflows, nil
}

func (m *MockWorkflowRepository) GetGraph(ctx context.Context, workflowID string, version int) (*domain.Graph, error) {
	if m.GetGraphFunc != nil {
		return m.GetGraphFunc(ctx, workflowID, version)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.graphs[graphKey(workflowID, version)]; ok {
		return g, nil
	}
	return nil, domain.ErrGraphNotFound
}

func (m *MockWorkflowRepository) SaveGraphVersion(ctx context.Context, workflow *domain.Workflow, graph *domain.Graph) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.workflows[workflow.ID]; !ok {
		return domain.ErrWorkflowNotFound
	}
	m.workflows[workflow.ID] = workflow
	m.graphs[graphKey(graph.WorkflowID, graph.Version)] = graph
	return nil
}

func (m *MockWorkflowRepository) UpdateStatus(ctx context.Context, id string, status domain.WorkflowStatus, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.workflows[id]
	if !ok {
		return domain.ErrWorkflowNotFound
	}
	w.Status = status
	w.UpdatedAt = updatedAt
	return nil
}

// MockExecutionRepository is a mock implementation of ExecutionRepository.
type MockExecutionRepository struct {
	mu         sync.RWMutex
	executions map[string]*domain.Execution
	outcomes   map[string][]*domain.NodeOutcome

	FinishFunc        func(ctx context.Context, id string, status domain.ExecutionStatus, errMsg string, completedAt time.Time) error
	AppendOutcomeFunc func(ctx context.Context, outcome *domain.NodeOutcome) error
}

func NewMockExecutionRepository() *MockExecutionRepository {
	return &MockExecutionRepository{
		executions: make(map[string]*domain.Execution),
		outcomes:   make(map[string][]*domain.NodeOutcome),
	}
}

// Seed adds an execution directly to the backing store.
func (m *MockExecutionRepository) Seed(execution *domain.Execution) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executions[execution.ID] = execution
}

// SeedOutcomes pre-populates the node-outcome log for replay tests.
func (m *MockExecutionRepository) SeedOutcomes(executionID string, outcomes []*domain.NodeOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[executionID] = outcomes
}

func (m *MockExecutionRepository) Create(ctx context.Context, execution *domain.Execution) error {
	m.Seed(execution)
	return nil
}

func (m *MockExecutionRepository) GetByID(ctx context.Context, id string) (*domain.Execution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.executions[id]; ok {
		return e, nil
	}
	return nil, domain.ErrExecutionNotFound
}

func (m *MockExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string, limit, offset int) ([]*domain.Execution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var executions []*domain.Execution
	for _, e := range m.executions {
		if e.WorkflowID == workflowID {
			executions = append(executions, e)
		}
	}
	sort.Slice(executions, func(i, j int) bool { return executions[i].ID < executions[j].ID })
	return executions, nil
}

func (m *MockExecutionRepository) Finish(ctx context.Context, id string, status domain.ExecutionStatus, errMsg string, completedAt time.Time) error {
	if m.FinishFunc != nil {
		return m.FinishFunc(ctx, id, status, errMsg, completedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.executions[id]
	if !ok {
		return domain.ErrExecutionNotFound
	}
	if e.Status.Terminal() {
		return domain.ErrExecutionTerminal
	}
	e.Status = status
	e.Error = errMsg
	e.CompletedAt = &completedAt
	return nil
}

func (m *MockExecutionRepository) Cancel(ctx context.Context, id string) error {
	return m.Finish(ctx, id, domain.ExecutionStatusCancelled, "", time.Now().UTC())
}

func (m *MockExecutionRepository) AppendOutcome(ctx context.Context, outcome *domain.NodeOutcome) error {
	if m.AppendOutcomeFunc != nil {
		return m.AppendOutcomeFunc(ctx, outcome)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[outcome.ExecutionID] = append(m.outcomes[outcome.ExecutionID], outcome)
	return nil
}

func (m *MockExecutionRepository) ListOutcomes(ctx context.Context, executionID string) ([]*domain.NodeOutcome, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.outcomes[executionID], nil
}

// MockAuditRepository is a mock implementation of AuditRepository.
type MockAuditRepository struct {
	mu   sync.RWMutex
	logs []*domain.AuditLog

	CreateTxFunc func(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error
}

func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{}
}

// Logs returns every stored audit entry.
func (m *MockAuditRepository) Logs() []*domain.AuditLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.AuditLog(nil), m.logs...)
}

func (m *MockAuditRepository) Create(ctx context.Context, log *domain.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, log)
	return nil
}

func (m *MockAuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	if m.CreateTxFunc != nil {
		return m.CreateTxFunc(ctx, tx, log)
	}
	return m.Create(ctx, log)
}

func (m *MockAuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var logs []*domain.AuditLog
	for _, l := range m.logs {
		if filter.EntityID != "" && l.EntityID != filter.EntityID && l.RelatedEntityID != filter.EntityID {
			continue
		}
		if filter.Action != "" && l.Action != filter.Action {
			continue
		}
		logs = append(logs, l)
	}
	return logs, nil
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	mu     sync.RWMutex
	events []*domain.OutboxEvent

	CreateFunc func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

// Events returns every stored outbox event.
func (m *MockOutboxRepository) Events() []*domain.OutboxEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.OutboxEvent(nil), m.events...)
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var events []*domain.OutboxEvent
	for _, e := range m.events {
		if !e.Published {
			events = append(events, e)
		}
		if len(events) == limit {
			break
		}
	}
	return events, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
		}
	}
	return nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{}, nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error

	Committed  bool
	RolledBack bool
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	m.Committed = true
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	if !m.Committed {
		m.RolledBack = true
	}
	return nil
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%d", m.counter)
}

// MockCache is a mock implementation of Cache.
type MockCache struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string][]byte)}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data[key], nil
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore.
type MockIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{
		data: make(map[string][]byte),
	}
}

func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data[key]; ok {
		return true, existing, nil
	}
	if response != nil {
		m.data[key] = response
	} else {
		m.data[key] = []byte("processing")
	}
	return false, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = response
	return nil
}
