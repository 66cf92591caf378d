package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/veilflow/veilflow/internal/domain"
)

// LedgerUseCase is the sole component authorized to mutate account
// balances and create transactions. Every monetary movement becomes one
// balanced, mutually referencing debit/credit pair committed atomically.
type LedgerUseCase struct {
	txManager       TransactionManager
	entityRepo      EntityRepository
	accountRepo     AccountRepository
	transactionRepo TransactionRepository
	idempotencyRepo IdempotencyRepository
	auditRepo       AuditRepository
	outboxRepo      OutboxRepository
	ledgerRepo      LedgerRepository
	idGen           IDGenerator
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(
	txManager TransactionManager,
	entityRepo EntityRepository,
	accountRepo AccountRepository,
	transactionRepo TransactionRepository,
	idempotencyRepo IdempotencyRepository,
	auditRepo AuditRepository,
	outboxRepo OutboxRepository,
	ledgerRepo LedgerRepository,
	idGen IDGenerator,
) *LedgerUseCase {
	return &LedgerUseCase{
		txManager:       txManager,
		entityRepo:      entityRepo,
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		idempotencyRepo: idempotencyRepo,
		auditRepo:       auditRepo,
		outboxRepo:      outboxRepo,
		ledgerRepo:      ledgerRepo,
		idGen:           idGen,
	}
}

// TransferInput represents one requested money movement.
type TransferInput struct {
	ActorID        string
	FromAccountID  string
	ToAccountID    string
	Amount         decimal.Decimal
	Kind           domain.TransferKind
	Description    string
	Category       string
	IdempotencyKey string
	ExecutionID    *string
}

// Transfer moves amount between two accounts as a single atomic unit:
// both balances, two transaction rows, the idempotency record, and (for
// inter-entity movements) the audit entry commit together or not at all.
// A repeated idempotency key returns the already-committed pair without
// re-mutating anything.
func (uc *LedgerUseCase) Transfer(ctx context.Context, input TransferInput) (*domain.TransactionPair, error) {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	if input.FromAccountID == input.ToAccountID {
		return nil, domain.ErrSameAccount
	}

	if input.IdempotencyKey != "" {
		pair, err := uc.lookupCommitted(ctx, input.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if pair != nil {
			return pair, nil
		}
	}

	// Lock both accounts in sorted id order to avoid lock-ordering
	// deadlocks between concurrent transfers.
	accountIDs := []string{input.FromAccountID, input.ToAccountID}
	sort.Strings(accountIDs)

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	accounts, err := uc.accountRepo.GetByIDsForUpdate(ctx, tx, accountIDs)
	if err != nil {
		return nil, err
	}
	if len(accounts) != len(accountIDs) {
		return nil, domain.ErrAccountNotFound
	}

	var fromAccount, toAccount *domain.Account
	for _, a := range accounts {
		switch a.ID {
		case input.FromAccountID:
			fromAccount = a
		case input.ToAccountID:
			toAccount = a
		}
	}
	if fromAccount == nil || toAccount == nil {
		return nil, domain.ErrAccountNotFound
	}

	if !fromAccount.Active || !toAccount.Active {
		return nil, domain.ErrAccountInactive
	}

	fromEntity, toEntity, err := uc.authorize(ctx, input.ActorID, fromAccount, toAccount)
	if err != nil {
		return nil, err
	}

	interEntity := fromAccount.EntityID != toAccount.EntityID
	if interEntity && !input.Kind.Valid() {
		return nil, domain.ErrInvalidTransferKind
	}
	if !interEntity && input.Kind != domain.KindNone {
		return nil, domain.ErrKindOnSameEntity
	}

	if err := fromAccount.ValidateWithdrawal(input.Amount); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	pair := uc.buildPair(input, fromAccount, toAccount, interEntity, now)

	if err := uc.transactionRepo.Create(ctx, tx, pair.Debit); err != nil {
		return nil, err
	}
	if err := uc.transactionRepo.Create(ctx, tx, pair.Credit); err != nil {
		return nil, err
	}

	fromVersion := fromAccount.Version
	toVersion := toAccount.Version
	fromAccount.ApplyDebit(input.Amount)
	toAccount.ApplyCredit(input.Amount)

	err = uc.accountRepo.UpdateBalances(ctx, tx, fromAccount.ID,
		fromAccount.CurrentBalance, fromAccount.AvailableBalance, fromVersion, now)
	if err != nil {
		return nil, err
	}

	err = uc.accountRepo.UpdateBalances(ctx, tx, toAccount.ID,
		toAccount.CurrentBalance, toAccount.AvailableBalance, toVersion, now)
	if err != nil {
		return nil, err
	}

	if input.IdempotencyKey != "" {
		err = uc.idempotencyRepo.Create(ctx, tx, &IdempotencyRecord{
			Key:                 input.IdempotencyKey,
			DebitTransactionID:  pair.Debit.ID,
			CreditTransactionID: pair.Credit.ID,
			CreatedAt:           now,
		})
		if err != nil {
			return nil, err
		}
	}

	if interEntity {
		err = uc.auditRepo.CreateTx(ctx, tx, &domain.AuditLog{
			Action:          domain.AuditActionInterEntityTransfer,
			EntityID:        fromEntity.ID,
			EntityName:      fromEntity.Name,
			RelatedEntityID: toEntity.ID,
			RelatedName:     toEntity.Name,
			FromAccountID:   fromAccount.ID,
			ToAccountID:     toAccount.ID,
			Amount:          input.Amount.StringFixed(2),
			TransferKind:    input.Kind,
			ExecutionID:     input.ExecutionID,
			CreatedAt:       now,
		})
		if err != nil {
			return nil, err
		}
	}

	err = uc.outboxRepo.Create(ctx, tx, &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   pair.Debit.ID,
		AggregateType: domain.AggregateTypeTransfer,
		EventType:     domain.EventTypeTransferCreated,
		Payload: map[string]any{
			"debit_transaction_id":  pair.Debit.ID,
			"credit_transaction_id": pair.Credit.ID,
			"from_account_id":       fromAccount.ID,
			"to_account_id":         toAccount.ID,
			"amount":                input.Amount.StringFixed(2),
			"inter_entity":          interEntity,
			"kind":                  string(input.Kind),
		},
		CreatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return pair, nil
}

func (uc *LedgerUseCase) buildPair(
	input TransferInput,
	fromAccount, toAccount *domain.Account,
	interEntity bool,
	now time.Time,
) *domain.TransactionPair {
	debitID := uc.idGen.Generate()
	creditID := uc.idGen.Generate()

	kind := domain.KindNone
	if interEntity {
		kind = input.Kind
	}

	var debitRelated, creditRelated *string
	if interEntity {
		debitRelated = &toAccount.EntityID
		creditRelated = &fromAccount.EntityID
	}

	debit := &domain.Transaction{
		ID:              debitID,
		EntityID:        fromAccount.EntityID,
		AccountID:       fromAccount.ID,
		Direction:       domain.DirectionDebit,
		Amount:          input.Amount,
		OccurredAt:      now,
		Category:        input.Category,
		Description:     input.Description,
		IsInterEntity:   interEntity,
		InterEntityKind: kind,
		PairID:          &creditID,
		RelatedEntityID: debitRelated,
		ExecutionID:     input.ExecutionID,
		CreatedAt:       now,
	}

	credit := &domain.Transaction{
		ID:              creditID,
		EntityID:        toAccount.EntityID,
		AccountID:       toAccount.ID,
		Direction:       domain.DirectionCredit,
		Amount:          input.Amount,
		OccurredAt:      now,
		Category:        input.Category,
		Description:     input.Description,
		IsInterEntity:   interEntity,
		InterEntityKind: kind,
		PairID:          &debitID,
		RelatedEntityID: creditRelated,
		ExecutionID:     input.ExecutionID,
		CreatedAt:       now,
	}

	return &domain.TransactionPair{Debit: debit, Credit: credit}
}

// authorize re-verifies that the actor owns both entities before any
// mutation, even though callers arrive pre-authenticated.
func (uc *LedgerUseCase) authorize(ctx context.Context, actorID string, fromAccount, toAccount *domain.Account) (*domain.Entity, *domain.Entity, error) {
	entityIDs := []string{fromAccount.EntityID}
	if toAccount.EntityID != fromAccount.EntityID {
		entityIDs = append(entityIDs, toAccount.EntityID)
	}

	entities, err := uc.entityRepo.GetByIDs(ctx, entityIDs)
	if err != nil {
		return nil, nil, err
	}
	if len(entities) != len(entityIDs) {
		return nil, nil, domain.ErrEntityNotFound
	}

	byID := make(map[string]*domain.Entity, len(entities))
	for _, e := range entities {
		if e.OwnerID != actorID {
			return nil, nil, domain.ErrUnauthorized
		}
		byID[e.ID] = e
	}

	return byID[fromAccount.EntityID], byID[toAccount.EntityID], nil
}

// lookupCommitted short-circuits a repeated idempotency key to the pair it
// already produced.
func (uc *LedgerUseCase) lookupCommitted(ctx context.Context, key string) (*domain.TransactionPair, error) {
	record, err := uc.idempotencyRepo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if record == nil {
		return nil, nil
	}

	txns, err := uc.transactionRepo.GetByIDs(ctx, []string{record.DebitTransactionID, record.CreditTransactionID})
	if err != nil {
		return nil, err
	}

	pair := &domain.TransactionPair{}
	for _, t := range txns {
		switch t.Direction {
		case domain.DirectionDebit:
			pair.Debit = t
		case domain.DirectionCredit:
			pair.Credit = t
		}
	}
	if pair.Debit == nil || pair.Credit == nil {
		return nil, domain.ErrTransactionNotFound
	}

	return pair, nil
}

// ImportExternalInput is a bank-imported movement: an already-settled fact
// from outside the ledger, recorded as a single unpaired transaction.
type ImportExternalInput struct {
	ActorID     string
	AccountID   string
	Direction   domain.Direction
	Amount      decimal.Decimal
	OccurredAt  time.Time
	Category    string
	Description string
	Source      string
}

// ImportExternal records a bank-originated transaction. The paired-
// transaction invariant does not apply, but balance mutation still goes
// through the same locked, version-checked path as transfers.
func (uc *LedgerUseCase) ImportExternal(ctx context.Context, input ImportExternalInput) (*domain.Transaction, error) {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	accounts, err := uc.accountRepo.GetByIDsForUpdate(ctx, tx, []string{input.AccountID})
	if err != nil {
		return nil, err
	}
	if len(accounts) != 1 {
		return nil, domain.ErrAccountNotFound
	}
	account := accounts[0]

	if !account.Active {
		return nil, domain.ErrAccountInactive
	}

	if _, _, err := uc.authorize(ctx, input.ActorID, account, account); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now
	}

	txn := &domain.Transaction{
		ID:           uc.idGen.Generate(),
		EntityID:     account.EntityID,
		AccountID:    account.ID,
		Direction:    input.Direction,
		Amount:       input.Amount,
		OccurredAt:   occurredAt,
		Category:     input.Category,
		Description:  input.Description,
		ImportSource: input.Source,
		CreatedAt:    now,
	}

	if err := uc.transactionRepo.Create(ctx, tx, txn); err != nil {
		return nil, err
	}

	version := account.Version
	if input.Direction == domain.DirectionDebit {
		account.ApplyDebit(input.Amount)
	} else {
		account.ApplyCredit(input.Amount)
	}

	err = uc.accountRepo.UpdateBalances(ctx, tx, account.ID,
		account.CurrentBalance, account.AvailableBalance, version, now)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return txn, nil
}

// ConsistencyReport summarizes ledger-wide pairing integrity.
type ConsistencyReport struct {
	Consistent     bool  `json:"consistent"`
	Unpaired       int64 `json:"unpaired_inter_entity"`
	PairMismatches int64 `json:"pair_mismatches"`
}

// CheckConsistency verifies that every inter-entity transaction has
// exactly one opposite-direction partner with matching amount and kind.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context) (*ConsistencyReport, error) {
	unpaired, err := uc.ledgerRepo.UnpairedInterEntityCount(ctx)
	if err != nil {
		return nil, err
	}

	mismatched, err := uc.ledgerRepo.PairMismatchCount(ctx)
	if err != nil {
		return nil, err
	}

	return &ConsistencyReport{
		Consistent:     unpaired == 0 && mismatched == 0,
		Unpaired:       unpaired,
		PairMismatches: mismatched,
	}, nil
}

// GetTransaction retrieves one ledger transaction.
func (uc *LedgerUseCase) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return uc.transactionRepo.GetByID(ctx, id)
}

// ListTransactionsByAccount lists an account's ledger history.
func (uc *LedgerUseCase) ListTransactionsByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return uc.transactionRepo.ListByAccount(ctx, accountID, limit, offset)
}

// ListTransactionsByExecution lists the transactions a workflow execution
// produced.
func (uc *LedgerUseCase) ListTransactionsByExecution(ctx context.Context, executionID string) ([]*domain.Transaction, error) {
	return uc.transactionRepo.ListByExecution(ctx, executionID)
}
