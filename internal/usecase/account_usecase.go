package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/veilflow/veilflow/internal/domain"
)

// AccountUseCase manages the entity/account registry. It never mutates
// balances directly; that is the ledger's job.
type AccountUseCase struct {
	entityRepo  EntityRepository
	accountRepo AccountRepository
	idGen       IDGenerator
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(entityRepo EntityRepository, accountRepo AccountRepository, idGen IDGenerator) *AccountUseCase {
	return &AccountUseCase{
		entityRepo:  entityRepo,
		accountRepo: accountRepo,
		idGen:       idGen,
	}
}

// CreateEntityInput represents input for creating an entity.
type CreateEntityInput struct {
	OwnerID          string
	Name             string
	Type             domain.EntityType
	EIN              string
	StateOfFormation string
	FormationDate    *time.Time
}

// CreateEntity registers a new legal actor.
func (uc *AccountUseCase) CreateEntity(ctx context.Context, input CreateEntityInput) (*domain.Entity, error) {
	if !input.Type.Valid() {
		return nil, domain.ErrInvalidEntityType
	}

	now := time.Now().UTC()
	entity := &domain.Entity{
		ID:               uc.idGen.Generate(),
		Name:             input.Name,
		Type:             input.Type,
		OwnerID:          input.OwnerID,
		EIN:              input.EIN,
		StateOfFormation: input.StateOfFormation,
		FormationDate:    input.FormationDate,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := uc.entityRepo.Create(ctx, entity); err != nil {
		return nil, err
	}

	return entity, nil
}

// GetEntity retrieves an entity by ID.
func (uc *AccountUseCase) GetEntity(ctx context.Context, id string) (*domain.Entity, error) {
	return uc.entityRepo.GetByID(ctx, id)
}

// ListEntities lists entities owned by a user.
func (uc *AccountUseCase) ListEntities(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Entity, error) {
	if limit <= 0 {
		limit = 20
	}
	return uc.entityRepo.List(ctx, ownerID, limit, offset)
}

// DeleteEntity removes an entity that no longer owns accounts.
func (uc *AccountUseCase) DeleteEntity(ctx context.Context, id string) error {
	count, err := uc.entityRepo.CountAccounts(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return domain.ErrEntityHasAccounts
	}

	return uc.entityRepo.Delete(ctx, id)
}

// CreateAccountInput represents input for creating an account.
type CreateAccountInput struct {
	EntityID        string
	Name            string
	Type            domain.AccountType
	OpeningBalance  decimal.Decimal
	InstitutionName string
	MaskedNumber    string
}

// CreateAccount opens a new account under an entity. The opening balance
// seeds both current and available balances.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	if _, err := uc.entityRepo.GetByID(ctx, input.EntityID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:               uc.idGen.Generate(),
		EntityID:         input.EntityID,
		Name:             input.Name,
		Type:             input.Type,
		CurrentBalance:   input.OpeningBalance,
		AvailableBalance: input.OpeningBalance,
		Active:           true,
		InstitutionName:  input.InstitutionName,
		MaskedNumber:     input.MaskedNumber,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := uc.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}

	return account, nil
}

// GetAccount retrieves an account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return uc.accountRepo.GetByID(ctx, id)
}

// ListAccounts lists an entity's accounts.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, entityID string, limit, offset int) ([]*domain.Account, error) {
	if limit <= 0 {
		limit = 20
	}
	return uc.accountRepo.ListByEntity(ctx, entityID, limit, offset)
}

// SetAccountActive toggles whether the ledger will accept transfers
// touching the account.
func (uc *AccountUseCase) SetAccountActive(ctx context.Context, id string, active bool) error {
	if _, err := uc.accountRepo.GetByID(ctx, id); err != nil {
		return err
	}
	return uc.accountRepo.SetActive(ctx, id, active)
}
