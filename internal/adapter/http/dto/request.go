package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/veilflow/veilflow/internal/domain"
	"github.com/veilflow/veilflow/internal/usecase"
)

// CreateEntityRequest represents a request to register an entity.
type CreateEntityRequest struct {
	Name             string     `json:"name"`
	Type             string     `json:"type"`
	EIN              string     `json:"ein,omitempty"`
	StateOfFormation string     `json:"state_of_formation,omitempty"`
	FormationDate    *time.Time `json:"formation_date,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateEntityRequest) ToUseCaseInput(ownerID string) usecase.CreateEntityInput {
	return usecase.CreateEntityInput{
		OwnerID:          ownerID,
		Name:             r.Name,
		Type:             domain.EntityType(r.Type),
		EIN:              r.EIN,
		StateOfFormation: r.StateOfFormation,
		FormationDate:    r.FormationDate,
	}
}

// CreateAccountRequest represents a request to open an account.
type CreateAccountRequest struct {
	EntityID        string          `json:"entity_id"`
	Name            string          `json:"name"`
	Type            string          `json:"type"`
	OpeningBalance  decimal.Decimal `json:"opening_balance"`
	InstitutionName string          `json:"institution_name,omitempty"`
	MaskedNumber    string          `json:"masked_number,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput() usecase.CreateAccountInput {
	return usecase.CreateAccountInput{
		EntityID:        r.EntityID,
		Name:            r.Name,
		Type:            domain.AccountType(r.Type),
		OpeningBalance:  r.OpeningBalance,
		InstitutionName: r.InstitutionName,
		MaskedNumber:    r.MaskedNumber,
	}
}

// SetAccountActiveRequest toggles an account's active flag.
type SetAccountActiveRequest struct {
	Active bool `json:"active"`
}

// CreateTransferRequest represents a request to move money.
type CreateTransferRequest struct {
	FromAccountID  string          `json:"from_account_id"`
	ToAccountID    string          `json:"to_account_id"`
	Amount         decimal.Decimal `json:"amount"`
	Kind           string          `json:"kind,omitempty"`
	Description    string          `json:"description,omitempty"`
	Category       string          `json:"category,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateTransferRequest) ToUseCaseInput(actorID string) usecase.TransferInput {
	return usecase.TransferInput{
		ActorID:        actorID,
		FromAccountID:  r.FromAccountID,
		ToAccountID:    r.ToAccountID,
		Amount:         r.Amount,
		Kind:           domain.TransferKind(r.Kind),
		Description:    r.Description,
		Category:       r.Category,
		IdempotencyKey: r.IdempotencyKey,
	}
}

// ImportTransactionRequest records a bank-originated transaction.
type ImportTransactionRequest struct {
	AccountID   string          `json:"account_id"`
	Direction   string          `json:"direction"`
	Amount      decimal.Decimal `json:"amount"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Category    string          `json:"category,omitempty"`
	Description string          `json:"description,omitempty"`
	Source      string          `json:"source"`
}

// ToUseCaseInput converts to use case input.
func (r *ImportTransactionRequest) ToUseCaseInput(actorID string) usecase.ImportExternalInput {
	return usecase.ImportExternalInput{
		ActorID:     actorID,
		AccountID:   r.AccountID,
		Direction:   domain.Direction(r.Direction),
		Amount:      r.Amount,
		OccurredAt:  r.OccurredAt,
		Category:    r.Category,
		Description: r.Description,
		Source:      r.Source,
	}
}

// CreateWorkflowRequest represents a request to create a workflow.
type CreateWorkflowRequest struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	MaxRetries  int           `json:"max_retries,omitempty"`
	Nodes       []domain.Node `json:"nodes"`
	Edges       []domain.Edge `json:"edges"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateWorkflowRequest) ToUseCaseInput(ownerID string) usecase.CreateWorkflowInput {
	return usecase.CreateWorkflowInput{
		OwnerID:     ownerID,
		Name:        r.Name,
		Description: r.Description,
		MaxRetries:  r.MaxRetries,
		Nodes:       r.Nodes,
		Edges:       r.Edges,
	}
}

// UpdateGraphRequest replaces a workflow's graph with a new version.
type UpdateGraphRequest struct {
	Nodes []domain.Node `json:"nodes"`
	Edges []domain.Edge `json:"edges"`
}

// TriggerExecutionRequest starts a manual execution.
type TriggerExecutionRequest struct {
	GraphVersion int              `json:"graph_version,omitempty"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	AccountID    string           `json:"account_id,omitempty"`
	Payload      map[string]any   `json:"payload,omitempty"`
}

// ToTrigger converts to a trigger context.
func (r *TriggerExecutionRequest) ToTrigger() domain.TriggerContext {
	return domain.TriggerContext{
		Type:      domain.TriggerTypeManual,
		Amount:    r.Amount,
		AccountID: r.AccountID,
		Payload:   r.Payload,
	}
}
