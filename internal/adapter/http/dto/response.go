package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/veilflow/veilflow/internal/domain"
)

// EntityResponse represents an entity in API responses.
type EntityResponse struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Type             string     `json:"type"`
	OwnerID          string     `json:"owner_id"`
	EIN              string     `json:"ein,omitempty"`
	StateOfFormation string     `json:"state_of_formation,omitempty"`
	FormationDate    *time.Time `json:"formation_date,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// EntityFromDomain converts domain entity to response.
func EntityFromDomain(e *domain.Entity) *EntityResponse {
	return &EntityResponse{
		ID:               e.ID,
		Name:             e.Name,
		Type:             string(e.Type),
		OwnerID:          e.OwnerID,
		EIN:              e.EIN,
		StateOfFormation: e.StateOfFormation,
		FormationDate:    e.FormationDate,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

// EntitiesFromDomain converts domain entities to responses.
func EntitiesFromDomain(entities []*domain.Entity) []*EntityResponse {
	result := make([]*EntityResponse, len(entities))
	for i, e := range entities {
		result[i] = EntityFromDomain(e)
	}
	return result
}

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID               string          `json:"id"`
	EntityID         string          `json:"entity_id"`
	Name             string          `json:"name"`
	Type             string          `json:"type"`
	CurrentBalance   decimal.Decimal `json:"current_balance"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	Version          int64           `json:"version"`
	Active           bool            `json:"active"`
	InstitutionName  string          `json:"institution_name,omitempty"`
	MaskedNumber     string          `json:"masked_number,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:               a.ID,
		EntityID:         a.EntityID,
		Name:             a.Name,
		Type:             string(a.Type),
		CurrentBalance:   a.CurrentBalance,
		AvailableBalance: a.AvailableBalance,
		Version:          a.Version,
		Active:           a.Active,
		InstitutionName:  a.InstitutionName,
		MaskedNumber:     a.MaskedNumber,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// TransactionResponse represents a ledger transaction in API responses.
type TransactionResponse struct {
	ID              string          `json:"id"`
	EntityID        string          `json:"entity_id"`
	AccountID       string          `json:"account_id"`
	Direction       string          `json:"direction"`
	Amount          decimal.Decimal `json:"amount"`
	OccurredAt      time.Time       `json:"occurred_at"`
	Category        string          `json:"category,omitempty"`
	Description     string          `json:"description,omitempty"`
	IsInterEntity   bool            `json:"is_inter_entity"`
	InterEntityKind string          `json:"inter_entity_kind,omitempty"`
	PairID          *string         `json:"pair_id,omitempty"`
	RelatedEntityID *string         `json:"related_entity_id,omitempty"`
	ExecutionID     *string         `json:"execution_id,omitempty"`
	ImportSource    string          `json:"import_source,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// TransactionFromDomain converts domain transaction to response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:              t.ID,
		EntityID:        t.EntityID,
		AccountID:       t.AccountID,
		Direction:       string(t.Direction),
		Amount:          t.Amount,
		OccurredAt:      t.OccurredAt,
		Category:        t.Category,
		Description:     t.Description,
		IsInterEntity:   t.IsInterEntity,
		InterEntityKind: string(t.InterEntityKind),
		PairID:          t.PairID,
		RelatedEntityID: t.RelatedEntityID,
		ExecutionID:     t.ExecutionID,
		ImportSource:    t.ImportSource,
		CreatedAt:       t.CreatedAt,
	}
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(txns []*domain.Transaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(txns))
	for i, t := range txns {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// TransferResponse represents a committed transfer pair.
type TransferResponse struct {
	Debit  *TransactionResponse `json:"debit"`
	Credit *TransactionResponse `json:"credit"`
}

// TransferFromDomain converts a domain pair to a response.
func TransferFromDomain(p *domain.TransactionPair) *TransferResponse {
	return &TransferResponse{
		Debit:  TransactionFromDomain(p.Debit),
		Credit: TransactionFromDomain(p.Credit),
	}
}

// WorkflowResponse represents a workflow in API responses.
type WorkflowResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	OwnerID        string    `json:"owner_id"`
	Status         string    `json:"status"`
	Version        int       `json:"version"`
	MaxRetries     int       `json:"max_retries"`
	TimeoutSeconds int       `json:"timeout_seconds,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// WorkflowFromDomain converts domain workflow to response.
func WorkflowFromDomain(w *domain.Workflow) *WorkflowResponse {
	return &WorkflowResponse{
		ID:             w.ID,
		Name:           w.Name,
		Description:    w.Description,
		OwnerID:        w.OwnerID,
		Status:         string(w.Status),
		Version:        w.Version,
		MaxRetries:     w.MaxRetries,
		TimeoutSeconds: w.TimeoutSeconds,
		CreatedAt:      w.CreatedAt,
		UpdatedAt:      w.UpdatedAt,
	}
}

// WorkflowsFromDomain converts domain workflows to responses.
func WorkflowsFromDomain(workflows []*domain.Workflow) []*WorkflowResponse {
	result := make([]*WorkflowResponse, len(workflows))
	for i, w := range workflows {
		result[i] = WorkflowFromDomain(w)
	}
	return result
}

// ViolationResponse is one structural rule the graph broke.
type ViolationResponse struct {
	Code    string `json:"code"`
	NodeID  string `json:"node_id,omitempty"`
	Message string `json:"message"`
}

// ValidationErrorResponse carries every violation found in one pass.
type ValidationErrorResponse struct {
	Error      string              `json:"error"`
	Violations []ViolationResponse `json:"violations"`
}

// ViolationsFromDomain converts domain violations to responses.
func ViolationsFromDomain(violations []domain.Violation) []ViolationResponse {
	result := make([]ViolationResponse, len(violations))
	for i, v := range violations {
		result[i] = ViolationResponse{
			Code:    string(v.Code),
			NodeID:  v.NodeID,
			Message: v.Message,
		}
	}
	return result
}

// ExecutionResponse represents an execution in API responses.
type ExecutionResponse struct {
	ID           string                `json:"id"`
	WorkflowID   string                `json:"workflow_id"`
	GraphVersion int                   `json:"graph_version"`
	Status       string                `json:"status"`
	Trigger      domain.TriggerContext `json:"trigger"`
	StartedAt    time.Time             `json:"started_at"`
	CompletedAt  *time.Time            `json:"completed_at,omitempty"`
	Error        string                `json:"error,omitempty"`
}

// ExecutionFromDomain converts domain execution to response.
func ExecutionFromDomain(e *domain.Execution) *ExecutionResponse {
	return &ExecutionResponse{
		ID:           e.ID,
		WorkflowID:   e.WorkflowID,
		GraphVersion: e.GraphVersion,
		Status:       string(e.Status),
		Trigger:      e.Trigger,
		StartedAt:    e.StartedAt,
		CompletedAt:  e.CompletedAt,
		Error:        e.Error,
	}
}

// ExecutionsFromDomain converts domain executions to responses.
func ExecutionsFromDomain(executions []*domain.Execution) []*ExecutionResponse {
	result := make([]*ExecutionResponse, len(executions))
	for i, e := range executions {
		result[i] = ExecutionFromDomain(e)
	}
	return result
}

// NodeOutcomeResponse represents one node evaluation in API responses.
type NodeOutcomeResponse struct {
	NodeID        string          `json:"node_id"`
	Status        string          `json:"status"`
	InputAmount   decimal.Decimal `json:"input_amount"`
	OutputAmount  decimal.Decimal `json:"output_amount"`
	BranchTaken   string          `json:"branch_taken,omitempty"`
	TransactionID *string         `json:"transaction_id,omitempty"`
	Attempts      int             `json:"attempts"`
	Error         string          `json:"error,omitempty"`
	RecordedAt    time.Time       `json:"recorded_at"`
}

// NodeOutcomesFromDomain converts domain outcomes to responses.
func NodeOutcomesFromDomain(outcomes []*domain.NodeOutcome) []*NodeOutcomeResponse {
	result := make([]*NodeOutcomeResponse, len(outcomes))
	for i, o := range outcomes {
		result[i] = &NodeOutcomeResponse{
			NodeID:        o.NodeID,
			Status:        string(o.Status),
			InputAmount:   o.InputAmount,
			OutputAmount:  o.OutputAmount,
			BranchTaken:   o.BranchTaken,
			TransactionID: o.TransactionID,
			Attempts:      o.Attempts,
			Error:         o.Error,
			RecordedAt:    o.RecordedAt,
		}
	}
	return result
}

// AuditLogResponse represents an audit entry in API responses.
type AuditLogResponse struct {
	ID              string         `json:"id"`
	Action          string         `json:"action"`
	EntityID        string         `json:"entity_id,omitempty"`
	EntityName      string         `json:"entity_name,omitempty"`
	RelatedEntityID string         `json:"related_entity_id,omitempty"`
	RelatedName     string         `json:"related_name,omitempty"`
	FromAccountID   string         `json:"from_account_id,omitempty"`
	ToAccountID     string         `json:"to_account_id,omitempty"`
	Amount          string         `json:"amount,omitempty"`
	TransferKind    string         `json:"transfer_kind,omitempty"`
	ExecutionID     *string        `json:"execution_id,omitempty"`
	Detail          map[string]any `json:"detail,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// AuditLogsFromDomain converts domain audit logs to responses.
func AuditLogsFromDomain(logs []*domain.AuditLog) []*AuditLogResponse {
	result := make([]*AuditLogResponse, len(logs))
	for i, l := range logs {
		result[i] = &AuditLogResponse{
			ID:              l.ID,
			Action:          string(l.Action),
			EntityID:        l.EntityID,
			EntityName:      l.EntityName,
			RelatedEntityID: l.RelatedEntityID,
			RelatedName:     l.RelatedName,
			FromAccountID:   l.FromAccountID,
			ToAccountID:     l.ToAccountID,
			Amount:          l.Amount,
			TransferKind:    string(l.TransferKind),
			ExecutionID:     l.ExecutionID,
			Detail:          l.Detail,
			CreatedAt:       l.CreatedAt,
		}
	}
	return result
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
