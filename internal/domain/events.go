package domain

import "time"

// Event types published through the outbox.
const (
	EventTypeTransferCreated   = "transfer.created"
	EventTypeExecutionFinished = "execution.finished"
)

// Aggregate types
const (
	AggregateTypeTransfer  = "transfer"
	AggregateTypeExecution = "execution"
)

// OutboxEvent is written in the same database transaction as the change it
// describes and published asynchronously.
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// TransferCreatedEvent payload
type TransferCreatedEvent struct {
	DebitTransactionID  string `json:"debit_transaction_id"`
	CreditTransactionID string `json:"credit_transaction_id"`
	FromAccountID       string `json:"from_account_id"`
	ToAccountID         string `json:"to_account_id"`
	Amount              string `json:"amount"`
	InterEntity         bool   `json:"inter_entity"`
	Kind                string `json:"kind,omitempty"`
}

// ExecutionFinishedEvent payload
type ExecutionFinishedEvent struct {
	ExecutionID  string `json:"execution_id"`
	WorkflowID   string `json:"workflow_id"`
	GraphVersion int    `json:"graph_version"`
	Status       string `json:"status"`
}
