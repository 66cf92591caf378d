package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExecutionStatus is the state machine of one workflow run. Running is the
// only non-terminal state.
type ExecutionStatus string

const (
	ExecutionStatusRunning         ExecutionStatus = "running"
	ExecutionStatusSucceeded       ExecutionStatus = "succeeded"
	ExecutionStatusFailed          ExecutionStatus = "failed"
	ExecutionStatusPartiallyFailed ExecutionStatus = "partially_failed"
	ExecutionStatusCancelled       ExecutionStatus = "cancelled"
)

// Terminal reports whether the status allows no further transitions.
func (s ExecutionStatus) Terminal() bool {
	return s != ExecutionStatusRunning
}

// TriggerType names what started an execution.
type TriggerType string

const (
	TriggerTypeManual   TriggerType = "manual"
	TriggerTypeSchedule TriggerType = "schedule"
	TriggerTypeEvent    TriggerType = "event"
)

// TriggerContext carries parameters bound by the trigger, e.g. the amount
// of an incoming bank deposit.
type TriggerContext struct {
	Type      TriggerType      `json:"type"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	AccountID string           `json:"account_id,omitempty"`
	FiredAt   time.Time        `json:"fired_at"`
	Payload   map[string]any   `json:"payload,omitempty"`
}

// Execution is one run of a pinned workflow graph version. Immutable once
// terminal.
type Execution struct {
	ID           string
	WorkflowID   string
	GraphVersion int
	Status       ExecutionStatus
	Trigger      TriggerContext
	StartedAt    time.Time
	CompletedAt  *time.Time
	Error        string
}

// NodeStatus is the outcome of one node evaluation.
type NodeStatus string

const (
	NodeStatusSucceeded NodeStatus = "succeeded"
	NodeStatusFailed    NodeStatus = "failed"
	NodeStatusSkipped   NodeStatus = "skipped"
)

// NodeOutcome records what one node did, so a failed run can be diagnosed
// and a crashed run replayed without re-deriving state.
type NodeOutcome struct {
	ExecutionID   string
	NodeID        string
	Status        NodeStatus
	InputAmount   decimal.Decimal
	OutputAmount  decimal.Decimal
	BranchTaken   string
	TransactionID *string
	Attempts      int
	Error         string
	RecordedAt    time.Time
}
