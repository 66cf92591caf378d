package domain

import "errors"

var (
	// Entity errors
	ErrEntityNotFound    = errors.New("entity not found")
	ErrEntityHasAccounts = errors.New("entity still owns accounts")
	ErrInvalidEntityType = errors.New("unknown entity type")

	// Account errors
	ErrAccountNotFound = errors.New("account not found")
	ErrAccountInactive = errors.New("account is inactive")

	// Transfer errors
	ErrSameAccount         = errors.New("cannot transfer to same account")
	ErrInvalidAmount       = errors.New("amount must be positive with at most two decimal places")
	ErrInvalidTransferKind = errors.New("invalid inter-entity transfer kind")
	ErrKindOnSameEntity    = errors.New("same-entity transfer must not carry an inter-entity kind")
	ErrInsufficientFunds   = errors.New("insufficient available balance")
	ErrUnauthorized        = errors.New("caller is not authorized for the owning entity")
	ErrConcurrencyConflict = errors.New("concurrent balance update detected, retry the transfer")
	ErrTransactionNotFound = errors.New("transaction not found")

	// Workflow errors
	ErrWorkflowNotFound  = errors.New("workflow not found")
	ErrGraphNotFound     = errors.New("workflow graph version not found")
	ErrWorkflowNotActive = errors.New("workflow is not active")
	ErrWorkflowNotDraft  = errors.New("workflow is not in draft status")
	ErrGraphInvalid      = errors.New("workflow graph failed validation")

	// Execution errors
	ErrExecutionNotFound = errors.New("execution not found")
	ErrExecutionTerminal = errors.New("execution already reached a terminal status")
	ErrNoSourceAccount   = errors.New("no source account reaches this node")
	ErrNoTargetAccount   = errors.New("no destination account configured for this node")
)

// IsTransient reports whether an error is safe to retry with the same
// idempotency key: the failed attempt left no partial effect.
func IsTransient(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}
