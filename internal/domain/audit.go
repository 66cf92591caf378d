package domain

import "time"

// AuditAction names what an audit entry documents.
type AuditAction string

const (
	AuditActionInterEntityTransfer AuditAction = "transfer.inter_entity"
	AuditActionExecutionFinished   AuditAction = "execution.finished"
)

// AuditLog is one append-only entry of the non-repudiable trail. Every
// inter-entity transfer and every terminal workflow execution produces one.
type AuditLog struct {
	ID              string
	Action          AuditAction
	EntityID        string
	EntityName      string
	RelatedEntityID string
	RelatedName     string
	FromAccountID   string
	ToAccountID     string
	Amount          string
	TransferKind    TransferKind
	ExecutionID     *string
	Detail          map[string]any
	CreatedAt       time.Time
}

// AuditFilter narrows audit queries for reporting consumers.
type AuditFilter struct {
	EntityID  string
	Action    AuditAction
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}
