package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WorkflowStatus is the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusDraft    WorkflowStatus = "draft"
	WorkflowStatusActive   WorkflowStatus = "active"
	WorkflowStatusPaused   WorkflowStatus = "paused"
	WorkflowStatusArchived WorkflowStatus = "archived"
)

// NodeKind tags the variant of a workflow node.
type NodeKind string

const (
	NodeKindSource      NodeKind = "source"
	NodeKindDestination NodeKind = "destination"
	NodeKindCondition   NodeKind = "condition"
	NodeKindAction      NodeKind = "action"
	NodeKindSchedule    NodeKind = "schedule"
	NodeKindSplit       NodeKind = "split"
	NodeKindMerge       NodeKind = "merge"
)

// Edge labels used by condition branches.
const (
	BranchTrue  = "true"
	BranchFalse = "false"
)

// Workflow is a user-owned automation. Executions pin a graph version so
// in-flight runs are unaffected by concurrent edits.
type Workflow struct {
	ID             string
	Name           string
	Description    string
	OwnerID        string
	Status         WorkflowStatus
	Version        int
	MaxRetries     int
	TimeoutSeconds int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Graph is one immutable version of a workflow's node/edge document.
type Graph struct {
	WorkflowID string `json:"workflow_id"`
	Version    int    `json:"version"`
	Nodes      []Node `json:"nodes"`
	Edges      []Edge `json:"edges"`
}

// Edge connects two nodes. Label is set only on condition branches.
type Edge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

// Node is a tagged union: exactly the params struct matching Kind is set.
// Keeping one field per variant lets the engine dispatch with an
// exhaustive switch instead of open-ended dynamic dispatch.
type Node struct {
	ID   string   `json:"id"`
	Kind NodeKind `json:"kind"`
	Name string   `json:"name"`

	Source      *SourceParams      `json:"source,omitempty"`
	Destination *DestinationParams `json:"destination,omitempty"`
	Condition   *ConditionParams   `json:"condition,omitempty"`
	Action      *ActionParams      `json:"action,omitempty"`
	Schedule    *ScheduleParams    `json:"schedule,omitempty"`
	Split       *SplitParams       `json:"split,omitempty"`
	Merge       *MergeParams       `json:"merge,omitempty"`
}

// SourceParams binds a node to the account money flows out of.
type SourceParams struct {
	AccountID string `json:"account_id"`
}

// DestinationParams binds a node to the account money flows into.
type DestinationParams struct {
	AccountID string `json:"account_id"`
}

// PredicateSubject selects what a condition compares.
type PredicateSubject string

const (
	SubjectBalance          PredicateSubject = "balance"
	SubjectAvailableBalance PredicateSubject = "available_balance"
	SubjectTriggerAmount    PredicateSubject = "trigger_amount"
	SubjectDayOfMonth       PredicateSubject = "day_of_month"
)

// PredicateOperator compares the subject against Value.
type PredicateOperator string

const (
	OpGreaterThan      PredicateOperator = "gt"
	OpGreaterThanEqual PredicateOperator = "gte"
	OpLessThan         PredicateOperator = "lt"
	OpLessThanEqual    PredicateOperator = "lte"
	OpEqual            PredicateOperator = "eq"
)

// ConditionParams routes flow to exactly one of two labeled branches.
type ConditionParams struct {
	Subject   PredicateSubject  `json:"subject"`
	AccountID string            `json:"account_id,omitempty"`
	Operator  PredicateOperator `json:"operator"`
	Value     decimal.Decimal   `json:"value"`
}

// ActionParams describes a monetary effect. Amount nil means "use the
// incoming flow amount". ToAccountID overrides resolution through a
// downstream destination node; Kind is required only across entities.
type ActionParams struct {
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Kind        TransferKind     `json:"kind,omitempty"`
	Description string           `json:"description,omitempty"`
	Category    string           `json:"category,omitempty"`
	ToAccountID string           `json:"to_account_id,omitempty"`
}

// ScheduleParams is the trigger specification for scheduled workflows.
type ScheduleParams struct {
	Cron     string `json:"cron"`
	Timezone string `json:"timezone"`
}

// SplitBranch is one (target, share) pair of a split node. Exactly one of
// Percent, Amount, or Remainder is set.
type SplitBranch struct {
	Target    string           `json:"target"`
	Percent   *decimal.Decimal `json:"percent,omitempty"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	Remainder bool             `json:"remainder,omitempty"`
}

// SplitParams fans the incoming amount out across the node's branches.
type SplitParams struct {
	Branches []SplitBranch `json:"branches"`
}

// MergeParams marks a join point; the merge degree comes from the edges.
type MergeParams struct{}

// NodeByID returns the node with the given id, or nil.
func (g *Graph) NodeByID(id string) *Node {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

// Incoming returns the edges pointing at node id.
func (g *Graph) Incoming(id string) []Edge {
	var edges []Edge
	for _, e := range g.Edges {
		if e.To == id {
			edges = append(edges, e)
		}
	}
	return edges
}

// Outgoing returns the edges leaving node id.
func (g *Graph) Outgoing(id string) []Edge {
	var edges []Edge
	for _, e := range g.Edges {
		if e.From == id {
			edges = append(edges, e)
		}
	}
	return edges
}
