package domain

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
)

// ViolationCode identifies a structural rule a graph broke.
type ViolationCode string

const (
	ViolationUnknownNode     ViolationCode = "unknown_node"
	ViolationParamsMismatch  ViolationCode = "params_mismatch"
	ViolationCycle           ViolationCode = "cycle"
	ViolationMissingIncoming ViolationCode = "missing_incoming"
	ViolationMissingOutgoing ViolationCode = "missing_outgoing"
	ViolationBranchLabel     ViolationCode = "missing_branch_label"
	ViolationMalformedSplit  ViolationCode = "malformed_split"
	ViolationMalformedCron   ViolationCode = "malformed_schedule"
	ViolationMergeDegree     ViolationCode = "merge_degree"
)

// Violation is one specific reason a graph may not become active.
type Violation struct {
	Code    ViolationCode `json:"code"`
	NodeID  string        `json:"node_id,omitempty"`
	Message string        `json:"message"`
}

func (v Violation) Error() string {
	if v.NodeID != "" {
		return fmt.Sprintf("%s (node %s): %s", v.Code, v.NodeID, v.Message)
	}
	return fmt.Sprintf("%s: %s", v.Code, v.Message)
}

// splitPercentTolerance bounds rounding slack when percent shares are
// required to cover the whole incoming amount.
var splitPercentTolerance = decimal.NewFromFloat(0.01)

var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// Validate checks every structural rule a graph must satisfy before it is
// allowed to run. It returns the full list of violations so the owner can
// fix them in one pass; an empty result means the graph is valid.
func (g *Graph) Validate() []Violation {
	var violations []Violation

	nodeIDs := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		nodeIDs[n.ID] = true
	}

	for _, e := range g.Edges {
		if !nodeIDs[e.From] {
			violations = append(violations, Violation{
				Code:    ViolationUnknownNode,
				Message: fmt.Sprintf("edge references unknown node %q", e.From),
			})
		}
		if !nodeIDs[e.To] {
			violations = append(violations, Violation{
				Code:    ViolationUnknownNode,
				Message: fmt.Sprintf("edge references unknown node %q", e.To),
			})
		}
	}

	for i := range g.Nodes {
		violations = append(violations, g.validateNode(&g.Nodes[i])...)
	}

	if cycleNode, ok := g.findCycle(); ok {
		violations = append(violations, Violation{
			Code:    ViolationCycle,
			NodeID:  cycleNode,
			Message: "graph contains a directed cycle",
		})
	}

	return violations
}

func (g *Graph) validateNode(n *Node) []Violation {
	var violations []Violation

	if v, ok := checkParams(n); !ok {
		violations = append(violations, v)
		return violations
	}

	in := g.Incoming(n.ID)
	out := g.Outgoing(n.ID)

	switch n.Kind {
	case NodeKindSource:
		// Sources start flow; no incoming edges required.
	case NodeKindSchedule:
		if len(in) > 0 {
			violations = append(violations, Violation{
				Code:    ViolationMissingIncoming,
				NodeID:  n.ID,
				Message: "schedule nodes may only start control flow",
			})
		}
		if _, err := cronParser.Parse(n.Schedule.Cron); err != nil {
			violations = append(violations, Violation{
				Code:    ViolationMalformedCron,
				NodeID:  n.ID,
				Message: fmt.Sprintf("invalid cron expression %q: %v", n.Schedule.Cron, err),
			})
		}
		if _, err := time.LoadLocation(n.Schedule.Timezone); err != nil {
			violations = append(violations, Violation{
				Code:    ViolationMalformedCron,
				NodeID:  n.ID,
				Message: fmt.Sprintf("invalid timezone %q", n.Schedule.Timezone),
			})
		}
	default:
		if len(in) == 0 {
			violations = append(violations, Violation{
				Code:    ViolationMissingIncoming,
				NodeID:  n.ID,
				Message: "node has no incoming edge",
			})
		}
	}

	// Destinations and actions may be terminal leaves; everything else
	// must keep the flow moving in a multi-node graph.
	if len(g.Nodes) > 1 && len(out) == 0 &&
		n.Kind != NodeKindDestination && n.Kind != NodeKindAction {
		violations = append(violations, Violation{
			Code:    ViolationMissingOutgoing,
			NodeID:  n.ID,
			Message: "node has no outgoing edge",
		})
	}

	switch n.Kind {
	case NodeKindCondition:
		violations = append(violations, g.validateConditionEdges(n, out)...)
	case NodeKindSplit:
		violations = append(violations, g.validateSplit(n, out)...)
	case NodeKindMerge:
		if len(in) < 2 {
			violations = append(violations, Violation{
				Code:    ViolationMergeDegree,
				NodeID:  n.ID,
				Message: fmt.Sprintf("merge node requires at least two incoming edges, found %d", len(in)),
			})
		}
	}

	return violations
}

func (g *Graph) validateConditionEdges(n *Node, out []Edge) []Violation {
	var violations []Violation

	labels := make(map[string]int)
	for _, e := range out {
		labels[e.Label]++
	}

	if len(out) != 2 || labels[BranchTrue] != 1 || labels[BranchFalse] != 1 {
		violations = append(violations, Violation{
			Code:    ViolationBranchLabel,
			NodeID:  n.ID,
			Message: `condition nodes require exactly two outgoing edges labeled "true" and "false"`,
		})
	}

	return violations
}

func (g *Graph) validateSplit(n *Node, out []Edge) []Violation {
	var violations []Violation

	bad := func(msg string) {
		violations = append(violations, Violation{
			Code:    ViolationMalformedSplit,
			NodeID:  n.ID,
			Message: msg,
		})
	}

	branches := n.Split.Branches
	if len(branches) == 0 {
		bad("split node has no branches")
		return violations
	}

	targets := make(map[string]bool, len(out))
	for _, e := range out {
		targets[e.To] = true
	}

	remainders := 0
	fixed := 0
	percentTotal := decimal.Zero
	percents := 0

	for _, b := range branches {
		if !targets[b.Target] {
			bad(fmt.Sprintf("branch targets %q which is not an outgoing edge", b.Target))
		}

		set := 0
		if b.Percent != nil {
			set++
		}
		if b.Amount != nil {
			set++
		}
		if b.Remainder {
			set++
		}
		if set != 1 {
			bad(fmt.Sprintf("branch %q must set exactly one of percent, amount, remainder", b.Target))
			continue
		}

		switch {
		case b.Percent != nil:
			percents++
			if b.Percent.LessThanOrEqual(decimal.Zero) || b.Percent.GreaterThan(decimal.NewFromInt(100)) {
				bad(fmt.Sprintf("branch %q percent share must be in (0, 100]", b.Target))
			}
			percentTotal = percentTotal.Add(*b.Percent)
		case b.Amount != nil:
			fixed++
			if b.Amount.LessThanOrEqual(decimal.Zero) {
				bad(fmt.Sprintf("branch %q fixed amount must be positive", b.Target))
			}
		case b.Remainder:
			remainders++
		}
	}

	if remainders > 1 {
		bad("split node declares more than one remainder branch")
	}

	if len(branches) != len(out) {
		bad(fmt.Sprintf("split declares %d branches but has %d outgoing edges", len(branches), len(out)))
	}

	hundred := decimal.NewFromInt(100)
	if percents > 0 {
		if percentTotal.Sub(hundred).GreaterThan(splitPercentTolerance) {
			bad(fmt.Sprintf("percent shares sum to %s%%, exceeding 100%%", percentTotal))
		}
		// Without a remainder or fixed branch the percents must cover
		// the whole incoming amount.
		if remainders == 0 && fixed == 0 &&
			percentTotal.Sub(hundred).Abs().GreaterThan(splitPercentTolerance) {
			bad(fmt.Sprintf("percent shares sum to %s%%, expected 100%%", percentTotal))
		}
	}

	return violations
}

// findCycle runs a depth-first traversal tracking the recursion stack and
// returns a node on the first cycle found.
func (g *Graph) findCycle() (string, bool) {
	const (
		unvisited = 0
		onStack   = 1
		done      = 2
	)

	state := make(map[string]int, len(g.Nodes))

	var visit func(id string) (string, bool)
	visit = func(id string) (string, bool) {
		state[id] = onStack
		for _, e := range g.Outgoing(id) {
			switch state[e.To] {
			case onStack:
				return e.To, true
			case unvisited:
				if n, found := visit(e.To); found {
					return n, true
				}
			}
		}
		state[id] = done
		return "", false
	}

	for _, n := range g.Nodes {
		if state[n.ID] == unvisited {
			if id, found := visit(n.ID); found {
				return id, true
			}
		}
	}

	return "", false
}

// checkParams verifies that exactly the params variant matching the node
// kind is populated.
func checkParams(n *Node) (Violation, bool) {
	mismatch := func(msg string) (Violation, bool) {
		return Violation{Code: ViolationParamsMismatch, NodeID: n.ID, Message: msg}, false
	}

	set := 0
	for _, present := range []bool{
		n.Source != nil, n.Destination != nil, n.Condition != nil,
		n.Action != nil, n.Schedule != nil, n.Split != nil, n.Merge != nil,
	} {
		if present {
			set++
		}
	}
	if set > 1 {
		return mismatch("node carries params for more than one kind")
	}

	switch n.Kind {
	case NodeKindSource:
		if n.Source == nil || n.Source.AccountID == "" {
			return mismatch("source node requires an account_id")
		}
	case NodeKindDestination:
		if n.Destination == nil || n.Destination.AccountID == "" {
			return mismatch("destination node requires an account_id")
		}
	case NodeKindCondition:
		if n.Condition == nil {
			return mismatch("condition node requires predicate params")
		}
		if v, ok := checkPredicate(n); !ok {
			return v, false
		}
	case NodeKindAction:
		if n.Action == nil {
			return mismatch("action node requires params")
		}
		if n.Action.Kind != KindNone && !n.Action.Kind.Valid() {
			return mismatch(fmt.Sprintf("unknown transfer kind %q", n.Action.Kind))
		}
		if n.Action.Amount != nil && ValidateAmount(*n.Action.Amount) != nil {
			return mismatch("action amount must be positive with at most two decimal places")
		}
	case NodeKindSchedule:
		if n.Schedule == nil {
			return mismatch("schedule node requires a cron spec")
		}
	case NodeKindSplit:
		if n.Split == nil {
			return mismatch("split node requires branches")
		}
	case NodeKindMerge:
		if n.Merge == nil {
			return mismatch("merge node requires params")
		}
	default:
		return mismatch(fmt.Sprintf("unknown node kind %q", n.Kind))
	}

	return Violation{}, true
}

func checkPredicate(n *Node) (Violation, bool) {
	p := n.Condition

	mismatch := func(msg string) (Violation, bool) {
		return Violation{Code: ViolationParamsMismatch, NodeID: n.ID, Message: msg}, false
	}

	switch p.Subject {
	case SubjectBalance, SubjectAvailableBalance:
		if p.AccountID == "" {
			return mismatch("balance predicates require an account_id")
		}
	case SubjectTriggerAmount, SubjectDayOfMonth:
	default:
		return mismatch(fmt.Sprintf("unknown predicate subject %q", p.Subject))
	}

	switch p.Operator {
	case OpGreaterThan, OpGreaterThanEqual, OpLessThan, OpLessThanEqual, OpEqual:
	default:
		return mismatch(fmt.Sprintf("unknown predicate operator %q", p.Operator))
	}

	return Violation{}, true
}
