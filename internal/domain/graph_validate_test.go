package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func linearGraph() *Graph {
	return &Graph{
		Nodes: []Node{
			{ID: "src", Kind: NodeKindSource, Source: &SourceParams{AccountID: "acc-1"}},
			{ID: "pay", Kind: NodeKindAction, Action: &ActionParams{}},
			{ID: "dst", Kind: NodeKindDestination, Destination: &DestinationParams{AccountID: "acc-2"}},
		},
		Edges: []Edge{
			{From: "src", To: "pay"},
			{From: "pay", To: "dst"},
		},
	}
}

func TestGraph_Validate_Valid(t *testing.T) {
	if violations := linearGraph().Validate(); len(violations) != 0 {
		t.Errorf("expected no violations, got %v", violations)
	}
}

func TestGraph_Validate_Structural(t *testing.T) {
	tests := []struct {
		name       string
		graph      *Graph
		expectCode ViolationCode
	}{
		{
			name: "edge to unknown node",
			graph: &Graph{
				Nodes: []Node{
					{ID: "src", Kind: NodeKindSource, Source: &SourceParams{AccountID: "acc-1"}},
				},
				Edges: []Edge{{From: "src", To: "ghost"}},
			},
			expectCode: ViolationUnknownNode,
		},
		{
			name: "cycle",
			graph: &Graph{
				Nodes: []Node{
					{ID: "src", Kind: NodeKindSource, Source: &SourceParams{AccountID: "acc-1"}},
					{ID: "a", Kind: NodeKindAction, Action: &ActionParams{}},
					{ID: "b", Kind: NodeKindAction, Action: &ActionParams{}},
				},
				Edges: []Edge{
					{From: "src", To: "a"},
					{From: "a", To: "b"},
					{From: "b", To: "a"},
				},
			},
			expectCode: ViolationCycle,
		},
		{
			name: "non-source without incoming edge",
			graph: &Graph{
				Nodes: []Node{
					{ID: "src", Kind: NodeKindSource, Source: &SourceParams{AccountID: "acc-1"}},
					{ID: "pay", Kind: NodeKindAction, Action: &ActionParams{}},
					{ID: "orphan", Kind: NodeKindDestination, Destination: &DestinationParams{AccountID: "acc-2"}},
				},
				Edges: []Edge{{From: "src", To: "pay"}},
			},
			expectCode: ViolationMissingIncoming,
		},
		{
			name: "source without outgoing edge in multi-node graph",
			graph: &Graph{
				Nodes: []Node{
					{ID: "src", Kind: NodeKindSource, Source: &SourceParams{AccountID: "acc-1"}},
					{ID: "src2", Kind: NodeKindSource, Source: &SourceParams{AccountID: "acc-2"}},
					{ID: "pay", Kind: NodeKindAction, Action: &ActionParams{}},
				},
				Edges: []Edge{{From: "src", To: "pay"}},
			},
			expectCode: ViolationMissingOutgoing,
		},
		{
			name: "source missing account id",
			graph: &Graph{
				Nodes: []Node{{ID: "src", Kind: NodeKindSource, Source: &SourceParams{}}},
			},
			expectCode: ViolationParamsMismatch,
		},
		{
			name: "node carries params for two kinds",
			graph: &Graph{
				Nodes: []Node{{
					ID:     "src",
					Kind:   NodeKindSource,
					Source: &SourceParams{AccountID: "acc-1"},
					Split:  &SplitParams{},
				}},
			},
			expectCode: ViolationParamsMismatch,
		},
		{
			name: "unknown node kind",
			graph: &Graph{
				Nodes: []Node{{ID: "x", Kind: "teleport"}},
			},
			expectCode: ViolationParamsMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations := tt.graph.Validate()
			if !hasViolation(violations, tt.expectCode) {
				t.Errorf("expected violation %s, got %v", tt.expectCode, violations)
			}
		})
	}
}

func TestGraph_Validate_ConditionBranches(t *testing.T) {
	condition := &ConditionParams{
		Subject:  SubjectTriggerAmount,
		Operator: OpGreaterThan,
		Value:    dec("1000"),
	}

	base := func(edges []Edge) *Graph {
		return &Graph{
			Nodes: []Node{
				{ID: "src", Kind: NodeKindSource, Source: &SourceParams{AccountID: "acc-1"}},
				{ID: "if", Kind: NodeKindCondition, Condition: condition},
				{ID: "a", Kind: NodeKindAction, Action: &ActionParams{ToAccountID: "acc-2"}},
				{ID: "b", Kind: NodeKindAction, Action: &ActionParams{ToAccountID: "acc-3"}},
			},
			Edges: append([]Edge{{From: "src", To: "if"}}, edges...),
		}
	}

	valid := base([]Edge{
		{From: "if", To: "a", Label: BranchTrue},
		{From: "if", To: "b", Label: BranchFalse},
	})
	if violations := valid.Validate(); len(violations) != 0 {
		t.Errorf("expected no violations, got %v", violations)
	}

	tests := []struct {
		name  string
		edges []Edge
	}{
		{
			name: "unlabeled branch",
			edges: []Edge{
				{From: "if", To: "a", Label: BranchTrue},
				{From: "if", To: "b"},
			},
		},
		{
			name: "duplicate label",
			edges: []Edge{
				{From: "if", To: "a", Label: BranchTrue},
				{From: "if", To: "b", Label: BranchTrue},
			},
		},
		{
			name: "single branch",
			edges: []Edge{
				{From: "if", To: "a", Label: BranchTrue},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations := base(tt.edges).Validate()
			if !hasViolation(violations, ViolationBranchLabel) {
				t.Errorf("expected violation %s, got %v", ViolationBranchLabel, violations)
			}
		})
	}
}

func TestGraph_Validate_Split(t *testing.T) {
	base := func(branches []SplitBranch, targets ...string) *Graph {
		nodes := []Node{
			{ID: "src", Kind: NodeKindSource, Source: &SourceParams{AccountID: "acc-1"}},
			{ID: "fan", Kind: NodeKindSplit, Split: &SplitParams{Branches: branches}},
		}
		edges := []Edge{{From: "src", To: "fan"}}
		for _, target := range targets {
			nodes = append(nodes, Node{ID: target, Kind: NodeKindAction, Action: &ActionParams{ToAccountID: "acc-x"}})
			edges = append(edges, Edge{From: "fan", To: target})
		}
		return &Graph{Nodes: nodes, Edges: edges}
	}

	tests := []struct {
		name     string
		graph    *Graph
		expectOK bool
	}{
		{
			name: "percents summing to 100",
			graph: base([]SplitBranch{
				{Target: "a", Percent: decPtr("60")},
				{Target: "b", Percent: decPtr("40")},
			}, "a", "b"),
			expectOK: true,
		},
		{
			name: "percents summing over 100",
			graph: base([]SplitBranch{
				{Target: "a", Percent: decPtr("60")},
				{Target: "b", Percent: decPtr("50")},
			}, "a", "b"),
		},
		{
			name: "percents under 100 with no remainder",
			graph: base([]SplitBranch{
				{Target: "a", Percent: decPtr("60")},
				{Target: "b", Percent: decPtr("30")},
			}, "a", "b"),
		},
		{
			name: "percents under 100 with remainder",
			graph: base([]SplitBranch{
				{Target: "a", Percent: decPtr("60")},
				{Target: "b", Remainder: true},
			}, "a", "b"),
			expectOK: true,
		},
		{
			name: "two remainder branches",
			graph: base([]SplitBranch{
				{Target: "a", Remainder: true},
				{Target: "b", Remainder: true},
			}, "a", "b"),
		},
		{
			name: "branch sets both percent and amount",
			graph: base([]SplitBranch{
				{Target: "a", Percent: decPtr("50"), Amount: decPtr("10")},
				{Target: "b", Remainder: true},
			}, "a", "b"),
		},
		{
			name: "branch targets node with no outgoing edge",
			graph: base([]SplitBranch{
				{Target: "a", Percent: decPtr("50")},
				{Target: "nowhere", Percent: decPtr("50")},
			}, "a"),
		},
		{
			name: "negative fixed amount",
			graph: base([]SplitBranch{
				{Target: "a", Amount: decPtr("-5")},
				{Target: "b", Remainder: true},
			}, "a", "b"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations := tt.graph.Validate()
			if tt.expectOK && len(violations) != 0 {
				t.Errorf("expected no violations, got %v", violations)
			}
			if !tt.expectOK && !hasViolation(violations, ViolationMalformedSplit) {
				t.Errorf("expected violation %s, got %v", ViolationMalformedSplit, violations)
			}
		})
	}
}

func TestGraph_Validate_Schedule(t *testing.T) {
	base := func(cron, tz string) *Graph {
		return &Graph{
			Nodes: []Node{
				{ID: "tick", Kind: NodeKindSchedule, Schedule: &ScheduleParams{Cron: cron, Timezone: tz}},
				{ID: "pay", Kind: NodeKindAction, Action: &ActionParams{
					Amount:      decPtr("100"),
					ToAccountID: "acc-2",
				}},
			},
			Edges: []Edge{{From: "tick", To: "pay"}},
		}
	}

	if violations := base("0 9 1 * *", "America/New_York").Validate(); len(violations) != 0 {
		t.Errorf("expected no violations, got %v", violations)
	}

	if violations := base("not a cron", "America/New_York").Validate(); !hasViolation(violations, ViolationMalformedCron) {
		t.Errorf("expected violation %s, got %v", ViolationMalformedCron, violations)
	}

	if violations := base("0 9 1 * *", "Mars/Olympus").Validate(); !hasViolation(violations, ViolationMalformedCron) {
		t.Errorf("expected violation %s, got %v", ViolationMalformedCron, violations)
	}

	withIncoming := base("0 9 1 * *", "UTC")
	withIncoming.Edges = append(withIncoming.Edges, Edge{From: "pay", To: "tick"})
	if violations := withIncoming.Validate(); !hasViolation(violations, ViolationMissingIncoming) {
		t.Errorf("expected violation %s, got %v", ViolationMissingIncoming, violations)
	}
}

func TestGraph_Validate_MergeDegree(t *testing.T) {
	g := &Graph{
		Nodes: []Node{
			{ID: "src", Kind: NodeKindSource, Source: &SourceParams{AccountID: "acc-1"}},
			{ID: "join", Kind: NodeKindMerge, Merge: &MergeParams{}},
			{ID: "dst", Kind: NodeKindDestination, Destination: &DestinationParams{AccountID: "acc-2"}},
		},
		Edges: []Edge{
			{From: "src", To: "join"},
			{From: "join", To: "dst"},
		},
	}

	if violations := g.Validate(); !hasViolation(violations, ViolationMergeDegree) {
		t.Errorf("expected violation %s, got %v", ViolationMergeDegree, violations)
	}

	g.Nodes = append(g.Nodes, Node{ID: "src2", Kind: NodeKindSource, Source: &SourceParams{AccountID: "acc-3"}})
	g.Edges = append(g.Edges, Edge{From: "src2", To: "join"})

	if violations := g.Validate(); len(violations) != 0 {
		t.Errorf("expected no violations, got %v", violations)
	}
}

func TestGraph_Validate_Predicate(t *testing.T) {
	base := func(p ConditionParams) *Graph {
		return &Graph{
			Nodes: []Node{
				{ID: "src", Kind: NodeKindSource, Source: &SourceParams{AccountID: "acc-1"}},
				{ID: "if", Kind: NodeKindCondition, Condition: &p},
				{ID: "a", Kind: NodeKindAction, Action: &ActionParams{ToAccountID: "acc-2"}},
				{ID: "b", Kind: NodeKindAction, Action: &ActionParams{ToAccountID: "acc-3"}},
			},
			Edges: []Edge{
				{From: "src", To: "if"},
				{From: "if", To: "a", Label: BranchTrue},
				{From: "if", To: "b", Label: BranchFalse},
			},
		}
	}

	tests := []struct {
		name     string
		params   ConditionParams
		expectOK bool
	}{
		{
			name:     "balance predicate with account",
			params:   ConditionParams{Subject: SubjectBalance, AccountID: "acc-1", Operator: OpGreaterThanEqual, Value: dec("5000")},
			expectOK: true,
		},
		{
			name:   "balance predicate without account",
			params: ConditionParams{Subject: SubjectAvailableBalance, Operator: OpGreaterThan, Value: dec("0")},
		},
		{
			name:   "unknown subject",
			params: ConditionParams{Subject: "moon_phase", Operator: OpEqual, Value: dec("1")},
		},
		{
			name:   "unknown operator",
			params: ConditionParams{Subject: SubjectTriggerAmount, Operator: "almost", Value: dec("1")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations := base(tt.params).Validate()
			if tt.expectOK && len(violations) != 0 {
				t.Errorf("expected no violations, got %v", violations)
			}
			if !tt.expectOK && !hasViolation(violations, ViolationParamsMismatch) {
				t.Errorf("expected violation %s, got %v", ViolationParamsMismatch, violations)
			}
		})
	}
}

func hasViolation(violations []Violation, code ViolationCode) bool {
	for _, v := range violations {
		if v.Code == code {
			return true
		}
	}
	return false
}
