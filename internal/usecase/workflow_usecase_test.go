package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/veilflow/veilflow/internal/domain"
	"github.com/veilflow/veilflow/internal/usecase"
	"github.com/veilflow/veilflow/internal/usecase/mocks"
)

func validNodes() ([]domain.Node, []domain.Edge) {
	amount := decimal.NewFromInt(100)
	nodes := []domain.Node{
		{ID: "src", Kind: domain.NodeKindSource, Source: &domain.SourceParams{AccountID: "acc-1"}},
		{ID: "pay", Kind: domain.NodeKindAction, Action: &domain.ActionParams{
			Amount:      &amount,
			ToAccountID: "acc-2",
		}},
	}
	edges := []domain.Edge{{From: "src", To: "pay"}}
	return nodes, edges
}

func invalidNodes() ([]domain.Node, []domain.Edge) {
	// Condition with a single unlabeled branch.
	nodes := []domain.Node{
		{ID: "src", Kind: domain.NodeKindSource, Source: &domain.SourceParams{AccountID: "acc-1"}},
		{ID: "if", Kind: domain.NodeKindCondition, Condition: &domain.ConditionParams{
			Subject:  domain.SubjectTriggerAmount,
			Operator: domain.OpGreaterThan,
			Value:    decimal.NewFromInt(100),
		}},
		{ID: "pay", Kind: domain.NodeKindAction, Action: &domain.ActionParams{ToAccountID: "acc-2"}},
	}
	edges := []domain.Edge{
		{From: "src", To: "if"},
		{From: "if", To: "pay"},
	}
	return nodes, edges
}

func TestWorkflowUseCase_CreateWorkflow(t *testing.T) {
	repo := mocks.NewMockWorkflowRepository()
	uc := usecase.NewWorkflowUseCase(repo, mocks.NewMockCache(), mocks.NewMockIDGenerator())

	nodes, edges := invalidNodes()

	// Drafts may be invalid; validation gates activation, not creation.
	workflow, err := uc.CreateWorkflow(context.Background(), usecase.CreateWorkflowInput{
		OwnerID: "user-1",
		Name:    "monthly sweep",
		Nodes:   nodes,
		Edges:   edges,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if workflow.Status != domain.WorkflowStatusDraft {
		t.Errorf("expected draft status, got %s", workflow.Status)
	}
	if workflow.Version != 1 {
		t.Errorf("expected version 1, got %d", workflow.Version)
	}
	if workflow.MaxRetries != 3 {
		t.Errorf("expected default max retries 3, got %d", workflow.MaxRetries)
	}

	graph, err := repo.GetGraph(context.Background(), workflow.ID, 1)
	if err != nil {
		t.Fatalf("graph version 1 not stored: %v", err)
	}
	if len(graph.Nodes) != len(nodes) {
		t.Errorf("expected %d nodes, got %d", len(nodes), len(graph.Nodes))
	}
}

func TestWorkflowUseCase_Activate(t *testing.T) {
	tests := []struct {
		name             string
		status           domain.WorkflowStatus
		valid            bool
		expectViolations bool
		errorType        error
		expectStatus     domain.WorkflowStatus
	}{
		{
			name:         "valid draft activates",
			status:       domain.WorkflowStatusDraft,
			valid:        true,
			expectStatus: domain.WorkflowStatusActive,
		},
		{
			name:         "paused workflow reactivates",
			status:       domain.WorkflowStatusPaused,
			valid:        true,
			expectStatus: domain.WorkflowStatusActive,
		},
		{
			name:             "invalid draft stays draft",
			status:           domain.WorkflowStatusDraft,
			valid:            false,
			expectViolations: true,
			errorType:        domain.ErrGraphInvalid,
			expectStatus:     domain.WorkflowStatusDraft,
		},
		{
			name:         "active workflow cannot re-activate",
			status:       domain.WorkflowStatusActive,
			valid:        true,
			errorType:    domain.ErrWorkflowNotDraft,
			expectStatus: domain.WorkflowStatusActive,
		},
		{
			name:         "archived workflow cannot activate",
			status:       domain.WorkflowStatusArchived,
			valid:        true,
			errorType:    domain.ErrWorkflowNotDraft,
			expectStatus: domain.WorkflowStatusArchived,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mocks.NewMockWorkflowRepository()
			uc := usecase.NewWorkflowUseCase(repo, nil, mocks.NewMockIDGenerator())

			nodes, edges := validNodes()
			if !tt.valid {
				nodes, edges = invalidNodes()
			}

			repo.Seed(
				&domain.Workflow{ID: "wf-1", Status: tt.status, Version: 1},
				&domain.Graph{WorkflowID: "wf-1", Version: 1, Nodes: nodes, Edges: edges},
			)

			violations, err := uc.Activate(context.Background(), "wf-1")

			if tt.errorType != nil && !errors.Is(err, tt.errorType) {
				t.Errorf("expected error %v, got %v", tt.errorType, err)
			}
			if tt.errorType == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.expectViolations && len(violations) == 0 {
				t.Error("expected violations, got none")
			}

			workflow, _ := repo.GetByID(context.Background(), "wf-1")
			if workflow.Status != tt.expectStatus {
				t.Errorf("expected status %s, got %s", tt.expectStatus, workflow.Status)
			}
		})
	}
}

func TestWorkflowUseCase_PauseArchive(t *testing.T) {
	repo := mocks.NewMockWorkflowRepository()
	uc := usecase.NewWorkflowUseCase(repo, nil, mocks.NewMockIDGenerator())

	repo.Seed(&domain.Workflow{ID: "wf-1", Status: domain.WorkflowStatusActive, Version: 1}, nil)
	repo.Seed(&domain.Workflow{ID: "wf-2", Status: domain.WorkflowStatusDraft, Version: 1}, nil)

	if err := uc.Pause(context.Background(), "wf-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	workflow, _ := repo.GetByID(context.Background(), "wf-1")
	if workflow.Status != domain.WorkflowStatusPaused {
		t.Errorf("expected paused, got %s", workflow.Status)
	}

	if err := uc.Pause(context.Background(), "wf-2"); !errors.Is(err, domain.ErrWorkflowNotActive) {
		t.Errorf("expected ErrWorkflowNotActive, got %v", err)
	}

	if err := uc.Archive(context.Background(), "wf-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	workflow, _ = repo.GetByID(context.Background(), "wf-1")
	if workflow.Status != domain.WorkflowStatusArchived {
		t.Errorf("expected archived, got %s", workflow.Status)
	}
}

func TestWorkflowUseCase_UpdateGraph(t *testing.T) {
	repo := mocks.NewMockWorkflowRepository()
	uc := usecase.NewWorkflowUseCase(repo, nil, mocks.NewMockIDGenerator())

	nodes, edges := validNodes()
	repo.Seed(
		&domain.Workflow{ID: "wf-1", Status: domain.WorkflowStatusActive, Version: 1},
		&domain.Graph{WorkflowID: "wf-1", Version: 1, Nodes: nodes, Edges: edges},
	)

	updated, err := uc.UpdateGraph(context.Background(), "wf-1", nodes, edges)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Version != 2 {
		t.Errorf("expected version 2, got %d", updated.Version)
	}

	// Old version remains readable for pinned executions.
	if _, err := repo.GetGraph(context.Background(), "wf-1", 1); err != nil {
		t.Errorf("version 1 no longer readable: %v", err)
	}
	if _, err := repo.GetGraph(context.Background(), "wf-1", 2); err != nil {
		t.Errorf("version 2 not stored: %v", err)
	}

	repo.Seed(&domain.Workflow{ID: "wf-2", Status: domain.WorkflowStatusArchived, Version: 1}, nil)
	if _, err := uc.UpdateGraph(context.Background(), "wf-2", nodes, edges); !errors.Is(err, domain.ErrWorkflowNotDraft) {
		t.Errorf("expected ErrWorkflowNotDraft, got %v", err)
	}
}

func TestWorkflowUseCase_GetGraph_Caches(t *testing.T) {
	repo := mocks.NewMockWorkflowRepository()
	cache := mocks.NewMockCache()
	uc := usecase.NewWorkflowUseCase(repo, cache, mocks.NewMockIDGenerator())

	nodes, edges := validNodes()
	repo.Seed(
		&domain.Workflow{ID: "wf-1", Status: domain.WorkflowStatusActive, Version: 1},
		&domain.Graph{WorkflowID: "wf-1", Version: 1, Nodes: nodes, Edges: edges},
	)

	repoCalls := 0
	repo.GetGraphFunc = func(ctx context.Context, workflowID string, version int) (*domain.Graph, error) {
		repoCalls++
		return &domain.Graph{WorkflowID: workflowID, Version: version, Nodes: nodes, Edges: edges}, nil
	}

	for i := 0; i < 3; i++ {
		graph, err := uc.GetGraph(context.Background(), "wf-1", 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(graph.Nodes) != len(nodes) {
			t.Errorf("expected %d nodes, got %d", len(nodes), len(graph.Nodes))
		}
	}

	if repoCalls != 1 {
		t.Errorf("expected 1 repository read, got %d", repoCalls)
	}
}
