package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/veilflow/veilflow/internal/domain"
)

const graphCacheTTL = 12 * time.Hour

// WorkflowUseCase manages workflow lifecycle and versioned graph
// documents. A graph version is immutable once written, which makes it
// safe to cache and safe for in-flight executions to keep reading.
type WorkflowUseCase struct {
	workflowRepo WorkflowRepository
	cache        Cache
	idGen        IDGenerator
}

// NewWorkflowUseCase creates a new WorkflowUseCase.
func NewWorkflowUseCase(workflowRepo WorkflowRepository, cache Cache, idGen IDGenerator) *WorkflowUseCase {
	return &WorkflowUseCase{
		workflowRepo: workflowRepo,
		cache:        cache,
		idGen:        idGen,
	}
}

// CreateWorkflowInput represents input for creating a workflow.
type CreateWorkflowInput struct {
	OwnerID     string
	Name        string
	Description string
	MaxRetries  int
	Nodes       []domain.Node
	Edges       []domain.Edge
}

// CreateWorkflow stores a new draft workflow with graph version 1. Drafts
// may be structurally invalid; validation gates activation, not creation.
func (uc *WorkflowUseCase) CreateWorkflow(ctx context.Context, input CreateWorkflowInput) (*domain.Workflow, error) {
	now := time.Now().UTC()

	maxRetries := input.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	workflow := &domain.Workflow{
		ID:          uc.idGen.Generate(),
		Name:        input.Name,
		Description: input.Description,
		OwnerID:     input.OwnerID,
		Status:      domain.WorkflowStatusDraft,
		Version:     1,
		MaxRetries:  maxRetries,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	graph := &domain.Graph{
		WorkflowID: workflow.ID,
		Version:    1,
		Nodes:      input.Nodes,
		Edges:      input.Edges,
	}

	if err := uc.workflowRepo.Create(ctx, workflow, graph); err != nil {
		return nil, err
	}

	return workflow, nil
}

// UpdateGraph writes a new graph version for a non-archived workflow.
// In-flight executions keep the version they pinned.
func (uc *WorkflowUseCase) UpdateGraph(ctx context.Context, workflowID string, nodes []domain.Node, edges []domain.Edge) (*domain.Workflow, error) {
	workflow, err := uc.workflowRepo.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.Status == domain.WorkflowStatusArchived {
		return nil, domain.ErrWorkflowNotDraft
	}

	workflow.Version++
	workflow.UpdatedAt = time.Now().UTC()

	graph := &domain.Graph{
		WorkflowID: workflow.ID,
		Version:    workflow.Version,
		Nodes:      nodes,
		Edges:      edges,
	}

	if err := uc.workflowRepo.SaveGraphVersion(ctx, workflow, graph); err != nil {
		return nil, err
	}

	return workflow, nil
}

// Activate validates the workflow's current graph version and, only if
// every structural rule passes, transitions it to active.
func (uc *WorkflowUseCase) Activate(ctx context.Context, workflowID string) ([]domain.Violation, error) {
	workflow, err := uc.workflowRepo.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if workflow.Status != domain.WorkflowStatusDraft && workflow.Status != domain.WorkflowStatusPaused {
		return nil, domain.ErrWorkflowNotDraft
	}

	graph, err := uc.GetGraph(ctx, workflowID, workflow.Version)
	if err != nil {
		return nil, err
	}

	if violations := graph.Validate(); len(violations) > 0 {
		return violations, domain.ErrGraphInvalid
	}

	err = uc.workflowRepo.UpdateStatus(ctx, workflowID, domain.WorkflowStatusActive, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	return nil, nil
}

// Pause stops an active workflow from being triggered.
func (uc *WorkflowUseCase) Pause(ctx context.Context, workflowID string) error {
	workflow, err := uc.workflowRepo.GetByID(ctx, workflowID)
	if err != nil {
		return err
	}
	if workflow.Status != domain.WorkflowStatusActive {
		return domain.ErrWorkflowNotActive
	}

	return uc.workflowRepo.UpdateStatus(ctx, workflowID, domain.WorkflowStatusPaused, time.Now().UTC())
}

// Archive retires a workflow permanently.
func (uc *WorkflowUseCase) Archive(ctx context.Context, workflowID string) error {
	if _, err := uc.workflowRepo.GetByID(ctx, workflowID); err != nil {
		return err
	}

	return uc.workflowRepo.UpdateStatus(ctx, workflowID, domain.WorkflowStatusArchived, time.Now().UTC())
}

// GetWorkflow retrieves a workflow by ID.
func (uc *WorkflowUseCase) GetWorkflow(ctx context.Context, id string) (*domain.Workflow, error) {
	return uc.workflowRepo.GetByID(ctx, id)
}

// ListWorkflows lists workflows owned by a user.
func (uc *WorkflowUseCase) ListWorkflows(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Workflow, error) {
	if limit <= 0 {
		limit = 20
	}
	return uc.workflowRepo.List(ctx, ownerID, limit, offset)
}

// GetGraph loads one immutable graph version, through the cache when one
// is configured.
func (uc *WorkflowUseCase) GetGraph(ctx context.Context, workflowID string, version int) (*domain.Graph, error) {
	cacheKey := fmt.Sprintf("graph:%s:%d", workflowID, version)

	if uc.cache != nil {
		if cached, err := uc.cache.Get(ctx, cacheKey); err == nil && cached != nil {
			var graph domain.Graph
			if err := json.Unmarshal(cached, &graph); err == nil {
				return &graph, nil
			}
		}
	}

	graph, err := uc.workflowRepo.GetGraph(ctx, workflowID, version)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if encoded, err := json.Marshal(graph); err == nil {
			_ = uc.cache.Set(ctx, cacheKey, encoded, graphCacheTTL)
		}
	}

	return graph, nil
}
