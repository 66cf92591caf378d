package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/veilflow/veilflow/internal/adapter/http/dto"
	"github.com/veilflow/veilflow/internal/domain"
	"github.com/veilflow/veilflow/internal/usecase"
)

// WorkflowHandler handles workflow-related HTTP requests.
type WorkflowHandler struct {
	workflowUC *usecase.WorkflowUseCase
}

// NewWorkflowHandler creates a new WorkflowHandler.
func NewWorkflowHandler(workflowUC *usecase.WorkflowUseCase) *WorkflowHandler {
	return &WorkflowHandler{workflowUC: workflowUC}
}

// Create stores a new draft workflow.
func (h *WorkflowHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	actor := actorID(r)
	if actor == "" {
		writeError(w, http.StatusBadRequest, "missing actor", "X-Actor-ID header is required")
		return
	}

	workflow, err := h.workflowUC.CreateWorkflow(r.Context(), req.ToUseCaseInput(actor))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to create workflow", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.WorkflowFromDomain(workflow))
}

// Get retrieves a workflow by ID.
func (h *WorkflowHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing workflow ID", "")
		return
	}

	workflow, err := h.workflowUC.GetWorkflow(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get workflow", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.WorkflowFromDomain(workflow))
}

// List lists the actor's workflows.
func (h *WorkflowHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := actorID(r)
	if actor == "" {
		writeError(w, http.StatusBadRequest, "missing actor", "X-Actor-ID header is required")
		return
	}

	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	workflows, err := h.workflowUC.ListWorkflows(r.Context(), actor, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list workflows", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.WorkflowsFromDomain(workflows))
}

// UpdateGraph writes a new graph version.
func (h *WorkflowHandler) UpdateGraph(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing workflow ID", "")
		return
	}

	var req dto.UpdateGraphRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	workflow, err := h.workflowUC.UpdateGraph(r.Context(), id, req.Nodes, req.Edges)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to update graph", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.WorkflowFromDomain(workflow))
}

// GetGraph returns one graph version; ?version= defaults to the current one.
func (h *WorkflowHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing workflow ID", "")
		return
	}

	workflow, err := h.workflowUC.GetWorkflow(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get workflow", err.Error())
		return
	}

	version := workflow.Version
	if v := r.URL.Query().Get("version"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid version", err.Error())
			return
		}
		version = parsed
	}

	graph, err := h.workflowUC.GetGraph(r.Context(), id, version)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get graph", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, graph)
}

// Activate validates the current graph and transitions the workflow to
// active. Violations come back as a structured 422.
func (h *WorkflowHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing workflow ID", "")
		return
	}

	violations, err := h.workflowUC.Activate(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrGraphInvalid) {
			writeJSON(w, http.StatusUnprocessableEntity, dto.ValidationErrorResponse{
				Error:      "graph validation failed",
				Violations: dto.ViolationsFromDomain(violations),
			})
			return
		}

		writeError(w, mapDomainError(err), "failed to activate workflow", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Pause stops an active workflow from being triggered.
func (h *WorkflowHandler) Pause(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing workflow ID", "")
		return
	}

	if err := h.workflowUC.Pause(r.Context(), id); err != nil {
		writeError(w, mapDomainError(err), "failed to pause workflow", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Archive retires a workflow permanently.
func (h *WorkflowHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing workflow ID", "")
		return
	}

	if err := h.workflowUC.Archive(r.Context(), id); err != nil {
		writeError(w, mapDomainError(err), "failed to archive workflow", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
