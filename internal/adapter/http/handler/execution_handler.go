package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/veilflow/veilflow/internal/adapter/http/dto"
	"github.com/veilflow/veilflow/internal/engine"
	"github.com/veilflow/veilflow/internal/usecase"
)

// ExecutionHandler handles execution-related HTTP requests.
type ExecutionHandler struct {
	dispatcher *engine.Dispatcher
	executions usecase.ExecutionRepository
	ledgerUC   *usecase.LedgerUseCase
}

// NewExecutionHandler creates a new ExecutionHandler.
func NewExecutionHandler(dispatcher *engine.Dispatcher, executions usecase.ExecutionRepository, ledgerUC *usecase.LedgerUseCase) *ExecutionHandler {
	return &ExecutionHandler{
		dispatcher: dispatcher,
		executions: executions,
		ledgerUC:   ledgerUC,
	}
}

// Trigger starts a manual execution of a workflow.
func (h *ExecutionHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	workflowID := chi.URLParam(r, "id")
	if workflowID == "" {
		writeError(w, http.StatusBadRequest, "missing workflow ID", "")
		return
	}

	var req dto.TriggerExecutionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
	}

	trigger := req.ToTrigger()
	trigger.FiredAt = time.Now().UTC()

	executionID, err := h.dispatcher.StartExecution(r.Context(), workflowID, req.GraphVersion, trigger)
	if err != nil {
		if err == engine.ErrQueueFull {
			writeError(w, http.StatusServiceUnavailable, "engine busy", err.Error())
			return
		}

		writeError(w, mapDomainError(err), "failed to start execution", err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"execution_id": executionID})
}

// Get retrieves an execution by ID.
func (h *ExecutionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing execution ID", "")
		return
	}

	execution, err := h.executions.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get execution", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ExecutionFromDomain(execution))
}

// ListByWorkflow lists a workflow's executions.
func (h *ExecutionHandler) ListByWorkflow(w http.ResponseWriter, r *http.Request) {
	workflowID := chi.URLParam(r, "id")
	if workflowID == "" {
		writeError(w, http.StatusBadRequest, "missing workflow ID", "")
		return
	}

	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	executions, err := h.executions.ListByWorkflow(r.Context(), workflowID, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list executions", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ExecutionsFromDomain(executions))
}

// Outcomes returns the node-outcome log of an execution.
func (h *ExecutionHandler) Outcomes(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing execution ID", "")
		return
	}

	if _, err := h.executions.GetByID(r.Context(), id); err != nil {
		writeError(w, mapDomainError(err), "failed to get execution", err.Error())
		return
	}

	outcomes, err := h.executions.ListOutcomes(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list outcomes", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.NodeOutcomesFromDomain(outcomes))
}

// Transactions lists the ledger transactions an execution produced.
func (h *ExecutionHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing execution ID", "")
		return
	}

	txns, err := h.ledgerUC.ListTransactionsByExecution(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list transactions", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionsFromDomain(txns))
}

// Cancel marks a running execution cancelled.
func (h *ExecutionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing execution ID", "")
		return
	}

	if err := h.dispatcher.Cancel(r.Context(), id); err != nil {
		writeError(w, mapDomainError(err), "failed to cancel execution", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Resume re-enqueues a still-running execution after a crash.
func (h *ExecutionHandler) Resume(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing execution ID", "")
		return
	}

	if err := h.dispatcher.Resume(r.Context(), id); err != nil {
		if err == engine.ErrQueueFull {
			writeError(w, http.StatusServiceUnavailable, "engine busy", err.Error())
			return
		}

		writeError(w, mapDomainError(err), "failed to resume execution", err.Error())
		return
	}

	w.WriteHeader(http.StatusAccepted)
}
