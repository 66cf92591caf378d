package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veilflow/veilflow/internal/adapter/http/dto"
	"github.com/veilflow/veilflow/internal/usecase"
)

// EntityHandler handles entity-related HTTP requests.
type EntityHandler struct {
	accountUC *usecase.AccountUseCase
}

// NewEntityHandler creates a new EntityHandler.
func NewEntityHandler(accountUC *usecase.AccountUseCase) *EntityHandler {
	return &EntityHandler{accountUC: accountUC}
}

// Create registers a new entity.
func (h *EntityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	actor := actorID(r)
	if actor == "" {
		writeError(w, http.StatusBadRequest, "missing actor", "X-Actor-ID header is required")
		return
	}

	entity, err := h.accountUC.CreateEntity(r.Context(), req.ToUseCaseInput(actor))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to create entity", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.EntityFromDomain(entity))
}

// Get retrieves an entity by ID.
func (h *EntityHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing entity ID", "")
		return
	}

	entity, err := h.accountUC.GetEntity(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get entity", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EntityFromDomain(entity))
}

// List lists the actor's entities.
func (h *EntityHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := actorID(r)
	if actor == "" {
		writeError(w, http.StatusBadRequest, "missing actor", "X-Actor-ID header is required")
		return
	}

	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	entities, err := h.accountUC.ListEntities(r.Context(), actor, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list entities", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EntitiesFromDomain(entities))
}

// Delete removes an entity with no accounts.
func (h *EntityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing entity ID", "")
		return
	}

	if err := h.accountUC.DeleteEntity(r.Context(), id); err != nil {
		writeError(w, mapDomainError(err), "failed to delete entity", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListAccounts lists the accounts owned by an entity.
func (h *EntityHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "id")
	if entityID == "" {
		writeError(w, http.StatusBadRequest, "missing entity ID", "")
		return
	}

	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	accounts, err := h.accountUC.ListAccounts(r.Context(), entityID, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list accounts", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountsFromDomain(accounts))
}
