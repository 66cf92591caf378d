package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/veilflow/veilflow/internal/adapter/http/dto"
	"github.com/veilflow/veilflow/internal/domain"
)

// ActorIDHeader carries the authenticated user id set by the gateway in
// front of this service. Authentication itself happens upstream.
const ActorIDHeader = "X-Actor-ID"

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrEntityNotFound),
		errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrWorkflowNotFound),
		errors.Is(err, domain.ErrGraphNotFound),
		errors.Is(err, domain.ErrExecutionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrSameAccount),
		errors.Is(err, domain.ErrInvalidTransferKind),
		errors.Is(err, domain.ErrKindOnSameEntity),
		errors.Is(err, domain.ErrInvalidEntityType):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAccountInactive),
		errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrGraphInvalid),
		errors.Is(err, domain.ErrNoSourceAccount),
		errors.Is(err, domain.ErrNoTargetAccount):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrEntityHasAccounts),
		errors.Is(err, domain.ErrConcurrencyConflict),
		errors.Is(err, domain.ErrWorkflowNotActive),
		errors.Is(err, domain.ErrWorkflowNotDraft),
		errors.Is(err, domain.ErrExecutionTerminal):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}

// actorID extracts the authenticated actor from the request.
func actorID(r *http.Request) string {
	return r.Header.Get(ActorIDHeader)
}
