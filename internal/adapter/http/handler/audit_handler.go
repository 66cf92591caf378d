package handler

import (
	"net/http"
	"time"

	"github.com/veilflow/veilflow/internal/adapter/http/dto"
	"github.com/veilflow/veilflow/internal/domain"
	"github.com/veilflow/veilflow/internal/usecase"
)

// AuditHandler handles audit trail HTTP requests.
type AuditHandler struct {
	auditRepo usecase.AuditRepository
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(auditRepo usecase.AuditRepository) *AuditHandler {
	return &AuditHandler{auditRepo: auditRepo}
}

// List retrieves audit entries with filtering.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := domain.AuditFilter{
		EntityID: r.URL.Query().Get("entity_id"),
		Action:   domain.AuditAction(r.URL.Query().Get("action")),
		Limit:    parseIntQuery(r, "limit", 50),
		Offset:   parseIntQuery(r, "offset", 0),
	}

	if v := r.URL.Query().Get("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_date", err.Error())
			return
		}
		filter.StartDate = &t
	}

	if v := r.URL.Query().Get("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end_date", err.Error())
			return
		}
		filter.EndDate = &t
	}

	logs, err := h.auditRepo.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list audit entries", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AuditLogsFromDomain(logs))
}
