package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veilflow/veilflow/internal/adapter/http/dto"
	"github.com/veilflow/veilflow/internal/usecase"
)

// TransferHandler handles ledger transfer HTTP requests.
type TransferHandler struct {
	ledgerUC *usecase.LedgerUseCase
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(ledgerUC *usecase.LedgerUseCase) *TransferHandler {
	return &TransferHandler{ledgerUC: ledgerUC}
}

// Create commits a new transfer pair.
func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	actor := actorID(r)
	if actor == "" {
		writeError(w, http.StatusBadRequest, "missing actor", "X-Actor-ID header is required")
		return
	}

	// The body-level key and the header serve different layers; the body
	// key is the one persisted with the pair.
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}

	pair, err := h.ledgerUC.Transfer(r.Context(), req.ToUseCaseInput(actor))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to create transfer", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransferFromDomain(pair))
}

// Import records a bank-originated transaction.
func (h *TransferHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req dto.ImportTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	actor := actorID(r)
	if actor == "" {
		writeError(w, http.StatusBadRequest, "missing actor", "X-Actor-ID header is required")
		return
	}

	txn, err := h.ledgerUC.ImportExternal(r.Context(), req.ToUseCaseInput(actor))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to import transaction", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(txn))
}

// GetTransaction retrieves one ledger transaction.
func (h *TransferHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transaction ID", "")
		return
	}

	txn, err := h.ledgerUC.GetTransaction(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get transaction", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(txn))
}

// Consistency reports ledger-wide pairing integrity.
func (h *TransferHandler) Consistency(w http.ResponseWriter, r *http.Request) {
	report, err := h.ledgerUC.CheckConsistency(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check consistency", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, report)
}
