package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veilflow/veilflow/internal/adapter/http/dto"
	"github.com/veilflow/veilflow/internal/usecase"
)

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	accountUC *usecase.AccountUseCase
	ledgerUC  *usecase.LedgerUseCase
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountUC *usecase.AccountUseCase, ledgerUC *usecase.LedgerUseCase) *AccountHandler {
	return &AccountHandler{accountUC: accountUC, ledgerUC: ledgerUC}
}

// Create opens a new account.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	account, err := h.accountUC.CreateAccount(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to create account", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromDomain(account))
}

// Get retrieves an account by ID.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	account, err := h.accountUC.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get account", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// SetActive toggles whether the account accepts transfers.
func (h *AccountHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	var req dto.SetAccountActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.accountUC.SetAccountActive(r.Context(), id, req.Active); err != nil {
		writeError(w, mapDomainError(err), "failed to update account", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListTransactions lists an account's ledger history.
func (h *AccountHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	txns, err := h.ledgerUC.ListTransactionsByAccount(r.Context(), accountID, limit, offset)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list transactions", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionsFromDomain(txns))
}
