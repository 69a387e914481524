package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-reconciler/internal/api/middleware"
	"github.com/dvloznov/ledger-reconciler/internal/ledger"
)

// TransactionsHandler handles transaction mutations.
type TransactionsHandler struct {
	ledger *ledger.Service
	log    zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(svc *ledger.Service, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{ledger: svc, log: log}
}

// CreateTransaction handles POST /transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var in ledger.TransactionInput
	if err := decodeBody(r, &in); err != nil {
		middleware.WriteDomainError(w, r, err)
		return
	}
	t, err := h.ledger.CreateTransaction(r.Context(), user.ID, in)
	if err != nil {
		middleware.WriteDomainError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, t)
}

// UpdateTransaction handles PATCH /transactions/{id}
func (h *TransactionsHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var patch ledger.TransactionPatch
	if err := decodeBody(r, &patch); err != nil {
		middleware.WriteDomainError(w, r, err)
		return
	}
	t, err := h.ledger.UpdateTransaction(r.Context(), user.ID, chi.URLParam(r, "id"), patch)
	if err != nil {
		middleware.WriteDomainError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, t)
}

// DeleteTransaction handles DELETE /transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.ledger.DeleteTransaction(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		middleware.WriteDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
