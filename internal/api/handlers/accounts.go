package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-reconciler/internal/api/middleware"
	"github.com/dvloznov/ledger-reconciler/internal/ledger"
)

// AccountsHandler handles accounts, balance repair and the wealth report.
type AccountsHandler struct {
	ledger *ledger.Service
	log    zerolog.Logger
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(svc *ledger.Service, log zerolog.Logger) *AccountsHandler {
	return &AccountsHandler{ledger: svc, log: log}
}

// ListAccounts handles GET /accounts
func (h *AccountsHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	accounts, err := h.ledger.ListAccounts(r.Context(), user.ID)
	if err != nil {
		middleware.WriteDomainError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// CreateAccount handles POST /accounts
func (h *AccountsHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var in ledger.AccountInput
	if err := decodeBody(r, &in); err != nil {
		middleware.WriteDomainError(w, r, err)
		return
	}
	acct, err := h.ledger.CreateAccount(r.Context(), user.ID, in)
	if err != nil {
		middleware.WriteDomainError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, acct)
}

// DeleteAccount handles DELETE /accounts/{id}
func (h *AccountsHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.ledger.DeleteAccount(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		middleware.WriteDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Recalculate handles POST /accounts/{id}/recalculate
func (h *AccountsHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	acct, err := h.ledger.RecalculateAccount(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteDomainError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, acct)
}

// RecalculateAll handles POST /accounts/recalculate
func (h *AccountsHandler) RecalculateAll(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	accounts, err := h.ledger.RecalculateAll(r.Context(), user.ID)
	if err != nil {
		middleware.WriteDomainError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// Wealth handles GET /wealth?interval=month&points=12
func (h *AccountsHandler) Wealth(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	points := 0
	if raw := q.Get("points"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "points must be an integer")
			return
		}
		points = n
	}

	history, err := h.ledger.WealthHistory(r.Context(), user.ID, ledger.Interval(q.Get("interval")), points)
	if err != nil {
		middleware.WriteDomainError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"points": history,
		"note":   "estimated by rolling current balances back through later transactions",
	})
}
