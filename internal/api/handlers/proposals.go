package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-reconciler/internal/api/middleware"
	"github.com/dvloznov/ledger-reconciler/internal/domain"
	"github.com/dvloznov/ledger-reconciler/internal/ledger"
)

// ProposalsHandler handles proposal review endpoints.
type ProposalsHandler struct {
	ledger *ledger.Service
	log    zerolog.Logger
}

// NewProposalsHandler creates a new proposals handler.
func NewProposalsHandler(svc *ledger.Service, log zerolog.Logger) *ProposalsHandler {
	return &ProposalsHandler{ledger: svc, log: log}
}

// ListPending handles GET /proposals
func (h *ProposalsHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	proposals, err := h.ledger.ListPendingProposals(r.Context(), user.ID)
	if err != nil {
		middleware.WriteDomainError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"proposals": proposals,
		"count":     len(proposals),
	})
}

type confirmRequest struct {
	Status     domain.ProposalStatus `json:"status"`
	EditedData *domain.ProposedData  `json:"edited_data,omitempty"`
}

// Confirm handles POST /proposals/{id}/confirm
func (h *ProposalsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req confirmRequest
	if err := decodeBody(r, &req); err != nil {
		middleware.WriteDomainError(w, r, err)
		return
	}

	p, err := h.ledger.ConfirmProposal(r.Context(), user.ID, chi.URLParam(r, "id"), req.Status, req.EditedData)
	if err != nil {
		middleware.WriteDomainError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, p)
}
