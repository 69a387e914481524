package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-reconciler/internal/api/middleware"
	"github.com/dvloznov/ledger-reconciler/internal/domain"
	"github.com/dvloznov/ledger-reconciler/internal/jobs"
	"github.com/dvloznov/ledger-reconciler/internal/ledger"
)

// DocumentsHandler handles document intake and status endpoints.
type DocumentsHandler struct {
	ledger    *ledger.Service
	submitter Submitter
	jobs      jobs.JobStore
	log       zerolog.Logger
}

// NewDocumentsHandler creates a new documents handler.
func NewDocumentsHandler(svc *ledger.Service, submitter Submitter, store jobs.JobStore, log zerolog.Logger) *DocumentsHandler {
	return &DocumentsHandler{ledger: svc, submitter: submitter, jobs: store, log: log}
}

type submitResponse struct {
	Document *domain.Document `json:"document"`
	JobID    string           `json:"job_id"`
}

// CreateDocument handles POST /documents. The bytes must already be stored at
// storage_uri; the document is registered and queued for processing.
func (h *DocumentsHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	var in ledger.DocumentInput
	if err := decodeBody(r, &in); err != nil {
		middleware.WriteDomainError(w, r, err)
		return
	}

	doc, err := h.ledger.RegisterDocument(r.Context(), user.ID, in)
	if err != nil {
		middleware.WriteDomainError(w, r, err)
		return
	}
	jobID, err := h.submitter.Submit(r.Context(), doc.ID)
	if err != nil {
		h.log.Error().Err(err).Str("document_id", doc.ID).Msg("Failed to enqueue document")
		middleware.WriteError(w, http.StatusServiceUnavailable, "Failed to enqueue document")
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, submitResponse{Document: doc, JobID: jobID})
}

// ProcessDocument handles POST /documents/{id}/process and re-queues an
// existing document.
func (h *DocumentsHandler) ProcessDocument(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	doc, err := h.ledger.GetDocument(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteDomainError(w, r, err)
		return
	}
	if doc.Status == domain.DocumentStatusParsing {
		middleware.WriteError(w, http.StatusConflict, "Document is already being processed")
		return
	}

	jobID, err := h.submitter.Submit(r.Context(), doc.ID)
	if err != nil {
		h.log.Error().Err(err).Str("document_id", doc.ID).Msg("Failed to enqueue document")
		middleware.WriteError(w, http.StatusServiceUnavailable, "Failed to enqueue document")
		return
	}
	middleware.WriteJSON(w, http.StatusAccepted, submitResponse{Document: doc, JobID: jobID})
}

// GetDocument handles GET /documents/{id}: status, processing jobs and the
// proposals produced so far.
func (h *DocumentsHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	doc, err := h.ledger.GetDocument(ctx, user.ID, chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteDomainError(w, r, err)
		return
	}
	proposals, err := h.ledger.ListDocumentProposals(ctx, user.ID, doc.ID)
	if err != nil {
		middleware.WriteDomainError(w, r, err)
		return
	}
	jobList, err := h.jobs.ListJobs(ctx, jobs.JobFilter{DocumentID: doc.ID})
	if err != nil {
		middleware.WriteDomainError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"document":  doc,
		"proposals": proposals,
		"jobs":      jobList,
	})
}
