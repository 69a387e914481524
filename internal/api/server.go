// Package api wires the reconciler HTTP surface onto a chi router.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-reconciler/internal/api/handlers"
	"github.com/dvloznov/ledger-reconciler/internal/api/middleware"
	"github.com/dvloznov/ledger-reconciler/internal/jobs"
	"github.com/dvloznov/ledger-reconciler/internal/ledger"
)

// Deps are the collaborators the API serves.
type Deps struct {
	Ledger         *ledger.Service
	Submitter      handlers.Submitter
	Jobs           jobs.JobStore
	IdentityHeader string
	Log            zerolog.Logger
}

// NewRouter returns the chi router with every route mounted.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(d.Log))
	r.Use(middleware.Recovery(d.Log))
	r.Use(chimw.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	r.Handle("/metrics", promhttp.Handler())

	documents := handlers.NewDocumentsHandler(d.Ledger, d.Submitter, d.Jobs, d.Log)
	proposals := handlers.NewProposalsHandler(d.Ledger, d.Log)
	transactions := handlers.NewTransactionsHandler(d.Ledger, d.Log)
	accounts := handlers.NewAccountsHandler(d.Ledger, d.Log)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Identity(d.IdentityHeader, d.Ledger))

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", documents.CreateDocument)
			r.Get("/{id}", documents.GetDocument)
			r.Post("/{id}/process", documents.ProcessDocument)
		})

		r.Route("/proposals", func(r chi.Router) {
			r.Get("/", proposals.ListPending)
			r.Post("/{id}/confirm", proposals.Confirm)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", transactions.CreateTransaction)
			r.Patch("/{id}", transactions.UpdateTransaction)
			r.Delete("/{id}", transactions.DeleteTransaction)
		})

		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", accounts.ListAccounts)
			r.Post("/", accounts.CreateAccount)
			r.Post("/recalculate", accounts.RecalculateAll)
			r.Delete("/{id}", accounts.DeleteAccount)
			r.Post("/{id}/recalculate", accounts.Recalculate)
		})

		r.Get("/wealth", accounts.Wealth)
	})

	return r
}
