// Package handlers implements the HTTP endpoints of the reconciler API. Every
// handler runs behind middleware.Identity and acts for the user it resolved.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dvloznov/ledger-reconciler/internal/api/middleware"
	"github.com/dvloznov/ledger-reconciler/internal/domain"
)

// Submitter enqueues a document for background processing.
type Submitter interface {
	Submit(ctx context.Context, documentID string) (string, error)
}

// decodeBody decodes a JSON request body into dst, rejecting unknown fields.
func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %v: %w", err, domain.ErrInvalidInput)
	}
	return nil
}

// currentUser returns the user set by the identity middleware, writing a 401
// when there is none.
func currentUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	user := middleware.UserFrom(r.Context())
	if user == nil {
		middleware.WriteError(w, http.StatusUnauthorized, "Unauthenticated")
		return nil, false
	}
	return user, true
}
