package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrForbidden         = errors.New("not owned by user")
	ErrProposalResolved  = errors.New("proposal already resolved")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNoAccounts        = errors.New("user has no accounts")
)

// ErrorKind classifies why document processing failed. Validation failures
// are absorbed by the controller's fallback and never reach this level.
type ErrorKind string

const (
	KindUnsupportedInput ErrorKind = "unsupported_input"
	KindProtocol         ErrorKind = "protocol"
	KindUpstream         ErrorKind = "upstream"
	KindDataIntegrity    ErrorKind = "data_integrity"
)

// ReconciliationError is returned by the document processing entry point.
type ReconciliationError struct {
	Kind       ErrorKind
	DocumentID string
	Err        error
}

// NewReconciliationError wraps err with a kind.
func NewReconciliationError(kind ErrorKind, documentID string, err error) *ReconciliationError {
	return &ReconciliationError{Kind: kind, DocumentID: documentID, Err: err}
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("document %s: %s: %v", e.DocumentID, e.Kind, e.Err)
}

func (e *ReconciliationError) Unwrap() error {
	return e.Err
}

// Retryable reports whether resubmitting the document may succeed.
func (e *ReconciliationError) Retryable() bool {
	return e.Kind == KindUpstream
}

// KindOf returns the kind of the first ReconciliationError in err's chain,
// or an empty kind.
func KindOf(err error) ErrorKind {
	var rerr *ReconciliationError
	if errors.As(err, &rerr) {
		return rerr.Kind
	}
	return ""
}
