package pipeline

import (
	"context"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
)

// ContentFetcher loads the bytes behind a document's storage locator.
type ContentFetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// TransactionSearcher runs bounded searches over a user's transactions.
type TransactionSearcher interface {
	SearchTransactions(ctx context.Context, userID string, filter domain.TransactionFilter) ([]*domain.Transaction, error)
}

// AuditSink records processing attempts and raw model outputs. Failures are
// logged by the processor and never fail a document.
type AuditSink interface {
	// StartRun opens a run for a processing attempt and returns its ID.
	StartRun(ctx context.Context, documentID, model string) (string, error)

	// RecordModelOutput stores one raw reasoning response of a run.
	RecordModelOutput(ctx context.Context, runID, documentID, stage string, turn int, raw string) error

	// MarkRunSucceeded closes a run as successful.
	MarkRunSucceeded(ctx context.Context, runID string) error

	// MarkRunFailed closes a run with the failure cause.
	MarkRunFailed(ctx context.Context, runID string, cause error) error
}

// NoopAudit discards audit records.
type NoopAudit struct{}

func (NoopAudit) StartRun(context.Context, string, string) (string, error) { return "", nil }

func (NoopAudit) RecordModelOutput(context.Context, string, string, string, int, string) error {
	return nil
}

func (NoopAudit) MarkRunSucceeded(context.Context, string) error { return nil }

func (NoopAudit) MarkRunFailed(context.Context, string, error) error { return nil }
