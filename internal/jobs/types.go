// Package jobs defines the background task model used to process documents
// outside the request path.
package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/ledger-reconciler/internal/pipeline"
)

// JobStatus is the lifecycle state of a background task.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	// JobStatusRetrying marks an attempt that failed with a retryable error
	// and is waiting out its backoff.
	JobStatusRetrying JobStatus = "retrying"
)

// DefaultMaxRetries applies when a job does not set MaxRetries.
const DefaultMaxRetries = 3

// ProcessDocumentJob is one queued reconciliation of a ledger document. The
// queue mutates it in place; stores keep copies.
type ProcessDocumentJob struct {
	JobID       string     `json:"job_id"`
	DocumentID  string     `json:"document_id"`
	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error holds the message of the last failed attempt.
	Error      string `json:"error,omitempty"`
	RetryCount int    `json:"retry_count"`
	MaxRetries int    `json:"max_retries"`

	Outcome *pipeline.ProcessedOutcome `json:"outcome,omitempty"`
}

// JobHandler processes a job. A returned error is retried only when it
// reports itself as retryable (see Retryable).
type JobHandler func(ctx context.Context, job *ProcessDocumentJob) error

// JobStore keeps the latest known state of every job so the HTTP layer can
// report progress on a document.
type JobStore interface {
	SaveJob(ctx context.Context, job *ProcessDocumentJob) error
	GetJob(ctx context.Context, jobID string) (*ProcessDocumentJob, error)
	// ListJobs returns matching jobs, newest first.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ProcessDocumentJob, error)
}

// JobFilter narrows ListJobs. Empty fields match everything.
type JobFilter struct {
	DocumentID string
	Status     JobStatus
	Limit      int
	Offset     int
}

// Retryable reports whether err, or an error it wraps, asks to be retried.
func Retryable(err error) bool {
	var r interface{ Retryable() bool }
	return errors.As(err, &r) && r.Retryable()
}

// DocumentProcessor is the part of pipeline.Processor a job handler needs.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, documentID string) (*pipeline.ProcessedOutcome, error)
}

// ProcessHandler returns a handler that runs documents through p.
func ProcessHandler(p DocumentProcessor) JobHandler {
	return func(ctx context.Context, job *ProcessDocumentJob) error {
		outcome, err := p.ProcessDocument(ctx, job.DocumentID)
		if err != nil {
			return err
		}
		job.Outcome = outcome
		return nil
	}
}
