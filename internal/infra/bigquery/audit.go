// Package bigquery stores the reconciliation audit trail (parsing runs and
// raw model outputs) in BigQuery.
package bigquery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/ledger-reconciler/internal/domain"
	"github.com/dvloznov/ledger-reconciler/internal/pipeline"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

const (
	DefaultDataset    = "reconciler"
	parsingRunsTable  = "parsing_runs"
	modelOutputsTable = "model_outputs"

	maxErrorMessageLen = 2000
)

// AuditLog implements pipeline.AuditSink on BigQuery. It holds one shared
// client for all operations.
type AuditLog struct {
	client  *bigquery.Client
	project string
	dataset string

	mu     sync.Mutex
	models map[string]string // run id -> model name
}

var _ pipeline.AuditSink = (*AuditLog)(nil)

// NewAuditLog creates an audit log writing to project.dataset.
func NewAuditLog(ctx context.Context, project, dataset string) (*AuditLog, error) {
	if dataset == "" {
		dataset = DefaultDataset
	}
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("NewAuditLog: creating client: %w", err)
	}
	return &AuditLog{client: client, project: project, dataset: dataset, models: map[string]string{}}, nil
}

// Close closes the BigQuery client connection.
func (a *AuditLog) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

// StartRun inserts a RUNNING parsing run and returns its generated id.
func (a *AuditLog) StartRun(ctx context.Context, documentID, model string) (string, error) {
	runID := uuid.NewString()

	q := a.client.Query(fmt.Sprintf(`
		INSERT %s (
			parsing_run_id,
			document_id,
			started_ts,
			parser_type,
			parser_version,
			model_name,
			status
		)
		VALUES (
			@parsing_run_id,
			@document_id,
			@started_ts,
			@parser_type,
			@parser_version,
			@model_name,
			@status
		)
	`, tableRef(a.project, a.dataset, parsingRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "parsing_run_id", Value: runID},
		{Name: "document_id", Value: documentID},
		{Name: "started_ts", Value: time.Now()},
		{Name: "parser_type", Value: pipeline.ParserType},
		{Name: "parser_version", Value: pipeline.ParserVersion},
		{Name: "model_name", Value: model},
		{Name: "status", Value: RunStatusRunning},
	}

	if err := runDML(ctx, q); err != nil {
		return "", fmt.Errorf("StartRun: %w", err)
	}

	a.mu.Lock()
	a.models[runID] = model
	a.mu.Unlock()
	return runID, nil
}

// RecordModelOutput inserts one raw response. Uses DML INSERT to avoid
// streaming buffer issues with later reads.
func (a *AuditLog) RecordModelOutput(ctx context.Context, runID, documentID, stage string, turn int, raw string) error {
	a.mu.Lock()
	model := a.models[runID]
	a.mu.Unlock()

	row := newModelOutputRow(runID, documentID, model, stage, turn, raw)
	q := a.client.Query(fmt.Sprintf(`
		INSERT INTO %s (
			output_id, parsing_run_id, document_id,
			model_name, stage, turn, raw_text, created_ts
		)
		VALUES (
			@output_id, @parsing_run_id, @document_id,
			@model_name, @stage, @turn, @raw_text, @created_ts
		)
	`, tableRef(a.project, a.dataset, modelOutputsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "output_id", Value: row.OutputID},
		{Name: "parsing_run_id", Value: row.ParsingRunID},
		{Name: "document_id", Value: row.DocumentID},
		{Name: "model_name", Value: row.ModelName},
		{Name: "stage", Value: row.Stage},
		{Name: "turn", Value: row.Turn},
		{Name: "raw_text", Value: row.RawText},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("RecordModelOutput: %w", err)
	}
	return nil
}

// MarkRunSucceeded sets status=SUCCESS and finished_ts, clears the error.
func (a *AuditLog) MarkRunSucceeded(ctx context.Context, runID string) error {
	return a.finishRun(ctx, runID, RunStatusSuccess, nil)
}

// MarkRunFailed sets status=FAILED, finished_ts and the error kind and message.
func (a *AuditLog) MarkRunFailed(ctx context.Context, runID string, cause error) error {
	return a.finishRun(ctx, runID, RunStatusFailed, cause)
}

func (a *AuditLog) finishRun(ctx context.Context, runID, status string, cause error) error {
	defer func() {
		a.mu.Lock()
		delete(a.models, runID)
		a.mu.Unlock()
	}()

	kind, msg := describeFailure(cause)
	q := a.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_kind = @error_kind,
		    error_message = @error_message
		WHERE parsing_run_id = @parsing_run_id
	`, tableRef(a.project, a.dataset, parsingRunsTable)))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: status},
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_kind", Value: kind},
		{Name: "error_message", Value: msg},
		{Name: "parsing_run_id", Value: runID},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("finishRun %s: %w", status, err)
	}
	return nil
}

// ListRuns retrieves the parsing runs of a document, newest first.
func (a *AuditLog) ListRuns(ctx context.Context, documentID string) ([]*ParsingRunRow, error) {
	q := a.client.Query(fmt.Sprintf(`
		SELECT
			parsing_run_id, document_id, started_ts, finished_ts,
			IFNULL(parser_type, '') AS parser_type,
			IFNULL(parser_version, '') AS parser_version,
			IFNULL(model_name, '') AS model_name,
			IFNULL(status, '') AS status,
			IFNULL(error_kind, '') AS error_kind,
			IFNULL(error_message, '') AS error_message
		FROM %s
		WHERE document_id = @document_id
		ORDER BY started_ts DESC
	`, tableRef(a.project, a.dataset, parsingRunsTable)))
	q.Parameters = []bigquery.QueryParameter{{Name: "document_id", Value: documentID}}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRuns: reading query: %w", err)
	}

	var runs []*ParsingRunRow
	for {
		var row ParsingRunRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListRuns: iterating: %w", err)
		}
		runs = append(runs, &row)
	}
	return runs, nil
}

// ListModelOutputs retrieves every raw response recorded for a document in
// the order it was produced.
func (a *AuditLog) ListModelOutputs(ctx context.Context, documentID string) ([]*ModelOutputRow, error) {
	q := a.client.Query(fmt.Sprintf(`
		SELECT
			output_id, parsing_run_id, document_id,
			IFNULL(model_name, '') AS model_name, stage,
			IFNULL(turn, 0) AS turn, IFNULL(raw_text, '') AS raw_text, created_ts
		FROM %s
		WHERE document_id = @document_id
		ORDER BY created_ts, turn
	`, tableRef(a.project, a.dataset, modelOutputsTable)))
	q.Parameters = []bigquery.QueryParameter{{Name: "document_id", Value: documentID}}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListModelOutputs: reading query: %w", err)
	}

	var outputs []*ModelOutputRow
	for {
		var row ModelOutputRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListModelOutputs: iterating: %w", err)
		}
		outputs = append(outputs, &row)
	}
	return outputs, nil
}

// runDML runs a statement and waits for the job to finish.
func runDML(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

func tableRef(project, dataset, table string) string {
	return "`" + project + "." + dataset + "." + table + "`"
}

func newModelOutputRow(runID, documentID, model, stage string, turn int, raw string) *ModelOutputRow {
	return &ModelOutputRow{
		OutputID:     uuid.NewString(),
		ParsingRunID: runID,
		DocumentID:   documentID,
		ModelName:    model,
		Stage:        stage,
		Turn:         int64(turn),
		RawText:      raw,
		CreatedTS:    time.Now(),
	}
}

// describeFailure splits a processing error into its kind and a message
// short enough for the error_message column.
func describeFailure(cause error) (string, string) {
	if cause == nil {
		return "", ""
	}
	msg := cause.Error()
	if len(msg) > maxErrorMessageLen {
		msg = msg[:maxErrorMessageLen]
	}
	return string(domain.KindOf(cause)), msg
}
