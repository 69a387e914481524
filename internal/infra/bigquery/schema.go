package bigquery

import (
	"context"
	"fmt"
)

// schemaStatements returns the DDL for the audit tables in project.dataset.
func schemaStatements(project, dataset string) []string {
	return []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS `+"`%s.%s`", project, dataset),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			parsing_run_id  STRING NOT NULL,
			document_id     STRING NOT NULL,
			started_ts      TIMESTAMP NOT NULL,
			finished_ts     TIMESTAMP,
			parser_type     STRING,
			parser_version  STRING,
			model_name      STRING,
			status          STRING NOT NULL,
			error_kind      STRING,
			error_message   STRING
		)`, tableRef(project, dataset, parsingRunsTable)),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			output_id       STRING NOT NULL,
			parsing_run_id  STRING NOT NULL,
			document_id     STRING NOT NULL,
			model_name      STRING,
			stage           STRING NOT NULL,
			turn            INT64,
			raw_text        STRING,
			created_ts      TIMESTAMP NOT NULL
		)`, tableRef(project, dataset, modelOutputsTable)),
	}
}

// EnsureTables creates the dataset and audit tables when they are missing.
func (a *AuditLog) EnsureTables(ctx context.Context) error {
	for _, stmt := range schemaStatements(a.project, a.dataset) {
		if err := runDML(ctx, a.client.Query(stmt)); err != nil {
			return fmt.Errorf("EnsureTables: %w", err)
		}
	}
	return nil
}
