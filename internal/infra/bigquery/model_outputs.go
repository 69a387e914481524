package bigquery

import "time"

// ModelOutputRow is one raw reasoning response of a parsing run.
type ModelOutputRow struct {
	OutputID     string `bigquery:"output_id"`      // REQUIRED
	ParsingRunID string `bigquery:"parsing_run_id"` // REQUIRED
	DocumentID   string `bigquery:"document_id"`    // REQUIRED

	ModelName string `bigquery:"model_name"` // REQUIRED
	Stage     string `bigquery:"stage"`      // REQUIRED: extract | turn
	Turn      int64  `bigquery:"turn"`       // 0 for extraction

	RawText   string    `bigquery:"raw_text"`   // REQUIRED
	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}
