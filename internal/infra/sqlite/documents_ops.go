package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
)

const documentColumns = `id, user_id, original_filename, storage_uri, mime_type, status, user_note, created_at`

// GetDocument implements ledger.Repository.
func (r *repo) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	var (
		d       domain.Document
		created string
	)
	err := r.q.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id).
		Scan(&d.ID, &d.UserID, &d.OriginalFilename, &d.StorageURI, &d.MimeType, &d.Status, &d.UserNote, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetDocument: %w", err)
	}
	if d.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("GetDocument: %w", err)
	}
	return &d, nil
}

// InsertDocument implements ledger.Repository.
func (r *repo) InsertDocument(ctx context.Context, d *domain.Document) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO documents (`+documentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.UserID, d.OriginalFilename, d.StorageURI, d.MimeType, string(d.Status), d.UserNote, formatTime(d.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("InsertDocument: %w", err)
	}
	return nil
}

// UpdateDocumentStatus implements ledger.Repository.
func (r *repo) UpdateDocumentStatus(ctx context.Context, id string, status domain.DocumentStatus) error {
	res, err := r.q.ExecContext(ctx, `UPDATE documents SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("UpdateDocumentStatus: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("UpdateDocumentStatus: document %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// LinkTransactionDocument implements ledger.Repository.
func (r *repo) LinkTransactionDocument(ctx context.Context, transactionID, documentID string) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT OR IGNORE INTO transaction_documents (transaction_id, document_id) VALUES (?, ?)`,
		transactionID, documentID)
	if err != nil {
		return fmt.Errorf("LinkTransactionDocument: %w", err)
	}
	return nil
}
