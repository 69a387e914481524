package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
)

const proposalColumns = `id, user_id, document_id, target_transaction_id, change_type, status,
	proposed_data, confidence_score, created_at, updated_at`

func scanProposal(s rowScanner) (*domain.ProposedChange, error) {
	var (
		p                      domain.ProposedChange
		target                 sql.NullString
		data, created, updated string
	)
	if err := s.Scan(&p.ID, &p.UserID, &p.DocumentID, &target, &p.ChangeType, &p.Status,
		&data, &p.ConfidenceScore, &created, &updated); err != nil {
		return nil, err
	}
	p.TargetTransactionID = stringPtr(target)
	if err := json.Unmarshal([]byte(data), &p.ProposedData); err != nil {
		return nil, fmt.Errorf("decode proposed_data of %s: %w", p.ID, err)
	}

	var err error
	if p.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repo) queryProposals(ctx context.Context, query string, args ...any) ([]*domain.ProposedChange, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ProposedChange
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetProposal implements ledger.Repository.
func (r *repo) GetProposal(ctx context.Context, id string) (*domain.ProposedChange, error) {
	p, err := scanProposal(r.q.QueryRowContext(ctx,
		`SELECT `+proposalColumns+` FROM proposed_changes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetProposal: %w", err)
	}
	return p, nil
}

// ListPendingProposals implements ledger.Repository.
func (r *repo) ListPendingProposals(ctx context.Context, userID string) ([]*domain.ProposedChange, error) {
	out, err := r.queryProposals(ctx,
		`SELECT `+proposalColumns+` FROM proposed_changes
		 WHERE user_id = ? AND status = ? ORDER BY created_at, id`,
		userID, string(domain.ProposalStatusPending))
	if err != nil {
		return nil, fmt.Errorf("ListPendingProposals: %w", err)
	}
	return out, nil
}

// ListDocumentProposals implements ledger.Repository.
func (r *repo) ListDocumentProposals(ctx context.Context, documentID string) ([]*domain.ProposedChange, error) {
	out, err := r.queryProposals(ctx,
		`SELECT `+proposalColumns+` FROM proposed_changes WHERE document_id = ? ORDER BY created_at, id`,
		documentID)
	if err != nil {
		return nil, fmt.Errorf("ListDocumentProposals: %w", err)
	}
	return out, nil
}

// FindProposals implements ledger.Repository.
func (r *repo) FindProposals(ctx context.Context, documentID string, targetTransactionID *string) ([]*domain.ProposedChange, error) {
	var (
		out []*domain.ProposedChange
		err error
	)
	if targetTransactionID == nil || *targetTransactionID == "" {
		out, err = r.queryProposals(ctx,
			`SELECT `+proposalColumns+` FROM proposed_changes
			 WHERE document_id = ? AND target_transaction_id IS NULL ORDER BY created_at, id`,
			documentID)
	} else {
		out, err = r.queryProposals(ctx,
			`SELECT `+proposalColumns+` FROM proposed_changes
			 WHERE document_id = ? AND target_transaction_id = ? ORDER BY created_at, id`,
			documentID, *targetTransactionID)
	}
	if err != nil {
		return nil, fmt.Errorf("FindProposals: %w", err)
	}
	return out, nil
}

// InsertProposal implements ledger.Repository.
func (r *repo) InsertProposal(ctx context.Context, p *domain.ProposedChange) error {
	data, err := json.Marshal(p.ProposedData)
	if err != nil {
		return fmt.Errorf("InsertProposal: encode proposed_data: %w", err)
	}
	_, err = r.q.ExecContext(ctx,
		`INSERT INTO proposed_changes (`+proposalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.DocumentID, nullString(p.TargetTransactionID), string(p.ChangeType), string(p.Status),
		string(data), p.ConfidenceScore, formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("InsertProposal: %w", err)
	}
	return nil
}

// UpdateProposal implements ledger.Repository.
func (r *repo) UpdateProposal(ctx context.Context, p *domain.ProposedChange) error {
	data, err := json.Marshal(p.ProposedData)
	if err != nil {
		return fmt.Errorf("UpdateProposal: encode proposed_data: %w", err)
	}
	res, err := r.q.ExecContext(ctx,
		`UPDATE proposed_changes
		 SET change_type = ?, status = ?, proposed_data = ?, confidence_score = ?, updated_at = ?
		 WHERE id = ?`,
		string(p.ChangeType), string(p.Status), string(data), p.ConfidenceScore, formatTime(p.UpdatedAt), p.ID,
	)
	if err != nil {
		return fmt.Errorf("UpdateProposal: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("UpdateProposal: proposal %s: %w", p.ID, domain.ErrNotFound)
	}
	return nil
}
