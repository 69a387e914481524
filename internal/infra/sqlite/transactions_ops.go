package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
)

const transactionColumns = `id, user_id, account_id, target_account_id, category_id, amount, type,
	transaction_date, note, merchant, created_at, updated_at`

func scanTransaction(s rowScanner) (*domain.Transaction, error) {
	var (
		t                      domain.Transaction
		target, category       sql.NullString
		date, created, updated string
	)
	if err := s.Scan(&t.ID, &t.UserID, &t.AccountID, &target, &category, &t.Amount, &t.Type,
		&date, &t.Note, &t.Merchant, &created, &updated); err != nil {
		return nil, err
	}
	t.TargetAccountID = stringPtr(target)
	t.CategoryID = stringPtr(category)

	var err error
	if t.TransactionDate, err = parseTime(date); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repo) queryTransactions(ctx context.Context, query string, args ...any) ([]*domain.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTransaction implements ledger.Repository.
func (r *repo) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	t, err := scanTransaction(r.q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetTransaction: %w", err)
	}
	return t, nil
}

// InsertTransaction implements ledger.Repository.
func (r *repo) InsertTransaction(ctx context.Context, t *domain.Transaction) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.AccountID, nullString(t.TargetAccountID), nullString(t.CategoryID),
		t.Amount, string(t.Type), formatTime(t.TransactionDate), t.Note, t.Merchant,
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("InsertTransaction: %w", err)
	}
	return nil
}

// UpdateTransaction implements ledger.Repository.
func (r *repo) UpdateTransaction(ctx context.Context, t *domain.Transaction) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE transactions
		 SET account_id = ?, target_account_id = ?, category_id = ?, amount = ?, type = ?,
		     transaction_date = ?, note = ?, merchant = ?, updated_at = ?
		 WHERE id = ?`,
		t.AccountID, nullString(t.TargetAccountID), nullString(t.CategoryID), t.Amount, string(t.Type),
		formatTime(t.TransactionDate), t.Note, t.Merchant, formatTime(t.UpdatedAt), t.ID,
	)
	if err != nil {
		return fmt.Errorf("UpdateTransaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("UpdateTransaction: transaction %s: %w", t.ID, domain.ErrNotFound)
	}
	return nil
}

// DeleteTransaction implements ledger.Repository.
func (r *repo) DeleteTransaction(ctx context.Context, id string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	return nil
}

// ListRecentTransactions implements ledger.Repository.
func (r *repo) ListRecentTransactions(ctx context.Context, userID string, limit int) ([]*domain.Transaction, error) {
	out, err := r.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE user_id = ? ORDER BY transaction_date DESC, created_at DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListRecentTransactions: %w", err)
	}
	return out, nil
}

// SearchTransactions implements ledger.Repository.
func (r *repo) SearchTransactions(ctx context.Context, userID string, f domain.TransactionFilter) ([]*domain.Transaction, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = ?`)
	args := []any{userID}

	if f.Merchant != "" {
		b.WriteString(` AND instr(lower(merchant), lower(?)) > 0`)
		args = append(args, f.Merchant)
	}
	if f.Amount != nil {
		// Amounts are stored in canonical decimal form, so text equality is numeric equality.
		b.WriteString(` AND amount = ?`)
		args = append(args, f.Amount.String())
	}
	if f.DateFrom != nil {
		b.WriteString(` AND transaction_date >= ?`)
		args = append(args, formatTime(*f.DateFrom))
	}
	if f.DateTo != nil {
		b.WriteString(` AND transaction_date <= ?`)
		args = append(args, formatTime(*f.DateTo))
	}

	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	b.WriteString(` ORDER BY transaction_date DESC, created_at DESC LIMIT ?`)
	args = append(args, limit)

	out, err := r.queryTransactions(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("SearchTransactions: %w", err)
	}
	return out, nil
}

// ListAccountTransactions implements ledger.Repository.
func (r *repo) ListAccountTransactions(ctx context.Context, accountID string) ([]*domain.Transaction, error) {
	out, err := r.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE account_id = ? OR target_account_id = ?
		 ORDER BY transaction_date, created_at`,
		accountID, accountID)
	if err != nil {
		return nil, fmt.Errorf("ListAccountTransactions: %w", err)
	}
	return out, nil
}

// ListTransactionsAfter implements ledger.Repository.
func (r *repo) ListTransactionsAfter(ctx context.Context, userID string, t time.Time) ([]*domain.Transaction, error) {
	out, err := r.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE user_id = ? AND transaction_date > ?
		 ORDER BY transaction_date DESC`,
		userID, formatTime(t))
	if err != nil {
		return nil, fmt.Errorf("ListTransactionsAfter: %w", err)
	}
	return out, nil
}
