package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
	"github.com/shopspring/decimal"
)

const accountColumns = `id, user_id, name, type, sub_type, currency, balance, description, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(s rowScanner) (*domain.Account, error) {
	var (
		a       domain.Account
		created string
	)
	if err := s.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.SubType, &a.Currency, &a.Balance, &a.Description, &created); err != nil {
		return nil, err
	}
	t, err := parseTime(created)
	if err != nil {
		return nil, err
	}
	a.CreatedAt = t
	return &a, nil
}

func (r *repo) queryAccounts(ctx context.Context, query string, args ...any) ([]*domain.Account, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAccount implements ledger.Repository.
func (r *repo) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	a, err := scanAccount(r.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetAccount: %w", err)
	}
	return a, nil
}

// ListAccounts implements ledger.Repository.
func (r *repo) ListAccounts(ctx context.Context, userID string) ([]*domain.Account, error) {
	out, err := r.queryAccounts(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY name, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}
	return out, nil
}

// FindAccountByName implements ledger.Repository.
func (r *repo) FindAccountByName(ctx context.Context, userID, name string) (*domain.Account, error) {
	a, err := scanAccount(r.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? AND name = ? ORDER BY created_at LIMIT 1`,
		userID, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindAccountByName: %w", err)
	}
	return a, nil
}

// InsertAccount implements ledger.Repository.
func (r *repo) InsertAccount(ctx context.Context, a *domain.Account) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Name, string(a.Type), a.SubType, a.Currency, a.Balance, a.Description, formatTime(a.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("InsertAccount: %w", err)
	}
	return nil
}

// UpdateAccountBalance implements ledger.Repository.
func (r *repo) UpdateAccountBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	res, err := r.q.ExecContext(ctx, `UPDATE accounts SET balance = ? WHERE id = ?`, balance, id)
	if err != nil {
		return fmt.Errorf("UpdateAccountBalance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("UpdateAccountBalance: account %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// DeleteAccount implements ledger.Repository.
func (r *repo) DeleteAccount(ctx context.Context, id string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("DeleteAccount: %w", err)
	}
	return nil
}
