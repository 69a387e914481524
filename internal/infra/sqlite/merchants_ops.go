package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
)

const merchantColumns = `id, user_id, name, default_category_id`

func scanMerchant(s rowScanner) (*domain.Merchant, error) {
	var (
		m   domain.Merchant
		def sql.NullString
	)
	if err := s.Scan(&m.ID, &m.UserID, &m.Name, &def); err != nil {
		return nil, err
	}
	m.DefaultCategoryID = stringPtr(def)
	return &m, nil
}

func (r *repo) queryMerchants(ctx context.Context, query string, args ...any) ([]*domain.Merchant, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Merchant
	for rows.Next() {
		m, err := scanMerchant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListMerchants implements ledger.Repository.
func (r *repo) ListMerchants(ctx context.Context, userID string, limit int) ([]*domain.Merchant, error) {
	out, err := r.queryMerchants(ctx,
		`SELECT `+merchantColumns+` FROM merchants WHERE user_id = ? ORDER BY name, id LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListMerchants: %w", err)
	}
	return out, nil
}

// SearchMerchants implements ledger.Repository.
func (r *repo) SearchMerchants(ctx context.Context, userID, fragment string, limit int) ([]*domain.Merchant, error) {
	out, err := r.queryMerchants(ctx,
		`SELECT `+merchantColumns+` FROM merchants
		 WHERE user_id = ? AND instr(lower(name), lower(?)) > 0
		 ORDER BY name, id LIMIT ?`,
		userID, fragment, limit)
	if err != nil {
		return nil, fmt.Errorf("SearchMerchants: %w", err)
	}
	return out, nil
}

// FindMerchantByName implements ledger.Repository.
func (r *repo) FindMerchantByName(ctx context.Context, userID, name string) (*domain.Merchant, error) {
	m, err := scanMerchant(r.q.QueryRowContext(ctx,
		`SELECT `+merchantColumns+` FROM merchants WHERE user_id = ? AND lower(name) = lower(?) ORDER BY id LIMIT 1`,
		userID, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindMerchantByName: %w", err)
	}
	return m, nil
}

// InsertMerchant implements ledger.Repository.
func (r *repo) InsertMerchant(ctx context.Context, m *domain.Merchant) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO merchants (`+merchantColumns+`) VALUES (?, ?, ?, ?)`,
		m.ID, m.UserID, m.Name, nullString(m.DefaultCategoryID),
	)
	if err != nil {
		return fmt.Errorf("InsertMerchant: %w", err)
	}
	return nil
}

// UpdateMerchantDefaultCategory implements ledger.Repository.
func (r *repo) UpdateMerchantDefaultCategory(ctx context.Context, id, categoryID string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE merchants SET default_category_id = ? WHERE id = ?`, categoryID, id)
	if err != nil {
		return fmt.Errorf("UpdateMerchantDefaultCategory: %w", err)
	}
	return nil
}
