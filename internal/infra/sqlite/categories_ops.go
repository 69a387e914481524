package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
)

const categoryColumns = `id, user_id, name, type, parent_category_id`

func scanCategory(s rowScanner) (*domain.Category, error) {
	var (
		c      domain.Category
		parent sql.NullString
	)
	if err := s.Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &parent); err != nil {
		return nil, err
	}
	c.ParentCategoryID = stringPtr(parent)
	return &c, nil
}

// GetCategory implements ledger.Repository.
func (r *repo) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	c, err := scanCategory(r.q.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetCategory: %w", err)
	}
	return c, nil
}

// ListCategories implements ledger.Repository.
func (r *repo) ListCategories(ctx context.Context, userID string, limit int) ([]*domain.Category, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = ? ORDER BY name, id LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: %w", err)
	}
	defer rows.Close()

	var out []*domain.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("ListCategories: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// InsertCategory implements ledger.Repository.
func (r *repo) InsertCategory(ctx context.Context, c *domain.Category) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO categories (`+categoryColumns+`) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, string(c.Type), nullString(c.ParentCategoryID),
	)
	if err != nil {
		return fmt.Errorf("InsertCategory: %w", err)
	}
	return nil
}
