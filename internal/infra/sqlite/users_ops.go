package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
)

// GetUserByEmail implements ledger.Repository.
func (r *repo) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var (
		u       domain.User
		created string
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT id, email, full_name, created_at FROM users WHERE email = ?`, email,
	).Scan(&u.ID, &u.Email, &u.FullName, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetUserByEmail: %w", err)
	}
	if u.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("GetUserByEmail: %w", err)
	}
	return &u, nil
}

// InsertUser implements ledger.Repository.
func (r *repo) InsertUser(ctx context.Context, u *domain.User) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO users (id, email, full_name, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.FullName, formatTime(u.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("InsertUser: %w", err)
	}
	return nil
}
