// Package ledger owns every mutation of the ledger: accounts, transactions,
// proposal review and balance re-derivation.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Service runs ledger operations against a Store. Every mutating method is a
// single atomic unit of work that includes the balance re-derivation it needs.
type Service struct {
	store Store
	log   zerolog.Logger
	now   func() time.Time
}

// NewService creates a ledger service.
func NewService(store Store, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With().Str("component", "ledger").Logger(),
		now:   time.Now,
	}
}

// EnsureUser returns the user with the given email, creating it together with
// its Petty Cash Account on first contact.
func (s *Service) EnsureUser(ctx context.Context, email, fullName string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("EnsureUser: email is required: %w", domain.ErrInvalidInput)
	}

	var user *domain.User
	err := s.store.InTx(ctx, func(repo Repository) error {
		existing, err := repo.GetUserByEmail(ctx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			user = existing
			return nil
		}

		user = &domain.User{ID: uuid.NewString(), Email: email, FullName: fullName, CreatedAt: s.now()}
		if err := repo.InsertUser(ctx, user); err != nil {
			return err
		}
		_, err = EnsurePettyCash(ctx, repo, user.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("EnsureUser: %w", err)
	}
	return user, nil
}

// LookupUser returns the user with the given email or ErrNotFound.
func (s *Service) LookupUser(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("LookupUser: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("LookupUser: %s: %w", email, domain.ErrNotFound)
	}
	return user, nil
}

// EnsurePettyCash returns the user's Petty Cash Account, creating it when absent.
func EnsurePettyCash(ctx context.Context, repo Repository, userID string) (*domain.Account, error) {
	acct, err := repo.FindAccountByName(ctx, userID, domain.PettyCashAccountName)
	if err != nil {
		return nil, fmt.Errorf("EnsurePettyCash: %w", err)
	}
	if acct != nil {
		return acct, nil
	}

	acct = &domain.Account{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      domain.PettyCashAccountName,
		Type:      domain.AccountTypeAsset,
		SubType:   "CASH",
		Currency:  domain.DefaultCurrency,
		Balance:   decimal.Zero,
		CreatedAt: time.Now(),
	}
	if err := repo.InsertAccount(ctx, acct); err != nil {
		return nil, fmt.Errorf("EnsurePettyCash: %w", err)
	}
	return acct, nil
}

// ownedAccount loads an account and checks it belongs to userID.
func ownedAccount(ctx context.Context, repo Repository, userID, accountID string) (*domain.Account, error) {
	acct, err := repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, fmt.Errorf("account %s: %w", accountID, domain.ErrNotFound)
	}
	if acct.UserID != userID {
		return nil, fmt.Errorf("account %s: %w", accountID, domain.ErrForbidden)
	}
	return acct, nil
}

// ownedCategory loads a category and checks it belongs to userID.
func ownedCategory(ctx context.Context, repo Repository, userID, categoryID string) (*domain.Category, error) {
	cat, err := repo.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, fmt.Errorf("category %s: %w", categoryID, domain.ErrNotFound)
	}
	if cat.UserID != userID {
		return nil, fmt.Errorf("category %s: %w", categoryID, domain.ErrForbidden)
	}
	return cat, nil
}
