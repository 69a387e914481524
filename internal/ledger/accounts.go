package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountInput describes an account created by the user.
type AccountInput struct {
	Name        string             `json:"name"`
	Type        domain.AccountType `json:"type"`
	SubType     string             `json:"sub_type"`
	Currency    string             `json:"currency"`
	Description string             `json:"description"`
}

// CreateAccount creates an account with a zero balance.
func (s *Service) CreateAccount(ctx context.Context, userID string, in AccountInput) (*domain.Account, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("CreateAccount: name is required: %w", domain.ErrInvalidInput)
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("CreateAccount: type %q: %w", in.Type, domain.ErrInvalidInput)
	}
	if in.Currency == "" {
		in.Currency = domain.DefaultCurrency
	}

	acct := &domain.Account{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        in.Name,
		Type:        in.Type,
		SubType:     in.SubType,
		Currency:    strings.ToUpper(in.Currency),
		Balance:     decimal.Zero,
		Description: in.Description,
		CreatedAt:   s.now(),
	}
	if err := s.store.InsertAccount(ctx, acct); err != nil {
		return nil, fmt.Errorf("CreateAccount: %w", err)
	}
	return acct, nil
}

// ListAccounts returns the user's accounts.
func (s *Service) ListAccounts(ctx context.Context, userID string) ([]*domain.Account, error) {
	accounts, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: %w", err)
	}
	return accounts, nil
}

// DeleteAccount removes an account with every transaction that touches it and
// re-derives the counterpart accounts of removed transfers. The Petty Cash
// Account cannot be deleted.
func (s *Service) DeleteAccount(ctx context.Context, userID, accountID string) error {
	err := s.store.InTx(ctx, func(repo Repository) error {
		acct, err := ownedAccount(ctx, repo, userID, accountID)
		if err != nil {
			return err
		}
		if acct.IsPettyCash() {
			return fmt.Errorf("petty cash account cannot be deleted: %w", domain.ErrInvalidInput)
		}

		txs, err := repo.ListAccountTransactions(ctx, acct.ID)
		if err != nil {
			return err
		}
		var touched []string
		for _, t := range txs {
			for _, id := range t.AccountIDs() {
				if id != acct.ID {
					touched = append(touched, id)
				}
			}
			if err := repo.DeleteTransaction(ctx, t.ID); err != nil {
				return err
			}
		}

		if err := repo.DeleteAccount(ctx, acct.ID); err != nil {
			return err
		}
		return RecalculateAccounts(ctx, repo, touched...)
	})
	if err != nil {
		return fmt.Errorf("DeleteAccount: %w", err)
	}
	s.log.Info().Str("account_id", accountID).Msg("Deleted account")
	return nil
}

// CreateCategory creates a category, optionally under a parent of the same user.
// Parents must already exist, so the tree cannot contain a cycle.
func (s *Service) CreateCategory(ctx context.Context, userID, name string, typ domain.CategoryType, parentID *string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" || !typ.Valid() {
		return nil, fmt.Errorf("CreateCategory: name and type are required: %w", domain.ErrInvalidInput)
	}

	cat := &domain.Category{ID: uuid.NewString(), UserID: userID, Name: name, Type: typ}
	err := s.store.InTx(ctx, func(repo Repository) error {
		if parentID != nil && *parentID != "" {
			if _, err := ownedCategory(ctx, repo, userID, *parentID); err != nil {
				return err
			}
			cat.ParentCategoryID = parentID
		}
		return repo.InsertCategory(ctx, cat)
	})
	if err != nil {
		return nil, fmt.Errorf("CreateCategory: %w", err)
	}
	return cat, nil
}

// CreateMerchant creates a merchant with an optional default category.
func (s *Service) CreateMerchant(ctx context.Context, userID, name string, defaultCategoryID *string) (*domain.Merchant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("CreateMerchant: name is required: %w", domain.ErrInvalidInput)
	}

	m := &domain.Merchant{ID: uuid.NewString(), UserID: userID, Name: name}
	err := s.store.InTx(ctx, func(repo Repository) error {
		if defaultCategoryID != nil && *defaultCategoryID != "" {
			if _, err := ownedCategory(ctx, repo, userID, *defaultCategoryID); err != nil {
				return err
			}
			m.DefaultCategoryID = defaultCategoryID
		}
		return repo.InsertMerchant(ctx, m)
	})
	if err != nil {
		return nil, fmt.Errorf("CreateMerchant: %w", err)
	}
	return m, nil
}

// learnMerchant records categoryID as the merchant's default category when
// the merchant has none yet, creating the merchant if needed.
func learnMerchant(ctx context.Context, repo Repository, userID, name, categoryID string) error {
	name = strings.TrimSpace(name)
	if name == "" || categoryID == "" {
		return nil
	}
	if _, err := ownedCategory(ctx, repo, userID, categoryID); err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrForbidden) {
			return nil
		}
		return err
	}

	m, err := repo.FindMerchantByName(ctx, userID, name)
	if err != nil {
		return err
	}
	if m == nil {
		return repo.InsertMerchant(ctx, &domain.Merchant{
			ID: uuid.NewString(), UserID: userID, Name: name, DefaultCategoryID: &categoryID,
		})
	}
	if m.DefaultCategoryID == nil {
		return repo.UpdateMerchantDefaultCategory(ctx, m.ID, categoryID)
	}
	return nil
}
