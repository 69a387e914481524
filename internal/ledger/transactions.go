package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionInput describes a transaction created by the user.
type TransactionInput struct {
	AccountID       string                 `json:"account_id"`
	TargetAccountID string                 `json:"target_account_id,omitempty"`
	CategoryID      string                 `json:"category_id,omitempty"`
	Amount          decimal.Decimal        `json:"amount"`
	Type            domain.TransactionType `json:"type"`
	TransactionDate time.Time              `json:"transaction_date"`
	Note            string                 `json:"note,omitempty"`
	Merchant        string                 `json:"merchant,omitempty"`
}

// TransactionPatch lists the fields of an update; nil fields are unchanged.
type TransactionPatch struct {
	AccountID       *string                 `json:"account_id,omitempty"`
	TargetAccountID *string                 `json:"target_account_id,omitempty"`
	CategoryID      *string                 `json:"category_id,omitempty"`
	Amount          *decimal.Decimal        `json:"amount,omitempty"`
	Type            *domain.TransactionType `json:"type,omitempty"`
	TransactionDate *time.Time              `json:"transaction_date,omitempty"`
	Note            *string                 `json:"note,omitempty"`
	Merchant        *string                 `json:"merchant,omitempty"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CreateTransaction stores a transaction and re-derives the accounts it touches.
func (s *Service) CreateTransaction(ctx context.Context, userID string, in TransactionInput) (*domain.Transaction, error) {
	now := s.now()
	t := &domain.Transaction{
		ID:              uuid.NewString(),
		UserID:          userID,
		AccountID:       in.AccountID,
		TargetAccountID: optional(in.TargetAccountID),
		CategoryID:      optional(in.CategoryID),
		Amount:          in.Amount,
		Type:            in.Type,
		TransactionDate: in.TransactionDate,
		Note:            in.Note,
		Merchant:        in.Merchant,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if t.TransactionDate.IsZero() {
		t.TransactionDate = now
	}

	err := s.store.InTx(ctx, func(repo Repository) error {
		if err := validateTransaction(ctx, repo, t); err != nil {
			return err
		}
		if err := repo.InsertTransaction(ctx, t); err != nil {
			return err
		}
		return RecalculateAccounts(ctx, repo, t.AccountIDs()...)
	})
	if err != nil {
		return nil, fmt.Errorf("CreateTransaction: %w", err)
	}
	return t, nil
}

// UpdateTransaction applies a patch and re-derives every account touched
// before or after the change.
func (s *Service) UpdateTransaction(ctx context.Context, userID, id string, patch TransactionPatch) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := s.store.InTx(ctx, func(repo Repository) error {
		t, err := ownedTransaction(ctx, repo, userID, id)
		if err != nil {
			return err
		}
		before := t.AccountIDs()

		if patch.AccountID != nil {
			t.AccountID = *patch.AccountID
		}
		if patch.TargetAccountID != nil {
			t.TargetAccountID = optional(*patch.TargetAccountID)
		}
		if patch.CategoryID != nil {
			t.CategoryID = optional(*patch.CategoryID)
		}
		if patch.Amount != nil {
			t.Amount = *patch.Amount
		}
		if patch.Type != nil {
			t.Type = *patch.Type
		}
		if patch.TransactionDate != nil {
			t.TransactionDate = *patch.TransactionDate
		}
		if patch.Note != nil {
			t.Note = *patch.Note
		}
		if patch.Merchant != nil {
			t.Merchant = *patch.Merchant
		}
		t.UpdatedAt = s.now()

		if err := validateTransaction(ctx, repo, t); err != nil {
			return err
		}
		if err := repo.UpdateTransaction(ctx, t); err != nil {
			return err
		}
		out = t
		return RecalculateAccounts(ctx, repo, append(before, t.AccountIDs()...)...)
	})
	if err != nil {
		return nil, fmt.Errorf("UpdateTransaction: %w", err)
	}
	return out, nil
}

// DeleteTransaction removes a transaction and re-derives the accounts it touched.
func (s *Service) DeleteTransaction(ctx context.Context, userID, id string) error {
	err := s.store.InTx(ctx, func(repo Repository) error {
		t, err := ownedTransaction(ctx, repo, userID, id)
		if err != nil {
			return err
		}
		if err := repo.DeleteTransaction(ctx, t.ID); err != nil {
			return err
		}
		return RecalculateAccounts(ctx, repo, t.AccountIDs()...)
	})
	if err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	return nil
}

func ownedTransaction(ctx context.Context, repo Repository, userID, id string) (*domain.Transaction, error) {
	t, err := repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
	}
	if t.UserID != userID {
		return nil, fmt.Errorf("transaction %s: %w", id, domain.ErrForbidden)
	}
	return t, nil
}

// validateTransaction enforces ownership and the amount/type/target rules.
// A target account is dropped from non-transfer transactions.
func validateTransaction(ctx context.Context, repo Repository, t *domain.Transaction) error {
	if t.Amount.IsNegative() {
		return fmt.Errorf("amount %s is negative: %w", t.Amount, domain.ErrInvalidInput)
	}
	if !t.Type.Valid() {
		return fmt.Errorf("transaction type %q: %w", t.Type, domain.ErrInvalidInput)
	}
	if _, err := ownedAccount(ctx, repo, t.UserID, t.AccountID); err != nil {
		return err
	}

	if t.Type != domain.TransactionTypeTransfer {
		t.TargetAccountID = nil
	} else {
		if t.TargetAccountID == nil {
			return fmt.Errorf("transfer requires a target account: %w", domain.ErrInvalidInput)
		}
		if *t.TargetAccountID == t.AccountID {
			return fmt.Errorf("transfer target equals source account: %w", domain.ErrInvalidInput)
		}
		if _, err := ownedAccount(ctx, repo, t.UserID, *t.TargetAccountID); err != nil {
			return err
		}
	}

	if t.CategoryID != nil {
		if _, err := ownedCategory(ctx, repo, t.UserID, *t.CategoryID); err != nil {
			return err
		}
	}
	return nil
}
