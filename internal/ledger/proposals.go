package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
	"github.com/google/uuid"
)

// ListPendingProposals returns the user's proposals awaiting review.
func (s *Service) ListPendingProposals(ctx context.Context, userID string) ([]*domain.ProposedChange, error) {
	out, err := s.store.ListPendingProposals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ListPendingProposals: %w", err)
	}
	return out, nil
}

// ConfirmProposal approves or rejects a pending proposal. On approval the
// edited payload, when given, replaces the stored one; the resulting ledger
// writes and balance re-derivations commit together with the status change.
func (s *Service) ConfirmProposal(ctx context.Context, userID, proposalID string, status domain.ProposalStatus, edited *domain.ProposedData) (*domain.ProposedChange, error) {
	if !status.Terminal() {
		return nil, fmt.Errorf("ConfirmProposal: status %q: %w", status, domain.ErrInvalidInput)
	}

	var out *domain.ProposedChange
	err := s.store.InTx(ctx, func(repo Repository) error {
		p, err := repo.GetProposal(ctx, proposalID)
		if err != nil {
			return err
		}
		if p == nil || p.UserID != userID {
			return fmt.Errorf("proposal %s: %w", proposalID, domain.ErrNotFound)
		}
		if p.Status.Terminal() {
			return fmt.Errorf("proposal %s is %s: %w", p.ID, p.Status, domain.ErrProposalResolved)
		}

		if status == domain.ProposalStatusApproved {
			data := p.ProposedData
			if edited != nil {
				data = *edited
			}
			if err := s.applyProposal(ctx, repo, p, &data); err != nil {
				return err
			}
			p.ProposedData = data
		}

		p.Status = status
		p.UpdatedAt = s.now()
		if err := repo.UpdateProposal(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ConfirmProposal: %w", err)
	}

	s.log.Info().
		Str("proposal_id", proposalID).
		Str("change_type", string(out.ChangeType)).
		Str("status", string(status)).
		Msg("Proposal confirmed")
	return out, nil
}

func (s *Service) applyProposal(ctx context.Context, repo Repository, p *domain.ProposedChange, data *domain.ProposedData) error {
	// an update without a type keeps the transaction's own
	if data.Type != "" || p.ChangeType != domain.ChangeTypeUpdateExisting {
		data.Type = domain.SanitizeTransactionType(string(data.Type))
	}

	switch p.ChangeType {
	case domain.ChangeTypeCreateNew:
		acctID, err := s.resolveAccount(ctx, repo, p.UserID, data.AccountID)
		if err != nil {
			return err
		}
		data.AccountID = acctID
		if _, err := s.insertFromProposal(ctx, repo, p, data); err != nil {
			return err
		}

	case domain.ChangeTypeUpdateExisting:
		if p.TargetTransactionID == nil {
			return fmt.Errorf("proposal %s has no target transaction: %w", p.ID, domain.ErrInvalidInput)
		}
		if err := s.updateFromProposal(ctx, repo, p, *p.TargetTransactionID, data); err != nil {
			return err
		}

	case domain.ChangeTypeCreateAccount:
		if data.NewAccount == nil {
			return fmt.Errorf("proposal %s has no account data: %w", p.ID, domain.ErrInvalidInput)
		}
		seed := data.NewAccount.Sanitized()
		if strings.TrimSpace(seed.Name) == "" {
			return fmt.Errorf("proposal %s: account name is required: %w", p.ID, domain.ErrInvalidInput)
		}
		acct := &domain.Account{
			ID:          uuid.NewString(),
			UserID:      p.UserID,
			Name:        strings.TrimSpace(seed.Name),
			Type:        domain.AccountType(seed.Type),
			SubType:     seed.SubType,
			Currency:    strings.ToUpper(seed.Currency),
			Description: seed.Description,
			CreatedAt:   s.now(),
		}
		if err := repo.InsertAccount(ctx, acct); err != nil {
			return err
		}
		data.NewAccount = &seed
		data.AccountID = acct.ID
		if data.Amount.IsPositive() {
			if _, err := s.insertFromProposal(ctx, repo, p, data); err != nil {
				return err
			}
		}

	default:
		return fmt.Errorf("change type %q: %w", p.ChangeType, domain.ErrInvalidInput)
	}

	return learnMerchant(ctx, repo, p.UserID, data.Merchant, data.CategoryID)
}

// resolveAccount returns accountID when it belongs to the user and the Petty
// Cash Account otherwise.
func (s *Service) resolveAccount(ctx context.Context, repo Repository, userID, accountID string) (string, error) {
	if accountID != "" {
		acct, err := repo.GetAccount(ctx, accountID)
		if err != nil {
			return "", err
		}
		if acct != nil && acct.UserID == userID {
			return acct.ID, nil
		}
	}
	petty, err := EnsurePettyCash(ctx, repo, userID)
	if err != nil {
		return "", err
	}
	return petty.ID, nil
}

func (s *Service) insertFromProposal(ctx context.Context, repo Repository, p *domain.ProposedChange, data *domain.ProposedData) (*domain.Transaction, error) {
	now := s.now()
	if data.TransactionDate.IsZero() {
		data.TransactionDate = now
	}
	t := &domain.Transaction{
		ID:              uuid.NewString(),
		UserID:          p.UserID,
		AccountID:       data.AccountID,
		TargetAccountID: optional(data.TargetAccountID),
		CategoryID:      optional(data.CategoryID),
		Amount:          data.Amount,
		Type:            data.Type,
		TransactionDate: data.TransactionDate,
		Note:            data.Note,
		Merchant:        data.Merchant,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := validateTransaction(ctx, repo, t); err != nil {
		return nil, err
	}
	if err := repo.InsertTransaction(ctx, t); err != nil {
		return nil, err
	}
	if err := repo.LinkTransactionDocument(ctx, t.ID, p.DocumentID); err != nil {
		return nil, err
	}
	return t, RecalculateAccounts(ctx, repo, t.AccountIDs()...)
}

// updateFromProposal copies the non-empty payload fields onto the target
// transaction and re-derives the accounts touched before and after.
func (s *Service) updateFromProposal(ctx context.Context, repo Repository, p *domain.ProposedChange, targetID string, data *domain.ProposedData) error {
	t, err := ownedTransaction(ctx, repo, p.UserID, targetID)
	if err != nil {
		return err
	}
	before := t.AccountIDs()

	if data.AccountID != "" {
		t.AccountID = data.AccountID
	}
	if data.TargetAccountID != "" {
		t.TargetAccountID = optional(data.TargetAccountID)
	}
	if data.CategoryID != "" {
		t.CategoryID = optional(data.CategoryID)
	}
	if !data.Amount.IsZero() {
		t.Amount = data.Amount
	}
	if data.Type.Valid() {
		t.Type = data.Type
	}
	if !data.TransactionDate.IsZero() {
		t.TransactionDate = data.TransactionDate
	}
	if data.Merchant != "" {
		t.Merchant = data.Merchant
	}
	if data.Note != "" {
		t.Note = data.Note
	}
	t.UpdatedAt = s.now()

	if err := validateTransaction(ctx, repo, t); err != nil {
		return err
	}
	if err := repo.UpdateTransaction(ctx, t); err != nil {
		return err
	}
	if err := repo.LinkTransactionDocument(ctx, t.ID, p.DocumentID); err != nil {
		return err
	}
	return RecalculateAccounts(ctx, repo, append(before, t.AccountIDs()...)...)
}
