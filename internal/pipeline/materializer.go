package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
	"github.com/dvloznov/ledger-reconciler/internal/ledger"
	"github.com/dvloznov/ledger-reconciler/internal/metrics"
	"github.com/google/uuid"
)

// Materialize results.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionSkipped = "skipped"
)

// Materializer turns accepted decisions into PENDING proposals.
type Materializer struct {
	now func() time.Time
}

// NewMaterializer creates a materializer.
func NewMaterializer() *Materializer {
	return &Materializer{now: time.Now}
}

// Materialize writes d as a proposal of doc through repo, which should be
// transaction-scoped. A proposal already stored for the same document and
// target transaction is updated in place while PENDING and left alone once
// resolved, so reprocessing a document never duplicates proposals. It
// returns ActionCreated, ActionUpdated or ActionSkipped.
func (m *Materializer) Materialize(ctx context.Context, repo ledger.Repository, doc *domain.Document, d Decision, confidence float64) (string, error) {
	userID := doc.UserID
	changeType := d.ChangeType
	data := domain.ProposedData{
		Amount:   d.Amount.Abs(),
		Merchant: strings.TrimSpace(d.Merchant),
		Note:     d.Note,
	}

	var target *string
	if changeType == domain.ChangeTypeUpdateExisting {
		t, err := repo.GetTransaction(ctx, d.TargetTransactionID)
		if err != nil {
			return "", err
		}
		if t != nil && t.UserID == userID {
			target = &t.ID
		} else {
			changeType = domain.ChangeTypeCreateNew
		}
	}

	// a dateless update keeps the target's date
	if date, ok := parseItemDate(d.TransactionDate); ok {
		data.TransactionDate = date
	} else if changeType != domain.ChangeTypeUpdateExisting {
		data.TransactionDate = m.now().UTC()
	}

	// (1) account
	acct, err := ownedAccountID(ctx, repo, userID, d.AccountID)
	if err != nil {
		return "", err
	}
	data.AccountID = acct
	if changeType == domain.ChangeTypeCreateNew && data.AccountID == "" {
		petty, err := ledger.EnsurePettyCash(ctx, repo, userID)
		if err != nil {
			return "", fmt.Errorf("Materialize: %w: %w", domain.ErrNoAccounts, err)
		}
		data.AccountID = petty.ID
	}

	// (2) category
	cat, err := ownedCategoryID(ctx, repo, userID, d.CategoryID)
	if err != nil {
		return "", err
	}
	if cat == "" && data.Merchant != "" {
		merchant, err := repo.FindMerchantByName(ctx, userID, data.Merchant)
		if err != nil {
			return "", err
		}
		if merchant != nil && merchant.DefaultCategoryID != nil {
			cat = *merchant.DefaultCategoryID
		}
	}
	data.CategoryID = cat

	// (3) type; an untyped update keeps the target's type
	if d.Type != "" || changeType != domain.ChangeTypeUpdateExisting {
		data.Type = domain.SanitizeTransactionType(d.Type)
	}

	// (4) account seed
	if changeType == domain.ChangeTypeCreateAccount && d.NewAccount != nil {
		seed := d.NewAccount.Sanitized()
		data.NewAccount = &seed
	}

	if data.Type == domain.TransactionTypeTransfer {
		targetAcct, err := ownedAccountID(ctx, repo, userID, d.TargetAccountID)
		if err != nil {
			return "", err
		}
		if targetAcct == "" || targetAcct == data.AccountID {
			data.Type = domain.TransactionTypeExpense
		} else {
			data.TargetAccountID = targetAcct
		}
	}

	existing, err := m.findExisting(ctx, repo, doc.ID, target, changeType, data)
	if err != nil {
		return "", err
	}

	action := ActionCreated
	switch {
	case existing != nil && existing.Status.Terminal():
		action = ActionSkipped
	case existing != nil:
		existing.ChangeType = changeType
		existing.ProposedData = data
		existing.ConfidenceScore = confidence
		existing.UpdatedAt = m.now()
		if err := repo.UpdateProposal(ctx, existing); err != nil {
			return "", err
		}
		action = ActionUpdated
	default:
		now := m.now()
		p := &domain.ProposedChange{
			ID:                  uuid.NewString(),
			UserID:              userID,
			DocumentID:          doc.ID,
			TargetTransactionID: target,
			ChangeType:          changeType,
			Status:              domain.ProposalStatusPending,
			ProposedData:        data,
			ConfidenceScore:     confidence,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if err := repo.InsertProposal(ctx, p); err != nil {
			return "", err
		}
	}

	metrics.Proposals.WithLabelValues(string(changeType), action).Inc()
	return action, nil
}

// findExisting returns the proposal already stored for the same document and
// target. Proposals without a target also need the same amount, merchant and
// account seed, so distinct new items of one document stay distinct.
func (m *Materializer) findExisting(ctx context.Context, repo ledger.Repository, documentID string, target *string, changeType domain.ChangeType, data domain.ProposedData) (*domain.ProposedChange, error) {
	found, err := repo.FindProposals(ctx, documentID, target)
	if err != nil {
		return nil, err
	}
	if target != nil {
		if len(found) > 0 {
			return found[0], nil
		}
		return nil, nil
	}

	for _, p := range found {
		if !p.ProposedData.Amount.Equal(data.Amount) || !strings.EqualFold(p.ProposedData.Merchant, data.Merchant) {
			continue
		}
		if seedName(p.ProposedData.NewAccount) != seedName(data.NewAccount) {
			continue
		}
		if (p.ChangeType == domain.ChangeTypeCreateAccount) != (changeType == domain.ChangeTypeCreateAccount) {
			continue
		}
		return p, nil
	}
	return nil, nil
}

func seedName(seed *domain.NewAccountData) string {
	if seed == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(seed.Name))
}

// ownedAccountID returns id when it names one of the user's accounts and ""
// otherwise.
func ownedAccountID(ctx context.Context, repo ledger.Repository, userID, id string) (string, error) {
	if id == "" {
		return "", nil
	}
	a, err := repo.GetAccount(ctx, id)
	if err != nil {
		return "", err
	}
	if a == nil || a.UserID != userID {
		return "", nil
	}
	return a.ID, nil
}

func ownedCategoryID(ctx context.Context, repo ledger.Repository, userID, id string) (string, error) {
	if id == "" {
		return "", nil
	}
	c, err := repo.GetCategory(ctx, id)
	if err != nil {
		return "", err
	}
	if c == nil || c.UserID != userID {
		return "", nil
	}
	return c.ID, nil
}
