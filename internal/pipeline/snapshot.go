package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
	"github.com/dvloznov/ledger-reconciler/internal/ledger"
	"github.com/shopspring/decimal"
)

// TransactionView is the prompt form of a transaction.
type TransactionView struct {
	ID              string                 `json:"id"`
	AccountID       string                 `json:"account_id"`
	TargetAccountID string                 `json:"target_account_id,omitempty"`
	CategoryID      string                 `json:"category_id,omitempty"`
	Amount          decimal.Decimal        `json:"amount"`
	Type            domain.TransactionType `json:"type"`
	TransactionDate string                 `json:"transaction_date"`
	Merchant        string                 `json:"merchant,omitempty"`
	Note            string                 `json:"note,omitempty"`
}

// AccountView is the prompt form of an account.
type AccountView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CategoryView is the prompt form of a category.
type CategoryView struct {
	ID   string              `json:"id"`
	Name string              `json:"name"`
	Type domain.CategoryType `json:"type"`
}

// MerchantView is the prompt form of a merchant.
type MerchantView struct {
	Name              string `json:"name"`
	DefaultCategoryID string `json:"default_category_id,omitempty"`
}

// Snapshot is the bounded view of a user's ledger given to the reasoning
// service. Its identifiers are the only ones a decision may reference.
type Snapshot struct {
	UserID               string            `json:"-"`
	RecentTransactions   []TransactionView `json:"recent_transactions"`
	RelevantTransactions []TransactionView `json:"relevant_transactions"`
	Accounts             []AccountView     `json:"accounts"`
	Categories           []CategoryView    `json:"categories"`
	Merchants            []MerchantView    `json:"merchants"`
}

// HasAccount reports whether id is one of the snapshot's accounts.
func (s *Snapshot) HasAccount(id string) bool {
	for _, a := range s.Accounts {
		if a.ID == id {
			return true
		}
	}
	return false
}

// HasCategory reports whether id is one of the snapshot's categories.
func (s *Snapshot) HasCategory(id string) bool {
	for _, c := range s.Categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

// TransactionIDs returns the ids of every transaction in the snapshot.
func (s *Snapshot) TransactionIDs() map[string]struct{} {
	ids := make(map[string]struct{}, len(s.RecentTransactions)+len(s.RelevantTransactions))
	for _, t := range s.RecentTransactions {
		ids[t.ID] = struct{}{}
	}
	for _, t := range s.RelevantTransactions {
		ids[t.ID] = struct{}{}
	}
	return ids
}

// ContextBuilder assembles snapshots from the ledger.
type ContextBuilder struct {
	repo          ledger.Repository
	recentLimit   int
	searchLimit   int
	merchantLimit int
	categoryLimit int
}

// NewContextBuilder creates a builder; zero limits take the package defaults.
func NewContextBuilder(repo ledger.Repository, recentLimit, searchLimit, merchantLimit, categoryLimit int) *ContextBuilder {
	if recentLimit <= 0 {
		recentLimit = DefaultRecentTransactions
	}
	if searchLimit <= 0 {
		searchLimit = DefaultSearchLimit
	}
	if merchantLimit <= 0 {
		merchantLimit = DefaultMerchants
	}
	if categoryLimit <= 0 {
		categoryLimit = DefaultMaxCategories
	}
	return &ContextBuilder{
		repo:          repo,
		recentLimit:   recentLimit,
		searchLimit:   searchLimit,
		merchantLimit: merchantLimit,
		categoryLimit: categoryLimit,
	}
}

// Build snapshots the user's ledger. relevant holds merchant name fragments,
// usually the merchants of the document being reconciled; they pull matching
// transactions and merchants into the snapshot.
func (b *ContextBuilder) Build(ctx context.Context, userID string, relevant []string) (*Snapshot, error) {
	snap := &Snapshot{
		UserID:               userID,
		RecentTransactions:   []TransactionView{},
		RelevantTransactions: []TransactionView{},
		Accounts:             []AccountView{},
		Categories:           []CategoryView{},
		Merchants:            []MerchantView{},
	}
	fragments := uniqueFragments(relevant)

	recent, err := b.repo.ListRecentTransactions(ctx, userID, b.recentLimit)
	if err != nil {
		return nil, fmt.Errorf("Build: recent transactions: %w", err)
	}
	seen := make(map[string]struct{}, len(recent))
	for _, t := range recent {
		seen[t.ID] = struct{}{}
		snap.RecentTransactions = append(snap.RecentTransactions, viewTransaction(t))
	}

	for _, frag := range fragments {
		found, err := b.repo.SearchTransactions(ctx, userID, domain.TransactionFilter{Merchant: frag, Limit: b.searchLimit})
		if err != nil {
			return nil, fmt.Errorf("Build: relevant transactions: %w", err)
		}
		for _, t := range found {
			if _, dup := seen[t.ID]; dup {
				continue
			}
			seen[t.ID] = struct{}{}
			snap.RelevantTransactions = append(snap.RelevantTransactions, viewTransaction(t))
		}
	}

	accounts, err := b.repo.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Build: accounts: %w", err)
	}
	for _, a := range accounts {
		snap.Accounts = append(snap.Accounts, AccountView{ID: a.ID, Name: a.Name})
	}

	categories, err := b.repo.ListCategories(ctx, userID, b.categoryLimit)
	if err != nil {
		return nil, fmt.Errorf("Build: categories: %w", err)
	}
	for _, c := range categories {
		snap.Categories = append(snap.Categories, CategoryView{ID: c.ID, Name: c.Name, Type: c.Type})
	}

	var merchants []*domain.Merchant
	if len(fragments) == 0 {
		merchants, err = b.repo.ListMerchants(ctx, userID, b.merchantLimit)
		if err != nil {
			return nil, fmt.Errorf("Build: merchants: %w", err)
		}
	} else {
		byID := map[string]struct{}{}
		for _, frag := range fragments {
			found, err := b.repo.SearchMerchants(ctx, userID, frag, b.merchantLimit)
			if err != nil {
				return nil, fmt.Errorf("Build: merchants: %w", err)
			}
			for _, m := range found {
				if _, dup := byID[m.ID]; !dup {
					byID[m.ID] = struct{}{}
					merchants = append(merchants, m)
				}
			}
		}
	}
	for _, m := range merchants {
		view := MerchantView{Name: m.Name}
		if m.DefaultCategoryID != nil {
			view.DefaultCategoryID = *m.DefaultCategoryID
		}
		snap.Merchants = append(snap.Merchants, view)
	}

	return snap, nil
}

func uniqueFragments(in []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, f := range in {
		f = strings.TrimSpace(f)
		key := strings.ToLower(f)
		if f == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, f)
	}
	return out
}

func viewTransaction(t *domain.Transaction) TransactionView {
	v := TransactionView{
		ID:              t.ID,
		AccountID:       t.AccountID,
		Amount:          t.Amount,
		Type:            t.Type,
		TransactionDate: t.TransactionDate.Format("2006-01-02"),
		Merchant:        t.Merchant,
		Note:            t.Note,
	}
	if t.TargetAccountID != nil {
		v.TargetAccountID = *t.TargetAccountID
	}
	if t.CategoryID != nil {
		v.CategoryID = *t.CategoryID
	}
	return v
}
