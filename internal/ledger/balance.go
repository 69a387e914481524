package ledger

import (
	"context"
	"fmt"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
	"github.com/dvloznov/ledger-reconciler/internal/metrics"
	"github.com/shopspring/decimal"
)

// Recalculate re-derives the balance of an account from every transaction
// that touches it and stores the result. It never applies deltas, so a
// corrupted balance is repaired on the next call.
func Recalculate(ctx context.Context, repo Repository, accountID string) (decimal.Decimal, error) {
	txs, err := repo.ListAccountTransactions(ctx, accountID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("Recalculate: %w", err)
	}

	balance := decimal.Zero
	for _, t := range txs {
		balance = balance.Add(t.Effect(accountID))
	}

	if err := repo.UpdateAccountBalance(ctx, accountID, balance); err != nil {
		return decimal.Zero, fmt.Errorf("Recalculate: %w", err)
	}
	metrics.BalanceRecalculations.Inc()
	return balance, nil
}

// RecalculateAccounts recalculates every distinct, non-empty account id once.
func RecalculateAccounts(ctx context.Context, repo Repository, accountIDs ...string) error {
	seen := make(map[string]struct{}, len(accountIDs))
	for _, id := range accountIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if _, err := Recalculate(ctx, repo, id); err != nil {
			return err
		}
	}
	return nil
}

// RecalculateAccount re-derives one of the user's accounts.
func (s *Service) RecalculateAccount(ctx context.Context, userID, accountID string) (*domain.Account, error) {
	var out *domain.Account
	err := s.store.InTx(ctx, func(repo Repository) error {
		acct, err := ownedAccount(ctx, repo, userID, accountID)
		if err != nil {
			return err
		}
		if acct.Balance, err = Recalculate(ctx, repo, acct.ID); err != nil {
			return err
		}
		out = acct
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("RecalculateAccount: %w", err)
	}
	return out, nil
}

// RecalculateAll re-derives every account of the user.
func (s *Service) RecalculateAll(ctx context.Context, userID string) ([]*domain.Account, error) {
	var out []*domain.Account
	err := s.store.InTx(ctx, func(repo Repository) error {
		accounts, err := repo.ListAccounts(ctx, userID)
		if err != nil {
			return err
		}
		for _, a := range accounts {
			if a.Balance, err = Recalculate(ctx, repo, a.ID); err != nil {
				return err
			}
		}
		out = accounts
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("RecalculateAll: %w", err)
	}
	s.log.Info().Str("user_id", userID).Int("accounts", len(out)).Msg("Recalculated all balances")
	return out, nil
}
