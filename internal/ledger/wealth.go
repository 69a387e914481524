package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
	"github.com/shopspring/decimal"
)

// Interval is the spacing between wealth report points.
type Interval string

const (
	IntervalDay   Interval = "day"
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

// Valid reports whether i is a known interval.
func (i Interval) Valid() bool {
	return i == IntervalDay || i == IntervalMonth || i == IntervalYear
}

func (i Interval) back(t time.Time, n int) time.Time {
	switch i {
	case IntervalMonth:
		return t.AddDate(0, -n, 0)
	case IntervalYear:
		return t.AddDate(-n, 0, 0)
	}
	return t.AddDate(0, 0, -n)
}

// WealthPoint is the estimated position at the end of Date.
type WealthPoint struct {
	Date        string          `json:"date"`
	Assets      decimal.Decimal `json:"assets"`
	Liabilities decimal.Decimal `json:"liabilities"`
	NetWorth    decimal.Decimal `json:"net_worth"`
}

// MaxWealthPoints bounds a single report.
const MaxWealthPoints = 366

// WealthHistory estimates past positions by rolling the current balances back
// through every transaction dated after each point. The last point is today.
// Balances are not snapshotted, so edits to old transactions rewrite history.
func (s *Service) WealthHistory(ctx context.Context, userID string, interval Interval, points int) ([]WealthPoint, error) {
	if interval == "" {
		interval = IntervalMonth
	}
	if !interval.Valid() {
		return nil, fmt.Errorf("WealthHistory: interval %q: %w", interval, domain.ErrInvalidInput)
	}
	if points <= 0 {
		points = 12
	}
	if points > MaxWealthPoints {
		points = MaxWealthPoints
	}

	accounts, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("WealthHistory: %w", err)
	}

	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	cutoffs := make([]time.Time, points)
	for i := range cutoffs {
		// end of the day the point represents
		cutoffs[i] = interval.back(today, points-1-i).AddDate(0, 0, 1).Add(-time.Nanosecond)
	}

	later, err := s.store.ListTransactionsAfter(ctx, userID, cutoffs[0])
	if err != nil {
		return nil, fmt.Errorf("WealthHistory: %w", err)
	}

	out := make([]WealthPoint, points)
	for i, cutoff := range cutoffs {
		p := WealthPoint{Date: cutoff.Format("2006-01-02"), Assets: decimal.Zero, Liabilities: decimal.Zero}
		for _, a := range accounts {
			balance := a.Balance
			for _, t := range later {
				if t.TransactionDate.After(cutoff) {
					balance = balance.Sub(t.Effect(a.ID))
				}
			}
			if a.Type == domain.AccountTypeLiability {
				p.Liabilities = p.Liabilities.Add(balance)
			} else {
				p.Assets = p.Assets.Add(balance)
			}
		}
		p.NetWorth = p.Assets.Sub(p.Liabilities)
		out[i] = p
	}
	return out, nil
}
