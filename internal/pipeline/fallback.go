package pipeline

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/ledger-reconciler/internal/domain"
)

// FallbackDecisions matches each item without the reasoning service: the
// first existing transaction with the same amount, a merchant containing the
// item's merchant (ignoring case) and a date at most one calendar day away
// becomes an UPDATE_EXISTING target; otherwise the item is CREATE_NEW.
func FallbackDecisions(ctx context.Context, search TransactionSearcher, userID string, items []LineItem) ([]Decision, error) {
	decisions := make([]Decision, 0, len(items))
	for _, item := range items {
		amount := item.Amount
		candidates, err := search.SearchTransactions(ctx, userID, domain.TransactionFilter{
			Merchant: item.Merchant,
			Amount:   &amount,
		})
		if err != nil {
			return nil, fmt.Errorf("FallbackDecisions: %w", err)
		}

		d := Decision{
			ChangeType:      domain.ChangeTypeCreateNew,
			Type:            string(item.Type),
			Amount:          item.Amount,
			TransactionDate: item.TransactionDate.Format("2006-01-02"),
			Merchant:        item.Merchant,
			Note:            item.Note,
		}

		itemDay := civil.DateOf(item.TransactionDate)
		for _, t := range candidates {
			if days := civil.DateOf(t.TransactionDate).DaysSince(itemDay); days >= -1 && days <= 1 {
				d.ChangeType = domain.ChangeTypeUpdateExisting
				d.TargetTransactionID = t.ID
				d.AccountID = t.AccountID
				break
			}
		}
		decisions = append(decisions, d)
	}
	return decisions, nil
}
