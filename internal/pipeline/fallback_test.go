package pipeline

import (
	"context"
	"testing"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackDecisions(t *testing.T) {
	f := newFixture(t)
	existing := f.addTransaction(t, "Joe's Coffee Shop", "12.50", day("2024-03-02"))
	f.addTransaction(t, "Joe's Coffee Shop", "12.50", day("2024-03-10"))

	items := []LineItem{
		{Amount: dec("12.50"), Merchant: "joe's coffee", TransactionDate: day("2024-03-01"), Type: domain.TransactionTypeExpense},
		{Amount: dec("9.99"), Merchant: "NoMatch", TransactionDate: day("2024-03-01"), Type: domain.TransactionTypeExpense},
		{Amount: dec("12.50"), Merchant: "Joe's Coffee", TransactionDate: day("2024-03-05"), Type: domain.TransactionTypeExpense},
	}

	decisions, err := FallbackDecisions(context.Background(), f.db, f.user.ID, items)
	require.NoError(t, err)
	require.Len(t, decisions, 3)

	assert.Equal(t, domain.ChangeTypeUpdateExisting, decisions[0].ChangeType)
	assert.Equal(t, existing.ID, decisions[0].TargetTransactionID)
	assert.Equal(t, f.checking.ID, decisions[0].AccountID)

	assert.Equal(t, domain.ChangeTypeCreateNew, decisions[1].ChangeType)
	assert.Empty(t, decisions[1].TargetTransactionID)
	assert.Equal(t, "2024-03-01", decisions[1].TransactionDate)
	assert.True(t, decisions[1].Amount.Equal(dec("9.99")))

	// three days from the nearest candidate
	assert.Equal(t, domain.ChangeTypeCreateNew, decisions[2].ChangeType)
}

func TestFallbackDecisions_DayEitherSide(t *testing.T) {
	for _, tt := range []struct {
		name     string
		existing string
	}{
		{name: "day before", existing: "2024-03-14"},
		{name: "same day", existing: "2024-03-15"},
		{name: "day after", existing: "2024-03-16"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			existing := f.addTransaction(t, "Joe's Coffee", "12.50", day(tt.existing))

			decisions, err := FallbackDecisions(context.Background(), f.db, f.user.ID, []LineItem{
				{Amount: dec("12.50"), Merchant: "Joe's Coffee", TransactionDate: day("2024-03-15"), Type: domain.TransactionTypeExpense},
				{Amount: dec("9.99"), Merchant: "NoMatch", TransactionDate: day("2024-03-15"), Type: domain.TransactionTypeExpense},
			})
			require.NoError(t, err)
			require.Len(t, decisions, 2)
			assert.Equal(t, domain.ChangeTypeUpdateExisting, decisions[0].ChangeType)
			assert.Equal(t, existing.ID, decisions[0].TargetTransactionID)
			assert.Equal(t, domain.ChangeTypeCreateNew, decisions[1].ChangeType)
		})
	}
}
