package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeTransactionType(t *testing.T) {
	tests := []struct {
		in   string
		want TransactionType
	}{
		{"INCOME", TransactionTypeIncome},
		{" transfer ", TransactionTypeTransfer},
		{"debit", TransactionTypeExpense},
		{"Payment", TransactionTypeExpense},
		{"cash_out", TransactionTypeExpense},
		{"credit", TransactionTypeIncome},
		{"DEPOSIT", TransactionTypeIncome},
		{"cash_in", TransactionTypeIncome},
		{"refund", TransactionTypeExpense},
		{"", TransactionTypeExpense},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeTransactionType(tt.in))
		})
	}
}

func TestParseTransactionType_RejectsSynonyms(t *testing.T) {
	_, ok := ParseTransactionType("debit")
	assert.False(t, ok)

	got, ok := ParseTransactionType("expense")
	assert.True(t, ok)
	assert.Equal(t, TransactionTypeExpense, got)
}

func TestNewAccountDataSanitized(t *testing.T) {
	tests := []struct {
		name string
		in   NewAccountData
		want NewAccountData
	}{
		{
			name: "sub-type moved",
			in:   NewAccountData{Name: "Barclays", Type: "BANK"},
			want: NewAccountData{Name: "Barclays", Type: "ASSET", SubType: "BANK", Currency: "USD"},
		},
		{
			name: "existing sub-type kept",
			in:   NewAccountData{Name: "Card", Type: "credit card", SubType: "CARD", Currency: "GBP"},
			want: NewAccountData{Name: "Card", Type: "ASSET", SubType: "CARD", Currency: "GBP"},
		},
		{
			name: "valid type normalized",
			in:   NewAccountData{Name: "Loan", Type: "liability"},
			want: NewAccountData{Name: "Loan", Type: "LIABILITY", Currency: "USD"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Sanitized())
		})
	}
}

func TestTransactionEffect(t *testing.T) {
	amount := decimal.RequireFromString("300")
	target := "b"

	transfer := &Transaction{AccountID: "a", TargetAccountID: &target, Amount: amount, Type: TransactionTypeTransfer}
	assert.Equal(t, "-300", transfer.Effect("a").String())
	assert.Equal(t, "300", transfer.Effect("b").String())
	assert.True(t, transfer.Effect("c").IsZero())
	assert.Equal(t, []string{"a", "b"}, transfer.AccountIDs())

	income := &Transaction{AccountID: "a", TargetAccountID: &target, Amount: amount, Type: TransactionTypeIncome}
	assert.Equal(t, "300", income.Effect("a").String())
	assert.True(t, income.Effect("b").IsZero(), "target only counts for transfers")

	expense := &Transaction{AccountID: "a", Amount: amount, Type: TransactionTypeExpense}
	assert.Equal(t, "-300", expense.Effect("a").String())
	assert.Equal(t, []string{"a"}, expense.AccountIDs())
}

func TestDocumentStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to DocumentStatus
		want     bool
	}{
		{DocumentStatusUploaded, DocumentStatusParsing, true},
		{DocumentStatusUploaded, DocumentStatusProcessed, false},
		{DocumentStatusParsing, DocumentStatusProcessed, true},
		{DocumentStatusParsing, DocumentStatusError, true},
		{DocumentStatusParsing, DocumentStatusParsing, false},
		{DocumentStatusProcessed, DocumentStatusParsing, true},
		{DocumentStatusError, DocumentStatusParsing, true},
		{DocumentStatusError, DocumentStatusProcessed, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestSupportedMimeType(t *testing.T) {
	assert.True(t, SupportedMimeType("application/pdf"))
	assert.True(t, SupportedMimeType("IMAGE/PNG"))
	assert.False(t, SupportedMimeType("text/csv"))
	assert.False(t, SupportedMimeType(""))
}

func TestReconciliationError(t *testing.T) {
	cause := errors.New("quota exceeded")
	err := fmt.Errorf("process: %w", NewReconciliationError(KindUpstream, "doc-1", cause))

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, KindUpstream, KindOf(err))
	assert.Contains(t, err.Error(), "doc-1")

	var rerr *ReconciliationError
	assert.ErrorAs(t, err, &rerr)
	assert.True(t, rerr.Retryable())
	assert.False(t, NewReconciliationError(KindProtocol, "doc-1", cause).Retryable())
	assert.Equal(t, ErrorKind(""), KindOf(cause))
}
