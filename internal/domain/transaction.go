package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType determines the sign of a transaction's amount.
type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "INCOME"
	TransactionTypeExpense  TransactionType = "EXPENSE"
	TransactionTypeTransfer TransactionType = "TRANSFER"
)

// Valid reports whether t is one of the three transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeIncome, TransactionTypeExpense, TransactionTypeTransfer:
		return true
	}
	return false
}

// ParseTransactionType accepts only the enumerants, ignoring case and
// surrounding whitespace.
func ParseTransactionType(s string) (TransactionType, bool) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	return t, t.Valid()
}

var transactionTypeSynonyms = map[string]TransactionType{
	"debit":    TransactionTypeExpense,
	"payment":  TransactionTypeExpense,
	"cash_out": TransactionTypeExpense,
	"credit":   TransactionTypeIncome,
	"deposit":  TransactionTypeIncome,
	"cash_in":  TransactionTypeIncome,
}

// SanitizeTransactionType maps free-form type labels onto an enumerant.
// Unknown labels become EXPENSE.
func SanitizeTransactionType(s string) TransactionType {
	if t, ok := ParseTransactionType(s); ok {
		return t
	}
	if t, ok := transactionTypeSynonyms[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t
	}
	return TransactionTypeExpense
}

// Transaction is one entry of the ledger. Amount is a non-negative magnitude;
// the sign comes from Type.
type Transaction struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	AccountID       string          `json:"account_id"`
	TargetAccountID *string         `json:"target_account_id,omitempty"`
	CategoryID      *string         `json:"category_id,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Type            TransactionType `json:"type"`
	TransactionDate time.Time       `json:"transaction_date"`
	Note            string          `json:"note,omitempty"`
	Merchant        string          `json:"merchant,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Effect returns the signed contribution of t to the balance of accountID.
func (t *Transaction) Effect(accountID string) decimal.Decimal {
	effect := decimal.Zero
	switch t.Type {
	case TransactionTypeIncome:
		if t.AccountID == accountID {
			effect = effect.Add(t.Amount)
		}
	case TransactionTypeExpense:
		if t.AccountID == accountID {
			effect = effect.Sub(t.Amount)
		}
	case TransactionTypeTransfer:
		if t.AccountID == accountID {
			effect = effect.Sub(t.Amount)
		}
		if t.TargetAccountID != nil && *t.TargetAccountID == accountID {
			effect = effect.Add(t.Amount)
		}
	}
	return effect
}

// AccountIDs lists every account whose balance depends on t.
func (t *Transaction) AccountIDs() []string {
	ids := []string{t.AccountID}
	if t.TargetAccountID != nil && *t.TargetAccountID != "" && *t.TargetAccountID != t.AccountID {
		ids = append(ids, *t.TargetAccountID)
	}
	return ids
}

// TransactionFilter narrows a transaction search. Zero values disable a bound.
type TransactionFilter struct {
	Merchant string
	Amount   *decimal.Decimal
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
}
