package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType is the accounting side of an account.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
)

// Valid reports whether t is one of the two account types.
func (t AccountType) Valid() bool {
	return t == AccountTypeAsset || t == AccountTypeLiability
}

const (
	// PettyCashAccountName is the name of the per-user fallback account.
	PettyCashAccountName = "Petty Cash Account"

	// DefaultCurrency is used when an account is created without one.
	DefaultCurrency = "USD"
)

// Account is a user-owned ledger account. Balance is derived from the
// account's transactions and is never edited directly.
type Account struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Name        string          `json:"name"`
	Type        AccountType     `json:"type"`
	SubType     string          `json:"sub_type,omitempty"`
	Currency    string          `json:"currency"`
	Balance     decimal.Decimal `json:"balance"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// IsPettyCash reports whether a is the user's fallback account.
func (a *Account) IsPettyCash() bool {
	return a.Name == PettyCashAccountName
}

// NewAccountData is the account seed carried by a CREATE_ACCOUNT proposal.
type NewAccountData struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	SubType     string `json:"sub_type,omitempty"`
	Currency    string `json:"currency,omitempty"`
	Description string `json:"description,omitempty"`
}

// Sanitized returns a copy whose Type is ASSET or LIABILITY. Any other type
// value is moved into SubType (unless SubType is already set) and Type is
// forced to ASSET.
func (d NewAccountData) Sanitized() NewAccountData {
	if d.Currency == "" {
		d.Currency = DefaultCurrency
	}
	raw := strings.TrimSpace(d.Type)
	if t := AccountType(strings.ToUpper(raw)); t.Valid() {
		d.Type = string(t)
		return d
	}
	if strings.TrimSpace(d.SubType) == "" {
		d.SubType = raw
	}
	d.Type = string(AccountTypeAsset)
	return d
}
