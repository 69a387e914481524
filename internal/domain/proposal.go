package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ChangeType is the kind of ledger change a proposal suggests.
type ChangeType string

const (
	ChangeTypeCreateNew      ChangeType = "CREATE_NEW"
	ChangeTypeUpdateExisting ChangeType = "UPDATE_EXISTING"
	ChangeTypeCreateAccount  ChangeType = "CREATE_ACCOUNT"
)

// Valid reports whether c is a known change type.
func (c ChangeType) Valid() bool {
	switch c {
	case ChangeTypeCreateNew, ChangeTypeUpdateExisting, ChangeTypeCreateAccount:
		return true
	}
	return false
}

// ProposalStatus is PENDING until a human approves or rejects the proposal.
type ProposalStatus string

const (
	ProposalStatusPending  ProposalStatus = "PENDING"
	ProposalStatusApproved ProposalStatus = "APPROVED"
	ProposalStatusRejected ProposalStatus = "REJECTED"
)

// Terminal reports whether no further transition is possible.
func (s ProposalStatus) Terminal() bool {
	return s == ProposalStatusApproved || s == ProposalStatusRejected
}

// ProposedData is the transaction (and optional account seed) a proposal
// would write when approved.
type ProposedData struct {
	AccountID       string          `json:"account_id,omitempty"`
	TargetAccountID string          `json:"target_account_id,omitempty"`
	CategoryID      string          `json:"category_id,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Type            TransactionType `json:"type"`
	TransactionDate time.Time       `json:"transaction_date"`
	Merchant        string          `json:"merchant,omitempty"`
	Note            string          `json:"note,omitempty"`
	NewAccount      *NewAccountData `json:"new_account_data,omitempty"`
}

// ProposedChange is a reconciliation outcome awaiting review.
type ProposedChange struct {
	ID                  string         `json:"id"`
	UserID              string         `json:"user_id"`
	DocumentID          string         `json:"document_id"`
	TargetTransactionID *string        `json:"target_transaction_id,omitempty"`
	ChangeType          ChangeType     `json:"change_type"`
	Status              ProposalStatus `json:"status"`
	ProposedData        ProposedData   `json:"proposed_data"`
	ConfidenceScore     float64        `json:"confidence_score"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}
