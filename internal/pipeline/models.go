package pipeline

import (
	"time"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
	"github.com/shopspring/decimal"
)

// LineItem is one transaction extracted from a document.
type LineItem struct {
	Amount          decimal.Decimal        `json:"amount"`
	Merchant        string                 `json:"merchant"`
	TransactionDate time.Time              `json:"transaction_date"`
	Type            domain.TransactionType `json:"type"`
	Note            string                 `json:"note,omitempty"`
}

// Decision is one ledger change proposed by the reasoning service (or by the
// fallback heuristic) for the current document.
type Decision struct {
	ChangeType          domain.ChangeType      `json:"change_type"`
	TargetTransactionID string                 `json:"target_transaction_id,omitempty"`
	AccountID           string                 `json:"account_id,omitempty"`
	TargetAccountID     string                 `json:"target_account_id,omitempty"`
	CategoryID          string                 `json:"category_id,omitempty"`
	Type                string                 `json:"type,omitempty"`
	Amount              decimal.Decimal        `json:"amount"`
	TransactionDate     string                 `json:"transaction_date,omitempty"`
	Merchant            string                 `json:"merchant,omitempty"`
	Note                string                 `json:"note,omitempty"`
	Confidence          *float64               `json:"confidence,omitempty"`
	NewAccount          *domain.NewAccountData `json:"new_account_data,omitempty"`
}

// HistoryEntry records one consumed turn. It belongs to a single controller
// run and is never shared.
type HistoryEntry struct {
	Turn      int
	Query     *SearchQuery
	Results   []*domain.Transaction
	Decisions []Decision
	Errors    []string
}

// Outcome is the controller's final state for a document.
type Outcome struct {
	Strategy       Strategy
	Decisions      []Decision
	Turns          int
	FallbackReason string
}

// ProcessedOutcome summarizes a successfully processed document.
type ProcessedOutcome struct {
	DocumentID     string   `json:"document_id"`
	Strategy       Strategy `json:"strategy,omitempty"`
	Turns          int      `json:"turns"`
	Items          int      `json:"items"`
	Created        int      `json:"created"`
	Updated        int      `json:"updated"`
	Skipped        int      `json:"skipped"`
	FallbackReason string   `json:"fallback_reason,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}
