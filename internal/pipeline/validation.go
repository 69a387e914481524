package pipeline

import (
	"fmt"
	"strings"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
)

// Validator checks decisions against the identifiers of one snapshot plus
// the transactions surfaced by queries during the same controller run.
type Validator struct {
	snap  *Snapshot
	known map[string]struct{}
}

// NewValidator creates a validator for snap.
func NewValidator(snap *Snapshot) *Validator {
	return &Validator{snap: snap, known: snap.TransactionIDs()}
}

// Allow adds query results to the transactions a decision may target.
func (v *Validator) Allow(txs ...*domain.Transaction) {
	for _, t := range txs {
		v.known[t.ID] = struct{}{}
	}
}

// Validate returns one human-readable message per problem; an empty result
// means the batch is valid. Messages are sent back to the reasoning service
// verbatim.
func (v *Validator) Validate(decisions []Decision) []string {
	var violations []string
	for i, d := range decisions {
		fail := func(format string, args ...any) {
			violations = append(violations, fmt.Sprintf("decision[%d]: ", i)+fmt.Sprintf(format, args...))
		}

		if !d.ChangeType.Valid() {
			fail("change_type %q must be one of CREATE_NEW, UPDATE_EXISTING, CREATE_ACCOUNT", d.ChangeType)
		}

		typ, typeOK := domain.ParseTransactionType(d.Type)
		switch {
		case d.Type == "" && d.ChangeType == domain.ChangeTypeCreateAccount:
			// an account seed may come without a transaction
		case !typeOK:
			fail("type %q must be one of INCOME, EXPENSE, TRANSFER", d.Type)
		}

		if d.Amount.IsNegative() {
			fail("amount %s must not be negative", d.Amount)
		}

		if d.AccountID != "" && !v.snap.HasAccount(d.AccountID) {
			fail("account_id %q is not one of the known accounts", d.AccountID)
		}
		if d.TargetAccountID != "" && !v.snap.HasAccount(d.TargetAccountID) {
			fail("target_account_id %q is not one of the known accounts", d.TargetAccountID)
		}
		if d.CategoryID != "" && !v.snap.HasCategory(d.CategoryID) {
			fail("category_id %q is not one of the known categories", d.CategoryID)
		}
		if d.TargetTransactionID != "" {
			if _, ok := v.known[d.TargetTransactionID]; !ok {
				fail("target_transaction_id %q is not one of the known transactions", d.TargetTransactionID)
			}
		}

		if d.ChangeType == domain.ChangeTypeUpdateExisting && d.TargetTransactionID == "" {
			fail("UPDATE_EXISTING requires target_transaction_id")
		}
		if typeOK && typ == domain.TransactionTypeTransfer {
			if d.TargetAccountID == "" {
				fail("TRANSFER requires target_account_id")
			} else if d.TargetAccountID == d.AccountID {
				fail("TRANSFER target_account_id must differ from account_id")
			}
		}

		if d.ChangeType == domain.ChangeTypeCreateAccount {
			if d.NewAccount == nil {
				fail("CREATE_ACCOUNT requires new_account_data")
				continue
			}
			if strings.TrimSpace(d.NewAccount.Name) == "" {
				fail("new_account_data.name is required")
			}
			if t := domain.AccountType(d.NewAccount.Type); t != domain.AccountTypeAsset && t != domain.AccountTypeLiability {
				fail("new_account_data.type %q must be exactly ASSET or LIABILITY; put other kinds in sub_type", d.NewAccount.Type)
			}
		}
	}
	return violations
}
