package pipeline

import (
	"testing"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
	"github.com/stretchr/testify/assert"
)

func testSnapshot() *Snapshot {
	return &Snapshot{
		RecentTransactions: []TransactionView{{ID: "t1"}},
		Accounts:           []AccountView{{ID: "a1", Name: "Checking"}, {ID: "a2", Name: "Savings"}},
		Categories:         []CategoryView{{ID: "c1", Name: "Food"}},
	}
}

func TestValidator_Validate(t *testing.T) {
	tests := []struct {
		name     string
		decision Decision
		wantErrs []string
	}{
		{
			name:     "valid create",
			decision: Decision{ChangeType: domain.ChangeTypeCreateNew, Type: "EXPENSE", AccountID: "a1", CategoryID: "c1", Amount: dec("5")},
		},
		{
			name:     "valid update of known transaction",
			decision: Decision{ChangeType: domain.ChangeTypeUpdateExisting, TargetTransactionID: "t1", Type: "expense", Amount: dec("5")},
		},
		{
			name:     "valid transfer",
			decision: Decision{ChangeType: domain.ChangeTypeCreateNew, Type: "TRANSFER", AccountID: "a1", TargetAccountID: "a2", Amount: dec("5")},
		},
		{
			name: "valid account seed without type",
			decision: Decision{ChangeType: domain.ChangeTypeCreateAccount,
				NewAccount: &domain.NewAccountData{Name: "Amex", Type: "LIABILITY", SubType: "CARD"}},
		},
		{
			name:     "unknown change type",
			decision: Decision{ChangeType: "DELETE", Type: "EXPENSE"},
			wantErrs: []string{`decision[0]: change_type "DELETE" must be one of CREATE_NEW, UPDATE_EXISTING, CREATE_ACCOUNT`},
		},
		{
			name:     "synonym type is not accepted",
			decision: Decision{ChangeType: domain.ChangeTypeCreateNew, Type: "debit"},
			wantErrs: []string{`decision[0]: type "debit" must be one of INCOME, EXPENSE, TRANSFER`},
		},
		{
			name:     "negative amount",
			decision: Decision{ChangeType: domain.ChangeTypeCreateNew, Type: "EXPENSE", Amount: dec("-1")},
			wantErrs: []string{"decision[0]: amount -1 must not be negative"},
		},
		{
			name:     "unknown ids",
			decision: Decision{ChangeType: domain.ChangeTypeCreateNew, Type: "EXPENSE", AccountID: "zz", CategoryID: "cz"},
			wantErrs: []string{
				`decision[0]: account_id "zz" is not one of the known accounts`,
				`decision[0]: category_id "cz" is not one of the known categories`,
			},
		},
		{
			name:     "update of invented transaction",
			decision: Decision{ChangeType: domain.ChangeTypeUpdateExisting, TargetTransactionID: "t9", Type: "EXPENSE"},
			wantErrs: []string{`decision[0]: target_transaction_id "t9" is not one of the known transactions`},
		},
		{
			name:     "update without target",
			decision: Decision{ChangeType: domain.ChangeTypeUpdateExisting, Type: "EXPENSE"},
			wantErrs: []string{"decision[0]: UPDATE_EXISTING requires target_transaction_id"},
		},
		{
			name:     "transfer without target",
			decision: Decision{ChangeType: domain.ChangeTypeCreateNew, Type: "TRANSFER", AccountID: "a1"},
			wantErrs: []string{"decision[0]: TRANSFER requires target_account_id"},
		},
		{
			name:     "self transfer",
			decision: Decision{ChangeType: domain.ChangeTypeCreateNew, Type: "TRANSFER", AccountID: "a1", TargetAccountID: "a1"},
			wantErrs: []string{"decision[0]: TRANSFER target_account_id must differ from account_id"},
		},
		{
			name:     "account seed missing",
			decision: Decision{ChangeType: domain.ChangeTypeCreateAccount},
			wantErrs: []string{"decision[0]: CREATE_ACCOUNT requires new_account_data"},
		},
		{
			name: "account seed with sub type as type",
			decision: Decision{ChangeType: domain.ChangeTypeCreateAccount,
				NewAccount: &domain.NewAccountData{Name: " ", Type: "BANK"}},
			wantErrs: []string{
				"decision[0]: new_account_data.name is required",
				`decision[0]: new_account_data.type "BANK" must be exactly ASSET or LIABILITY; put other kinds in sub_type`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewValidator(testSnapshot()).Validate([]Decision{tt.decision})
			assert.Equal(t, tt.wantErrs, got)
		})
	}
}

func TestValidator_AllowExtendsKnownTransactions(t *testing.T) {
	v := NewValidator(testSnapshot())
	d := []Decision{{ChangeType: domain.ChangeTypeUpdateExisting, TargetTransactionID: "t9", Type: "EXPENSE"}}

	assert.Len(t, v.Validate(d), 1)
	v.Allow(&domain.Transaction{ID: "t9"})
	assert.Empty(t, v.Validate(d))
}

func TestValidator_IndexesEveryDecision(t *testing.T) {
	got := NewValidator(testSnapshot()).Validate([]Decision{
		{ChangeType: domain.ChangeTypeCreateNew, Type: "EXPENSE"},
		{ChangeType: domain.ChangeTypeCreateNew, Type: "BOGUS"},
	})
	assert.Equal(t, []string{`decision[1]: type "BOGUS" must be one of INCOME, EXPENSE, TRANSFER`}, got)
}
