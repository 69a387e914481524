package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
	"github.com/dvloznov/ledger-reconciler/internal/infra/sqlite"
	"github.com/dvloznov/ledger-reconciler/internal/ledger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProposal(t *testing.T, db *sqlite.DB, userID string, ct domain.ChangeType, target *string, data domain.ProposedData) *domain.ProposedChange {
	t.Helper()
	ctx := context.Background()
	doc := &domain.Document{
		ID: uuid.NewString(), UserID: userID, OriginalFilename: "receipt.jpg", StorageURI: "receipt.jpg",
		MimeType: "image/jpeg", Status: domain.DocumentStatusProcessed, CreatedAt: time.Now(),
	}
	require.NoError(t, db.InsertDocument(ctx, doc))

	p := &domain.ProposedChange{
		ID: uuid.NewString(), UserID: userID, DocumentID: doc.ID, TargetTransactionID: target,
		ChangeType: ct, Status: domain.ProposalStatusPending, ProposedData: data,
		ConfidenceScore: 0.9, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, db.InsertProposal(ctx, p))
	return p
}

func TestConfirmProposal_CreateNew(t *testing.T) {
	svc, db, user := newTestService(t)
	ctx := context.Background()
	a := createAccount(t, svc, user.ID, "Checking")
	cat, err := svc.CreateCategory(ctx, user.ID, "Coffee", domain.CategoryTypeExpense, nil)
	require.NoError(t, err)

	p := seedProposal(t, db, user.ID, domain.ChangeTypeCreateNew, nil, domain.ProposedData{
		AccountID: a.ID, CategoryID: cat.ID, Amount: dec("12.50"), Type: "debit",
		TransactionDate: time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), Merchant: "Joe's Coffee",
	})

	got, err := svc.ConfirmProposal(ctx, user.ID, p.ID, domain.ProposalStatusApproved, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalStatusApproved, got.Status)
	assert.Equal(t, "-12.5", balanceOf(t, db, a.ID).String())

	txs, err := db.ListAccountTransactions(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TransactionTypeExpense, txs[0].Type)

	m, err := db.FindMerchantByName(ctx, user.ID, "joe's coffee")
	require.NoError(t, err)
	require.NotNil(t, m, "merchant learned")
	assert.Equal(t, cat.ID, *m.DefaultCategoryID)

	_, err = svc.ConfirmProposal(ctx, user.ID, p.ID, domain.ProposalStatusApproved, nil)
	assert.ErrorIs(t, err, domain.ErrProposalResolved)
	assert.Equal(t, "-12.5", balanceOf(t, db, a.ID).String(), "no second transaction")
}

func TestConfirmProposal_CreateNewForeignAccountUsesPettyCash(t *testing.T) {
	svc, db, user := newTestService(t)
	ctx := context.Background()

	other, err := svc.EnsureUser(ctx, "other@example.com", "")
	require.NoError(t, err)
	foreign := createAccount(t, svc, other.ID, "Foreign")

	p := seedProposal(t, db, user.ID, domain.ChangeTypeCreateNew, nil, domain.ProposedData{
		AccountID: foreign.ID, Amount: dec("5"), Type: domain.TransactionTypeExpense,
	})
	_, err = svc.ConfirmProposal(ctx, user.ID, p.ID, domain.ProposalStatusApproved, nil)
	require.NoError(t, err)

	petty, err := db.FindAccountByName(ctx, user.ID, domain.PettyCashAccountName)
	require.NoError(t, err)
	assert.Equal(t, "-5", petty.Balance.String())
	assert.True(t, balanceOf(t, db, foreign.ID).IsZero())
}

func TestConfirmProposal_UpdateExistingMovesAccount(t *testing.T) {
	svc, db, user := newTestService(t)
	ctx := context.Background()
	a := createAccount(t, svc, user.ID, "A")
	b := createAccount(t, svc, user.ID, "B")

	tx, err := svc.CreateTransaction(ctx, user.ID, ledger.TransactionInput{
		AccountID: a.ID, Amount: dec("20"), Type: domain.TransactionTypeExpense, Merchant: "Grocer",
	})
	require.NoError(t, err)

	p := seedProposal(t, db, user.ID, domain.ChangeTypeUpdateExisting, &tx.ID, domain.ProposedData{
		AccountID: b.ID, Amount: dec("22"), Type: domain.TransactionTypeExpense,
	})
	_, err = svc.ConfirmProposal(ctx, user.ID, p.ID, domain.ProposalStatusApproved, nil)
	require.NoError(t, err)

	assert.True(t, balanceOf(t, db, a.ID).IsZero())
	assert.Equal(t, "-22", balanceOf(t, db, b.ID).String())

	updated, err := db.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grocer", updated.Merchant, "empty payload fields keep existing values")
}

func TestConfirmProposal_CreateAccountSanitizesType(t *testing.T) {
	svc, db, user := newTestService(t)
	ctx := context.Background()

	p := seedProposal(t, db, user.ID, domain.ChangeTypeCreateAccount, nil, domain.ProposedData{
		NewAccount: &domain.NewAccountData{Name: "Barclays Current", Type: "BANK"},
	})
	_, err := svc.ConfirmProposal(ctx, user.ID, p.ID, domain.ProposalStatusApproved, nil)
	require.NoError(t, err)

	acct, err := db.FindAccountByName(ctx, user.ID, "Barclays Current")
	require.NoError(t, err)
	require.NotNil(t, acct)
	assert.Equal(t, domain.AccountTypeAsset, acct.Type)
	assert.Equal(t, "BANK", acct.SubType)
	assert.True(t, acct.Balance.IsZero())
}

func TestConfirmProposal_CreateAccountWithOpeningTransaction(t *testing.T) {
	svc, db, user := newTestService(t)
	ctx := context.Background()

	p := seedProposal(t, db, user.ID, domain.ChangeTypeCreateAccount, nil, domain.ProposedData{
		Amount: dec("150"), Type: domain.TransactionTypeIncome,
		NewAccount: &domain.NewAccountData{Name: "Wallet", Type: "LIABILITY"},
	})
	_, err := svc.ConfirmProposal(ctx, user.ID, p.ID, domain.ProposalStatusApproved, nil)
	require.NoError(t, err)

	acct, err := db.FindAccountByName(ctx, user.ID, "Wallet")
	require.NoError(t, err)
	assert.Equal(t, domain.AccountTypeLiability, acct.Type)
	assert.Equal(t, "150", acct.Balance.String())
}

func TestConfirmProposal_EditedDataAndReject(t *testing.T) {
	svc, db, user := newTestService(t)
	ctx := context.Background()
	a := createAccount(t, svc, user.ID, "A")

	p := seedProposal(t, db, user.ID, domain.ChangeTypeCreateNew, nil, domain.ProposedData{
		AccountID: a.ID, Amount: dec("9"), Type: domain.TransactionTypeExpense,
	})
	edited := domain.ProposedData{AccountID: a.ID, Amount: dec("11"), Type: domain.TransactionTypeExpense}
	got, err := svc.ConfirmProposal(ctx, user.ID, p.ID, domain.ProposalStatusApproved, &edited)
	require.NoError(t, err)
	assert.Equal(t, "11", got.ProposedData.Amount.String())
	assert.Equal(t, "-11", balanceOf(t, db, a.ID).String())

	rejected := seedProposal(t, db, user.ID, domain.ChangeTypeCreateNew, nil, domain.ProposedData{
		AccountID: a.ID, Amount: dec("100"), Type: domain.TransactionTypeExpense,
	})
	got, err = svc.ConfirmProposal(ctx, user.ID, rejected.ID, domain.ProposalStatusRejected, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ProposalStatusRejected, got.Status)
	assert.Equal(t, "-11", balanceOf(t, db, a.ID).String())

	_, err = svc.ConfirmProposal(ctx, user.ID, rejected.ID, domain.ProposalStatusPending, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	pending, err := svc.ListPendingProposals(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestConfirmProposal_OtherUser(t *testing.T) {
	svc, db, user := newTestService(t)
	ctx := context.Background()

	p := seedProposal(t, db, user.ID, domain.ChangeTypeCreateNew, nil, domain.ProposedData{Amount: dec("1")})
	_, err := svc.ConfirmProposal(ctx, uuid.NewString(), p.ID, domain.ProposalStatusApproved, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
