package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
	"github.com/dvloznov/ledger-reconciler/internal/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *DB) (*domain.User, *domain.Account) {
	t.Helper()
	ctx := context.Background()
	u := &domain.User{ID: uuid.NewString(), Email: "owner@example.com", CreatedAt: time.Now()}
	require.NoError(t, db.InsertUser(ctx, u))
	a := &domain.Account{
		ID: uuid.NewString(), UserID: u.ID, Name: "Checking", Type: domain.AccountTypeAsset,
		Currency: "USD", Balance: decimal.Zero, CreatedAt: time.Now(),
	}
	require.NoError(t, db.InsertAccount(ctx, a))
	return u, a
}

func insertTx(t *testing.T, db *DB, userID, accountID, merchant, amount string, date time.Time) *domain.Transaction {
	t.Helper()
	tx := &domain.Transaction{
		ID: uuid.NewString(), UserID: userID, AccountID: accountID,
		Amount: decimal.RequireFromString(amount), Type: domain.TransactionTypeExpense,
		TransactionDate: date, Merchant: merchant, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, db.InsertTransaction(context.Background(), tx))
	return tx
}

func TestOpen_IsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestGetMissingRowsReturnNil(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u, err := db.GetUserByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, u)

	a, err := db.GetAccount(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, a)

	tx, err := db.GetTransaction(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, tx)

	p, err := db.GetProposal(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestTransactionRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u, acct := seedUser(t, db)

	date := time.Date(2024, 3, 14, 9, 30, 0, 0, time.UTC)
	tx := insertTx(t, db, u.ID, acct.ID, "Joe's Coffee", "12.50", date)

	got, err := db.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("12.5")))
	assert.True(t, date.Equal(got.TransactionDate))
	assert.Equal(t, "Joe's Coffee", got.Merchant)
	assert.Nil(t, got.TargetAccountID)

	got.Amount = decimal.RequireFromString("13")
	got.UpdatedAt = time.Now()
	require.NoError(t, db.UpdateTransaction(ctx, got))

	again, err := db.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "13", again.Amount.String())

	require.NoError(t, db.DeleteTransaction(ctx, tx.ID))
	gone, err := db.GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestSearchTransactions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u, acct := seedUser(t, db)

	d := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	coffee := insertTx(t, db, u.ID, acct.ID, "Joe's Coffee #12", "12.50", d)
	insertTx(t, db, u.ID, acct.ID, "Joe's Coffee #12", "4.00", d.AddDate(0, 0, -3))
	insertTx(t, db, u.ID, acct.ID, "Grocer", "12.50", d.AddDate(0, 0, -1))

	amount := decimal.RequireFromString("12.500")
	from := d.AddDate(0, 0, -1)
	to := d.AddDate(0, 0, 1)

	tests := []struct {
		name   string
		filter domain.TransactionFilter
		want   int
	}{
		{name: "merchant substring ignores case", filter: domain.TransactionFilter{Merchant: "joe's coffee"}, want: 2},
		{name: "amount equality is numeric", filter: domain.TransactionFilter{Amount: &amount}, want: 2},
		{name: "merchant and amount", filter: domain.TransactionFilter{Merchant: "COFFEE", Amount: &amount}, want: 1},
		{name: "date range", filter: domain.TransactionFilter{DateFrom: &from, DateTo: &to}, want: 2},
		{name: "limit", filter: domain.TransactionFilter{Limit: 1}, want: 1},
		{name: "no match", filter: domain.TransactionFilter{Merchant: "NoMatch"}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.SearchTransactions(ctx, u.ID, tt.filter)
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}

	recent, err := db.ListRecentTransactions(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, coffee.ID, recent[0].ID, "newest first")
}

func TestFindProposals_NullTarget(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u, acct := seedUser(t, db)

	doc := &domain.Document{
		ID: uuid.NewString(), UserID: u.ID, OriginalFilename: "r.jpg", StorageURI: "r.jpg",
		MimeType: "image/jpeg", Status: domain.DocumentStatusUploaded, CreatedAt: time.Now(),
	}
	require.NoError(t, db.InsertDocument(ctx, doc))
	tx := insertTx(t, db, u.ID, acct.ID, "Shop", "1", time.Now())

	newProposal := func(target *string) *domain.ProposedChange {
		return &domain.ProposedChange{
			ID: uuid.NewString(), UserID: u.ID, DocumentID: doc.ID, TargetTransactionID: target,
			ChangeType: domain.ChangeTypeCreateNew, Status: domain.ProposalStatusPending,
			ProposedData:    domain.ProposedData{Amount: decimal.RequireFromString("1"), Type: domain.TransactionTypeExpense},
			ConfidenceScore: 0.5, CreatedAt: time.Now(), UpdatedAt: time.Now(),
		}
	}
	require.NoError(t, db.InsertProposal(ctx, newProposal(nil)))
	require.NoError(t, db.InsertProposal(ctx, newProposal(&tx.ID)))

	untargeted, err := db.FindProposals(ctx, doc.ID, nil)
	require.NoError(t, err)
	assert.Len(t, untargeted, 1)

	targeted, err := db.FindProposals(ctx, doc.ID, &tx.ID)
	require.NoError(t, err)
	require.Len(t, targeted, 1)
	assert.Equal(t, tx.ID, *targeted[0].TargetTransactionID)

	pending, err := db.ListPendingProposals(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestInTx_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u, acct := seedUser(t, db)

	boom := errors.New("boom")
	err := db.InTx(ctx, func(repo ledger.Repository) error {
		if err := repo.UpdateAccountBalance(ctx, acct.ID, decimal.RequireFromString("99")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := db.GetAccount(ctx, acct.ID)
	require.NoError(t, err)
	assert.True(t, got.Balance.IsZero())

	require.NoError(t, db.InTx(ctx, func(repo ledger.Repository) error {
		return repo.UpdateAccountBalance(ctx, acct.ID, decimal.RequireFromString("42.10"))
	}))
	got, err = db.GetAccount(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, "42.1", got.Balance.String())
	assert.Equal(t, u.ID, got.UserID)
}

func TestMerchantLookupIgnoresCase(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u, _ := seedUser(t, db)

	cat := &domain.Category{ID: uuid.NewString(), UserID: u.ID, Name: "Coffee", Type: domain.CategoryTypeExpense}
	require.NoError(t, db.InsertCategory(ctx, cat))
	m := &domain.Merchant{ID: uuid.NewString(), UserID: u.ID, Name: "Joe's Coffee", DefaultCategoryID: &cat.ID}
	require.NoError(t, db.InsertMerchant(ctx, m))

	got, err := db.FindMerchantByName(ctx, u.ID, "JOE'S COFFEE")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, cat.ID, *got.DefaultCategoryID)

	partial, err := db.FindMerchantByName(ctx, u.ID, "Joe")
	require.NoError(t, err)
	assert.Nil(t, partial, "exact name only")

	found, err := db.SearchMerchants(ctx, u.ID, "coffee", 10)
	require.NoError(t, err)
	assert.Len(t, found, 1)
}
