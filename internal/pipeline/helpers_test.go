package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
	"github.com/dvloznov/ledger-reconciler/internal/infra/sqlite"
	"github.com/dvloznov/ledger-reconciler/internal/ledger"
	"github.com/dvloznov/ledger-reconciler/internal/reasoning"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db       *sqlite.DB
	svc      *ledger.Service
	user     *domain.User
	checking *domain.Account
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := ledger.NewService(db, zerolog.Nop())
	user, err := svc.EnsureUser(ctx, "owner@example.com", "Owner")
	require.NoError(t, err)
	checking, err := svc.CreateAccount(ctx, user.ID, ledger.AccountInput{Name: "Checking", Type: domain.AccountTypeAsset})
	require.NoError(t, err)

	return &fixture{db: db, svc: svc, user: user, checking: checking}
}

func (f *fixture) addTransaction(t *testing.T, merchant, amount string, date time.Time) *domain.Transaction {
	t.Helper()
	tx, err := f.svc.CreateTransaction(context.Background(), f.user.ID, ledger.TransactionInput{
		AccountID:       f.checking.ID,
		Amount:          decimal.RequireFromString(amount),
		Type:            domain.TransactionTypeExpense,
		TransactionDate: date,
		Merchant:        merchant,
	})
	require.NoError(t, err)
	return tx
}

func (f *fixture) addDocument(t *testing.T, mime string) *domain.Document {
	t.Helper()
	doc, err := f.svc.RegisterDocument(context.Background(), f.user.ID, ledger.DocumentInput{
		OriginalFilename: "receipt",
		StorageURI:       "/uploads/receipt",
		MimeType:         mime,
	})
	require.NoError(t, err)
	return doc
}

func (f *fixture) proposals(t *testing.T, documentID string) []*domain.ProposedChange {
	t.Helper()
	out, err := f.db.ListDocumentProposals(context.Background(), documentID)
	require.NoError(t, err)
	return out
}

func (f *fixture) documentStatus(t *testing.T, documentID string) domain.DocumentStatus {
	t.Helper()
	doc, err := f.db.GetDocument(context.Background(), documentID)
	require.NoError(t, err)
	require.NotNil(t, doc)
	return doc.Status
}

// scriptedClient answers extraction prompts with extract and controller
// turns with the next entry of turns, repeating the last one.
type scriptedClient struct {
	mu         sync.Mutex
	extract    string
	extractErr error
	turns      []string
	turnCalls  int
	prompts    []string
}

func (c *scriptedClient) Generate(_ context.Context, prompt string, _ []reasoning.Attachment) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if strings.HasPrefix(prompt, "Extract all transactions") {
		return c.extract, c.extractErr
	}
	c.prompts = append(c.prompts, prompt)
	c.turnCalls++
	if len(c.turns) == 0 {
		return "", reasoning.ErrEmptyResponse
	}
	i := c.turnCalls - 1
	if i >= len(c.turns) {
		i = len(c.turns) - 1
	}
	return c.turns[i], nil
}

type staticFetcher []byte

func (f staticFetcher) Fetch(context.Context, string) ([]byte, error) {
	return f, nil
}

type recordingAudit struct {
	mu        sync.Mutex
	outputs   []string
	succeeded int
	failed    []error
}

func (a *recordingAudit) StartRun(context.Context, string, string) (string, error) {
	return "run-1", nil
}

func (a *recordingAudit) RecordModelOutput(_ context.Context, _, _, stage string, _ int, _ string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.outputs = append(a.outputs, stage)
	return nil
}

func (a *recordingAudit) MarkRunSucceeded(context.Context, string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.succeeded++
	return nil
}

func (a *recordingAudit) MarkRunFailed(_ context.Context, _ string, cause error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failed = append(a.failed, cause)
	return nil
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
