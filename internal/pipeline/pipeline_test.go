package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
	"github.com/dvloznov/ledger-reconciler/internal/ledger"
	"github.com/dvloznov/ledger-reconciler/internal/ratelimit"
	"github.com/dvloznov/ledger-reconciler/internal/reasoning"
	"github.com/dvloznov/ledger-reconciler/internal/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProcessor(f *fixture, client reasoning.Client, audit AuditSink) *Processor {
	return NewProcessor(f.db, staticFetcher("%PDF-1.7"), client, ratelimit.New(0), audit, Config{}, zerolog.Nop())
}

func requireKind(t *testing.T, err error, kind domain.ErrorKind) *domain.ReconciliationError {
	t.Helper()
	var rerr *domain.ReconciliationError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, kind, rerr.Kind)
	return rerr
}

const receiptItems = `[
	{"amount": 12.50, "merchant": "Joe's Coffee", "transaction_date": "2024-03-01", "type": "EXPENSE"},
	{"amount": 3.00, "merchant": "Bakery", "transaction_date": "2024-03-02", "type": "EXPENSE"}
]`

func TestProcessDocument_Agentic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	existing := f.addTransaction(t, "Joe's Coffee", "12.50", day("2024-03-01"))
	doc := f.addDocument(t, "image/png")

	client := &scriptedClient{
		extract: receiptItems,
		turns: []string{fmt.Sprintf(`{"action":"DECIDE","decisions":[
			{"change_type":"UPDATE_EXISTING","target_transaction_id":%q,"type":"EXPENSE","amount":12.5,"note":"latte"},
			{"change_type":"CREATE_NEW","account_id":%q,"type":"EXPENSE","amount":3,"merchant":"Bakery","transaction_date":"2024-03-02","confidence":0.2}
		]}`, existing.ID, f.checking.ID)},
	}
	audit := &recordingAudit{}
	p := newTestProcessor(f, client, audit)

	out, err := p.ProcessDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StrategyAgentic, out.Strategy)
	assert.Equal(t, 2, out.Items)
	assert.Equal(t, 2, out.Created)
	assert.Equal(t, domain.DocumentStatusProcessed, f.documentStatus(t, doc.ID))
	assert.Equal(t, []string{StageExtract, StageTurn}, audit.outputs)
	assert.Equal(t, 1, audit.succeeded)

	got := f.proposals(t, doc.ID)
	require.Len(t, got, 2)
	byType := map[domain.ChangeType]*domain.ProposedChange{}
	for _, pc := range got {
		byType[pc.ChangeType] = pc
		assert.Equal(t, domain.ProposalStatusPending, pc.Status)
	}
	require.NotNil(t, byType[domain.ChangeTypeUpdateExisting])
	assert.Equal(t, existing.ID, *byType[domain.ChangeTypeUpdateExisting].TargetTransactionID)
	assert.InDelta(t, AgenticConfidence, byType[domain.ChangeTypeUpdateExisting].ConfidenceScore, 1e-9)
	assert.InDelta(t, MinAgenticConfidence, byType[domain.ChangeTypeCreateNew].ConfidenceScore, 1e-9)

	// Reprocessing refreshes the same proposals.
	out, err = p.ProcessDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Created)
	assert.Equal(t, 2, out.Updated)
	assert.Len(t, f.proposals(t, doc.ID), 2)
}

func TestProcessDocument_Fallback(t *testing.T) {
	f := newFixture(t)
	existing := f.addTransaction(t, "Joe's Coffee", "12.50", day("2024-03-02"))
	doc := f.addDocument(t, "application/pdf")

	client := &scriptedClient{extract: receiptItems, turns: []string{"not sure, sorry"}}
	out, err := newTestProcessor(f, client, nil).ProcessDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StrategyFallback, out.Strategy)
	assert.NotEmpty(t, out.FallbackReason)

	got := f.proposals(t, doc.ID)
	require.Len(t, got, 2)
	for _, pc := range got {
		assert.InDelta(t, FallbackConfidence, pc.ConfidenceScore, 1e-9)
		if pc.ChangeType == domain.ChangeTypeUpdateExisting {
			assert.Equal(t, existing.ID, *pc.TargetTransactionID)
		}
	}
}

func TestProcessDocument_EmptyExtraction(t *testing.T) {
	f := newFixture(t)
	doc := f.addDocument(t, "image/png")
	client := &scriptedClient{extract: "[]"}

	out, err := newTestProcessor(f, client, nil).ProcessDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Items)
	assert.Equal(t, 0, client.turnCalls)
	assert.Empty(t, f.proposals(t, doc.ID))
	assert.Equal(t, domain.DocumentStatusProcessed, f.documentStatus(t, doc.ID))
}

func TestProcessDocument_Failures(t *testing.T) {
	boom := errors.New("upstream unavailable")
	turnErr := reasoning.ClientFunc(func(_ context.Context, prompt string, _ []reasoning.Attachment) (string, error) {
		if prompt == buildExtractionPrompt("") {
			return receiptItems, nil
		}
		return "", boom
	})

	tests := []struct {
		name      string
		mime      string
		client    reasoning.Client
		kind      domain.ErrorKind
		retryable bool
	}{
		{name: "unsupported mime", mime: "text/plain", client: &scriptedClient{extract: receiptItems}, kind: domain.KindUnsupportedInput},
		{name: "extraction not json", mime: "image/png", client: &scriptedClient{extract: "The image is too blurry."}, kind: domain.KindProtocol},
		{name: "extraction empty", mime: "image/png", client: &scriptedClient{extractErr: reasoning.ErrEmptyResponse}, kind: domain.KindProtocol},
		{name: "extraction upstream", mime: "image/png", client: &scriptedClient{extractErr: boom}, kind: domain.KindUpstream, retryable: true},
		{name: "turn upstream", mime: "image/png", client: turnErr, kind: domain.KindUpstream, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			doc := f.addDocument(t, tt.mime)
			audit := &recordingAudit{}

			_, err := newTestProcessor(f, tt.client, audit).ProcessDocument(context.Background(), doc.ID)
			rerr := requireKind(t, err, tt.kind)
			assert.Equal(t, doc.ID, rerr.DocumentID)
			assert.Equal(t, tt.retryable, rerr.Retryable())

			assert.Equal(t, domain.DocumentStatusError, f.documentStatus(t, doc.ID))
			assert.Empty(t, f.proposals(t, doc.ID))
			assert.Len(t, audit.failed, 1)
			assert.Zero(t, audit.succeeded)
		})
	}
}

func TestProcessDocument_ForeignLocatorIsNotRetried(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc, err := f.svc.RegisterDocument(ctx, f.user.ID, ledger.DocumentInput{
		OriginalFilename: "salaries.pdf",
		StorageURI:       "gs://payroll/2024/salaries.pdf",
		MimeType:         "application/pdf",
	})
	require.NoError(t, err)
	client := &scriptedClient{extract: receiptItems}

	fetcher := storage.NewFetcher(nil, "uploads", t.TempDir())
	_, err = NewProcessor(f.db, fetcher, client, ratelimit.New(0), nil, Config{}, zerolog.Nop()).ProcessDocument(ctx, doc.ID)
	rerr := requireKind(t, err, domain.KindUnsupportedInput)
	assert.False(t, rerr.Retryable())
	assert.ErrorIs(t, err, storage.ErrForeignBucket)
	assert.Equal(t, domain.DocumentStatusError, f.documentStatus(t, doc.ID))
	assert.Empty(t, client.prompts)
}

func TestProcessDocument_RejectsDocumentInProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.addDocument(t, "image/png")
	require.NoError(t, f.db.UpdateDocumentStatus(ctx, doc.ID, domain.DocumentStatusParsing))

	_, err := newTestProcessor(f, &scriptedClient{extract: receiptItems}, nil).ProcessDocument(ctx, doc.ID)
	requireKind(t, err, domain.KindDataIntegrity)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, domain.DocumentStatusParsing, f.documentStatus(t, doc.ID))
}

func TestProcessDocument_UnknownDocument(t *testing.T) {
	f := newFixture(t)
	_, err := newTestProcessor(f, &scriptedClient{}, nil).ProcessDocument(context.Background(), "missing")
	requireKind(t, err, domain.KindDataIntegrity)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
