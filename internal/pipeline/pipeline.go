// Package pipeline reconciles uploaded documents with the ledger: it extracts
// line items, runs the bounded QUERY/DECIDE exchange with the reasoning
// service (or the fallback heuristic) and materializes PENDING proposals.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
	"github.com/dvloznov/ledger-reconciler/internal/ledger"
	"github.com/dvloznov/ledger-reconciler/internal/logger"
	"github.com/dvloznov/ledger-reconciler/internal/metrics"
	"github.com/dvloznov/ledger-reconciler/internal/ratelimit"
	"github.com/dvloznov/ledger-reconciler/internal/reasoning"
	"github.com/rs/zerolog"
)

// Config tunes a Processor. Zero values take the package defaults.
type Config struct {
	Model              string
	MaxTurns           int
	SearchLimit        int
	RecentTransactions int
	DefaultMerchants   int
	MaxCategories      int
}

// Processor is the document processing entry point.
type Processor struct {
	store        ledger.Store
	fetcher      ContentFetcher
	extractor    reasoning.Client
	controller   *Controller
	builder      *ContextBuilder
	materializer *Materializer
	audit        AuditSink
	model        string
	log          zerolog.Logger
	now          func() time.Time
	pipeline     *Pipeline
}

// NewProcessor wires a processor. Every reasoning call goes through limiter,
// which should be shared by all processors of the process. audit may be nil.
func NewProcessor(store ledger.Store, fetcher ContentFetcher, client reasoning.Client, limiter *ratelimit.Limiter, audit AuditSink, cfg Config, log zerolog.Logger) *Processor {
	if audit == nil {
		audit = NoopAudit{}
	}
	if cfg.Model == "" {
		cfg.Model = reasoning.DefaultModelName
	}

	p := &Processor{
		store:        store,
		fetcher:      fetcher,
		extractor:    reasoning.NewThrottled(client, limiter, StageExtract),
		controller:   NewController(reasoning.NewThrottled(client, limiter, StageTurn), store, cfg.MaxTurns, cfg.SearchLimit),
		builder:      NewContextBuilder(store, cfg.RecentTransactions, cfg.SearchLimit, cfg.DefaultMerchants, cfg.MaxCategories),
		materializer: NewMaterializer(),
		audit:        audit,
		model:        cfg.Model,
		log:          log.With().Str("component", "pipeline").Logger(),
		now:          time.Now,
	}
	p.pipeline = NewPipeline(
		&LoadDocumentStep{p},
		&MarkParsingStep{p},
		&StartAuditRunStep{p},
		&FetchContentStep{p},
		&ExtractLineItemsStep{p},
		&BuildContextStep{p},
		&ReconcileStep{p},
		&CommitStep{p},
		&MarkSuccessStep{p},
	)
	return p
}

// ProcessDocument reconciles one document. On failure the returned error is
// always a *domain.ReconciliationError, the document is marked ERROR (unless
// it could not be claimed) and no proposal of this attempt is committed.
func (p *Processor) ProcessDocument(ctx context.Context, documentID string) (*ProcessedOutcome, error) {
	log := logger.ForDocument(p.log, documentID)
	ctx = logger.WithContext(ctx, log)
	start := p.now()

	state := &ProcessState{DocumentID: documentID}
	err := p.pipeline.Execute(ctx, state)
	if err == nil {
		metrics.Documents.WithLabelValues(string(domain.DocumentStatusProcessed)).Inc()
		log.Info().
			Str("strategy", string(state.Result.Strategy)).
			Int("items", state.Result.Items).
			Int("created", state.Result.Created).
			Int("updated", state.Result.Updated).
			Int("skipped", state.Result.Skipped).
			Dur("elapsed", p.now().Sub(start)).
			Msg("Document processed")
		return state.Result, nil
	}

	var rerr *domain.ReconciliationError
	if !errors.As(err, &rerr) {
		rerr = domain.NewReconciliationError(domain.KindDataIntegrity, documentID, err)
	}
	p.fail(ctx, state, rerr)
	return nil, rerr
}

// fail records a failed attempt. It runs detached from ctx so a cancelled
// task still leaves the document in ERROR.
func (p *Processor) fail(ctx context.Context, state *ProcessState, rerr *domain.ReconciliationError) {
	log := logger.FromContext(ctx)
	ctx = context.WithoutCancel(ctx)

	log.Error().Err(rerr.Err).Str("kind", string(rerr.Kind)).Msg("Document processing failed")
	metrics.Documents.WithLabelValues(string(domain.DocumentStatusError)).Inc()

	if state.Parsing {
		if err := p.store.UpdateDocumentStatus(ctx, state.DocumentID, domain.DocumentStatusError); err != nil {
			log.Error().Err(err).Msg("Failed to mark document ERROR")
		}
	}
	if state.RunID != "" {
		if err := p.audit.MarkRunFailed(ctx, state.RunID, rerr); err != nil {
			log.Warn().Err(err).Str("run_id", state.RunID).Msg("Failed to close audit run")
		}
	}
}

// recordOutput stores a raw response in the audit sink; failures are logged only.
func (p *Processor) recordOutput(ctx context.Context, state *ProcessState, stage string, turn int, raw string) {
	if state.RunID == "" {
		return
	}
	if err := p.audit.RecordModelOutput(ctx, state.RunID, state.DocumentID, stage, turn, raw); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("stage", stage).Msg("Failed to record model output")
	}
}
