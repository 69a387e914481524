package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/ledger-reconciler/internal/domain"
	"github.com/dvloznov/ledger-reconciler/internal/ledger"
	"github.com/dvloznov/ledger-reconciler/internal/logger"
	"github.com/dvloznov/ledger-reconciler/internal/reasoning"
	"github.com/dvloznov/ledger-reconciler/internal/storage"
)

// PipelineStep is one stage of document processing. Steps return
// *domain.ReconciliationError values so the failure kind survives.
type PipelineStep interface {
	Execute(ctx context.Context, state *ProcessState) error
}

// ProcessState holds the shared state across all pipeline steps of one document.
type ProcessState struct {
	DocumentID string
	Document   *domain.Document
	Parsing    bool
	RunID      string
	Content    []byte
	Items      []LineItem
	Warnings   []string
	Snapshot   *Snapshot
	Outcome    *Outcome
	Result     *ProcessedOutcome
}

// Step 1: LoadDocumentStep loads the document record.
type LoadDocumentStep struct{ p *Processor }

func (s *LoadDocumentStep) Execute(ctx context.Context, state *ProcessState) error {
	doc, err := s.p.store.GetDocument(ctx, state.DocumentID)
	if err != nil {
		return domain.NewReconciliationError(domain.KindDataIntegrity, state.DocumentID, err)
	}
	if doc == nil {
		return domain.NewReconciliationError(domain.KindDataIntegrity, state.DocumentID,
			fmt.Errorf("document %s: %w", state.DocumentID, domain.ErrNotFound))
	}
	state.Document = doc
	return nil
}

// Step 2: MarkParsingStep claims the document by moving it to PARSING.
type MarkParsingStep struct{ p *Processor }

func (s *MarkParsingStep) Execute(ctx context.Context, state *ProcessState) error {
	err := s.p.store.InTx(ctx, func(repo ledger.Repository) error {
		doc, err := repo.GetDocument(ctx, state.DocumentID)
		if err != nil {
			return err
		}
		if doc == nil {
			return fmt.Errorf("document %s: %w", state.DocumentID, domain.ErrNotFound)
		}
		if !doc.Status.CanTransitionTo(domain.DocumentStatusParsing) {
			return fmt.Errorf("%s -> %s: %w", doc.Status, domain.DocumentStatusParsing, domain.ErrInvalidTransition)
		}
		return repo.UpdateDocumentStatus(ctx, doc.ID, domain.DocumentStatusParsing)
	})
	if err != nil {
		return domain.NewReconciliationError(domain.KindDataIntegrity, state.DocumentID, err)
	}
	state.Parsing = true
	state.Document.Status = domain.DocumentStatusParsing
	return nil
}

// Step 3: StartAuditRunStep opens an audit run. Audit failures are logged only.
type StartAuditRunStep struct{ p *Processor }

func (s *StartAuditRunStep) Execute(ctx context.Context, state *ProcessState) error {
	runID, err := s.p.audit.StartRun(ctx, state.DocumentID, s.p.model)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Failed to start audit run")
		return nil
	}
	state.RunID = runID
	return nil
}

// Step 4: FetchContentStep loads the document bytes and rejects unsupported input.
type FetchContentStep struct{ p *Processor }

func (s *FetchContentStep) Execute(ctx context.Context, state *ProcessState) error {
	if !domain.SupportedMimeType(state.Document.MimeType) {
		return domain.NewReconciliationError(domain.KindUnsupportedInput, state.DocumentID,
			fmt.Errorf("mime type %q is not supported", state.Document.MimeType))
	}
	content, err := s.p.fetcher.Fetch(ctx, state.Document.StorageURI)
	if errors.Is(err, storage.ErrForeignBucket) || errors.Is(err, storage.ErrOutsideUploadDir) {
		return domain.NewReconciliationError(domain.KindUnsupportedInput, state.DocumentID, err)
	}
	if err != nil {
		return domain.NewReconciliationError(domain.KindUpstream, state.DocumentID, err)
	}
	if len(content) == 0 {
		return domain.NewReconciliationError(domain.KindUnsupportedInput, state.DocumentID,
			errors.New("document has no renderable pages"))
	}
	state.Content = content
	return nil
}

// Step 5: ExtractLineItemsStep asks the reasoning service for the line items.
type ExtractLineItemsStep struct{ p *Processor }

func (s *ExtractLineItemsStep) Execute(ctx context.Context, state *ProcessState) error {
	raw, err := s.p.extractor.Generate(ctx, buildExtractionPrompt(state.Document.UserNote), documentAttachments(state))
	if errors.Is(err, reasoning.ErrEmptyResponse) {
		return domain.NewReconciliationError(domain.KindProtocol, state.DocumentID, err)
	}
	if err != nil {
		return domain.NewReconciliationError(domain.KindUpstream, state.DocumentID, err)
	}
	s.p.recordOutput(ctx, state, StageExtract, 0, raw)

	items, warnings, err := transformLineItems(raw, s.p.now().UTC())
	if err != nil {
		return domain.NewReconciliationError(domain.KindProtocol, state.DocumentID, err)
	}
	log := logger.FromContext(ctx)
	for _, w := range warnings {
		log.Warn().Str("warning", w).Msg("Extracted item adjusted")
	}
	state.Items = items
	state.Warnings = warnings
	return nil
}

// documentAttachments sends the whole document inline: PDFs as one blob,
// images as they are.
func documentAttachments(state *ProcessState) []reasoning.Attachment {
	return []reasoning.Attachment{{MIMEType: state.Document.MimeType, Data: state.Content}}
}

// Step 6: BuildContextStep snapshots the ledger around the extracted merchants.
type BuildContextStep struct{ p *Processor }

func (s *BuildContextStep) Execute(ctx context.Context, state *ProcessState) error {
	if len(state.Items) == 0 {
		return nil
	}
	merchants := make([]string, 0, len(state.Items))
	for _, it := range state.Items {
		merchants = append(merchants, it.Merchant)
	}
	snap, err := s.p.builder.Build(ctx, state.Document.UserID, merchants)
	if err != nil {
		return domain.NewReconciliationError(domain.KindDataIntegrity, state.DocumentID, err)
	}
	state.Snapshot = snap
	return nil
}

// Step 7: ReconcileStep runs the controller.
type ReconcileStep struct{ p *Processor }

func (s *ReconcileStep) Execute(ctx context.Context, state *ProcessState) error {
	if len(state.Items) == 0 {
		return nil
	}
	outcome, err := s.p.controller.Run(ctx, Request{
		DocumentID:  state.DocumentID,
		UserID:      state.Document.UserID,
		Items:       state.Items,
		Snapshot:    state.Snapshot,
		Attachments: documentAttachments(state),
		OnResponse: func(turn int, raw string) {
			s.p.recordOutput(ctx, state, StageTurn, turn, raw)
		},
	})
	if err != nil {
		return domain.NewReconciliationError(domain.KindUpstream, state.DocumentID, err)
	}
	state.Outcome = outcome
	return nil
}

// Step 8: CommitStep writes every proposal and marks the document PROCESSED
// in one transaction.
type CommitStep struct{ p *Processor }

func (s *CommitStep) Execute(ctx context.Context, state *ProcessState) error {
	result := &ProcessedOutcome{
		DocumentID: state.DocumentID,
		Items:      len(state.Items),
		Warnings:   state.Warnings,
	}
	if o := state.Outcome; o != nil {
		result.Strategy = o.Strategy
		result.Turns = o.Turns
		result.FallbackReason = o.FallbackReason
	}

	err := s.p.store.InTx(ctx, func(repo ledger.Repository) error {
		if state.Outcome != nil {
			for _, d := range state.Outcome.Decisions {
				action, err := s.p.materializer.Materialize(ctx, repo, state.Document, d, confidenceFor(state.Outcome.Strategy, d))
				if err != nil {
					return err
				}
				switch action {
				case ActionCreated:
					result.Created++
				case ActionUpdated:
					result.Updated++
				case ActionSkipped:
					result.Skipped++
				}
			}
		}
		return repo.UpdateDocumentStatus(ctx, state.DocumentID, domain.DocumentStatusProcessed)
	})
	if err != nil {
		return domain.NewReconciliationError(domain.KindDataIntegrity, state.DocumentID, err)
	}
	state.Document.Status = domain.DocumentStatusProcessed
	state.Result = result
	return nil
}

// Step 9: MarkSuccessStep closes the audit run.
type MarkSuccessStep struct{ p *Processor }

func (s *MarkSuccessStep) Execute(ctx context.Context, state *ProcessState) error {
	if state.RunID == "" {
		return nil
	}
	if err := s.p.audit.MarkRunSucceeded(ctx, state.RunID); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("run_id", state.RunID).Msg("Failed to close audit run")
	}
	return nil
}

// confidenceFor scores a decision. Fallback proposals always rank below agentic ones.
func confidenceFor(strategy Strategy, d Decision) float64 {
	if strategy == StrategyFallback {
		return FallbackConfidence
	}
	if d.Confidence == nil {
		return AgenticConfidence
	}
	c := *d.Confidence
	if c < MinAgenticConfidence {
		return MinAgenticConfidence
	}
	if c > 1 {
		return 1
	}
	return c
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially and stops at the first error.
func (p *Pipeline) Execute(ctx context.Context, state *ProcessState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}
