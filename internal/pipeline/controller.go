package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/ledger-reconciler/internal/logger"
	"github.com/dvloznov/ledger-reconciler/internal/metrics"
	"github.com/dvloznov/ledger-reconciler/internal/reasoning"
)

// Request is the input of one controller run.
type Request struct {
	DocumentID  string
	UserID      string
	Items       []LineItem
	Snapshot    *Snapshot
	Attachments []reasoning.Attachment

	// OnResponse, when set, sees every raw response with its turn number.
	OnResponse func(turn int, raw string)
}

// Controller runs the bounded QUERY/DECIDE exchange for one document at a time.
// It keeps no per-document state, so one Controller serves concurrent runs.
type Controller struct {
	client      reasoning.Client
	search      TransactionSearcher
	maxTurns    int
	searchLimit int
}

// NewController creates a controller. Non-positive limits take the defaults.
func NewController(client reasoning.Client, search TransactionSearcher, maxTurns, searchLimit int) *Controller {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if searchLimit <= 0 {
		searchLimit = DefaultSearchLimit
	}
	return &Controller{client: client, search: search, maxTurns: maxTurns, searchLimit: searchLimit}
}

// Run exchanges turns with the reasoning service until it returns a valid
// DECIDE, or falls back to heuristic matching when the turn budget runs out
// or a response is malformed. Only upstream and ledger errors are returned.
func (c *Controller) Run(ctx context.Context, req Request) (*Outcome, error) {
	log := logger.FromContext(ctx)
	validator := NewValidator(req.Snapshot)
	var history []HistoryEntry
	turns := 0

	for {
		if turns >= c.maxTurns {
			return c.fallback(ctx, req, turns, fmt.Sprintf("turn budget of %d exhausted", c.maxTurns))
		}

		prompt, err := buildTurnPrompt(req.Items, req.Snapshot, history, turns, c.maxTurns)
		if err != nil {
			return nil, err
		}
		raw, err := c.client.Generate(ctx, prompt, req.Attachments)
		if errors.Is(err, reasoning.ErrEmptyResponse) {
			return c.fallback(ctx, req, turns, "empty response")
		}
		if err != nil {
			return nil, fmt.Errorf("Run: turn %d: %w", turns+1, err)
		}
		if req.OnResponse != nil {
			req.OnResponse(turns+1, raw)
		}

		switch a := ParseAction(raw).(type) {
		case QueryAction:
			log.Debug().Int("turn", turns+1).Str("action", "QUERY").Str("merchant", a.Query.Merchant).Msg("Controller turn")
			entry := HistoryEntry{Turn: turns + 1, Query: &a.Query}
			filter, ferr := a.Query.Filter(c.searchLimit)
			if ferr != nil {
				entry.Errors = []string{ferr.Error()}
			} else {
				results, err := c.search.SearchTransactions(ctx, req.UserID, filter)
				if err != nil {
					return nil, fmt.Errorf("Run: search: %w", err)
				}
				validator.Allow(results...)
				entry.Results = results
			}
			history = append(history, entry)
			turns++

		case DecideAction:
			violations := validator.Validate(a.Decisions)
			log.Debug().Int("turn", turns+1).Str("action", "DECIDE").Int("violations", len(violations)).Msg("Controller turn")
			if len(violations) > 0 {
				metrics.ValidationViolations.Add(float64(len(violations)))
				history = append(history, HistoryEntry{Turn: turns + 1, Decisions: a.Decisions, Errors: violations})
				turns++
				continue
			}
			metrics.ControllerTurns.Observe(float64(turns))
			metrics.ControllerOutcomes.WithLabelValues(string(StrategyAgentic)).Inc()
			return &Outcome{Strategy: StrategyAgentic, Decisions: a.Decisions, Turns: turns}, nil

		case MalformedAction:
			log.Warn().Int("turn", turns+1).Str("reason", a.Reason).Msg("Malformed reasoning response")
			return c.fallback(ctx, req, turns, a.Reason)
		}
	}
}

func (c *Controller) fallback(ctx context.Context, req Request, turns int, reason string) (*Outcome, error) {
	log := logger.FromContext(ctx)
	log.Warn().Int("turns", turns).Str("reason", reason).Msg("Falling back to heuristic matching")

	decisions, err := FallbackDecisions(ctx, c.search, req.UserID, req.Items)
	if err != nil {
		return nil, err
	}
	metrics.ControllerTurns.Observe(float64(turns))
	metrics.ControllerOutcomes.WithLabelValues(string(StrategyFallback)).Inc()
	return &Outcome{Strategy: StrategyFallback, Decisions: decisions, Turns: turns, FallbackReason: reason}, nil
}
