// Package metrics holds the Prometheus instruments of the reconciler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReasoningCalls counts reasoning service calls by stage (extract, turn) and result.
	ReasoningCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciler_reasoning_calls_total",
		Help: "Reasoning service calls by stage and result.",
	}, []string{"stage", "result"})

	// RateLimitWait observes how long callers were held by the rate limiter.
	RateLimitWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reconciler_ratelimit_wait_seconds",
		Help:    "Time spent waiting for a reasoning service slot.",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 4, 8, 16, 32},
	})

	// ControllerTurns observes the turns consumed per controller run.
	ControllerTurns = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reconciler_controller_turns",
		Help:    "Turns consumed per document reconciliation.",
		Buckets: []float64{0, 1, 2, 3, 4, 5, 8, 13},
	})

	// ControllerOutcomes counts controller exits by outcome (applied, fallback).
	ControllerOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciler_controller_outcomes_total",
		Help: "Controller exits by outcome.",
	}, []string{"outcome"})

	// ValidationViolations counts violations fed back to the reasoning service.
	ValidationViolations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reconciler_validation_violations_total",
		Help: "Validation violations reported to the reasoning service.",
	})

	// Documents counts finished documents by final status.
	Documents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciler_documents_total",
		Help: "Processed documents by final status.",
	}, []string{"status"})

	// Proposals counts materializer actions by change type.
	Proposals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciler_proposals_total",
		Help: "Proposal materializations by change type and action.",
	}, []string{"change_type", "action"})

	// BalanceRecalculations counts account balance re-derivations.
	BalanceRecalculations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reconciler_balance_recalculations_total",
		Help: "Account balance re-derivations.",
	})
)
