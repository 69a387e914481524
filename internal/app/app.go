// Package app assembles the reconciler's collaborators from configuration for
// the API server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	gcs "cloud.google.com/go/storage"
	"github.com/rs/zerolog"

	"github.com/dvloznov/ledger-reconciler/internal/config"
	bq "github.com/dvloznov/ledger-reconciler/internal/infra/bigquery"
	"github.com/dvloznov/ledger-reconciler/internal/infra/sqlite"
	"github.com/dvloznov/ledger-reconciler/internal/ledger"
	"github.com/dvloznov/ledger-reconciler/internal/pipeline"
	"github.com/dvloznov/ledger-reconciler/internal/ratelimit"
	"github.com/dvloznov/ledger-reconciler/internal/reasoning"
	"github.com/dvloznov/ledger-reconciler/internal/storage"
)

// App holds the opened stores and services.
type App struct {
	Config  config.Config
	Log     zerolog.Logger
	DB      *sqlite.DB
	Ledger  *ledger.Service
	Fetcher *storage.Fetcher
	// AuditLog is nil when no audit project is configured.
	AuditLog *bq.AuditLog

	closers []func() error
}

// Open opens the ledger database, the document store and, when configured,
// the BigQuery audit log.
func Open(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("Open: invalid config: %w", err)
	}

	a := &App{Config: cfg, Log: log}

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("Open: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)
	a.Ledger = ledger.NewService(db, log)

	fetcher, err := newFetcher(ctx, cfg.Storage)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("Open: %w", err)
	}
	a.Fetcher = fetcher
	a.closers = append(a.closers, fetcher.Close)

	if cfg.Audit.ProjectID != "" {
		audit, err := bq.NewAuditLog(ctx, cfg.Audit.ProjectID, cfg.Audit.Dataset)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("Open: %w", err)
		}
		a.AuditLog = audit
		a.closers = append(a.closers, audit.Close)
	} else {
		log.Info().Msg("No audit project configured; reconciliation runs are not audited")
	}

	return a, nil
}

// Processor builds the document processor. It needs the reasoning API key.
func (a *App) Processor(ctx context.Context) (*pipeline.Processor, error) {
	if err := a.Config.RequireAPIKey(); err != nil {
		return nil, fmt.Errorf("Processor: %w", err)
	}
	rc := a.Config.Reasoning
	client, err := reasoning.NewGeminiClient(ctx, rc.APIKey, rc.Model)
	if err != nil {
		return nil, fmt.Errorf("Processor: %w", err)
	}

	var audit pipeline.AuditSink = pipeline.NoopAudit{}
	if a.AuditLog != nil {
		audit = a.AuditLog
	}

	limiter := ratelimit.New(rc.CallsPerMinute)
	a.Log.Info().
		Str("model", rc.Model).
		Dur("min_call_interval", limiter.Interval()).
		Bool("audit", a.AuditLog != nil).
		Msg("Reasoning client ready")

	return pipeline.NewProcessor(a.DB, a.Fetcher, client, limiter, audit, PipelineConfig(a.Config), a.Log), nil
}

// PipelineConfig maps the configuration onto the processor's tuning knobs.
func PipelineConfig(cfg config.Config) pipeline.Config {
	return pipeline.Config{
		Model:              cfg.Reasoning.Model,
		MaxTurns:           cfg.Reasoning.MaxTurns,
		SearchLimit:        cfg.Reasoning.SearchLimit,
		RecentTransactions: cfg.Context.RecentTransactions,
		DefaultMerchants:   cfg.Context.DefaultMerchants,
		MaxCategories:      cfg.Reasoning.MaxCategories,
	}
}

// Close releases everything Open acquired, in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func newFetcher(ctx context.Context, sc config.StorageConfig) (*storage.Fetcher, error) {
	var client *gcs.Client
	if sc.GCSBucket != "" {
		var err error
		client, err = gcs.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("creating storage client: %w", err)
		}
	}
	return storage.NewFetcher(client, sc.GCSBucket, sc.LocalDir), nil
}
