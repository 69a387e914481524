package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/ledger-reconciler/internal/config"
)

func TestOpen_LocalOnly(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(dir, "ledger.db")
	cfg.Storage.LocalDir = filepath.Join(dir, "uploads")

	a, err := Open(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.AuditLog)
	user, err := a.Ledger.EnsureUser(context.Background(), "owner@example.com", "")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)

	_, err = a.Processor(context.Background())
	assert.Error(t, err, "no api key configured")
}

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Reasoning.MaxTurns = 0

	_, err := Open(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestPipelineConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	pc := PipelineConfig(cfg)

	assert.Equal(t, cfg.Reasoning.Model, pc.Model)
	assert.Equal(t, 5, pc.MaxTurns)
	assert.Equal(t, 20, pc.SearchLimit)
	assert.Equal(t, 10, pc.RecentTransactions)
	assert.Equal(t, 20, pc.DefaultMerchants)
	assert.Equal(t, 100, pc.MaxCategories)
}
