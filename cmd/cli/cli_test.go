package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommands_LocalLedger(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "reconciler.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
[database]
path = "`+filepath.ToSlash(filepath.Join(dir, "ledger.db"))+`"

[storage]
local_dir = "`+filepath.ToSlash(filepath.Join(dir, "uploads"))+`"

[log]
level = "error"
`), 0o644))
	for _, key := range []string{"BQ_PROJECT", "GCS_BUCKET", "RECONCILER_DB", "UPLOAD_DIR", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	out, err := execute(t, "migrate", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Ledger schema is up to date")

	receipt := filepath.Join(dir, "receipt.png")
	require.NoError(t, os.WriteFile(receipt, []byte("\x89PNG fake"), 0o644))

	out, err = execute(t, "register", receipt, "--user", "owner@example.com", "--config", cfgPath)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "Registered document "), out)
	docID := strings.Fields(out)[2]
	assert.Contains(t, out, "(image/png)")

	out, err = execute(t, "inspect", docID, "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Status:   UPLOADED")
	assert.Contains(t, out, "=== Proposals (0) ===")
	assert.Contains(t, out, "no audit project configured")

	out, err = execute(t, "recalculate", "--user", "owner@example.com", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Petty Cash Account")
	assert.Contains(t, out, "0.00 USD")

	_, err = execute(t, "register", filepath.Join(dir, "notes.txt"), "--user", "owner@example.com", "--config", cfgPath)
	assert.ErrorContains(t, err, "unsupported mime type")

	_, err = execute(t, "inspect", "missing", "--config", cfgPath)
	assert.Error(t, err)

	_, err = execute(t, "recalculate", "--user", "nobody@example.com", "--config", cfgPath)
	assert.Error(t, err)
}
