// Package config loads the reconciler configuration from a TOML file and
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the full configuration tree.
type Config struct {
	Database  DatabaseConfig  `toml:"database"`
	Reasoning ReasoningConfig `toml:"reasoning"`
	Context   ContextConfig   `toml:"context"`
	Storage   StorageConfig   `toml:"storage"`
	Audit     AuditConfig     `toml:"audit"`
	Server    ServerConfig    `toml:"server"`
	Worker    WorkerConfig    `toml:"worker"`
	Log       LogConfig       `toml:"log"`
}

// DatabaseConfig locates the SQLite ledger.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// ReasoningConfig configures the reasoning service and the controller.
type ReasoningConfig struct {
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	MaxTurns       int    `toml:"max_turns"`
	CallsPerMinute int    `toml:"calls_per_minute"`
	MaxCategories  int    `toml:"max_categories"`
	SearchLimit    int    `toml:"search_limit"`
}

// ContextConfig bounds the ledger snapshot.
type ContextConfig struct {
	RecentTransactions int `toml:"recent_transactions"`
	DefaultMerchants   int `toml:"default_merchants"`
}

// StorageConfig locates document bytes.
type StorageConfig struct {
	LocalDir  string `toml:"local_dir"`
	GCSBucket string `toml:"gcs_bucket"`
}

// AuditConfig enables the BigQuery audit log when ProjectID is set.
type AuditConfig struct {
	ProjectID string `toml:"project_id"`
	Dataset   string `toml:"dataset"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string `toml:"addr"`
	IdentityHeader string `toml:"identity_header"`
}

// WorkerConfig configures the background queue.
type WorkerConfig struct {
	Concurrency int `toml:"concurrency"`
	QueueSize   int `toml:"queue_size"`
	MaxRetries  int `toml:"max_retries"`
}

// LogConfig configures zerolog output.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{Path: "data/ledger.db"},
		Reasoning: ReasoningConfig{
			Model:          "gemini-2.5-flash",
			MaxTurns:       5,
			CallsPerMinute: 15,
			MaxCategories:  100,
			SearchLimit:    20,
		},
		Context:  ContextConfig{RecentTransactions: 10, DefaultMerchants: 20},
		Storage:  StorageConfig{LocalDir: "data/uploads"},
		Audit:    AuditConfig{Dataset: "reconciler"},
		Server:   ServerConfig{Addr: ":8080", IdentityHeader: "X-Forwarded-Email"},
		Worker:   WorkerConfig{Concurrency: 4, QueueSize: 100, MaxRetries: 3},
		Log:      LogConfig{Level: "info", Format: "console"},
	}
}

// Load decodes the TOML file at path over the defaults and applies
// environment overrides. An empty path or a missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("Load: %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, fmt.Errorf("Load: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"GOOGLE_GENAI_KEY":   &c.Reasoning.APIKey,
		"GOOGLE_GENAI_MODEL": &c.Reasoning.Model,
		"RECONCILER_DB":      &c.Database.Path,
		"GCS_BUCKET":         &c.Storage.GCSBucket,
		"BQ_PROJECT":         &c.Audit.ProjectID,
		"UPLOAD_DIR":         &c.Storage.LocalDir,
		"LOG_LEVEL":          &c.Log.Level,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	ints := map[string]*int{
		"RECONCILER_MAX_TURNS": &c.Reasoning.MaxTurns,
		"RECONCILER_RPM":       &c.Reasoning.CallsPerMinute,
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s=%q is not an integer", key, v)
		}
		*dst = n
	}
	return nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.Database.Path == "":
		return errors.New("database.path is required")
	case c.Reasoning.Model == "":
		return errors.New("reasoning.model is required")
	case c.Reasoning.MaxTurns < 1:
		return fmt.Errorf("reasoning.max_turns must be at least 1, got %d", c.Reasoning.MaxTurns)
	case c.Reasoning.CallsPerMinute < 0:
		return fmt.Errorf("reasoning.calls_per_minute must not be negative, got %d", c.Reasoning.CallsPerMinute)
	case c.Reasoning.SearchLimit < 1:
		return fmt.Errorf("reasoning.search_limit must be at least 1, got %d", c.Reasoning.SearchLimit)
	case c.Worker.Concurrency < 1:
		return fmt.Errorf("worker.concurrency must be at least 1, got %d", c.Worker.Concurrency)
	case c.Worker.QueueSize < 1:
		return fmt.Errorf("worker.queue_size must be at least 1, got %d", c.Worker.QueueSize)
	case c.Worker.MaxRetries < 0:
		return fmt.Errorf("worker.max_retries must not be negative, got %d", c.Worker.MaxRetries)
	case c.Server.IdentityHeader == "":
		return errors.New("server.identity_header is required")
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	return nil
}

// RequireAPIKey reports a missing reasoning API key. Only commands that call
// the reasoning service need one.
func (c Config) RequireAPIKey() error {
	if c.Reasoning.APIKey == "" {
		return errors.New("reasoning.api_key (or GOOGLE_GENAI_KEY) is required")
	}
	return nil
}
