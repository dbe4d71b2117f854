// Package config loads and validates tripward application configuration.
// Paths are always explicit; nothing walks parent directories looking for
// configuration files.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// SnapshotBackend selects the snapshot store implementation.
type SnapshotBackend string

const (
	BackendFile   SnapshotBackend = "file"
	BackendSQLite SnapshotBackend = "sqlite"
)

// Config is the root application configuration.
type Config struct {
	// Policy locates the rule configuration and its human-assigned version
	// label.
	Policy PolicyConfig `yaml:"policy"`

	// Server configures the HTTP check API.
	Server ServerConfig `yaml:"server"`

	// Snapshots configures the audit snapshot store.
	Snapshots SnapshotsConfig `yaml:"snapshots"`

	// Escalation configures the exception SLA sweeper.
	Escalation EscalationConfig `yaml:"escalation"`

	// Telemetry configures metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// PolicyConfig locates the rule configuration.
type PolicyConfig struct {
	// Path is the rule configuration file. Required.
	Path string `yaml:"path"`

	// Version is the human-assigned semantic version label for the
	// configuration. Empty defaults to 0.1.0.
	Version string `yaml:"version"`

	// Watch enables hot reload of the rule configuration.
	Watch bool `yaml:"watch"`
}

// ServerConfig configures the HTTP check API.
type ServerConfig struct {
	// Listen is the address the HTTP server binds to.
	Listen string `yaml:"listen"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// SnapshotsConfig configures the audit snapshot store.
type SnapshotsConfig struct {
	// Backend is "file" or "sqlite". Default: "file".
	Backend SnapshotBackend `yaml:"backend"`

	// Dir is the base directory for the file backend.
	Dir string `yaml:"dir"`

	// Path is the database file for the sqlite backend.
	Path string `yaml:"path"`
}

// EscalationConfig configures the exception SLA sweeper.
type EscalationConfig struct {
	// Schedule is a cron expression; empty disables sweeping.
	Schedule string `yaml:"schedule"`
}

// TelemetryConfig configures observability.
type TelemetryConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig configures prometheus metrics.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// DefaultConfig returns the configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		Policy: PolicyConfig{
			Path: "policy.yaml",
		},
		Server: ServerConfig{
			Listen:          "127.0.0.1:8380",
			ShutdownTimeout: 10 * time.Second,
		},
		Snapshots: SnapshotsConfig{
			Backend: BackendFile,
			Dir:     "snapshots",
		},
		Escalation: EscalationConfig{
			Schedule: "0 * * * *",
		},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{
				Enabled:   true,
				Namespace: "tripward",
			},
		},
	}
}

// Load reads and validates configuration from an explicit path, applying
// defaults for unset fields.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration and fails fast on errors.
func (c *Config) Validate() error {
	if c.Policy.Path == "" {
		return fmt.Errorf("policy.path is required")
	}
	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}

	switch c.Snapshots.Backend {
	case BackendFile:
		if c.Snapshots.Dir == "" {
			return fmt.Errorf("snapshots.dir is required for the file backend")
		}
	case BackendSQLite:
		if c.Snapshots.Path == "" {
			return fmt.Errorf("snapshots.path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown snapshot backend %q", c.Snapshots.Backend)
	}

	if c.Escalation.Schedule != "" {
		if _, err := cron.ParseStandard(c.Escalation.Schedule); err != nil {
			return fmt.Errorf("invalid escalation.schedule %q: %w", c.Escalation.Schedule, err)
		}
	}
	return nil
}
