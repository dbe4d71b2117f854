package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tripward.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() error = %v", err)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
policy:
  path: rules/policy.yaml
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Policy.Path != "rules/policy.yaml" {
		t.Errorf("Policy.Path = %s, want rules/policy.yaml", cfg.Policy.Path)
	}
	if cfg.Snapshots.Backend != BackendFile {
		t.Errorf("Snapshots.Backend = %s, want %s", cfg.Snapshots.Backend, BackendFile)
	}
	if cfg.Server.Listen == "" {
		t.Errorf("Server.Listen default missing")
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Server.ShutdownTimeout = %s, want 10s", cfg.Server.ShutdownTimeout)
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Errorf("metrics should default to enabled")
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
policy:
  path: rules/policy.yaml
  version: "2.1.0"
  watch: true
server:
  listen: 0.0.0.0:9000
  shutdown_timeout: 30s
snapshots:
  backend: sqlite
  path: /var/lib/tripward/snapshots.db
escalation:
  schedule: "*/15 * * * *"
telemetry:
  metrics:
    enabled: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Policy.Version != "2.1.0" || !cfg.Policy.Watch {
		t.Errorf("policy overrides not applied: %+v", cfg.Policy)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Server.ShutdownTimeout = %s, want 30s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Snapshots.Backend != BackendSQLite {
		t.Errorf("Snapshots.Backend = %s, want %s", cfg.Snapshots.Backend, BackendSQLite)
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Errorf("metrics override not applied")
	}
}

func TestValidateFailures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			name:    "missing policy path",
			mutate:  func(c *Config) { c.Policy.Path = "" },
			wantMsg: "policy.path",
		},
		{
			name:    "missing listen address",
			mutate:  func(c *Config) { c.Server.Listen = "" },
			wantMsg: "server.listen",
		},
		{
			name: "file backend without directory",
			mutate: func(c *Config) {
				c.Snapshots.Backend = BackendFile
				c.Snapshots.Dir = ""
			},
			wantMsg: "snapshots.dir",
		},
		{
			name: "sqlite backend without path",
			mutate: func(c *Config) {
				c.Snapshots.Backend = BackendSQLite
				c.Snapshots.Path = ""
			},
			wantMsg: "snapshots.path",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Snapshots.Backend = "etcd" },
			wantMsg: "unknown snapshot backend",
		},
		{
			name:    "invalid escalation schedule",
			mutate:  func(c *Config) { c.Escalation.Schedule = "whenever" },
			wantMsg: "escalation.schedule",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Validate() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Validate() error = %q, want mention of %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Errorf("Load() on missing file returned nil error")
	}
}

func TestEmptyEscalationScheduleIsAllowed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Escalation.Schedule = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v, empty schedule should disable sweeping", err)
	}
}
