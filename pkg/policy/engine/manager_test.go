package engine

import (
	"os"
	"path/filepath"
	"testing"
)

func writePolicy(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestManagerReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	writePolicy(t, path, "rules:\n  fare_evidence: {}\n")

	manager, err := NewManager(path, nil)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer manager.Close()

	if got := manager.Engine().RuleCount(); got != 1 {
		t.Fatalf("RuleCount() = %d, want 1", got)
	}

	writePolicy(t, path, "rules:\n  fare_evidence: {}\n  meal_per_diem: {}\n")
	if err := manager.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got := manager.Engine().RuleCount(); got != 2 {
		t.Errorf("RuleCount() after reload = %d, want 2", got)
	}
}

func TestManagerReloadKeepsPreviousEngineOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	writePolicy(t, path, "rules:\n  fare_evidence: {}\n")

	manager, err := NewManager(path, nil)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	defer manager.Close()
	before := manager.Engine()

	writePolicy(t, path, "rules:\n  not_a_rule: {}\n")
	if err := manager.Reload(); err == nil {
		t.Fatalf("Reload() error = nil, want error")
	}
	if manager.Engine() != before {
		t.Errorf("engine was swapped despite reload failure")
	}
}

func TestManagerRejectsBrokenInitialConfiguration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	writePolicy(t, path, "rules:\n  not_a_rule: {}\n")

	if _, err := NewManager(path, nil); err == nil {
		t.Errorf("NewManager() error = nil, want error")
	}
}
