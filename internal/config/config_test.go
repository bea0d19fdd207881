package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"waxcrate/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing config")
	}
	if cfg.Analysis.ConfidenceThreshold != 0.75 {
		t.Fatalf("unexpected default threshold: %v", cfg.Analysis.ConfidenceThreshold)
	}
	if cfg.Ingest.MaxUploadBytes != 25<<20 {
		t.Fatalf("unexpected default upload cap: %d", cfg.Ingest.MaxUploadBytes)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
upload_dir = "` + filepath.Join(dir, "uploads") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[analysis]
confidence_threshold = 0.6

[vision]
timeout_seconds = 0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %s, got %s exists=%v", path, resolved, exists)
	}
	if cfg.Analysis.ConfidenceThreshold != 0.6 {
		t.Fatalf("threshold not applied: %v", cfg.Analysis.ConfidenceThreshold)
	}
	if cfg.Vision.TimeoutSeconds != 30 {
		t.Fatalf("expected vision timeout normalized to default, got %d", cfg.Vision.TimeoutSeconds)
	}
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	cfg := config.Default()
	cfg.Analysis.ConfidenceThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for out-of-range threshold")
	}
}

func TestValidateRejectsHeartbeatInversion(t *testing.T) {
	cfg := config.Default()
	cfg.Workflow.HeartbeatInterval = 120
	cfg.Workflow.HeartbeatTimeout = 60
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "heartbeat_timeout") {
		t.Fatalf("expected heartbeat validation error, got %v", err)
	}
}

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}
	expanded, err := config.ExpandPath("~/waxcrate-test")
	if err != nil {
		t.Fatalf("ExpandPath failed: %v", err)
	}
	if expanded != filepath.Join(home, "waxcrate-test") {
		t.Fatalf("unexpected expansion: %s", expanded)
	}
}
