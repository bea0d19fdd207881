// Package testsupport provides shared helpers for package tests: per-test
// configuration with temp directories and record store setup.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"waxcrate/internal/config"
	"waxcrate/internal/records"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.UploadDir = filepath.Join(base, "uploads")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Vision.APIKey = "test"
	cfg.Catalog.APIKey = "test"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithCacheCapacity overrides the enrichment cache capacity.
func WithCacheCapacity(capacity int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Enrichment.CacheCapacity = capacity
	}
}

// WithMaxUploadBytes overrides the upload size cap.
func WithMaxUploadBytes(limit int64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Ingest.MaxUploadBytes = limit
	}
}

// MustOpenStore opens a records.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *records.Store {
	t.Helper()

	store, err := records.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

// WriteFile fills the target path with the provided bytes, creating parents.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
