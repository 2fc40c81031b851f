package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/epiview/epiview/internal/catalog"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.HTTPAddr == "" {
		t.Fatal("expected default http addr")
	}
	if cfg.DefaultCategory != catalog.CategoryAll {
		t.Fatalf("expected CategoryAll default, got %d", cfg.DefaultCategory)
	}
	if cfg.RequestTimeout() <= 0 {
		t.Fatal("expected positive request timeout")
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadJSONOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "epiview.json")
	body := `{"httpAddr": ":9999", "defaultCategory": 3}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Fatalf("expected overridden addr, got %q", cfg.HTTPAddr)
	}
	if cfg.DefaultCategory != 3 {
		t.Fatalf("expected overridden category, got %d", cfg.DefaultCategory)
	}
	// Untouched fields keep their defaults.
	if cfg.RemoteBaseURL != Default().RemoteBaseURL {
		t.Fatalf("expected default remote url, got %q", cfg.RemoteBaseURL)
	}
}

func TestLoadRejectsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "epiview.yaml")
	if err := os.WriteFile(path, []byte("httpAddr: :9999"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for yaml config")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("EPIVIEW_HTTP_ADDR", ":7070")
	t.Setenv("EPIVIEW_REMOTE_URL", "http://example.test")
	t.Setenv("EPIVIEW_REQUEST_TIMEOUT_MS", "2500")
	t.Setenv("EPIVIEW_DEFAULT_CATEGORY", "2")

	cfg := Default()
	FromEnv(&cfg)
	if cfg.HTTPAddr != ":7070" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.RemoteBaseURL != "http://example.test" {
		t.Fatalf("RemoteBaseURL = %q", cfg.RemoteBaseURL)
	}
	if cfg.RequestTimeoutMs != 2500 {
		t.Fatalf("RequestTimeoutMs = %d", cfg.RequestTimeoutMs)
	}
	if cfg.DefaultCategory != 2 {
		t.Fatalf("DefaultCategory = %d", cfg.DefaultCategory)
	}
}

func TestFromEnvIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("EPIVIEW_REQUEST_TIMEOUT_MS", "soon")
	cfg := Default()
	FromEnv(&cfg)
	if cfg.RequestTimeoutMs != Default().RequestTimeoutMs {
		t.Fatalf("RequestTimeoutMs = %d", cfg.RequestTimeoutMs)
	}
}
