package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if cfg.Airtable.Table != "Storytellers" {
		t.Errorf("expected table 'Storytellers', got %q", cfg.Airtable.Table)
	}
	if cfg.Airtable.APIKeyEnv != "AIRTABLE_API_KEY" {
		t.Errorf("expected api_key_env 'AIRTABLE_API_KEY', got %q", cfg.Airtable.APIKeyEnv)
	}
	if cfg.Gallery.PoolSize != 54 {
		t.Errorf("expected pool_size 54, got %d", cfg.Gallery.PoolSize)
	}
	if cfg.Server.Port != 3003 {
		t.Errorf("expected port 3003, got %d", cfg.Server.Port)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
airtable:
  base_id: appXYZ
  view: Published Stories
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Airtable.BaseID != "appXYZ" {
		t.Errorf("expected base_id 'appXYZ', got %q", cfg.Airtable.BaseID)
	}
	if cfg.Airtable.View != "Published Stories" {
		t.Errorf("expected view 'Published Stories', got %q", cfg.Airtable.View)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Airtable.BaseURL != "https://api.airtable.com" {
		t.Errorf("expected default base_url, got %q", cfg.Airtable.BaseURL)
	}
	if cfg.Gallery.PathPrefix != "/gallery" {
		t.Errorf("expected default path_prefix, got %q", cfg.Gallery.PathPrefix)
	}
}

func TestParseGalleryOverrides(t *testing.T) {
	data := []byte(`
gallery:
  pool_size: 10
  overrides:
    recWvX38lmm9goNjC: /gallery/Photo1.jpg
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse config: %v", err)
	}
	if cfg.Gallery.PoolSize != 10 {
		t.Errorf("expected pool_size 10, got %d", cfg.Gallery.PoolSize)
	}
	if cfg.Gallery.Overrides["recWvX38lmm9goNjC"] != "/gallery/Photo1.jpg" {
		t.Errorf("expected override for recWvX38lmm9goNjC, got %q", cfg.Gallery.Overrides["recWvX38lmm9goNjC"])
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Airtable.Table != "Storytellers" {
		t.Error("expected table to be populated from file")
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	defaultDir := cfg.GetDataDir()
	if defaultDir == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
}
