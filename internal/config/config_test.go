package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("unexpected default redis addr: %s", cfg.Redis.Addr)
	}
	if cfg.Budget.MaxContextTokens != 30000 {
		t.Errorf("unexpected default budget: %d", cfg.Budget.MaxContextTokens)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	cwd, _ := os.Getwd()
	defer os.Chdir(cwd)
	os.Chdir(dir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Selector.MaxSelectedFiles != 50 {
		t.Errorf("expected default selector cap, got %d", cfg.Selector.MaxSelectedFiles)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "askrepo.yaml")
	content := []byte("redis:\n  addr: redis.internal:6380\nbudget:\n  maxContextTokens: 12000\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Errorf("redis addr not loaded: %s", cfg.Redis.Addr)
	}
	if cfg.Budget.MaxContextTokens != 12000 {
		t.Errorf("budget not loaded: %d", cfg.Budget.MaxContextTokens)
	}
	// Unset values keep defaults.
	if cfg.Scan.DeepMaxFiles != 200 {
		t.Errorf("expected default deep max files, got %d", cfg.Scan.DeepMaxFiles)
	}
}

func TestValidateRejectsBadBudget(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Budget.MaxContextTokens = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for zero budget")
	}
}
