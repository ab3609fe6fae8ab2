package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.PatchBinary != "" {
		t.Errorf("Expected empty patch binary, got %q", cfg.PatchBinary)
	}
	if cfg.CommandTimeoutSeconds != DefaultCommandTimeoutSeconds {
		t.Errorf("Expected default timeout %d, got %d", DefaultCommandTimeoutSeconds, cfg.CommandTimeoutSeconds)
	}
}

func TestLoad_ParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "patch_binary: gpatch\ncommand_timeout_seconds: 60\nignore_patterns:\n  - '*.generated.go'\nwhitelist_dirs:\n  - /home/dev/.anvil\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.PatchBinary != "gpatch" {
		t.Errorf("Expected patch binary 'gpatch', got %q", cfg.PatchBinary)
	}
	if cfg.CommandTimeoutSeconds != 60 {
		t.Errorf("Expected timeout 60, got %d", cfg.CommandTimeoutSeconds)
	}
	if len(cfg.IgnorePatterns) != 1 || cfg.IgnorePatterns[0] != "*.generated.go" {
		t.Errorf("Unexpected ignore patterns: %v", cfg.IgnorePatterns)
	}
	if len(cfg.WhitelistDirs) != 1 || cfg.WhitelistDirs[0] != "/home/dev/.anvil" {
		t.Errorf("Unexpected whitelist dirs: %v", cfg.WhitelistDirs)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("patch_binary: [unclosed"), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected error for malformed config")
	}
}

func TestLoad_InvalidTimeoutFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("command_timeout_seconds: -5\n"), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.CommandTimeoutSeconds != DefaultCommandTimeoutSeconds {
		t.Errorf("Expected fallback timeout, got %d", cfg.CommandTimeoutSeconds)
	}
}

func TestSaveAndLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.PatchBinary = "busybox-patch"
	cfg.IgnorePatterns = []string{"vendor/"}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.PatchBinary != cfg.PatchBinary {
		t.Errorf("Expected patch binary %q, got %q", cfg.PatchBinary, loaded.PatchBinary)
	}
	if len(loaded.IgnorePatterns) != 1 || loaded.IgnorePatterns[0] != "vendor/" {
		t.Errorf("Unexpected ignore patterns: %v", loaded.IgnorePatterns)
	}
}
