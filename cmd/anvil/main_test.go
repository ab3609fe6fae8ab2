package main

import (
	"os"
	"path/filepath"
	"testing"

	appconfig "github.com/entrhq/anvil/pkg/config"
)

func TestNewGuardAppliesConfig(t *testing.T) {
	workspaceDir := t.TempDir()
	outsideDir := t.TempDir()

	outsideFile := filepath.Join(outsideDir, "tool.yaml")
	if err := os.WriteFile(outsideFile, []byte("name: demo"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	cfg := appconfig.Default()
	cfg.IgnorePatterns = []string{"*.secret"}
	cfg.WhitelistDirs = []string{outsideDir}

	guard, err := newGuard(workspaceDir, cfg)
	if err != nil {
		t.Fatalf("newGuard failed: %v", err)
	}

	// Config ignore patterns are active
	secretFile := filepath.Join(guard.WorkspaceDir(), "creds.secret")
	if err := os.WriteFile(secretFile, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	if !guard.ShouldIgnore(secretFile) {
		t.Error("Expected config ignore pattern to apply")
	}

	// Config whitelist dirs are active
	if len(guard.GetWhitelist()) != 1 {
		t.Errorf("Expected 1 whitelisted dir, got %d", len(guard.GetWhitelist()))
	}
	if err := guard.ValidatePath(outsideFile); err != nil {
		t.Errorf("Expected whitelisted path to validate, got: %v", err)
	}
}

func TestNewGuardEmptyWhitelistEntry(t *testing.T) {
	cfg := appconfig.Default()
	cfg.WhitelistDirs = []string{""}

	if _, err := newGuard(t.TempDir(), cfg); err == nil {
		t.Error("Expected error for empty whitelist entry")
	}
}

func TestBuildRegistryRegistersAllTools(t *testing.T) {
	cfg := appconfig.Default()
	guard, err := newGuard(t.TempDir(), cfg)
	if err != nil {
		t.Fatalf("newGuard failed: %v", err)
	}

	registry, err := buildRegistry(guard, cfg)
	if err != nil {
		t.Fatalf("buildRegistry failed: %v", err)
	}

	for _, name := range []string{"read_file", "apply_diff", "patch_file", "list_files", "list_dirs", "add_note"} {
		if _, ok := registry.Get(name); !ok {
			t.Errorf("Expected tool %q to be registered", name)
		}
	}
}
