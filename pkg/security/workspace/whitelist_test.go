package workspace

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestGuard(t *testing.T) *Guard {
	t.Helper()
	guard, err := NewGuard(t.TempDir())
	if err != nil {
		t.Fatalf("NewGuard() error = %v", err)
	}
	return guard
}

func TestAddWhitelistAllowsOutsideDir(t *testing.T) {
	guard := newTestGuard(t)
	outsideDir := t.TempDir()

	if guard.IsWithinWorkspace(outsideDir) {
		t.Fatal("Outside directory should be rejected before whitelisting")
	}

	if err := guard.AddWhitelist(outsideDir); err != nil {
		t.Fatalf("AddWhitelist() error = %v", err)
	}

	if !guard.IsWithinWorkspace(outsideDir) {
		t.Error("Whitelisted directory should be accepted")
	}
	// Descendants are covered by the directory's entry, even when they do
	// not exist yet.
	child := filepath.Join(outsideDir, "subdir", "file.txt")
	if !guard.IsWithinWorkspace(child) {
		t.Error("Child of whitelisted directory should be accepted")
	}
}

func TestAddWhitelistEdgeCases(t *testing.T) {
	existingDir := t.TempDir()

	tests := []struct {
		name      string
		dirs      []string
		wantErr   bool
		wantCount int
	}{
		{
			name:      "empty path rejected",
			dirs:      []string{""},
			wantErr:   true,
			wantCount: 0,
		},
		{
			name:      "duplicate collapses to one entry",
			dirs:      []string{existingDir, existingDir},
			wantCount: 1,
		},
		{
			name:      "nonexistent directory accepted",
			dirs:      []string{filepath.Join(existingDir, "not-yet-created")},
			wantCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard := newTestGuard(t)

			var lastErr error
			for _, dir := range tt.dirs {
				lastErr = guard.AddWhitelist(dir)
			}

			if tt.wantErr {
				if lastErr == nil {
					t.Error("AddWhitelist() expected error")
				}
			} else if lastErr != nil {
				t.Fatalf("AddWhitelist() error = %v", lastErr)
			}
			if got := len(guard.GetWhitelist()); got != tt.wantCount {
				t.Errorf("GetWhitelist() returned %d entries, want %d", got, tt.wantCount)
			}
		})
	}
}

func TestClearWhitelistRevokesAccess(t *testing.T) {
	guard := newTestGuard(t)
	outsideDir := t.TempDir()

	if err := guard.AddWhitelist(outsideDir); err != nil {
		t.Fatalf("AddWhitelist() error = %v", err)
	}
	guard.ClearWhitelist()

	if guard.IsWithinWorkspace(outsideDir) {
		t.Error("Directory should be rejected after clearing the whitelist")
	}
	if got := len(guard.GetWhitelist()); got != 0 {
		t.Errorf("GetWhitelist() returned %d entries, want 0", got)
	}
}

func TestGetWhitelistReturnsCopy(t *testing.T) {
	guard := newTestGuard(t)

	if err := guard.AddWhitelist(t.TempDir()); err != nil {
		t.Fatalf("AddWhitelist() error = %v", err)
	}

	whitelist := guard.GetWhitelist()
	whitelist[0] = "/modified/path"

	if guard.GetWhitelist()[0] == "/modified/path" {
		t.Error("GetWhitelist() should return a copy, not the backing slice")
	}
}

func TestValidatePathHonorsWhitelist(t *testing.T) {
	guard := newTestGuard(t)
	outsideDir := t.TempDir()

	outsideFile := filepath.Join(outsideDir, "test.txt")
	if err := os.WriteFile(outsideFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if err := guard.ValidatePath(outsideFile); err == nil {
		t.Fatal("ValidatePath() expected error for path outside workspace")
	}

	if err := guard.AddWhitelist(outsideDir); err != nil {
		t.Fatalf("AddWhitelist() error = %v", err)
	}
	if err := guard.ValidatePath(outsideFile); err != nil {
		t.Errorf("ValidatePath() error = %v, want nil after whitelisting", err)
	}
}
