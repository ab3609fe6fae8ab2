package coding

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestListDirsTool_MultipleDirectories(t *testing.T) {
	tmpDir, cleanup := setupTestDir(t)
	defer cleanup()

	os.MkdirAll(filepath.Join(tmpDir, "src"), 0755)
	os.MkdirAll(filepath.Join(tmpDir, "docs"), 0755)
	writeTestFile(t, filepath.Join(tmpDir, "src", "main.go"), "package main")
	writeTestFile(t, filepath.Join(tmpDir, "docs", "intro.md"), "# Intro")

	guard := createWorkspaceGuard(t, tmpDir)
	tool := NewListDirsTool(guard)

	xmlInput := `<arguments>
	<paths>
		<path>src</path>
		<path>docs</path>
	</paths>
</arguments>`

	result, metadata, err := tool.Execute(context.Background(), []byte(xmlInput))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	// Each directory appears under its own header, in request order
	srcIdx := strings.Index(result, "==> src <==")
	docsIdx := strings.Index(result, "==> docs <==")
	if srcIdx == -1 || docsIdx == -1 {
		t.Fatalf("Expected headers for both directories, got: %s", result)
	}
	if srcIdx > docsIdx {
		t.Error("Expected directories in request order")
	}

	if !strings.Contains(result, "main.go") {
		t.Errorf("Expected result to contain 'main.go', got: %s", result)
	}
	if !strings.Contains(result, "intro.md") {
		t.Errorf("Expected result to contain 'intro.md', got: %s", result)
	}

	if metadata["dir_count"] != 2 {
		t.Errorf("Expected dir_count=2, got %v", metadata["dir_count"])
	}
	if metadata["entry_count"] != 2 {
		t.Errorf("Expected entry_count=2, got %v", metadata["entry_count"])
	}
}

func TestListDirsTool_EmptyDirectory(t *testing.T) {
	tmpDir, cleanup := setupTestDir(t)
	defer cleanup()

	os.MkdirAll(filepath.Join(tmpDir, "empty"), 0755)

	guard := createWorkspaceGuard(t, tmpDir)
	tool := NewListDirsTool(guard)

	xmlInput := `<arguments>
	<paths>
		<path>empty</path>
	</paths>
</arguments>`

	result, metadata, err := tool.Execute(context.Background(), []byte(xmlInput))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !strings.Contains(result, "No files found") {
		t.Errorf("Expected 'No files found' for empty directory, got: %s", result)
	}
	if metadata["entry_count"] != 0 {
		t.Errorf("Expected entry_count=0, got %v", metadata["entry_count"])
	}
}

func TestListDirsTool_SkipsIgnoredEntries(t *testing.T) {
	tmpDir, cleanup := setupTestDir(t)
	defer cleanup()

	writeTestFile(t, filepath.Join(tmpDir, ".gitignore"), "*.log\n")
	os.MkdirAll(filepath.Join(tmpDir, "logs"), 0755)
	writeTestFile(t, filepath.Join(tmpDir, "logs", "debug.log"), "noise")
	writeTestFile(t, filepath.Join(tmpDir, "logs", "README"), "keep")

	guard := createWorkspaceGuard(t, tmpDir)
	tool := NewListDirsTool(guard)

	xmlInput := `<arguments>
	<paths>
		<path>logs</path>
	</paths>
</arguments>`

	result, _, err := tool.Execute(context.Background(), []byte(xmlInput))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if strings.Contains(result, "debug.log") {
		t.Errorf("Expected ignored file to be skipped, got: %s", result)
	}
	if !strings.Contains(result, "README") {
		t.Errorf("Expected README in listing, got: %s", result)
	}
}

func TestListDirsTool_Errors(t *testing.T) {
	tmpDir, cleanup := setupTestDir(t)
	defer cleanup()

	writeTestFile(t, filepath.Join(tmpDir, "plain.txt"), "not a directory")

	guard := createWorkspaceGuard(t, tmpDir)
	tool := NewListDirsTool(guard)

	tests := []struct {
		name     string
		xmlInput string
		wantErr  string
	}{
		{
			name:     "missing paths",
			xmlInput: `<arguments></arguments>`,
			wantErr:  "at least one path is required",
		},
		{
			name: "nonexistent directory",
			xmlInput: `<arguments>
	<paths><path>missing</path></paths>
</arguments>`,
			wantErr: "path does not exist",
		},
		{
			name: "file instead of directory",
			xmlInput: `<arguments>
	<paths><path>plain.txt</path></paths>
</arguments>`,
			wantErr: "path is not a directory",
		},
		{
			name: "path escape",
			xmlInput: `<arguments>
	<paths><path>../outside</path></paths>
</arguments>`,
			wantErr: "invalid path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tool.Execute(context.Background(), []byte(tt.xmlInput))
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestListDirsTool_Metadata(t *testing.T) {
	tmpDir, cleanup := setupTestDir(t)
	defer cleanup()

	guard := createWorkspaceGuard(t, tmpDir)
	tool := NewListDirsTool(guard)

	if tool.Name() != "list_dirs" {
		t.Errorf("Expected name 'list_dirs', got '%s'", tool.Name())
	}
	if !strings.Contains(tool.Description(), "multiple directories") {
		t.Errorf("Expected description to mention multiple directories, got: %s", tool.Description())
	}
	if tool.Schema() == nil {
		t.Fatal("Expected non-nil schema")
	}
}
