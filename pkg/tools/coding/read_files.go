package coding

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"github.com/entrhq/anvil/pkg/agent/tools"
	"github.com/entrhq/anvil/pkg/security/workspace"
)

// ReadFilesTool reads several files in one call, returning their raw
// contents keyed by path.
type ReadFilesTool struct {
	guard *workspace.Guard
}

// NewReadFilesTool creates a new ReadFilesTool with workspace security.
func NewReadFilesTool(guard *workspace.Guard) *ReadFilesTool {
	return &ReadFilesTool{guard: guard}
}

// Name returns the tool name.
func (t *ReadFilesTool) Name() string {
	return "read_files"
}

// Description returns the tool description.
func (t *ReadFilesTool) Description() string {
	return "Read the contents of multiple files in a single call. Returns each file's content under a path header."
}

// Schema returns the JSON schema for the tool's input parameters.
func (t *ReadFilesTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"paths": map[string]interface{}{
				"type":        "array",
				"description": "Paths of files to read (relative to workspace)",
				"items": map[string]interface{}{
					"type": "string",
				},
			},
		},
		[]string{"paths"},
	)
}

// Execute reads each file in order. Any unreadable file fails the call.
func (t *ReadFilesTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input struct {
		XMLName xml.Name `xml:"arguments"`
		Paths   []string `xml:"paths>path"`
	}

	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, fmt.Errorf("invalid arguments: %w", err)
	}

	if len(input.Paths) == 0 {
		return "", nil, fmt.Errorf("at least one path is required")
	}

	var sb strings.Builder
	totalBytes := 0

	for _, path := range input.Paths {
		if err := t.guard.ValidatePath(path); err != nil {
			return "", nil, fmt.Errorf("invalid path: %w", err)
		}
		absPath, err := t.guard.ResolvePath(path)
		if err != nil {
			return "", nil, fmt.Errorf("failed to resolve path: %w", err)
		}
		if t.guard.ShouldIgnore(absPath) {
			return "", nil, fmt.Errorf("file '%s' is ignored by .gitignore, .anvilignore, or default patterns", path)
		}

		content, err := os.ReadFile(absPath)
		if err != nil {
			return "", nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		totalBytes += len(content)

		fmt.Fprintf(&sb, "==> %s <==\n%s\n", path, string(content))
	}

	metadata := map[string]interface{}{
		"file_count":  len(input.Paths),
		"total_bytes": totalBytes,
	}
	return strings.TrimSuffix(sb.String(), "\n"), metadata, nil
}
