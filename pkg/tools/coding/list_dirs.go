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

// ListDirsTool lists several directories in one call, returning each
// directory's entries under a path header.
type ListDirsTool struct {
	guard  *workspace.Guard
	lister *ListFilesTool
}

// NewListDirsTool creates a new ListDirsTool with workspace security.
func NewListDirsTool(guard *workspace.Guard) *ListDirsTool {
	return &ListDirsTool{
		guard:  guard,
		lister: NewListFilesTool(guard),
	}
}

// Name returns the tool name.
func (t *ListDirsTool) Name() string {
	return "list_dirs"
}

// Description returns the tool description.
func (t *ListDirsTool) Description() string {
	return "List the contents of multiple directories in a single call. Returns each directory's entries under a path header."
}

// Schema returns the JSON schema for the tool's input parameters.
func (t *ListDirsTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"paths": map[string]interface{}{
				"type":        "array",
				"description": "Paths of directories to list (relative to workspace)",
				"items": map[string]interface{}{
					"type": "string",
				},
			},
		},
		[]string{"paths"},
	)
}

// Execute lists each directory in order. Any unlistable directory fails
// the call.
func (t *ListDirsTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
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
	totalEntries := 0

	for _, path := range input.Paths {
		if err := t.guard.ValidatePath(path); err != nil {
			return "", nil, fmt.Errorf("invalid path: %w", err)
		}
		absPath, err := t.guard.ResolvePath(path)
		if err != nil {
			return "", nil, fmt.Errorf("failed to resolve path: %w", err)
		}

		info, err := os.Stat(absPath)
		if err != nil {
			return "", nil, fmt.Errorf("path does not exist: %s", path)
		}
		if !info.IsDir() {
			return "", nil, fmt.Errorf("path is not a directory: %s", path)
		}

		entries, err := t.lister.listDirectory(absPath, "")
		if err != nil {
			return "", nil, fmt.Errorf("failed to list %s: %w", path, err)
		}
		totalEntries += len(entries)

		fmt.Fprintf(&sb, "==> %s <==\n%s\n\n", path, t.lister.formatEntries(entries))
	}

	metadata := map[string]interface{}{
		"dir_count":   len(input.Paths),
		"entry_count": totalEntries,
	}
	return strings.TrimSuffix(sb.String(), "\n\n"), metadata, nil
}
