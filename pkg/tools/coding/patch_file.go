package coding

import (
	"context"
	"encoding/xml"
	"fmt"
	"os"

	"github.com/entrhq/anvil/pkg/agent/tools"
	"github.com/entrhq/anvil/pkg/patch"
	"github.com/entrhq/anvil/pkg/security/workspace"
)

// PatchFileTool applies an ordered sequence of literal search/replace edits
// to a file. In strict mode the whole batch is all-or-nothing: the first
// unmatched search aborts the call and the file is left untouched. In
// lenient mode unmatched searches are skipped and the result is always
// persisted.
type PatchFileTool struct {
	guard *workspace.Guard
}

// NewPatchFileTool creates a new PatchFileTool with workspace security.
func NewPatchFileTool(guard *workspace.Guard) *PatchFileTool {
	return &PatchFileTool{
		guard: guard,
	}
}

// Name returns the tool name.
func (t *PatchFileTool) Name() string {
	return "patch_file"
}

// Description returns the tool description.
func (t *PatchFileTool) Description() string {
	return "Apply a sequence of literal search/replace edits to a file. Each edit replaces every occurrence of its search text. Set strict to make an unmatched search abort the whole batch without modifying the file."
}

// Schema returns the JSON schema for the tool's input parameters.
func (t *PatchFileTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file to edit (relative to workspace)",
			},
			"edits": map[string]interface{}{
				"type":        "array",
				"description": "List of search/replace operations, applied in order",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"search": map[string]interface{}{
							"type":        "string",
							"description": "Exact text to search for (must match exactly including whitespace)",
						},
						"replace": map[string]interface{}{
							"type":        "string",
							"description": "Text to replace the search text with",
						},
					},
					"required": []string{"search", "replace"},
				},
			},
			"strict": map[string]interface{}{
				"type":        "boolean",
				"description": "Fail the whole batch if a search text is not found (default: false, unmatched searches are skipped)",
			},
		},
		[]string{"path", "edits"},
	)
}

// patchFileInput is the argument struct shared by Execute and GeneratePreview.
type patchFileInput struct {
	XMLName xml.Name `xml:"arguments"`
	Path    string   `xml:"path"`
	Edits   []struct {
		Search  string `xml:"search"`
		Replace string `xml:"replace"`
	} `xml:"edits>edit"`
	Strict bool `xml:"strict"`
}

// parsePatchFileInput unmarshals and validates arguments, resolves the
// target path, and converts the edits into engine form.
func (t *PatchFileTool) parsePatchFileInput(argsXML []byte) (*patchFileInput, string, []patch.Edit, error) {
	var input patchFileInput
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return nil, "", nil, fmt.Errorf("invalid arguments: %w", err)
	}

	if input.Path == "" {
		return nil, "", nil, fmt.Errorf("path is required")
	}
	if len(input.Edits) == 0 {
		return nil, "", nil, fmt.Errorf("at least one edit is required")
	}

	edits := make([]patch.Edit, 0, len(input.Edits))
	for i, edit := range input.Edits {
		if edit.Search == "" {
			return nil, "", nil, fmt.Errorf("edit %d: search text cannot be empty", i+1)
		}
		edits = append(edits, patch.Edit{Search: edit.Search, Replace: edit.Replace})
	}

	absPath, err := t.guard.ResolvePath(input.Path)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	if validateErr := t.guard.ValidatePath(input.Path); validateErr != nil {
		return nil, "", nil, fmt.Errorf("invalid path: %w", validateErr)
	}

	return &input, absPath, edits, nil
}

// Execute applies the edits and persists the result. Strict failures leave
// the file on disk unchanged.
func (t *PatchFileTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	input, absPath, edits, err := t.parsePatchFileInput(argsXML)
	if err != nil {
		return "", nil, err
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read file: %w", err)
	}
	originalContent := string(content)

	patched, err := patch.Apply(originalContent, edits, input.Strict)
	if err != nil {
		// Strict engine failure: nothing has been written.
		return "", nil, err
	}

	relPath, relErr := t.guard.MakeRelative(absPath)
	if relErr != nil || relPath == "" {
		relPath = input.Path
	}

	if patched == originalContent {
		return fmt.Sprintf("No changes made to %s", relPath), nil, nil
	}

	// Write the modified content atomically
	tmpPath := absPath + ".tmp"
	if writeErr := os.WriteFile(tmpPath, []byte(patched), 0600); writeErr != nil {
		return "", nil, fmt.Errorf("failed to write temporary file: %w", writeErr)
	}
	if renameErr := os.Rename(tmpPath, absPath); renameErr != nil {
		os.Remove(tmpPath)
		return "", nil, fmt.Errorf("failed to rename temporary file: %w", renameErr)
	}

	linesAdded, linesRemoved := lineDelta(originalContent, patched)
	metadata := map[string]interface{}{
		"edits_applied": len(edits),
		"lines_added":   linesAdded,
		"lines_removed": linesRemoved,
		"file_path":     relPath,
		"strict":        input.Strict,
	}

	return fmt.Sprintf("Successfully applied %d edit(s) to %s", len(edits), relPath), metadata, nil
}

// GeneratePreview implements the Previewable interface to show a diff preview.
func (t *PatchFileTool) GeneratePreview(ctx context.Context, argsXML []byte) (*tools.ToolPreview, error) {
	input, absPath, edits, err := t.parsePatchFileInput(argsXML)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	originalContent := string(content)

	patched, err := patch.Apply(originalContent, edits, input.Strict)
	if err != nil {
		return nil, err
	}

	relPath, relErr := t.guard.MakeRelative(absPath)
	if relErr != nil || relPath == "" {
		relPath = input.Path
	}

	return &tools.ToolPreview{
		Type:        tools.PreviewTypeDiff,
		Title:       fmt.Sprintf("Apply %d edit(s) to %s", len(edits), relPath),
		Description: fmt.Sprintf("This will modify %s with %d search/replace operation(s)", relPath, len(edits)),
		Content:     GenerateUnifiedDiff(originalContent, patched, relPath),
		Metadata: map[string]interface{}{
			"file_path":  relPath,
			"language":   detectLanguage(relPath),
			"edit_count": len(edits),
		},
	}, nil
}

// XMLExample provides a concrete XML usage example for this tool.
func (t *PatchFileTool) XMLExample() string {
	return `<tool>
<server_name>local</server_name>
<tool_name>patch_file</tool_name>
<arguments>
  <path>src/main.go</path>
  <strict>true</strict>
  <edits>
    <edit>
      <search><![CDATA[func oldFunction() {
	return "old"
}]]></search>
      <replace><![CDATA[func newFunction() {
	return "new"
}]]></replace>
    </edit>
    <edit>
      <search><![CDATA[const oldValue = 42]]></search>
      <replace><![CDATA[const newValue = 100]]></replace>
    </edit>
  </edits>
</arguments>
</tool>`
}
