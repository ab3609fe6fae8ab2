// Package notes exposes the per-path annotation store as agent tools.
package notes

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/entrhq/anvil/pkg/agent/tools"
	notestore "github.com/entrhq/anvil/pkg/notes"
)

// AddNoteTool creates or updates a note about a file or directory.
type AddNoteTool struct {
	store *notestore.Store
}

// NewAddNoteTool creates a new AddNoteTool backed by the given store.
func NewAddNoteTool(store *notestore.Store) *AddNoteTool {
	return &AddNoteTool{store: store}
}

// Name returns the tool name.
func (t *AddNoteTool) Name() string {
	return "add_note"
}

// Description returns the tool description.
func (t *AddNoteTool) Description() string {
	return "Add or update a note about a file or directory. Notes persist in the project's notes file and survive across sessions."
}

// Schema returns the JSON schema for the tool's input parameters.
func (t *AddNoteTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file or directory to annotate (relative to workspace)",
			},
			"key": map[string]interface{}{
				"type":        "string",
				"description": "Note key/category",
			},
			"note": map[string]interface{}{
				"type":        "string",
				"description": "Note content",
			},
		},
		[]string{"path", "key", "note"},
	)
}

// Execute adds the note.
func (t *AddNoteTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input struct {
		XMLName xml.Name `xml:"arguments"`
		Path    string   `xml:"path"`
		Key     string   `xml:"key"`
		Note    string   `xml:"note"`
	}

	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, fmt.Errorf("invalid arguments: %w", err)
	}

	if input.Path == "" {
		return "", nil, fmt.Errorf("missing required parameter: path")
	}
	if input.Key == "" {
		return "", nil, fmt.Errorf("missing required parameter: key")
	}
	if input.Note == "" {
		return "", nil, fmt.Errorf("missing required parameter: note")
	}

	if err := t.store.Add(input.Path, input.Key, input.Note); err != nil {
		return "", nil, fmt.Errorf("failed to add note: %w", err)
	}

	metadata := map[string]interface{}{
		"path": input.Path,
		"key":  input.Key,
	}
	return fmt.Sprintf("Added note '%s' for %s", input.Key, input.Path), metadata, nil
}

// GetAllNotesTool returns every note in the project.
type GetAllNotesTool struct {
	store *notestore.Store
}

// NewGetAllNotesTool creates a new GetAllNotesTool backed by the given store.
func NewGetAllNotesTool(store *notestore.Store) *GetAllNotesTool {
	return &GetAllNotesTool{store: store}
}

// Name returns the tool name.
func (t *GetAllNotesTool) Name() string {
	return "get_all_notes"
}

// Description returns the tool description.
func (t *GetAllNotesTool) Description() string {
	return "Get all notes for all paths in the project."
}

// Schema returns the JSON schema for the tool's input parameters.
func (t *GetAllNotesTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(map[string]interface{}{}, nil)
}

// Execute lists all notes grouped by path.
func (t *GetAllNotesTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	all, err := t.store.All()
	if err != nil {
		return "", nil, fmt.Errorf("failed to load notes: %w", err)
	}

	if len(all) == 0 {
		return "No notes recorded", map[string]interface{}{"note_count": 0}, nil
	}

	paths, err := t.store.Paths()
	if err != nil {
		return "", nil, fmt.Errorf("failed to load notes: %w", err)
	}

	var sb strings.Builder
	noteCount := 0
	for _, path := range paths {
		fmt.Fprintf(&sb, "%s:\n", path)
		for key, note := range all[path] {
			fmt.Fprintf(&sb, "  [%s] %s\n", key, note)
			noteCount++
		}
	}

	metadata := map[string]interface{}{
		"note_count": noteCount,
		"path_count": len(paths),
	}
	return strings.TrimSuffix(sb.String(), "\n"), metadata, nil
}

// RemoveNoteTool deletes a note by path and key.
type RemoveNoteTool struct {
	store *notestore.Store
}

// NewRemoveNoteTool creates a new RemoveNoteTool backed by the given store.
func NewRemoveNoteTool(store *notestore.Store) *RemoveNoteTool {
	return &RemoveNoteTool{store: store}
}

// Name returns the tool name.
func (t *RemoveNoteTool) Name() string {
	return "remove_note"
}

// Description returns the tool description.
func (t *RemoveNoteTool) Description() string {
	return "Remove a note about a file or directory by key."
}

// Schema returns the JSON schema for the tool's input parameters.
func (t *RemoveNoteTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path the note is attached to (relative to workspace)",
			},
			"key": map[string]interface{}{
				"type":        "string",
				"description": "Note key to remove",
			},
		},
		[]string{"path", "key"},
	)
}

// Execute removes the note. Removing a note that doesn't exist succeeds.
func (t *RemoveNoteTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input struct {
		XMLName xml.Name `xml:"arguments"`
		Path    string   `xml:"path"`
		Key     string   `xml:"key"`
	}

	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, fmt.Errorf("invalid arguments: %w", err)
	}

	if input.Path == "" {
		return "", nil, fmt.Errorf("missing required parameter: path")
	}
	if input.Key == "" {
		return "", nil, fmt.Errorf("missing required parameter: key")
	}

	if err := t.store.Remove(input.Path, input.Key); err != nil {
		return "", nil, fmt.Errorf("failed to remove note: %w", err)
	}

	metadata := map[string]interface{}{
		"path": input.Path,
		"key":  input.Key,
	}
	return fmt.Sprintf("Removed note '%s' for %s", input.Key, input.Path), metadata, nil
}
