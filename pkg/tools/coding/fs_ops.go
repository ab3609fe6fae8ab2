package coding

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/entrhq/anvil/pkg/agent/tools"
	"github.com/entrhq/anvil/pkg/security/workspace"
)

// MkdirTool creates a directory, including any missing parents.
type MkdirTool struct {
	guard *workspace.Guard
}

// NewMkdirTool creates a new MkdirTool with workspace security.
func NewMkdirTool(guard *workspace.Guard) *MkdirTool {
	return &MkdirTool{guard: guard}
}

func (t *MkdirTool) Name() string {
	return "mkdir"
}

func (t *MkdirTool) Description() string {
	return "Create a directory, including any missing parent directories. Succeeds if the directory already exists."
}

func (t *MkdirTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Directory path to create (relative to workspace)",
			},
		},
		[]string{"path"},
	)
}

func (t *MkdirTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	absPath, relPath, err := resolveSinglePath(t.guard, argsXML)
	if err != nil {
		return "", nil, err
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return "", nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return fmt.Sprintf("Created directory %s", relPath), map[string]interface{}{"path": relPath}, nil
}

// RemoveTool removes a file or an empty directory.
type RemoveTool struct {
	guard *workspace.Guard
}

// NewRemoveTool creates a new RemoveTool with workspace security.
func NewRemoveTool(guard *workspace.Guard) *RemoveTool {
	return &RemoveTool{guard: guard}
}

func (t *RemoveTool) Name() string {
	return "rm"
}

func (t *RemoveTool) Description() string {
	return "Remove a file or an empty directory. Fails on non-empty directories; use rmtree for those."
}

func (t *RemoveTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to remove (relative to workspace)",
			},
		},
		[]string{"path"},
	)
}

func (t *RemoveTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	absPath, relPath, err := resolveSinglePath(t.guard, argsXML)
	if err != nil {
		return "", nil, err
	}

	// os.Remove handles both files and empty directories.
	if err := os.Remove(absPath); err != nil {
		return "", nil, fmt.Errorf("failed to remove: %w", err)
	}

	return fmt.Sprintf("Removed %s", relPath), map[string]interface{}{"path": relPath}, nil
}

// RemoveTreeTool removes a directory and all of its contents.
type RemoveTreeTool struct {
	guard *workspace.Guard
}

// NewRemoveTreeTool creates a new RemoveTreeTool with workspace security.
func NewRemoveTreeTool(guard *workspace.Guard) *RemoveTreeTool {
	return &RemoveTreeTool{guard: guard}
}

func (t *RemoveTreeTool) Name() string {
	return "rmtree"
}

func (t *RemoveTreeTool) Description() string {
	return "Remove a directory and all of its contents recursively."
}

func (t *RemoveTreeTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Directory to remove (relative to workspace)",
			},
		},
		[]string{"path"},
	)
}

func (t *RemoveTreeTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	absPath, relPath, err := resolveSinglePath(t.guard, argsXML)
	if err != nil {
		return "", nil, err
	}

	// Refuse to remove the workspace root itself.
	if absPath == t.guard.WorkspaceDir() {
		return "", nil, fmt.Errorf("refusing to remove workspace root")
	}

	if err := os.RemoveAll(absPath); err != nil {
		return "", nil, fmt.Errorf("failed to remove tree: %w", err)
	}

	return fmt.Sprintf("Removed %s and its contents", relPath), map[string]interface{}{"path": relPath}, nil
}

// CopyTool copies a file or directory tree.
type CopyTool struct {
	guard *workspace.Guard
}

// NewCopyTool creates a new CopyTool with workspace security.
func NewCopyTool(guard *workspace.Guard) *CopyTool {
	return &CopyTool{guard: guard}
}

func (t *CopyTool) Name() string {
	return "cp"
}

func (t *CopyTool) Description() string {
	return "Copy a file or directory. Directories are copied recursively."
}

func (t *CopyTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(srcDstSchema(), []string{"src", "dst"})
}

func (t *CopyTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	srcAbs, dstAbs, srcRel, dstRel, err := resolveSrcDst(t.guard, argsXML)
	if err != nil {
		return "", nil, err
	}

	info, err := os.Stat(srcAbs)
	if err != nil {
		return "", nil, fmt.Errorf("failed to stat source: %w", err)
	}

	if info.IsDir() {
		err = copyTree(srcAbs, dstAbs)
	} else {
		err = copyFile(srcAbs, dstAbs, info.Mode())
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to copy: %w", err)
	}

	metadata := map[string]interface{}{"src": srcRel, "dst": dstRel}
	return fmt.Sprintf("Copied %s to %s", srcRel, dstRel), metadata, nil
}

// MoveTool moves or renames a file or directory.
type MoveTool struct {
	guard *workspace.Guard
}

// NewMoveTool creates a new MoveTool with workspace security.
func NewMoveTool(guard *workspace.Guard) *MoveTool {
	return &MoveTool{guard: guard}
}

func (t *MoveTool) Name() string {
	return "mv"
}

func (t *MoveTool) Description() string {
	return "Move or rename a file or directory."
}

func (t *MoveTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(srcDstSchema(), []string{"src", "dst"})
}

func (t *MoveTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	srcAbs, dstAbs, srcRel, dstRel, err := resolveSrcDst(t.guard, argsXML)
	if err != nil {
		return "", nil, err
	}

	if err := os.Rename(srcAbs, dstAbs); err != nil {
		return "", nil, fmt.Errorf("failed to move: %w", err)
	}

	metadata := map[string]interface{}{"src": srcRel, "dst": dstRel}
	return fmt.Sprintf("Moved %s to %s", srcRel, dstRel), metadata, nil
}

// srcDstSchema is the shared schema for cp and mv.
func srcDstSchema() map[string]interface{} {
	return map[string]interface{}{
		"src": map[string]interface{}{
			"type":        "string",
			"description": "Source path (relative to workspace)",
		},
		"dst": map[string]interface{}{
			"type":        "string",
			"description": "Destination path (relative to workspace)",
		},
	}
}

// resolveSinglePath parses a single-path argument block and validates it
// against the guard.
func resolveSinglePath(guard *workspace.Guard, argsXML []byte) (absPath, relPath string, err error) {
	var input struct {
		XMLName xml.Name `xml:"arguments"`
		Path    string   `xml:"path"`
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", "", fmt.Errorf("invalid arguments: %w", err)
	}
	if input.Path == "" {
		return "", "", fmt.Errorf("missing required parameter: path")
	}
	if err := guard.ValidatePath(input.Path); err != nil {
		return "", "", fmt.Errorf("invalid path: %w", err)
	}
	absPath, err = guard.ResolvePath(input.Path)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve path: %w", err)
	}
	relPath, err = guard.MakeRelative(absPath)
	if err != nil || relPath == "" {
		relPath = input.Path
	}
	return absPath, relPath, nil
}

// resolveSrcDst parses and validates a src/dst argument block.
func resolveSrcDst(guard *workspace.Guard, argsXML []byte) (srcAbs, dstAbs, srcRel, dstRel string, err error) {
	var input struct {
		XMLName xml.Name `xml:"arguments"`
		Src     string   `xml:"src"`
		Dst     string   `xml:"dst"`
	}
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", "", "", "", fmt.Errorf("invalid arguments: %w", err)
	}
	if input.Src == "" {
		return "", "", "", "", fmt.Errorf("missing required parameter: src")
	}
	if input.Dst == "" {
		return "", "", "", "", fmt.Errorf("missing required parameter: dst")
	}

	for _, pair := range []struct {
		path string
		abs  *string
		rel  *string
	}{
		{input.Src, &srcAbs, &srcRel},
		{input.Dst, &dstAbs, &dstRel},
	} {
		if err := guard.ValidatePath(pair.path); err != nil {
			return "", "", "", "", fmt.Errorf("invalid path: %w", err)
		}
		abs, err := guard.ResolvePath(pair.path)
		if err != nil {
			return "", "", "", "", fmt.Errorf("failed to resolve path: %w", err)
		}
		*pair.abs = abs
		rel, err := guard.MakeRelative(abs)
		if err != nil || rel == "" {
			rel = pair.path
		}
		*pair.rel = rel
	}
	return srcAbs, dstAbs, srcRel, dstRel, nil
}

// copyFile copies a single file preserving its mode.
func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// copyTree recursively copies a directory.
func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode())
		}
		return copyFile(path, target, info.Mode())
	})
}
