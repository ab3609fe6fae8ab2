package coding

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/entrhq/anvil/pkg/agent/tools"
	"github.com/entrhq/anvil/pkg/patch"
	"github.com/entrhq/anvil/pkg/security/workspace"
)

// ApplyDiffTool applies a unified-diff document to workspace files through
// an external patch utility. Hunk reconciliation is the utility's job; the
// tool extracts the target paths, runs the utility, and reports a per-file
// result mapping.
//
// The mapping is coarse on failure: the utility reports no per-file status,
// so every target path receives the same failure text. Multiple files in
// one diff are not applied as a single atomic unit.
type ApplyDiffTool struct {
	guard    *workspace.Guard
	executor *patch.Executor
}

// NewApplyDiffTool creates a new ApplyDiffTool running the default patch
// binary in the workspace root.
func NewApplyDiffTool(guard *workspace.Guard) *ApplyDiffTool {
	return &ApplyDiffTool{
		guard:    guard,
		executor: patch.NewExecutor(guard.WorkspaceDir()),
	}
}

// NewApplyDiffToolWithExecutor creates an ApplyDiffTool with an explicit
// executor, used for configured binary overrides and tests.
func NewApplyDiffToolWithExecutor(guard *workspace.Guard, executor *patch.Executor) *ApplyDiffTool {
	return &ApplyDiffTool{
		guard:    guard,
		executor: executor,
	}
}

// Name returns the tool name.
func (t *ApplyDiffTool) Name() string {
	return "apply_diff"
}

// Description returns the tool description.
func (t *ApplyDiffTool) Description() string {
	return "Apply a unified diff to files in the workspace. Supports multiple file sections in one document. Already-applied hunks are tolerated; conflicting hunks reject the diff."
}

// Schema returns the JSON schema for the tool's input parameters.
func (t *ApplyDiffTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"diff": map[string]interface{}{
				"type":        "string",
				"description": "Unified diff document with --- a/<path> / +++ b/<path> headers and @@ hunks",
			},
		},
		[]string{"diff"},
	)
}

// Execute runs the diff through the patch pipeline and returns the per-file
// result mapping. Tool rejection and a missing patch binary are reported in
// the mapping rather than as an error; only caller-fixable input problems
// (empty or malformed diff, paths escaping the workspace) are errors.
func (t *ApplyDiffTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input struct {
		XMLName xml.Name `xml:"arguments"`
		Diff    string   `xml:"diff"`
	}

	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, fmt.Errorf("invalid arguments: %w", err)
	}

	if strings.TrimSpace(input.Diff) == "" {
		return "", nil, fmt.Errorf("diff is required")
	}

	targets := patch.ExtractTargetPaths(input.Diff)
	if len(targets) == 0 {
		return "", nil, fmt.Errorf("malformed diff: no +++ file headers found")
	}

	for _, target := range targets {
		if err := t.guard.ValidatePath(target); err != nil {
			return "", nil, fmt.Errorf("invalid target path in diff: %w", err)
		}
	}

	var result patch.Result
	metadata := map[string]interface{}{}
	outcome, err := t.executor.Apply(ctx, input.Diff)
	if err != nil {
		// The utility never ran: error-only result, no per-file keys.
		result = patch.ErrorResult(err)
	} else {
		result = patch.Aggregate(targets, outcome)
		metadata["exit_code"] = outcome.ExitCode
	}
	metadata["files"] = map[string]string(result)
	metadata["failed"] = result.Failed()

	return formatPatchResult(targets, result), metadata, nil
}

// formatPatchResult renders the result mapping with targets in diff order
// and the document-level error, if any, last.
func formatPatchResult(targets []string, result patch.Result) string {
	var sb strings.Builder
	seen := make(map[string]bool)
	for _, target := range targets {
		if seen[target] {
			continue
		}
		seen[target] = true
		if status, ok := result[target]; ok {
			fmt.Fprintf(&sb, "%s: %s\n", target, status)
		}
	}
	if failure, ok := result[patch.ErrorKey]; ok {
		fmt.Fprintf(&sb, "error: %s\n", failure)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// GeneratePreview implements the Previewable interface to show the diff
// before it is applied.
func (t *ApplyDiffTool) GeneratePreview(ctx context.Context, argsXML []byte) (*tools.ToolPreview, error) {
	var input struct {
		XMLName xml.Name `xml:"arguments"`
		Diff    string   `xml:"diff"`
	}

	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}

	if strings.TrimSpace(input.Diff) == "" {
		return nil, fmt.Errorf("diff is required")
	}

	targets := patch.ExtractTargetPaths(input.Diff)
	if len(targets) == 0 {
		return nil, fmt.Errorf("malformed diff: no +++ file headers found")
	}

	title := fmt.Sprintf("Apply diff to %s", targets[0])
	if len(targets) > 1 {
		title = fmt.Sprintf("Apply diff to %d files", len(targets))
	}

	return &tools.ToolPreview{
		Type:        tools.PreviewTypeDiff,
		Title:       title,
		Description: fmt.Sprintf("This will patch: %s", strings.Join(targets, ", ")),
		Content:     input.Diff,
		Metadata: map[string]interface{}{
			"target_files": targets,
			"language":     detectLanguage(targets[0]),
		},
	}, nil
}

// XMLExample provides a concrete XML usage example for this tool.
func (t *ApplyDiffTool) XMLExample() string {
	return `<tool>
<server_name>local</server_name>
<tool_name>apply_diff</tool_name>
<arguments>
  <diff><![CDATA[--- a/src/main.go
+++ b/src/main.go
@@ -1,3 +1,3 @@
 package main

-const version = "1.0.0"
+const version = "1.1.0"
]]></diff>
</arguments>
</tool>`
}
