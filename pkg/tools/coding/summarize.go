package coding

import (
	"context"
	"encoding/xml"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"strings"

	"github.com/entrhq/anvil/pkg/agent/tools"
	"github.com/entrhq/anvil/pkg/security/workspace"
)

// SummarizeTool extracts a structural outline from source files: markdown
// headers for .md files, top-level declarations for .go files.
type SummarizeTool struct {
	guard *workspace.Guard
}

// NewSummarizeTool creates a new SummarizeTool with workspace security.
func NewSummarizeTool(guard *workspace.Guard) *SummarizeTool {
	return &SummarizeTool{guard: guard}
}

// Name returns the tool name.
func (t *SummarizeTool) Name() string {
	return "summarize"
}

// Description returns the tool description.
func (t *SummarizeTool) Description() string {
	return "Generate a structural outline of files: headers for markdown, functions/types/methods for Go source. Supports multiple paths per call."
}

// Schema returns the JSON schema for the tool's input parameters.
func (t *SummarizeTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"paths": map[string]interface{}{
				"type":        "array",
				"description": "Paths of files to summarize (relative to workspace); .md and .go supported",
				"items": map[string]interface{}{
					"type": "string",
				},
			},
		},
		[]string{"paths"},
	)
}

// Execute summarizes each requested file in order.
func (t *SummarizeTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
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
	summaries := make(map[string]interface{}, len(input.Paths))

	for _, path := range input.Paths {
		if err := t.guard.ValidatePath(path); err != nil {
			return "", nil, fmt.Errorf("invalid path: %w", err)
		}
		absPath, err := t.guard.ResolvePath(path)
		if err != nil {
			return "", nil, fmt.Errorf("failed to resolve path: %w", err)
		}

		lines, err := summarizeFile(absPath)
		if err != nil {
			return "", nil, fmt.Errorf("failed to summarize %s: %w", path, err)
		}
		summaries[path] = lines

		fmt.Fprintf(&sb, "%s:\n", path)
		if len(lines) == 0 {
			sb.WriteString("  (no structure found)\n")
		}
		for _, line := range lines {
			fmt.Fprintf(&sb, "  %s\n", line)
		}
	}

	metadata := map[string]interface{}{
		"summaries": summaries,
	}
	return strings.TrimSuffix(sb.String(), "\n"), metadata, nil
}

// summarizeFile dispatches on file extension.
func summarizeFile(absPath string) ([]string, error) {
	switch {
	case strings.HasSuffix(absPath, ".md"):
		return summarizeMarkdown(absPath)
	case strings.HasSuffix(absPath, ".go"):
		return summarizeGo(absPath)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", absPath)
	}
}

// summarizeMarkdown returns the header lines of a markdown file.
func summarizeMarkdown(absPath string) ([]string, error) {
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}

	headers := []string{}
	for _, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			headers = append(headers, trimmed)
		}
	}
	return headers, nil
}

// summarizeGo returns the top-level declarations of a Go source file.
func summarizeGo(absPath string) ([]string, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, absPath, nil, parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}

	decls := []string{}
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Recv != nil && len(d.Recv.List) > 0 {
				decls = append(decls, fmt.Sprintf("method: (%s) %s", receiverType(d.Recv.List[0].Type), d.Name.Name))
			} else {
				decls = append(decls, fmt.Sprintf("func: %s", d.Name.Name))
			}
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				if typeSpec, ok := spec.(*ast.TypeSpec); ok {
					decls = append(decls, fmt.Sprintf("type: %s", typeSpec.Name.Name))
				}
			}
		}
	}
	return decls, nil
}

// receiverType renders a method receiver type as source text.
func receiverType(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return "*" + receiverType(t.X)
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr:
		return receiverType(t.X)
	default:
		return "?"
	}
}

// XMLExample provides a concrete XML usage example for this tool.
func (t *SummarizeTool) XMLExample() string {
	return `<tool>
<server_name>local</server_name>
<tool_name>summarize</tool_name>
<arguments>
  <paths>
    <path>README.md</path>
    <path>pkg/patch/engine.go</path>
  </paths>
</arguments>
</tool>`
}
