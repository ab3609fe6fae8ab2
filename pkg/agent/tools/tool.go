package tools

import (
	"context"
	"encoding/xml"
)

// Tool represents a workspace operation that an agent can invoke. Tools are
// called through XML-formatted tool calls and receive the raw <arguments>
// block to unmarshal into their own argument struct.
//
// Example tool call format:
//
//	<tool>
//	<server_name>local</server_name>
//	<tool_name>patch_file</tool_name>
//	<arguments>
//	  <path>main.go</path>
//	  ...
//	</arguments>
//	</tool>
type Tool interface {
	// Name returns the unique identifier for this tool (e.g., "apply_diff")
	Name() string

	// Description returns a human-readable description of what this tool does
	Description() string

	// Schema returns the JSON schema for this tool's input parameters
	Schema() map[string]interface{}

	// Execute runs the tool with the given XML arguments.
	// Returns: (result string, metadata map, error)
	// Metadata is optional and can be nil
	Execute(ctx context.Context, argumentsXML []byte) (string, map[string]interface{}, error)
}

// ToolCall represents a parsed tool invocation
type ToolCall struct {
	XMLName    xml.Name       `xml:"tool"`
	ServerName string         `xml:"server_name"`
	ToolName   string         `xml:"tool_name"`
	Arguments  ArgumentsBlock `xml:"arguments"`
}

// ArgumentsBlock holds the raw XML of the arguments element
type ArgumentsBlock struct {
	InnerXML []byte `xml:",innerxml"`
}

// GetArgumentsXML returns the arguments wrapped in <arguments> tags for unmarshaling.
func (tc *ToolCall) GetArgumentsXML() []byte {
	const prefix = "<arguments>"
	const suffix = "</arguments>"

	result := make([]byte, 0, len(prefix)+len(tc.Arguments.InnerXML)+len(suffix))
	result = append(result, []byte(prefix)...)
	result = append(result, tc.Arguments.InnerXML...)
	result = append(result, []byte(suffix)...)
	return result
}

// Previewable is an optional interface that tools can implement to describe
// their changes before execution, enabling approval flows in callers.
type Previewable interface {
	// GeneratePreview creates a preview of what this tool will do with the given arguments.
	GeneratePreview(ctx context.Context, argumentsXML []byte) (*ToolPreview, error)
}

// ToolPreview represents a preview of what a tool will do.
type ToolPreview struct {
	// Type indicates the kind of preview (diff, command, file_write)
	Type PreviewType

	// Title is a short description of the action
	Title string

	// Description provides additional context about the action
	Description string

	// Content contains the preview data (diff text, command to run, etc.)
	Content string

	// Metadata holds additional preview information (file path, language, etc.)
	Metadata map[string]interface{}
}

// PreviewType indicates the kind of preview being shown
type PreviewType string

const (
	// PreviewTypeDiff represents a file diff preview
	PreviewTypeDiff PreviewType = "diff"

	// PreviewTypeCommand represents a command execution preview
	PreviewTypeCommand PreviewType = "command"

	// PreviewTypeFileWrite represents a file write/creation preview
	PreviewTypeFileWrite PreviewType = "file_write"
)

// BaseToolSchema creates a common JSON schema structure for a tool
// with the given properties and required fields
func BaseToolSchema(properties map[string]interface{}, required []string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
