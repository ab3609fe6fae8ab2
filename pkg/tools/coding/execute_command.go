package coding

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/entrhq/anvil/pkg/agent/tools"
	"github.com/entrhq/anvil/pkg/security/workspace"
)

// ExecuteCommandTool executes shell commands in the workspace directory.
// Unlike the patch invocation in apply_diff, commands run here are bounded
// by a timeout.
type ExecuteCommandTool struct {
	guard          *workspace.Guard
	defaultTimeout time.Duration
}

// NewExecuteCommandTool creates a new command execution tool.
func NewExecuteCommandTool(guard *workspace.Guard, defaultTimeout time.Duration) *ExecuteCommandTool {
	if defaultTimeout <= 0 {
		defaultTimeout = 30 * time.Second
	}
	return &ExecuteCommandTool{
		guard:          guard,
		defaultTimeout: defaultTimeout,
	}
}

// Name returns the tool name.
func (t *ExecuteCommandTool) Name() string {
	return "execute_command"
}

// Description returns the tool description.
func (t *ExecuteCommandTool) Description() string {
	return "Execute a shell command in the workspace directory. The command runs with a timeout and returns stdout, stderr, and exit code."
}

// Schema returns the tool's JSON schema.
func (t *ExecuteCommandTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"command": map[string]interface{}{
				"type":        "string",
				"description": "The shell command to execute",
			},
			"timeout": map[string]interface{}{
				"type":        "number",
				"description": "Command timeout in seconds (default: 30)",
			},
			"working_dir": map[string]interface{}{
				"type":        "string",
				"description": "Working directory relative to workspace (default: workspace root)",
			},
		},
		[]string{"command"},
	)
}

// executeCommandInput is the argument struct shared by Execute and GeneratePreview.
type executeCommandInput struct {
	XMLName    xml.Name `xml:"arguments"`
	Command    string   `xml:"command"`
	Timeout    float64  `xml:"timeout"`
	WorkingDir string   `xml:"working_dir"`
}

// resolveWorkDir validates and resolves the optional working directory.
func (t *ExecuteCommandTool) resolveWorkDir(workingDir string) (string, error) {
	if workingDir == "" {
		return t.guard.WorkspaceDir(), nil
	}
	if err := t.guard.ValidatePath(workingDir); err != nil {
		return "", fmt.Errorf("invalid working directory: %w", err)
	}
	absWorkDir, err := t.guard.ResolvePath(workingDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}
	return absWorkDir, nil
}

// Execute runs the command and reports its output and exit code.
func (t *ExecuteCommandTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input executeCommandInput
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, fmt.Errorf("failed to parse input: %w", err)
	}

	if input.Command == "" {
		return "", nil, fmt.Errorf("command cannot be empty")
	}

	timeout := t.defaultTimeout
	if input.Timeout > 0 {
		timeout = time.Duration(input.Timeout * float64(time.Second))
	}

	workDir, err := t.resolveWorkDir(input.WorkingDir)
	if err != nil {
		return "", nil, err
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(execCtx, "sh", "-c", input.Command)
	cmd.Dir = workDir

	stdout, stderr, exitCode, execErr := t.runCommand(cmd)
	duration := time.Since(start)

	var result string
	if execErr != nil {
		switch execCtx.Err() {
		case context.Canceled:
			result = fmt.Sprintf("Command was canceled after %s\n\nStdout:\n%s\n\nStderr:\n%s",
				duration.String(), stdout, stderr)
		case context.DeadlineExceeded:
			result = fmt.Sprintf("Command timed out after %s\n\nStdout:\n%s\n\nStderr:\n%s",
				duration.String(), stdout, stderr)
		default:
			result = fmt.Sprintf("Command failed with exit code %d\n\nStdout:\n%s\n\nStderr:\n%s",
				exitCode, stdout, stderr)
		}
	} else {
		result = fmt.Sprintf("Command completed successfully in %s\n\nStdout:\n%s",
			duration.String(), stdout)
		if stderr != "" {
			result += fmt.Sprintf("\n\nStderr:\n%s", stderr)
		}
	}

	result += fmt.Sprintf("\n\nExit code: %d", exitCode)

	metadata := map[string]interface{}{
		"command":     input.Command,
		"exit_code":   exitCode,
		"duration_ms": duration.Milliseconds(),
		"working_dir": workDir,
	}

	return result, metadata, nil
}

// runCommand executes the command and captures output.
func (t *ExecuteCommandTool) runCommand(cmd *exec.Cmd) (stdout, stderr string, exitCode int, err error) {
	stdoutBytes, stderrBytes, err := t.captureOutput(cmd)
	stdout = string(stdoutBytes)
	stderr = string(stderrBytes)

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			// Command failed to start or other error
			exitCode = -1
		}
		return stdout, stderr, exitCode, err
	}

	return stdout, stderr, 0, nil
}

// captureOutput runs the command and captures stdout/stderr.
func (t *ExecuteCommandTool) captureOutput(cmd *exec.Cmd) (stdout, stderr []byte, err error) {
	stdout, stdoutErr := cmd.Output()
	if stdoutErr != nil {
		// Output() returns stderr in the error if command fails
		var exitErr *exec.ExitError
		if errors.As(stdoutErr, &exitErr) {
			stderr = exitErr.Stderr
		}
		return stdout, stderr, stdoutErr
	}
	return stdout, nil, nil
}

// GeneratePreview implements the Previewable interface to show command details before execution.
func (t *ExecuteCommandTool) GeneratePreview(ctx context.Context, argsXML []byte) (*tools.ToolPreview, error) {
	var input executeCommandInput
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return nil, fmt.Errorf("failed to parse input: %w", err)
	}

	if input.Command == "" {
		return nil, fmt.Errorf("command cannot be empty")
	}

	workDir, err := t.resolveWorkDir(input.WorkingDir)
	if err != nil {
		return nil, err
	}

	timeout := t.defaultTimeout
	if input.Timeout > 0 {
		timeout = time.Duration(input.Timeout * float64(time.Second))
	}

	var preview strings.Builder
	preview.WriteString("Command: ")
	preview.WriteString(input.Command)
	preview.WriteString("\n\n")
	preview.WriteString("Working Directory: ")
	preview.WriteString(workDir)
	preview.WriteString("\n\n")
	preview.WriteString(fmt.Sprintf("Timeout: %s\n", timeout))

	return &tools.ToolPreview{
		Type:        tools.PreviewTypeCommand,
		Title:       "Execute Command",
		Description: fmt.Sprintf("This will execute the command: %s", input.Command),
		Content:     preview.String(),
		Metadata: map[string]interface{}{
			"command":     input.Command,
			"working_dir": workDir,
			"timeout":     timeout.Seconds(),
		},
	}, nil
}

// XMLExample provides a concrete XML usage example for this tool.
func (t *ExecuteCommandTool) XMLExample() string {
	return `<tool>
<server_name>local</server_name>
<tool_name>execute_command</tool_name>
<arguments>
  <command>go test ./...</command>
  <timeout>120</timeout>
</arguments>
</tool>`
}
