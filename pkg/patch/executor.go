package patch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// DefaultBinary is the patch utility invoked when no override is configured.
const DefaultBinary = "patch"

// Outcome captures the exit status and output streams of a patch
// invocation. A nonzero exit code is a normal, reportable outcome, not an
// error.
type Outcome struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner invokes an external command in a working directory and reports its
// outcome. Implementations must not return an error for a nonzero exit;
// errors are reserved for invocations that could not start at all. The one
// production implementation shells out through os/exec, and tests substitute
// fakes.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (Outcome, error)
}

// ExecRunner runs commands through os/exec.
type ExecRunner struct{}

// Run executes the command and captures exit code, stdout, and stderr.
func (ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (Outcome, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	outcome := Outcome{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			outcome.ExitCode = exitErr.ExitCode()
			return outcome, nil
		}
		// The command never started (missing binary, permissions).
		return outcome, fmt.Errorf("failed to invoke %s: %w", name, err)
	}
	return outcome, nil
}

// Executor applies unified diffs by handing them to an external patch
// utility. Hunk reconciliation is entirely the utility's job; the executor
// only manages the temp file carrying the diff and the invocation itself.
type Executor struct {
	runner  Runner
	binary  string
	workDir string
}

// NewExecutor creates an Executor that runs the default patch binary in
// workDir.
func NewExecutor(workDir string) *Executor {
	return NewExecutorWithRunner(workDir, DefaultBinary, ExecRunner{})
}

// NewExecutorWithRunner creates an Executor with an explicit binary and
// runner, used for configuration overrides and tests.
func NewExecutorWithRunner(workDir, binary string, runner Runner) *Executor {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Executor{
		runner:  runner,
		binary:  binary,
		workDir: workDir,
	}
}

// Apply writes the diff to a temporary file and invokes the patch utility
// against it with a single path component stripped (-p1) and already-applied
// hunks tolerated (--forward). The temp file is removed on every exit path.
// A returned error means the utility could not be invoked; a rejection shows
// up as a nonzero Outcome.ExitCode instead.
//
// No timeout is applied beyond whatever deadline ctx carries.
func (e *Executor) Apply(ctx context.Context, diff string) (Outcome, error) {
	tmp, err := os.CreateTemp("", "anvil-*.patch")
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to create temp patch file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.WriteString(diff); err != nil {
		tmp.Close()
		return Outcome{}, fmt.Errorf("failed to write temp patch file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Outcome{}, fmt.Errorf("failed to close temp patch file: %w", err)
	}

	return e.runner.Run(ctx, e.workDir, e.binary, "-p1", "--forward", "-i", tmpPath)
}
