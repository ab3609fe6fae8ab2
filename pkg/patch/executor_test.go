package patch

import (
	"context"
	"errors"
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records the invocation and returns a canned outcome. It also
// snapshots the temp patch file while the invocation is in flight so tests
// can verify its contents and later removal.
type fakeRunner struct {
	outcome Outcome
	err     error

	dir          string
	name         string
	args         []string
	tempPath     string
	tempContents string
}

func (r *fakeRunner) Run(ctx context.Context, dir, name string, args ...string) (Outcome, error) {
	r.dir = dir
	r.name = name
	r.args = args

	// The -i argument points at the temp file carrying the diff.
	for i, arg := range args {
		if arg == "-i" && i+1 < len(args) {
			r.tempPath = args[i+1]
			data, err := os.ReadFile(r.tempPath)
			if err == nil {
				r.tempContents = string(data)
			}
		}
	}

	return r.outcome, r.err
}

func TestExecutor_Apply(t *testing.T) {
	runner := &fakeRunner{outcome: Outcome{ExitCode: 0, Stdout: "patching file foo.go"}}
	executor := NewExecutorWithRunner("/tmp/workspace", "", runner)

	diff := "--- a/foo.go\n+++ b/foo.go\n@@ -1 +1 @@\n-old\n+new\n"
	outcome, err := executor.Apply(context.Background(), diff)

	require.NoError(t, err)
	assert.Equal(t, 0, outcome.ExitCode)
	assert.Equal(t, "patching file foo.go", outcome.Stdout)

	// Invocation contract: patch -p1 --forward -i <tmp> in the work dir.
	assert.Equal(t, "/tmp/workspace", runner.dir)
	assert.Equal(t, DefaultBinary, runner.name)
	require.Len(t, runner.args, 4)
	assert.Equal(t, "-p1", runner.args[0])
	assert.Equal(t, "--forward", runner.args[1])
	assert.Equal(t, "-i", runner.args[2])

	// The temp file held the diff during the invocation and is gone after.
	assert.Equal(t, diff, runner.tempContents)
	_, statErr := os.Stat(runner.tempPath)
	assert.True(t, os.IsNotExist(statErr), "temp patch file should be removed")
}

func TestExecutor_ApplyNonzeroExit(t *testing.T) {
	runner := &fakeRunner{outcome: Outcome{ExitCode: 1, Stderr: "1 out of 1 hunk FAILED"}}
	executor := NewExecutorWithRunner(t.TempDir(), "patch", runner)

	outcome, err := executor.Apply(context.Background(), "+++ b/foo.go\n")

	// Rejection is a reportable outcome, not an error.
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.ExitCode)
	assert.Contains(t, outcome.Stderr, "hunk FAILED")
}

func TestExecutor_ApplyRunnerError(t *testing.T) {
	runner := &fakeRunner{err: errors.New("exec: \"patch\": executable file not found in $PATH")}
	executor := NewExecutorWithRunner(t.TempDir(), "patch", runner)

	_, err := executor.Apply(context.Background(), "+++ b/foo.go\n")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	// Cleanup happens on the failure path too.
	_, statErr := os.Stat(runner.tempPath)
	assert.True(t, os.IsNotExist(statErr), "temp patch file should be removed on failure")
}

func TestExecutor_CustomBinary(t *testing.T) {
	runner := &fakeRunner{}
	executor := NewExecutorWithRunner(t.TempDir(), "gpatch", runner)

	_, err := executor.Apply(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "gpatch", runner.name)
}

func TestExecRunner_CapturesOutcome(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}

	var runner ExecRunner
	outcome, err := runner.Run(context.Background(), t.TempDir(), "sh", "-c", "echo out; echo err >&2; exit 3")

	require.NoError(t, err)
	assert.Equal(t, 3, outcome.ExitCode)
	assert.Equal(t, "out\n", outcome.Stdout)
	assert.Equal(t, "err\n", outcome.Stderr)
}

func TestExecRunner_MissingBinary(t *testing.T) {
	var runner ExecRunner
	_, err := runner.Run(context.Background(), t.TempDir(), "anvil-no-such-binary")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to invoke")
}
