package patch

import (
	"fmt"
	"strings"
)

// ErrorKey is the reserved Result key carrying a document-level failure
// description. By convention target file paths are treated as distinct
// from it; a file literally named "error" would share the key.
const ErrorKey = "error"

// successMessage is the per-path marker for a clean apply.
const successMessage = "Successfully applied"

// Result maps each target file path of a diff to an outcome string, plus
// the reserved ErrorKey for document-level failures. It is returned to the
// caller and never persisted.
type Result map[string]string

// Failed reports whether the result carries a document-level failure.
func (r Result) Failed() bool {
	_, ok := r[ErrorKey]
	return ok
}

// Aggregate combines the executor's outcome with the diff's target paths.
// Exit zero marks every path successful. On a nonzero exit the same failure
// text is broadcast to every path and to ErrorKey: the underlying utility
// does not report per-file status, so no finer granularity is available.
func Aggregate(paths []string, outcome Outcome) Result {
	result := make(Result, len(paths)+1)
	if outcome.ExitCode == 0 {
		for _, path := range paths {
			result[path] = successMessage
		}
		return result
	}

	reason := strings.TrimSpace(outcome.Stderr)
	if reason == "" {
		reason = strings.TrimSpace(outcome.Stdout)
	}
	failure := fmt.Sprintf("patch rejected (exit %d): %s", outcome.ExitCode, reason)
	for _, path := range paths {
		result[path] = failure
	}
	result[ErrorKey] = failure
	return result
}

// ErrorResult builds a Result for invocations that produced no outcome at
// all, such as a missing patch binary. No per-file keys are set even when
// target paths were extracted.
func ErrorResult(err error) Result {
	return Result{ErrorKey: err.Error()}
}
