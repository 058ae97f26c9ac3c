package runner

import "strings"

// ResultKind classifies how a delegated operation finished.
type ResultKind string

const (
	// ResultKindOK marks an operation that exited with status zero.
	ResultKindOK ResultKind = "ok"
	// ResultKindNonZeroExit marks an operation that ran but exited with a non-zero status.
	ResultKindNonZeroExit ResultKind = "non_zero_exit"
	// ResultKindSpawnError marks an operation whose process could not be started.
	ResultKindSpawnError ResultKind = "spawn_error"
	// ResultKindTimeout marks an operation killed because its deadline passed or its context was canceled.
	ResultKindTimeout ResultKind = "timeout"
)

// Result is the outcome of a single delegated operation.
type Result struct {
	Kind     ResultKind
	Stdout   string
	Stderr   string
	ExitCode int
	Detail   string
}

// Ok reports whether the operation succeeded.
func (result Result) Ok() bool {
	return result.Kind == ResultKindOK
}

// Success builds a successful result from captured streams.
func Success(stdout string, stderr string) Result {
	return Result{Kind: ResultKindOK, Stdout: stdout, Stderr: stderr}
}

// NonZeroExit builds a failed result. The detail is the error stream, or the
// standard stream when nothing was written to the error stream.
func NonZeroExit(exitCode int, stdout string, stderr string) Result {
	detail := strings.TrimSpace(stderr)
	if detail == "" {
		detail = strings.TrimSpace(stdout)
	}
	return Result{
		Kind:     ResultKindNonZeroExit,
		Stdout:   stdout,
		Stderr:   stderr,
		ExitCode: exitCode,
		Detail:   detail,
	}
}

// SpawnError builds a result for a process that never started.
func SpawnError(err error) Result {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return Result{Kind: ResultKindSpawnError, ExitCode: -1, Detail: detail}
}
