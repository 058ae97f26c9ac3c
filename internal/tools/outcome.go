package tools

import (
	"fmt"

	"github.com/temirov/vaultctx/internal/runner"
)

// OutcomeKind classifies the result of a tool invocation.
type OutcomeKind string

const (
	OutcomeKindOK          OutcomeKind = "ok"
	OutcomeKindValidation  OutcomeKind = "validation"
	OutcomeKindUnknownTool OutcomeKind = "unknown_tool"
	OutcomeKindNonZeroExit OutcomeKind = "non_zero_exit"
	OutcomeKindSpawnError  OutcomeKind = "spawn_error"
	OutcomeKindTimeout     OutcomeKind = "timeout"
)

const (
	validationMessageFormat  = "Error: %s"
	unknownToolMessageFormat = "Error: unknown tool '%s'"
	nonZeroExitMessageFormat = "Error (exit code %d): %s"
	spawnErrorMessageFormat  = "Error: failed to start delegated operation: %s"
	timeoutMessageFormat     = "Error: delegated operation did not finish: %s"
)

// Outcome is the tagged result of one tool invocation. It is rendered to text
// only by the presentation layer.
type Outcome struct {
	Kind     OutcomeKind
	Tool     string
	Payload  string
	Detail   string
	ExitCode int
}

// IsError reports whether the invocation failed.
func (outcome Outcome) IsError() bool {
	return outcome.Kind != OutcomeKindOK
}

// Text renders the outcome as a single agent-facing string.
func (outcome Outcome) Text() string {
	switch outcome.Kind {
	case OutcomeKindOK:
		return outcome.Payload
	case OutcomeKindValidation:
		return fmt.Sprintf(validationMessageFormat, outcome.Detail)
	case OutcomeKindUnknownTool:
		return fmt.Sprintf(unknownToolMessageFormat, outcome.Tool)
	case OutcomeKindNonZeroExit:
		return fmt.Sprintf(nonZeroExitMessageFormat, outcome.ExitCode, outcome.Detail)
	case OutcomeKindSpawnError:
		return fmt.Sprintf(spawnErrorMessageFormat, outcome.Detail)
	case OutcomeKindTimeout:
		return fmt.Sprintf(timeoutMessageFormat, outcome.Detail)
	default:
		return fmt.Sprintf(validationMessageFormat, outcome.Detail)
	}
}

func outcomeKindFromResult(kind runner.ResultKind) OutcomeKind {
	switch kind {
	case runner.ResultKindOK:
		return OutcomeKindOK
	case runner.ResultKindNonZeroExit:
		return OutcomeKindNonZeroExit
	case runner.ResultKindTimeout:
		return OutcomeKindTimeout
	default:
		return OutcomeKindSpawnError
	}
}
