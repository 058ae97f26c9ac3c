package tools

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/temirov/vaultctx/internal/extract"
	"github.com/temirov/vaultctx/internal/runner"
)

var errNoRunner = errors.New("no runner configured for delegated operations")

// PayloadLimiter shortens payloads before they are returned to an agent.
type PayloadLimiter interface {
	Limit(payload string) string
}

// Config wires a Facade to its collaborators.
type Config struct {
	Runner  runner.Runner
	Tools   []Tool
	Limiter PayloadLimiter
	Logger  *zap.Logger
}

// Facade validates tool requests and delegates them to a Runner.
type Facade struct {
	runner  runner.Runner
	tools   []Tool
	index   map[string]Tool
	limiter PayloadLimiter
	logger  *zap.Logger
}

// NewFacade creates a Facade. When no tools are configured the default data
// lake tools are published.
func NewFacade(config Config) *Facade {
	publishedTools := config.Tools
	if len(publishedTools) == 0 {
		publishedTools = DefaultTools(DefaultPreviewBounds())
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	index := make(map[string]Tool, len(publishedTools))
	for _, tool := range publishedTools {
		index[tool.Name] = tool
	}
	return &Facade{
		runner:  config.Runner,
		tools:   append([]Tool{}, publishedTools...),
		index:   index,
		limiter: config.Limiter,
		logger:  logger,
	}
}

// Tools returns the published tools in registration order.
func (facade *Facade) Tools() []Tool {
	return append([]Tool{}, facade.tools...)
}

// Lookup finds a published tool by name.
func (facade *Facade) Lookup(name string) (Tool, bool) {
	tool, found := facade.index[name]
	return tool, found
}

// Invoke validates arguments for the named tool, runs its delegated operation,
// and reduces the output to the operation payload. Invalid requests never
// reach the Runner.
func (facade *Facade) Invoke(ctx context.Context, name string, arguments map[string]any) Outcome {
	invocationLogger := facade.logger.With(
		zap.String("invocation", uuid.NewString()),
		zap.String("tool", name),
	)

	tool, found := facade.index[name]
	if !found {
		invocationLogger.Warn("unknown tool requested")
		return Outcome{Kind: OutcomeKindUnknownTool, Tool: name}
	}

	prepared, validationErr := tool.PrepareArguments(arguments)
	if validationErr != nil {
		invocationLogger.Info("rejected tool request", zap.Error(validationErr))
		return Outcome{Kind: OutcomeKindValidation, Tool: name, Detail: validationErr.Error()}
	}

	if facade.runner == nil {
		invocationLogger.Error("no runner configured")
		return Outcome{Kind: OutcomeKindSpawnError, Tool: name, Detail: errNoRunner.Error(), ExitCode: -1}
	}

	startedAt := time.Now()
	result := facade.runner.Run(ctx, tool.Operation, prepared)
	outcome := Outcome{
		Kind:     outcomeKindFromResult(result.Kind),
		Tool:     name,
		Detail:   result.Detail,
		ExitCode: result.ExitCode,
	}
	if outcome.Kind == OutcomeKindOK {
		outcome.Payload = extract.Payload(result.Stdout)
		if facade.limiter != nil {
			outcome.Payload = facade.limiter.Limit(outcome.Payload)
		}
	}

	invocationLogger.Info("tool finished",
		zap.String("operation", tool.Operation),
		zap.String("kind", string(outcome.Kind)),
		zap.Int("exitCode", outcome.ExitCode),
		zap.Duration("duration", time.Since(startedAt)),
	)
	return outcome
}
