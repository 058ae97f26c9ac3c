// Package runner launches delegated dbt operations as child processes.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	runOperationSubcommand = "run-operation"
	argumentsFlag          = "--args"
	pathEnvironmentKey     = "PATH"
	posixBinDirectory      = "bin"
	windowsBinDirectory    = "Scripts"
	emptyArgumentBag       = "{}"
	processWaitDelay       = 2 * time.Second
)

// Runner executes a named delegated operation with an argument bag.
type Runner interface {
	Run(ctx context.Context, operation string, arguments map[string]any) Result
}

// RunnerFunc adapts a function into a Runner.
type RunnerFunc func(ctx context.Context, operation string, arguments map[string]any) Result

// Run invokes the underlying function.
func (runnerFunc RunnerFunc) Run(ctx context.Context, operation string, arguments map[string]any) Result {
	return runnerFunc(ctx, operation, arguments)
}

// Config describes how the delegated executable is located and launched.
type Config struct {
	Executable         string
	ProjectRoot        string
	VirtualEnvironment string
	Timeout            time.Duration
}

// ExecRunner runs operations through os/exec. Each call owns its buffers and
// child process; nothing is shared between concurrent calls.
type ExecRunner struct {
	config Config
	logger *zap.Logger
}

// NewExecRunner constructs an ExecRunner. A nil logger disables logging.
func NewExecRunner(config Config, logger *zap.Logger) ExecRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return ExecRunner{config: config, logger: logger}
}

// Executable returns the resolved executable path. A bare name is replaced by
// the virtual environment binary when one exists under the project root.
func (runner ExecRunner) Executable() string {
	return ResolveExecutable(runner.config)
}

// CommandArguments builds the argument vector passed after the executable.
func CommandArguments(operation string, arguments map[string]any) ([]string, error) {
	encodedArguments := emptyArgumentBag
	if len(arguments) > 0 {
		encoded, encodeErr := json.Marshal(arguments)
		if encodeErr != nil {
			return nil, fmt.Errorf("encode arguments for %s: %w", operation, encodeErr)
		}
		encodedArguments = string(encoded)
	}
	return []string{runOperationSubcommand, operation, argumentsFlag, encodedArguments}, nil
}

// Run launches exactly one child process and classifies how it finished.
func (runner ExecRunner) Run(ctx context.Context, operation string, arguments map[string]any) Result {
	commandArguments, argumentsErr := CommandArguments(operation, arguments)
	if argumentsErr != nil {
		return SpawnError(argumentsErr)
	}

	runContext := ctx
	if runner.config.Timeout > 0 {
		var cancel context.CancelFunc
		runContext, cancel = context.WithTimeout(ctx, runner.config.Timeout)
		defer cancel()
	}

	executable := runner.Executable()
	// #nosec G204
	command := exec.CommandContext(runContext, executable, commandArguments...)
	command.Dir = runner.config.ProjectRoot
	command.WaitDelay = processWaitDelay
	command.Env = ExtendedEnvironment(os.Environ(), VirtualEnvironmentBinDirectory(runner.config))

	var stdoutBuffer bytes.Buffer
	var stderrBuffer bytes.Buffer
	command.Stdout = &stdoutBuffer
	command.Stderr = &stderrBuffer

	runner.logger.Debug("running delegated operation",
		zap.String("executable", executable),
		zap.String("operation", operation),
		zap.String("directory", command.Dir),
	)

	runErr := command.Run()
	return runner.classify(operation, runErr, runContext.Err(), stdoutBuffer.String(), stderrBuffer.String())
}

// classify maps the process result onto a Result. A child that exited cleanly
// is a success even when the deadline passed while it was being reaped.
func (runner ExecRunner) classify(operation string, runErr error, contextErr error, stdout string, stderr string) Result {
	if runErr == nil {
		return Success(stdout, stderr)
	}
	if contextErr != nil {
		detail := contextErr.Error()
		if errors.Is(contextErr, context.DeadlineExceeded) && runner.config.Timeout > 0 {
			detail = fmt.Sprintf("operation %s exceeded timeout of %s", operation, runner.config.Timeout)
		}
		return Result{Kind: ResultKindTimeout, Stdout: stdout, Stderr: stderr, ExitCode: -1, Detail: detail}
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return NonZeroExit(exitErr.ExitCode(), stdout, stderr)
	}
	return SpawnError(runErr)
}

// ResolveExecutable picks the executable to launch for the configuration.
func ResolveExecutable(config Config) string {
	executable := strings.TrimSpace(config.Executable)
	if executable == "" {
		return executable
	}
	if strings.ContainsAny(executable, `/\`) {
		if filepath.IsAbs(executable) || config.ProjectRoot == "" {
			return executable
		}
		return filepath.Join(config.ProjectRoot, executable)
	}
	binDirectory := VirtualEnvironmentBinDirectory(config)
	if binDirectory == "" {
		return executable
	}
	for _, candidateName := range executableCandidates(executable) {
		candidate := filepath.Join(binDirectory, candidateName)
		if info, statErr := os.Stat(candidate); statErr == nil && !info.IsDir() {
			return candidate
		}
	}
	return executable
}

// VirtualEnvironmentBinDirectory returns the absolute binary directory of the
// configured virtual environment, or an empty string when none is configured.
func VirtualEnvironmentBinDirectory(config Config) string {
	environment := strings.TrimSpace(config.VirtualEnvironment)
	if environment == "" {
		return ""
	}
	if !filepath.IsAbs(environment) {
		environment = filepath.Join(config.ProjectRoot, environment)
	}
	binName := posixBinDirectory
	if runtime.GOOS == "windows" {
		binName = windowsBinDirectory
	}
	absolute, absErr := filepath.Abs(filepath.Join(environment, binName))
	if absErr != nil {
		return filepath.Join(environment, binName)
	}
	return absolute
}

// ExtendedEnvironment returns a copy of environment with binDirectory placed
// first on the search path.
func ExtendedEnvironment(environment []string, binDirectory string) []string {
	extended := make([]string, 0, len(environment)+1)
	pathFound := false
	for _, entry := range environment {
		key, value, hasValue := strings.Cut(entry, "=")
		if hasValue && strings.EqualFold(key, pathEnvironmentKey) && !pathFound {
			pathFound = true
			if binDirectory != "" {
				if value == "" {
					entry = key + "=" + binDirectory
				} else {
					entry = key + "=" + binDirectory + string(os.PathListSeparator) + value
				}
			}
		}
		extended = append(extended, entry)
	}
	if !pathFound && binDirectory != "" {
		extended = append(extended, pathEnvironmentKey+"="+binDirectory)
	}
	return extended
}

func executableCandidates(executable string) []string {
	if runtime.GOOS != "windows" || filepath.Ext(executable) != "" {
		return []string{executable}
	}
	return []string{executable + ".exe", executable}
}
