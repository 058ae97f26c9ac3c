// Package cli provides the command line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/vaultctx/internal/catalog"
	"github.com/temirov/vaultctx/internal/config"
	"github.com/temirov/vaultctx/internal/output"
	"github.com/temirov/vaultctx/internal/runner"
	"github.com/temirov/vaultctx/internal/services/clipboard"
	"github.com/temirov/vaultctx/internal/tokenizer"
	"github.com/temirov/vaultctx/internal/tools"
	"github.com/temirov/vaultctx/internal/utils"
	"github.com/temirov/vaultctx/internal/vault"
)

const (
	rootUse              = "vaultctx"
	rootShortDescription = "vaultctx data lake and Data Vault tooling for agents"
	rootLongDescription  = `vaultctx lets an agent inspect parquet files in a remote data lake through dbt
run-operation macros and file generated Data Vault models into a dbt project.
Use serve to expose the tools over MCP stdio or HTTP, or call them directly from the shell.`
	versionTemplate = "vaultctx version: {{.Version}}\n"

	configFlagName        = "config"
	configFlagDescription = "path to a configuration file that replaces the local " + config.ConfigFileName
	copyFlagName          = "copy"
	copyFlagDescription   = "copy command output to the system clipboard"
	formatFlagName        = "format"
	formatFlagDescription = "output format: text, json or xml"

	warningCopyFailedFormat = "Warning: failed to copy output to clipboard: %v\n"
)

// RunnerFactory builds the Runner used to reach the delegated executable.
type RunnerFactory func(configuration config.Configuration, logger *zap.Logger) runner.Runner

// Dependencies are the process-level collaborators of the command tree.
// Zero values are replaced with the operating system defaults.
type Dependencies struct {
	Logger            *zap.Logger
	Input             io.Reader
	Output            io.Writer
	ErrorOutput       io.Writer
	Copier            clipboard.Copier
	WorkingDirectory  string
	HomeDirectory     string
	LookupEnvironment func(string) (string, bool)
	NewRunner         RunnerFactory
	Filesystem        afero.Fs
}

// application holds the components shared by the subcommands once the
// configuration is loaded.
type application struct {
	configuration config.Configuration
	logger        *zap.Logger
	workspace     vault.Workspace
	catalogs      catalog.Store
	facade        *tools.Facade
}

type rootState struct {
	dependencies      Dependencies
	configurationPath string
	copyOutput        bool
	formatName        string
	format            output.Format
	loaded            *application
}

// Execute runs the vaultctx application with operating system defaults.
func Execute(ctx context.Context, logger *zap.Logger) error {
	rootCommand := NewRootCommand(Dependencies{Logger: logger})
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, os.Args[1:]))
	return rootCommand.ExecuteContext(ctx)
}

// NewRootCommand builds the root Cobra command.
func NewRootCommand(dependencies Dependencies) *cobra.Command {
	state := &rootState{dependencies: withDefaults(dependencies)}

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		Version:       utils.GetApplicationVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			format, formatErr := output.ParseFormat(state.formatName)
			if formatErr != nil {
				return formatErr
			}
			state.format = format
			return nil
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}
	rootCommand.SetVersionTemplate(versionTemplate)
	rootCommand.SetIn(state.dependencies.Input)
	rootCommand.SetOut(state.dependencies.Output)
	rootCommand.SetErr(state.dependencies.ErrorOutput)
	rootCommand.PersistentFlags().StringVar(&state.configurationPath, configFlagName, "", configFlagDescription)
	registerBooleanFlag(rootCommand.PersistentFlags(), &state.copyOutput, copyFlagName, false, copyFlagDescription)
	rootCommand.PersistentFlags().StringVar(&state.formatName, formatFlagName, string(output.FormatText), formatFlagDescription)

	rootCommand.AddCommand(
		createServeCommand(state),
		createFilesCommand(state),
		createSchemaCommand(state),
		createPreviewCommand(state),
		createPathCommand(state),
		createConceptsCommand(state),
		createSourceCommand(state),
		createModelCommand(state),
		createConfigCommand(state),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

func withDefaults(dependencies Dependencies) Dependencies {
	resolved := dependencies
	if resolved.Logger == nil {
		resolved.Logger = zap.NewNop()
	}
	if resolved.Input == nil {
		resolved.Input = os.Stdin
	}
	if resolved.Output == nil {
		resolved.Output = os.Stdout
	}
	if resolved.ErrorOutput == nil {
		resolved.ErrorOutput = os.Stderr
	}
	if resolved.Copier == nil {
		resolved.Copier = clipboard.NewService()
	}
	if resolved.LookupEnvironment == nil {
		resolved.LookupEnvironment = os.LookupEnv
	}
	if resolved.NewRunner == nil {
		resolved.NewRunner = newExecRunner
	}
	return resolved
}

func newExecRunner(configuration config.Configuration, logger *zap.Logger) runner.Runner {
	return runner.NewExecRunner(runner.Config{
		Executable:         configuration.Executable,
		ProjectRoot:        configuration.ProjectRoot,
		VirtualEnvironment: configuration.VirtualEnvironment,
		Timeout:            configuration.Timeout,
	}, logger.Named("runner"))
}

// load reads the configuration once and wires the shared components.
func (state *rootState) load() (*application, error) {
	if state.loaded != nil {
		return state.loaded, nil
	}
	dependencies := state.dependencies
	configuration, loadErr := config.Load(config.LoadOptions{
		WorkingDirectory:  dependencies.WorkingDirectory,
		HomeDirectory:     dependencies.HomeDirectory,
		ExplicitFilePath:  state.configurationPath,
		LookupEnvironment: dependencies.LookupEnvironment,
	})
	if loadErr != nil {
		return nil, loadErr
	}
	logger := dependencies.Logger

	layout := vault.Layout{ModelsDirectory: configuration.ModelsDirectory, DefaultConcept: configuration.DefaultConcept}
	var workspace vault.Workspace
	if dependencies.Filesystem != nil {
		workspace = vault.NewWorkspaceOnFilesystem(dependencies.Filesystem, layout)
	} else {
		workspace = vault.NewWorkspace(configuration.ProjectRoot, layout)
	}

	facadeConfig := tools.Config{
		Runner: dependencies.NewRunner(configuration, logger),
		Tools: tools.DefaultTools(tools.IntegerBounds{
			Default: configuration.Preview.DefaultLimit,
			Minimum: 1,
			Maximum: configuration.Preview.MaximumLimit,
		}),
		Logger: logger.Named("tools"),
	}
	if configuration.Tokens.MaxOutputTokens > 0 {
		counter, counterErr := tokenizer.NewCounter(configuration.Tokens.Model)
		if counterErr != nil {
			return nil, fmt.Errorf("initialize token budget: %w", counterErr)
		}
		facadeConfig.Limiter = tokenizer.Budget{Counter: counter, MaximumTokens: configuration.Tokens.MaxOutputTokens}
	}

	logger.Debug("configuration loaded",
		zap.String("projectRoot", configuration.ProjectRoot),
		zap.String("executable", configuration.Executable),
		zap.Duration("timeout", configuration.Timeout),
	)
	state.loaded = &application{
		configuration: configuration,
		logger:        logger,
		workspace:     workspace,
		catalogs:      catalog.NewStore(workspace.Filesystem()),
		facade:        tools.NewFacade(facadeConfig),
	}
	return state.loaded, nil
}

// emit renders items in the selected format, writes them as the command
// result, and copies them when --copy is set. A clipboard failure is reported
// but does not fail the command.
func (state *rootState) emit(command *cobra.Command, items ...string) error {
	rendered, renderErr := output.Render(state.format, output.Document{
		Command: strings.TrimPrefix(command.CommandPath(), rootUse+" "),
		Items:   items,
	})
	if renderErr != nil {
		return renderErr
	}
	if rendered == "" {
		return nil
	}
	if _, err := fmt.Fprintln(command.OutOrStdout(), rendered); err != nil {
		return err
	}
	if state.copyOutput {
		if copyErr := state.dependencies.Copier.Copy(strings.TrimRight(rendered, "\n")); copyErr != nil {
			fmt.Fprintf(command.ErrOrStderr(), warningCopyFailedFormat, copyErr)
		}
	}
	return nil
}
