package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/temirov/vaultctx/internal/tools"
)

const (
	filesUse              = "files <folder>"
	filesShortDescription = "list parquet files in a data lake folder"
	filesUsageExample     = `  # List the files exported for jira
  vaultctx files jira/sql`

	schemaUse              = "schema <folder> <file>"
	schemaShortDescription = "describe a parquet file as a dbt source definition"
	schemaUsageExample     = `  # Render the source block for the issues export
  vaultctx schema jira/sql issues.parquet`

	previewUse              = "preview <folder> <file>"
	previewShortDescription = "preview rows of a parquet file"
	previewUsageExample     = `  # Show the first 25 rows
  vaultctx preview jira/sql issues.parquet --limit 25`

	limitFlagName        = "limit"
	limitFlagDescription = "number of rows to return"
)

// toolFailure carries a failed tool outcome out of a command. Its message is
// the agent-facing text so the shell sees the same diagnostics an agent would.
type toolFailure struct {
	outcome tools.Outcome
}

func (failure toolFailure) Error() string {
	return failure.outcome.Text()
}

func createFilesCommand(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:     filesUse,
		Short:   filesShortDescription,
		Example: filesUsageExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			return state.invokeTool(command, tools.ListParquetFilesToolName, map[string]any{
				tools.FolderPathParameter: arguments[0],
			})
		},
	}
}

func createSchemaCommand(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:     schemaUse,
		Short:   schemaShortDescription,
		Example: schemaUsageExample,
		Args:    cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, arguments []string) error {
			return state.invokeTool(command, tools.GetParquetSchemaToolName, map[string]any{
				tools.FolderPathParameter: arguments[0],
				tools.FileNameParameter:   arguments[1],
			})
		},
	}
}

func createPreviewCommand(state *rootState) *cobra.Command {
	var limit int
	previewCommand := &cobra.Command{
		Use:     previewUse,
		Short:   previewShortDescription,
		Example: previewUsageExample,
		Args:    cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, arguments []string) error {
			toolArguments := map[string]any{
				tools.FolderPathParameter: arguments[0],
				tools.FileNameParameter:   arguments[1],
			}
			if command.Flags().Changed(limitFlagName) {
				toolArguments[tools.LimitParameter] = limit
			}
			return state.invokeTool(command, tools.PreviewParquetFileToolName, toolArguments)
		},
	}
	previewCommand.Flags().IntVar(&limit, limitFlagName, tools.DefaultPreviewLimit, limitFlagDescription)
	return previewCommand
}

func (state *rootState) invokeTool(command *cobra.Command, toolName string, arguments map[string]any) error {
	app, loadErr := state.load()
	if loadErr != nil {
		return loadErr
	}
	outcome := app.facade.Invoke(command.Context(), toolName, arguments)
	if outcome.IsError() {
		return toolFailure{outcome: outcome}
	}
	return state.emit(command, outcome.Text())
}

// OutcomeOf extracts the tool outcome from an error returned by a command.
func OutcomeOf(err error) (tools.Outcome, bool) {
	var failure toolFailure
	if errors.As(err, &failure) {
		return failure.outcome, true
	}
	return tools.Outcome{}, false
}
