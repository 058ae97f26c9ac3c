package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/vaultctx/internal/catalog"
	"github.com/temirov/vaultctx/internal/vault"
)

const (
	pathUse              = "path <kind> <name>"
	pathShortDescription = "print where a model of the given kind belongs"
	pathLongDescription  = `Resolve the project-relative path of a generated model.
Kinds: staging (stg), hub, satellite (sat), effectivity_satellite (eff_sat), link (lnk), pit, mart.`
	pathUsageExample = `  # Hub for the jira concept
  vaultctx path hub issue --concept jira

  # Mart in a subdirectory, copied to the clipboard
  vaultctx path mart backlog --subdir delivery --copy`

	conceptsUse              = "concepts"
	conceptsShortDescription = "list raw vault concepts present in the project"

	sourceUse                 = "source"
	sourceShortDescription    = "edit the staging source catalog"
	sourceAddUse              = "add <source> <table>"
	sourceAddShortDescription = "register a data lake table in the staging source catalog"
	sourceAddUsageExample     = `  # Register the issues parquet export
  vaultctx source add jira issues --location s3://lake/jira/sql/issues.parquet`

	modelUse                 = "model"
	modelShortDescription    = "file generated models into the project"
	modelAddUse              = "add <kind> <name>"
	modelAddShortDescription = "record a model in its schema catalog and optionally write its SQL"
	modelAddUsageExample     = `  # Record a hub and write its SQL from a generated file
  vaultctx model add hub issue --concept jira --sql ./generated/hub_issue.sql --description "Issue business keys"`

	conceptFlagName          = "concept"
	conceptFlagDescription   = "raw vault concept; defaults to the configured concept"
	subdirFlagName           = "subdir"
	subdirFlagDescription    = "subdirectory below the kind directory"
	locationFlagName         = "location"
	locationFlagDescription  = "external location of the table in the data lake"
	fileFormatFlagName       = "file-format"
	fileFormatFlagDesc       = "external file format"
	defaultExternalFormat    = "parquet"
	descriptionFlagName      = "description"
	descriptionFlagDesc      = "description stored in the catalog"
	sqlFlagName              = "sql"
	sqlFlagDescription       = "file holding the model SQL to write at the resolved path"
	forceFlagName            = "force"
	forceFlagDescription     = "overwrite an existing model file"
	externalFormatOptionName = "format"
)

type entityOptions struct {
	concept      string
	subdirectory string
}

func addEntityFlags(command *cobra.Command, options *entityOptions) {
	command.Flags().StringVar(&options.concept, conceptFlagName, "", conceptFlagDescription)
	command.Flags().StringVar(&options.subdirectory, subdirFlagName, "", subdirFlagDescription)
}

func (options entityOptions) entity(kindValue string, name string) (vault.Entity, error) {
	kind, kindErr := vault.ParseKind(kindValue)
	if kindErr != nil {
		return vault.Entity{}, kindErr
	}
	return vault.Entity{Kind: kind, Name: name, Concept: options.concept, Subdirectory: options.subdirectory}, nil
}

func createPathCommand(state *rootState) *cobra.Command {
	var options entityOptions
	pathCommand := &cobra.Command{
		Use:     pathUse,
		Short:   pathShortDescription,
		Long:    pathLongDescription,
		Example: pathUsageExample,
		Args:    cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, arguments []string) error {
			app, loadErr := state.load()
			if loadErr != nil {
				return loadErr
			}
			entity, entityErr := options.entity(arguments[0], arguments[1])
			if entityErr != nil {
				return entityErr
			}
			resolvedPath, resolveErr := app.workspace.Layout().Resolve(entity)
			if resolveErr != nil {
				return resolveErr
			}
			return state.emit(command, resolvedPath)
		},
	}
	addEntityFlags(pathCommand, &options)
	return pathCommand
}

func createConceptsCommand(state *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   conceptsUse,
		Short: conceptsShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			app, loadErr := state.load()
			if loadErr != nil {
				return loadErr
			}
			concepts, listErr := app.workspace.Concepts()
			if listErr != nil {
				return listErr
			}
			return state.emit(command, concepts...)
		},
	}
}

func createSourceCommand(state *rootState) *cobra.Command {
	sourceCommand := &cobra.Command{
		Use:   sourceUse,
		Short: sourceShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	var location string
	var externalFormat string
	var description string
	addCommand := &cobra.Command{
		Use:     sourceAddUse,
		Short:   sourceAddShortDescription,
		Example: sourceAddUsageExample,
		Args:    cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, arguments []string) error {
			if strings.TrimSpace(location) == "" {
				return fmt.Errorf("--%s is required", locationFlagName)
			}
			app, loadErr := state.load()
			if loadErr != nil {
				return loadErr
			}
			table := catalog.Table{
				Name:        strings.TrimSpace(arguments[1]),
				Description: description,
				External: &catalog.External{
					Location: strings.TrimSpace(location),
					Options:  map[string]any{externalFormatOptionName: externalFormat},
				},
			}
			sourcesFile := app.workspace.Layout().SourcesFile()
			if _, appendErr := app.catalogs.AppendTable(sourcesFile, strings.TrimSpace(arguments[0]), table); appendErr != nil {
				return appendErr
			}
			app.logger.Info("source table recorded", zap.String("source", arguments[0]), zap.String("table", table.Name), zap.String("catalog", sourcesFile))
			return state.emit(command, sourcesFile)
		},
	}
	addCommand.Flags().StringVar(&location, locationFlagName, "", locationFlagDescription)
	addCommand.Flags().StringVar(&externalFormat, fileFormatFlagName, defaultExternalFormat, fileFormatFlagDesc)
	addCommand.Flags().StringVar(&description, descriptionFlagName, "", descriptionFlagDesc)
	sourceCommand.AddCommand(addCommand)
	return sourceCommand
}

func createModelCommand(state *rootState) *cobra.Command {
	modelCommand := &cobra.Command{
		Use:   modelUse,
		Short: modelShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	var options entityOptions
	var description string
	var sqlPath string
	var force bool
	addCommand := &cobra.Command{
		Use:     modelAddUse,
		Short:   modelAddShortDescription,
		Example: modelAddUsageExample,
		Args:    cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, arguments []string) error {
			app, loadErr := state.load()
			if loadErr != nil {
				return loadErr
			}
			entity, entityErr := options.entity(arguments[0], arguments[1])
			if entityErr != nil {
				return entityErr
			}
			modelPath, resolveErr := app.workspace.Layout().Resolve(entity)
			if resolveErr != nil {
				return resolveErr
			}
			schemaFile, schemaErr := app.workspace.Layout().SchemaFile(entity.Kind, entity.Concept)
			if schemaErr != nil {
				return schemaErr
			}

			written := []string{}
			if strings.TrimSpace(sqlPath) != "" {
				content, readErr := os.ReadFile(sqlPath)
				if readErr != nil {
					return fmt.Errorf("read model SQL %s: %w", sqlPath, readErr)
				}
				artifactPath, writeErr := app.workspace.WriteArtifact(entity, content, force)
				if writeErr != nil {
					if errors.Is(writeErr, vault.ErrArtifactExists) {
						return fmt.Errorf("%w; use --%s to overwrite", writeErr, forceFlagName)
					}
					return writeErr
				}
				written = append(written, artifactPath)
			}

			model := catalog.Model{Name: vault.ModelName(modelPath), Description: description}
			if _, appendErr := app.catalogs.AppendModel(schemaFile, model); appendErr != nil {
				return appendErr
			}
			written = append(written, schemaFile)
			app.logger.Info("model recorded", zap.String("model", model.Name), zap.String("catalog", schemaFile))
			return state.emit(command, written...)
		},
	}
	addEntityFlags(addCommand, &options)
	addCommand.Flags().StringVar(&description, descriptionFlagName, "", descriptionFlagDesc)
	addCommand.Flags().StringVar(&sqlPath, sqlFlagName, "", sqlFlagDescription)
	registerBooleanFlag(addCommand.Flags(), &force, forceFlagName, false, forceFlagDescription)
	modelCommand.AddCommand(addCommand)
	return modelCommand
}
