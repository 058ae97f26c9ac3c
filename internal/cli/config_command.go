package cli

import (
	"github.com/spf13/cobra"

	"github.com/temirov/vaultctx/internal/config"
)

const (
	configUse                  = "config"
	configShortDescription     = "manage vaultctx configuration"
	configInitUse              = "init"
	configInitShortDescription = "write the default configuration file"
	configInitUsageExample     = `  # Create vaultctx.yaml in the current directory
  vaultctx config init

  # Replace the global configuration
  vaultctx config init --global --force`

	globalFlagName           = "global"
	globalFlagDescription    = "write to the global configuration directory instead of the working directory"
	forceInitFlagDescription = "overwrite an existing configuration file"
)

func createConfigCommand(state *rootState) *cobra.Command {
	configCommand := &cobra.Command{
		Use:   configUse,
		Short: configShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	var global bool
	var force bool
	initCommand := &cobra.Command{
		Use:     configInitUse,
		Short:   configInitShortDescription,
		Example: configInitUsageExample,
		Args:    cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			destination, initErr := config.InitializeConfiguration(config.InitOptions{
				Target:           target,
				Force:            force,
				WorkingDirectory: state.dependencies.WorkingDirectory,
				HomeDirectory:    state.dependencies.HomeDirectory,
			})
			if initErr != nil {
				return initErr
			}
			return state.emit(command, destination)
		},
	}
	registerBooleanFlag(initCommand.Flags(), &global, globalFlagName, false, globalFlagDescription)
	registerBooleanFlag(initCommand.Flags(), &force, forceFlagName, false, forceInitFlagDescription)
	configCommand.AddCommand(initCommand)
	return configCommand
}
