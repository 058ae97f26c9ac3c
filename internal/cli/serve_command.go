package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/temirov/vaultctx/internal/services/agent"
	"github.com/temirov/vaultctx/internal/services/gateway"
	"github.com/temirov/vaultctx/internal/utils"
)

const (
	serveUse              = "serve"
	serveShortDescription = "serve the tools to an agent runtime"
	serveLongDescription  = `Serve the data lake and project layout tools.
By default the Model Context Protocol is spoken on stdin and stdout. With --http a small
HTTP API is started instead: GET /capabilities and POST /commands/<tool>.`
	serveUsageExample = `  # Register with an MCP client
  vaultctx serve

  # Expose the tools over HTTP on a fixed port
  vaultctx serve --http --address 127.0.0.1:8765`

	httpFlagName               = "http"
	httpFlagDescription        = "serve the HTTP API instead of MCP stdio"
	addressFlagName            = "address"
	addressFlagDescription     = "listen address for the HTTP API; overrides the configured address"
	httpListeningMessageFormat = "HTTP server listening on %s\n"
)

func createServeCommand(state *rootState) *cobra.Command {
	var serveHTTP bool
	var address string
	serveCommand := &cobra.Command{
		Use:     serveUse,
		Short:   serveShortDescription,
		Long:    serveLongDescription,
		Example: serveUsageExample,
		Args:    cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			app, loadErr := state.load()
			if loadErr != nil {
				return loadErr
			}
			if serveHTTP {
				listenAddress := app.configuration.Server.Address
				if command.Flags().Changed(addressFlagName) {
					listenAddress = address
				}
				return startHTTPServer(command.Context(), app, listenAddress, command.ErrOrStderr())
			}
			agentServer := agent.NewServer(agent.Config{
				Version:   utils.GetApplicationVersion(),
				Facade:    app.facade,
				Workspace: app.workspace,
				Logger:    app.logger.Named("agent"),
			})
			return agentServer.Serve(command.Context(), command.InOrStdin(), command.OutOrStdout())
		},
	}
	registerBooleanFlag(serveCommand.Flags(), &serveHTTP, httpFlagName, false, httpFlagDescription)
	serveCommand.Flags().StringVar(&address, addressFlagName, "", addressFlagDescription)
	return serveCommand
}

// startHTTPServer blocks until ctx is canceled. The bound address is written
// to announce so callers can discover an ephemeral port.
func startHTTPServer(ctx context.Context, app *application, address string, announce io.Writer) error {
	server := gateway.NewServer(gateway.Config{
		Address:      address,
		Capabilities: gatewayCapabilities(app.facade),
		Handlers:     gatewayHandlers(app.facade),
		Logger:       app.logger.Named("gateway"),
	})
	return server.Run(ctx, func(boundAddress string) {
		fmt.Fprintf(announce, httpListeningMessageFormat, boundAddress)
	})
}
