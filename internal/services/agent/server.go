// Package agent serves vaultctx tools to LLM agents over the Model Context
// Protocol on stdio.
package agent

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/temirov/vaultctx/internal/tools"
	"github.com/temirov/vaultctx/internal/vault"
)

const (
	serverName = "vaultctx"

	ToolResolveModelPath = "resolve_model_path"
	ToolListConcepts     = "list_concepts"

	argumentKind         = "kind"
	argumentName         = "name"
	argumentConcept      = "concept"
	argumentSubdirectory = "subdirectory"

	serverInstructions = "Inspect the data lake with list_parquet_files, get_parquet_schema and preview_parquet_file. " +
		"Use resolve_model_path to find where a generated model belongs and list_concepts to see existing raw vault concepts."
)

// Config wires the agent server to its collaborators.
type Config struct {
	Version   string
	Facade    *tools.Facade
	Workspace vault.Workspace
	Logger    *zap.Logger
}

// Server registers the facade tools and the project layout tools on an MCP server.
type Server struct {
	facade    *tools.Facade
	workspace vault.Workspace
	logger    *zap.Logger
	mcpServer *server.MCPServer
}

// NewServer builds the MCP server and registers every tool.
func NewServer(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	agentServer := &Server{
		facade:    config.Facade,
		workspace: config.Workspace,
		logger:    logger,
		mcpServer: server.NewMCPServer(
			serverName,
			config.Version,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
			server.WithInstructions(serverInstructions),
		),
	}
	for _, tool := range config.Facade.Tools() {
		agentServer.mcpServer.AddTool(toolDefinition(tool), agentServer.facadeHandler(tool.Name))
	}
	agentServer.mcpServer.AddTool(resolveModelPathDefinition(), agentServer.handleResolveModelPath)
	agentServer.mcpServer.AddTool(listConceptsDefinition(), agentServer.handleListConcepts)
	return agentServer
}

// MCPServer exposes the underlying protocol server.
func (agentServer *Server) MCPServer() *server.MCPServer {
	return agentServer.mcpServer
}

// Serve speaks the protocol over input and output until ctx is canceled or input closes.
func (agentServer *Server) Serve(ctx context.Context, input io.Reader, output io.Writer) error {
	stdioServer := server.NewStdioServer(agentServer.mcpServer)
	stdioServer.SetErrorLogger(zap.NewStdLog(agentServer.logger))
	agentServer.logger.Info("serving tools on stdio", zap.Int("tools", len(agentServer.facade.Tools())+2))
	if err := stdioServer.Listen(ctx, input, output); err != nil && ctx.Err() == nil {
		return fmt.Errorf("serve stdio: %w", err)
	}
	return nil
}

func toolDefinition(tool tools.Tool) mcp.Tool {
	options := []mcp.ToolOption{mcp.WithDescription(tool.Description)}
	for _, parameter := range tool.Parameters {
		propertyOptions := []mcp.PropertyOption{mcp.Description(parameter.Description)}
		if parameter.Required {
			propertyOptions = append(propertyOptions, mcp.Required())
		}
		switch parameter.Type {
		case tools.ParameterTypeInteger:
			if parameter.Bounds != nil {
				propertyOptions = append(propertyOptions,
					mcp.DefaultNumber(float64(parameter.Bounds.Default)),
					mcp.Min(float64(parameter.Bounds.Minimum)),
					mcp.Max(float64(parameter.Bounds.Maximum)),
				)
			}
			options = append(options, mcp.WithNumber(parameter.Name, propertyOptions...))
		default:
			options = append(options, mcp.WithString(parameter.Name, propertyOptions...))
		}
	}
	return mcp.NewTool(tool.Name, options...)
}

func (agentServer *Server) facadeHandler(toolName string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		outcome := agentServer.facade.Invoke(ctx, toolName, request.GetArguments())
		if outcome.IsError() {
			return mcp.NewToolResultError(outcome.Text()), nil
		}
		return mcp.NewToolResultText(outcome.Text()), nil
	}
}

func resolveModelPathDefinition() mcp.Tool {
	kindNames := make([]string, 0, len(vault.Kinds()))
	for _, kind := range vault.Kinds() {
		kindNames = append(kindNames, string(kind))
	}
	return mcp.NewTool(ToolResolveModelPath,
		mcp.WithDescription("Return the project-relative path where a generated model of the given kind belongs."),
		mcp.WithString(argumentKind,
			mcp.Required(),
			mcp.Description("Artifact kind: "+strings.Join(kindNames, ", ")),
		),
		mcp.WithString(argumentName,
			mcp.Required(),
			mcp.Description("Entity name without the kind prefix, for example issue"),
		),
		mcp.WithString(argumentConcept,
			mcp.Description("Raw vault concept; defaults to the configured concept"),
		),
		mcp.WithString(argumentSubdirectory,
			mcp.Description("Optional subdirectory below the kind directory"),
		),
	)
}

func (agentServer *Server) handleResolveModelPath(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	arguments := request.GetArguments()
	kindValue := stringArgument(arguments, argumentKind)
	if kindValue == "" {
		return mcp.NewToolResultError(fmt.Sprintf("Error: missing required argument '%s' for tool '%s'", argumentKind, ToolResolveModelPath)), nil
	}
	kind, kindErr := vault.ParseKind(kindValue)
	if kindErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error: %v", kindErr)), nil
	}
	entity := vault.Entity{
		Kind:         kind,
		Name:         stringArgument(arguments, argumentName),
		Concept:      stringArgument(arguments, argumentConcept),
		Subdirectory: stringArgument(arguments, argumentSubdirectory),
	}
	resolvedPath, resolveErr := agentServer.workspace.Layout().Resolve(entity)
	if resolveErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error: %v", resolveErr)), nil
	}
	return mcp.NewToolResultText(resolvedPath), nil
}

func listConceptsDefinition() mcp.Tool {
	return mcp.NewTool(ToolListConcepts,
		mcp.WithDescription("List the raw vault concepts that already exist in the project, one per line."),
	)
}

func (agentServer *Server) handleListConcepts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	concepts, listErr := agentServer.workspace.Concepts()
	if listErr != nil {
		agentServer.logger.Warn("list concepts failed", zap.Error(listErr))
		return mcp.NewToolResultError(fmt.Sprintf("Error: %v", listErr)), nil
	}
	return mcp.NewToolResultText(strings.Join(concepts, "\n")), nil
}

func stringArgument(arguments map[string]any, name string) string {
	value, isString := arguments[name].(string)
	if !isString {
		return ""
	}
	return strings.TrimSpace(value)
}
