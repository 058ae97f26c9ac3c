package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/temirov/vaultctx/internal/services/gateway"
	"github.com/temirov/vaultctx/internal/tools"
)

const gatewayOutputFormat = "text"

func gatewayCapabilities(facade *tools.Facade) []gateway.Capability {
	publishedTools := facade.Tools()
	capabilities := make([]gateway.Capability, 0, len(publishedTools))
	for _, tool := range publishedTools {
		capabilities = append(capabilities, gateway.Capability{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema(),
		})
	}
	return capabilities
}

func gatewayHandlers(facade *tools.Facade) map[string]gateway.ToolHandler {
	handlers := map[string]gateway.ToolHandler{}
	for _, tool := range facade.Tools() {
		handlers[tool.Name] = gateway.ToolHandlerFunc(func(ctx context.Context, request gateway.ToolRequest) (gateway.ToolResponse, error) {
			return invokeFacadeTool(ctx, facade, request)
		})
	}
	return handlers
}

func invokeFacadeTool(ctx context.Context, facade *tools.Facade, request gateway.ToolRequest) (gateway.ToolResponse, error) {
	arguments := map[string]any{}
	if len(request.Arguments) > 0 {
		if err := json.Unmarshal(request.Arguments, &arguments); err != nil {
			return gateway.ToolResponse{}, gateway.Reject(http.StatusBadRequest, fmt.Errorf("decode %s request: %w", request.Tool, err))
		}
		if arguments == nil {
			return gateway.ToolResponse{}, gateway.Reject(http.StatusBadRequest, errors.New("request body must be a JSON object"))
		}
	}
	outcome := facade.Invoke(ctx, request.Tool, arguments)
	response := gateway.ToolResponse{
		Output: outcome.Text(),
		Format: gatewayOutputFormat,
		Kind:   string(outcome.Kind),
	}
	if outcome.IsError() {
		return gateway.ToolResponse{}, gateway.Fail(statusCodeForOutcome(outcome.Kind), response)
	}
	return response, nil
}

func statusCodeForOutcome(kind tools.OutcomeKind) int {
	switch kind {
	case tools.OutcomeKindValidation:
		return http.StatusBadRequest
	case tools.OutcomeKindUnknownTool:
		return http.StatusNotFound
	case tools.OutcomeKindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
