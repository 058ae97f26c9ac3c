package agent_test

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/temirov/vaultctx/internal/runner"
	"github.com/temirov/vaultctx/internal/services/agent"
	"github.com/temirov/vaultctx/internal/tools"
	"github.com/temirov/vaultctx/internal/vault"
)

const (
	listingStdout     = "12:00:00  Running with dbt=1.8.0\n12:00:01  jira/sql/issues.parquet\n12:00:01  jira/sql/comments.parquet\n"
	initializeMessage = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0.0"}}}`
)

type toolCallResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

func newTestServer(t *testing.T, runnerFunc runner.RunnerFunc) *agent.Server {
	t.Helper()
	filesystem := afero.NewMemMapFs()
	for _, directory := range []string{"models/raw_vault/jira", "models/raw_vault/crm"} {
		if err := filesystem.MkdirAll(directory, 0o755); err != nil {
			t.Fatalf("seed concept %s: %v", directory, err)
		}
	}
	workspace := vault.NewWorkspaceOnFilesystem(filesystem, vault.NewLayout("jira"))
	agentServer := agent.NewServer(agent.Config{
		Version:   "test",
		Facade:    tools.NewFacade(tools.Config{Runner: runnerFunc}),
		Workspace: workspace,
	})
	response := agentServer.MCPServer().HandleMessage(context.Background(), json.RawMessage(initializeMessage))
	if response == nil {
		t.Fatalf("initialize returned no response")
	}
	return agentServer
}

func rpc(t *testing.T, agentServer *agent.Server, identifier int, method string, params any) map[string]json.RawMessage {
	t.Helper()
	encodedParams, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("encode params: %v", err)
	}
	message := fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"method":%q,"params":%s}`, identifier, method, encodedParams)
	response := agentServer.MCPServer().HandleMessage(context.Background(), json.RawMessage(message))
	encodedResponse, err := json.Marshal(response)
	if err != nil {
		t.Fatalf("encode response: %v", err)
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(encodedResponse, &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if rawError, hasError := envelope["error"]; hasError {
		t.Fatalf("%s returned error: %s", method, rawError)
	}
	return envelope
}

func callTool(t *testing.T, agentServer *agent.Server, name string, arguments map[string]any) toolCallResult {
	t.Helper()
	envelope := rpc(t, agentServer, 3, "tools/call", map[string]any{"name": name, "arguments": arguments})
	var result toolCallResult
	if err := json.Unmarshal(envelope["result"], &result); err != nil {
		t.Fatalf("decode tool result: %v", err)
	}
	if len(result.Content) != 1 || result.Content[0].Type != "text" {
		t.Fatalf("expected one text content, got %+v", result.Content)
	}
	return result
}

func TestServerListsTools(t *testing.T) {
	agentServer := newTestServer(t, func(ctx context.Context, operation string, arguments map[string]any) runner.Result {
		return runner.Success("", "")
	})
	envelope := rpc(t, agentServer, 2, "tools/list", map[string]any{})
	var listing struct {
		Tools []struct {
			Name        string `json:"name"`
			InputSchema struct {
				Properties map[string]map[string]any `json:"properties"`
				Required   []string                  `json:"required"`
			} `json:"inputSchema"`
		} `json:"tools"`
	}
	if err := json.Unmarshal(envelope["result"], &listing); err != nil {
		t.Fatalf("decode tools: %v", err)
	}

	expectedRequired := map[string][]string{
		tools.ListParquetFilesToolName:   {"folder_path"},
		tools.GetParquetSchemaToolName:   {"folder_path", "file_name"},
		tools.PreviewParquetFileToolName: {"folder_path", "file_name"},
		agent.ToolResolveModelPath:       {"kind", "name"},
		agent.ToolListConcepts:           nil,
	}
	if len(listing.Tools) != len(expectedRequired) {
		t.Fatalf("expected %d tools, got %d", len(expectedRequired), len(listing.Tools))
	}
	for _, listedTool := range listing.Tools {
		required, known := expectedRequired[listedTool.Name]
		if !known {
			t.Fatalf("unexpected tool %s", listedTool.Name)
		}
		if strings.Join(listedTool.InputSchema.Required, ",") != strings.Join(required, ",") {
			t.Fatalf("tool %s required %v, want %v", listedTool.Name, listedTool.InputSchema.Required, required)
		}
		if listedTool.Name == tools.PreviewParquetFileToolName {
			limit := listedTool.InputSchema.Properties["limit"]
			if limit["type"] != "number" || limit["maximum"] != float64(tools.MaximumPreviewLimit) {
				t.Fatalf("unexpected limit schema %v", limit)
			}
		}
	}
}

func TestServerDelegatesFacadeTools(t *testing.T) {
	var receivedOperation string
	var receivedArguments map[string]any
	agentServer := newTestServer(t, func(ctx context.Context, operation string, arguments map[string]any) runner.Result {
		receivedOperation = operation
		receivedArguments = arguments
		if operation == "preview_parquet_file" {
			return runner.NonZeroExit(1, "", "Error: connection refused")
		}
		return runner.Success(listingStdout, "")
	})

	listed := callTool(t, agentServer, tools.ListParquetFilesToolName, map[string]any{"folder_path": "jira/sql"})
	if listed.IsError {
		t.Fatalf("unexpected error result: %+v", listed)
	}
	if listed.Content[0].Text != "jira/sql/issues.parquet\njira/sql/comments.parquet" {
		t.Fatalf("unexpected payload %q", listed.Content[0].Text)
	}
	if receivedOperation != "list_parquet_files" || receivedArguments["folder_path"] != "jira/sql" {
		t.Fatalf("unexpected delegation %s %v", receivedOperation, receivedArguments)
	}

	previewed := callTool(t, agentServer, tools.PreviewParquetFileToolName, map[string]any{"folder_path": "jira/sql", "file_name": "issues.parquet", "limit": 500})
	if !previewed.IsError {
		t.Fatalf("expected error result")
	}
	if !strings.Contains(previewed.Content[0].Text, "1") || !strings.Contains(previewed.Content[0].Text, "connection refused") {
		t.Fatalf("unexpected failure text %q", previewed.Content[0].Text)
	}
	if receivedArguments["limit"] != tools.MaximumPreviewLimit {
		t.Fatalf("expected clamped limit, got %v", receivedArguments["limit"])
	}
}

func TestServerRejectsMissingArgumentsWithoutDelegating(t *testing.T) {
	invocations := 0
	agentServer := newTestServer(t, func(ctx context.Context, operation string, arguments map[string]any) runner.Result {
		invocations++
		return runner.Success("", "")
	})
	result := callTool(t, agentServer, tools.GetParquetSchemaToolName, map[string]any{"folder_path": "jira/sql"})
	if !result.IsError || !strings.Contains(result.Content[0].Text, "file_name") {
		t.Fatalf("expected validation failure, got %+v", result)
	}
	if invocations != 0 {
		t.Fatalf("runner must not be called, got %d invocations", invocations)
	}
}

func TestServerLayoutTools(t *testing.T) {
	agentServer := newTestServer(t, func(ctx context.Context, operation string, arguments map[string]any) runner.Result {
		return runner.Success("", "")
	})

	testCases := []struct {
		name          string
		tool          string
		arguments     map[string]any
		expectError   bool
		expectedText  string
		errorFragment string
	}{
		{name: "hub uses default concept", tool: agent.ToolResolveModelPath, arguments: map[string]any{"kind": "hub", "name": "Issue"}, expectedText: "models/raw_vault/jira/hubs/hub_issue.sql"},
		{name: "satellite alias with concept", tool: agent.ToolResolveModelPath, arguments: map[string]any{"kind": "sat", "name": "issue_details", "concept": "crm"}, expectedText: "models/raw_vault/crm/satellites/sat_issue_details.sql"},
		{name: "mart subdirectory", tool: agent.ToolResolveModelPath, arguments: map[string]any{"kind": "mart", "name": "backlog", "subdirectory": "delivery"}, expectedText: "models/marts/delivery/mart_backlog.sql"},
		{name: "unknown kind", tool: agent.ToolResolveModelPath, arguments: map[string]any{"kind": "bridge", "name": "x"}, expectError: true, errorFragment: "bridge"},
		{name: "missing kind", tool: agent.ToolResolveModelPath, arguments: map[string]any{"name": "x"}, expectError: true, errorFragment: "kind"},
		{name: "traversal", tool: agent.ToolResolveModelPath, arguments: map[string]any{"kind": "hub", "name": "../x"}, expectError: true, errorFragment: "single path segment"},
		{name: "concepts", tool: agent.ToolListConcepts, arguments: map[string]any{}, expectedText: "crm\njira"},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			result := callTool(t, agentServer, testCase.tool, testCase.arguments)
			if result.IsError != testCase.expectError {
				t.Fatalf("expected error=%t, got %+v", testCase.expectError, result)
			}
			if testCase.expectError {
				if !strings.Contains(result.Content[0].Text, testCase.errorFragment) {
					t.Fatalf("expected %q in %q", testCase.errorFragment, result.Content[0].Text)
				}
				return
			}
			if result.Content[0].Text != testCase.expectedText {
				t.Fatalf("expected %q, got %q", testCase.expectedText, result.Content[0].Text)
			}
		})
	}
}
