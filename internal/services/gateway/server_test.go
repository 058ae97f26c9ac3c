package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/temirov/vaultctx/internal/services/gateway"
)

func TestServerRunExposesCapabilities(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		config       gateway.Config
		expectedCaps []gateway.Capability
	}{
		{
			name: "single capability",
			config: gateway.Config{
				Capabilities: []gateway.Capability{
					{Name: "list_parquet_files", Description: "List parquet files", InputSchema: map[string]any{"type": "object"}},
				},
				Address: "127.0.0.1:0",
			},
			expectedCaps: []gateway.Capability{{Name: "list_parquet_files", Description: "List parquet files"}},
		},
		{
			name: "multiple capabilities",
			config: gateway.Config{
				Capabilities: []gateway.Capability{
					{Name: "get_parquet_schema", Description: "Describe a parquet file"},
					{Name: "preview_parquet_file", Description: "Preview rows"},
				},
			},
			expectedCaps: []gateway.Capability{
				{Name: "get_parquet_schema", Description: "Describe a parquet file"},
				{Name: "preview_parquet_file", Description: "Preview rows"},
			},
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			server := gateway.NewServer(testCase.config)
			addressCh := make(chan string, 1)
			errorCh := make(chan error, 1)

			go func() {
				errorCh <- server.Run(ctx, func(address string) {
					addressCh <- address
				})
			}()

			select {
			case address := <-addressCh:
				client := http.Client{Timeout: 2 * time.Second}
				request, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+address+"/capabilities", nil)
				if err != nil {
					t.Fatalf("new request: %v", err)
				}
				response, err := client.Do(request)
				if err != nil {
					t.Fatalf("perform request: %v", err)
				}
				defer response.Body.Close()

				if response.StatusCode != http.StatusOK {
					t.Fatalf("unexpected status: %d", response.StatusCode)
				}

				var body struct {
					Capabilities []gateway.Capability `json:"capabilities"`
				}
				if err := json.NewDecoder(response.Body).Decode(&body); err != nil {
					t.Fatalf("decode response: %v", err)
				}

				if len(body.Capabilities) != len(testCase.expectedCaps) {
					t.Fatalf("expected %d capabilities, got %d", len(testCase.expectedCaps), len(body.Capabilities))
				}
				for index, capability := range body.Capabilities {
					expected := testCase.expectedCaps[index]
					if capability.Name != expected.Name || capability.Description != expected.Description {
						t.Fatalf("capability %d mismatch: got %+v, want %+v", index, capability, expected)
					}
					if (testCase.config.Capabilities[index].InputSchema == nil) != (capability.InputSchema == nil) {
						t.Fatalf("capability %d lost its input schema", index)
					}
				}
			case <-time.After(2 * time.Second):
				t.Fatalf("server did not start")
			}

			cancel()
			if err := <-errorCh; err != nil {
				t.Fatalf("server error: %v", err)
			}
		})
	}
}

func TestServerToolRouting(t *testing.T) {
	echoHandler := gateway.ToolHandlerFunc(func(ctx context.Context, request gateway.ToolRequest) (gateway.ToolResponse, error) {
		return gateway.ToolResponse{Output: string(request.Arguments), Format: "text", Kind: "ok"}, nil
	})
	rejectingHandler := gateway.ToolHandlerFunc(func(ctx context.Context, request gateway.ToolRequest) (gateway.ToolResponse, error) {
		return gateway.ToolResponse{}, gateway.Reject(http.StatusBadRequest, errors.New("folder_path is required"))
	})
	failingHandler := gateway.ToolHandlerFunc(func(ctx context.Context, request gateway.ToolRequest) (gateway.ToolResponse, error) {
		return gateway.ToolResponse{}, gateway.Fail(http.StatusBadGateway, gateway.ToolResponse{Output: "Error (exit code 1): boom", Format: "text", Kind: "non_zero_exit"})
	})
	plainErrorHandler := gateway.ToolHandlerFunc(func(ctx context.Context, request gateway.ToolRequest) (gateway.ToolResponse, error) {
		return gateway.ToolResponse{}, errors.New("unexpected")
	})

	server := gateway.NewServer(gateway.Config{Handlers: map[string]gateway.ToolHandler{
		"echo":   echoHandler,
		"reject": rejectingHandler,
		"fail":   failingHandler,
		"plain":  plainErrorHandler,
	}})
	handler := server.Handler()

	testCases := []struct {
		name           string
		method         string
		path           string
		body           string
		expectedStatus int
		expectedFields map[string]string
	}{
		{name: "success", method: http.MethodPost, path: "/commands/echo", body: `{"a":1}`, expectedStatus: http.StatusOK, expectedFields: map[string]string{"output": `{"a":1}`, "kind": "ok"}},
		{name: "validation", method: http.MethodPost, path: "/commands/reject", expectedStatus: http.StatusBadRequest, expectedFields: map[string]string{"error": "folder_path is required"}},
		{name: "structured failure", method: http.MethodPost, path: "/commands/fail", expectedStatus: http.StatusBadGateway, expectedFields: map[string]string{"kind": "non_zero_exit", "output": "Error (exit code 1): boom"}},
		{name: "untyped error", method: http.MethodPost, path: "/commands/plain", expectedStatus: http.StatusInternalServerError, expectedFields: map[string]string{"error": "unexpected"}},
		{name: "unknown command", method: http.MethodPost, path: "/commands/missing", expectedStatus: http.StatusNotFound, expectedFields: map[string]string{"error": "command not found"}},
		{name: "nested path", method: http.MethodPost, path: "/commands/echo/extra", expectedStatus: http.StatusNotFound},
		{name: "wrong method", method: http.MethodGet, path: "/commands/echo", expectedStatus: http.StatusMethodNotAllowed},
		{name: "root", method: http.MethodGet, path: "/", expectedStatus: http.StatusOK},
		{name: "unrouted path", method: http.MethodGet, path: "/tools", expectedStatus: http.StatusNotFound},
		{name: "empty tool name", method: http.MethodPost, path: "/commands/", expectedStatus: http.StatusNotFound},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			request := httptest.NewRequest(testCase.method, testCase.path, strings.NewReader(testCase.body))
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			if recorder.Code != testCase.expectedStatus {
				t.Fatalf("expected status %d, got %d (%s)", testCase.expectedStatus, recorder.Code, recorder.Body.String())
			}
			if len(testCase.expectedFields) == 0 {
				return
			}
			var decoded map[string]any
			if err := json.Unmarshal(recorder.Body.Bytes(), &decoded); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			for field, expected := range testCase.expectedFields {
				if decoded[field] != expected {
					t.Fatalf("expected %s=%q, got %v", field, expected, decoded[field])
				}
			}
		})
	}
}
