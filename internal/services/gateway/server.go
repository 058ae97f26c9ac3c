// Package gateway exposes vaultctx tools over a small HTTP API: capability
// discovery plus one POST endpoint per tool.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultListenAddress    = "127.0.0.1:0"
	defaultShutdownDuration = 5 * time.Second
	readHeaderTimeout       = 10 * time.Second
	maximumRequestBodyBytes = 1 << 20

	capabilitiesRoute = "GET /capabilities"
	healthRoute       = "GET /{$}"
	toolRoute         = "POST /commands/{tool}"
	toolPathValue     = "tool"

	headerContentType = "Content-Type"
	mimeTypeJSON      = "application/json"
	errorFieldName    = "error"
	errorToolNotFound = "command not found"
)

// Capability describes a tool exposed by the gateway together with the JSON
// schema of its argument object.
type Capability struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
}

// ToolRequest is one POST to a tool endpoint. Arguments holds the raw body.
type ToolRequest struct {
	Tool      string
	Arguments json.RawMessage
}

// ToolResponse is the body written for a tool call.
type ToolResponse struct {
	Output   string   `json:"output"`
	Format   string   `json:"format"`
	Kind     string   `json:"kind"`
	Warnings []string `json:"warnings,omitempty"`
}

// ToolHandler runs one tool call.
type ToolHandler interface {
	Handle(ctx context.Context, request ToolRequest) (ToolResponse, error)
}

// ToolHandlerFunc adapts a function into a ToolHandler.
type ToolHandlerFunc func(context.Context, ToolRequest) (ToolResponse, error)

// Handle calls handler.
func (handler ToolHandlerFunc) Handle(ctx context.Context, request ToolRequest) (ToolResponse, error) {
	return handler(ctx, request)
}

// StatusError carries the HTTP status of a failed tool call. When Body is set
// it is written instead of an {"error": ...} object.
type StatusError struct {
	Status int
	Err    error
	Body   *ToolResponse
}

func (statusError *StatusError) Error() string {
	return statusError.Err.Error()
}

func (statusError *StatusError) Unwrap() error {
	return statusError.Err
}

// Reject reports a request the handler refused to run.
func Reject(status int, err error) error {
	if err == nil {
		return nil
	}
	return &StatusError{Status: status, Err: err}
}

// Fail reports a tool call that ran and failed, keeping its structured body.
func Fail(status int, body ToolResponse) error {
	return &StatusError{Status: status, Err: errors.New(body.Output), Body: &body}
}

// Config defines runtime options for the gateway.
type Config struct {
	Address         string
	Capabilities    []Capability
	Handlers        map[string]ToolHandler
	ShutdownTimeout time.Duration
	Logger          *zap.Logger
}

// Server serves capability metadata and runs tools over HTTP.
type Server struct {
	config Config
	logger *zap.Logger
}

// NewServer creates a Server with defaults applied.
func NewServer(config Config) Server {
	if config.Address == "" {
		config.Address = defaultListenAddress
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = defaultShutdownDuration
	}
	if config.Capabilities == nil {
		config.Capabilities = []Capability{}
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return Server{config: config, logger: logger}
}

// Handler returns the routing handler without binding a listener.
func (server Server) Handler() http.Handler {
	router := http.NewServeMux()
	router.HandleFunc(capabilitiesRoute, server.serveCapabilities)
	router.HandleFunc(healthRoute, func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})
	router.HandleFunc(toolRoute, server.serveTool)
	return router
}

// Run binds the listener, reports the bound address through notify, and
// serves until ctx is canceled.
func (server Server) Run(ctx context.Context, notify func(string)) error {
	listener, listenErr := net.Listen("tcp", server.config.Address)
	if listenErr != nil {
		return fmt.Errorf("listen on %s: %w", server.config.Address, listenErr)
	}
	boundAddress := listener.Addr().String()
	server.logger.Info("gateway listening", zap.String("address", boundAddress))

	httpServer := &http.Server{Handler: server.Handler(), ReadHeaderTimeout: readHeaderTimeout}
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if serveErr := httpServer.Serve(listener); !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("serve gateway: %w", serveErr)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.config.ShutdownTimeout)
		defer cancel()
		if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
			return fmt.Errorf("shutdown gateway: %w", shutdownErr)
		}
		return nil
	})
	if notify != nil {
		notify(boundAddress)
	}
	return group.Wait()
}

func (server Server) serveCapabilities(writer http.ResponseWriter, request *http.Request) {
	server.writeJSON(writer, http.StatusOK, struct {
		Capabilities []Capability `json:"capabilities"`
	}{Capabilities: server.config.Capabilities})
}

func (server Server) serveTool(writer http.ResponseWriter, request *http.Request) {
	toolName := request.PathValue(toolPathValue)
	handler, found := server.config.Handlers[toolName]
	if !found {
		server.writeJSON(writer, http.StatusNotFound, map[string]string{errorFieldName: errorToolNotFound})
		return
	}
	body, readErr := io.ReadAll(http.MaxBytesReader(writer, request.Body, maximumRequestBodyBytes))
	if readErr != nil {
		server.writeJSON(writer, http.StatusRequestEntityTooLarge, map[string]string{errorFieldName: fmt.Sprintf("read request body: %v", readErr)})
		return
	}

	response, handleErr := handler.Handle(request.Context(), ToolRequest{Tool: toolName, Arguments: body})
	if handleErr == nil {
		server.writeJSON(writer, http.StatusOK, response)
		return
	}
	status := http.StatusInternalServerError
	var statusError *StatusError
	if errors.As(handleErr, &statusError) {
		status = statusError.Status
		if statusError.Body != nil {
			server.logger.Debug("tool failed", zap.String("tool", toolName), zap.Int("status", status), zap.String("kind", statusError.Body.Kind))
			server.writeJSON(writer, status, *statusError.Body)
			return
		}
	}
	server.logger.Debug("tool rejected", zap.String("tool", toolName), zap.Int("status", status), zap.Error(handleErr))
	server.writeJSON(writer, status, map[string]string{errorFieldName: handleErr.Error()})
}

func (server Server) writeJSON(writer http.ResponseWriter, status int, payload any) {
	encoded, encodeErr := json.Marshal(payload)
	if encodeErr != nil {
		server.logger.Error("encode gateway response", zap.Error(encodeErr))
		http.Error(writer, encodeErr.Error(), http.StatusInternalServerError)
		return
	}
	writer.Header().Set(headerContentType, mimeTypeJSON)
	writer.WriteHeader(status)
	_, _ = writer.Write(append(encoded, '\n'))
}
