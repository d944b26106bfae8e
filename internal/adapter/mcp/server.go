package mcp

import (
	"log/slog"

	"github.com/guillermoBallester/querytally/internal/core/port"
	"github.com/guillermoBallester/querytally/internal/core/service"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/trace"
)

// NewServer creates an MCPServer with tools and logging hooks. query may be
// nil, in which case only the status tools are registered.
func NewServer(version string, query *service.QueryService, status *service.StatusService, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithHooks(ToolCallHooks(logger, tracer, inst)),
	)

	RegisterTools(s, query, status, logger)

	return s
}
