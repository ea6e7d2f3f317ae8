// Package tools exposes the memory operations as MCP tools.
package tools

import (
	"context"
	"io"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/flood-ai/flood-memory/internal/server/service"
)

// Server identity reported in the initialize handshake.
const (
	ServerName    = "flood-memory"
	ServerVersion = "0.1.0"
)

// NewServer creates the MCP server with every memory tool registered.
func NewServer(svc *service.Service, logger *zap.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	for _, tool := range All(svc, logger) {
		s.AddTool(tool.Definition(), tool.Handle)
	}
	return s
}

// ServeStdio runs the newline-delimited JSON-RPC transport until ctx is
// cancelled or in reaches EOF.
func ServeStdio(ctx context.Context, s *server.MCPServer, logger *zap.Logger, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s)
	stdio.SetErrorLogger(zap.NewStdLog(logger))
	return stdio.Listen(ctx, in, out)
}

// NewHTTPHandler returns the streamable HTTP transport. It is stateless:
// no session id is issued and every POST is served on its own.
func NewHTTPHandler(s *server.MCPServer) *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(s,
		server.WithStateLess(true),
		server.WithEndpointPath("/mcp"),
	)
}
