package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/server"

	"github.com/nerrad567/stagelink-core/internal/bridges/mixer"
	"github.com/nerrad567/stagelink-core/internal/infrastructure/logging"
	"github.com/nerrad567/stagelink-core/internal/journal"
)

// serverName identifies this tool provider to MCP clients.
const serverName = "stagelink-core"

// ConsoleController manages the console connection lifecycle. *mixer.Bridge
// satisfies this interface.
type ConsoleController interface {
	ConnectConsole(ctx context.Context, overrides mixer.ConnectionConfig) error
	DisconnectConsole() error
	ConnectionDefaults() mixer.ConnectionConfig
}

// Deps carries the dependencies for the MCP server.
type Deps struct {
	Logger     *logging.Logger
	Console    mixer.Console
	Controller ConsoleController
	Journal    journal.Repository // optional, journal_recent reports unavailable when nil
	Version    string
}

// Server serves console control tools over MCP stdio.
type Server struct {
	logger     *logging.Logger
	console    mixer.Console
	client     *mixer.ParameterClient
	controller ConsoleController
	journal    journal.Repository
	mcpServer  *server.MCPServer
}

// New creates an MCP server with all tools registered. It does not start
// serving; call Serve to bind stdio.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Console == nil {
		return nil, fmt.Errorf("console is required")
	}
	if deps.Controller == nil {
		return nil, fmt.Errorf("controller is required")
	}

	s := &Server{
		logger:     deps.Logger,
		console:    deps.Console,
		client:     mixer.NewParameterClient(deps.Console),
		controller: deps.Controller,
		journal:    deps.Journal,
		mcpServer:  server.NewMCPServer(serverName, deps.Version),
	}
	s.registerTools()

	return s, nil
}

// Serve binds the MCP server to stdin/stdout and blocks until the client
// disconnects or stdin closes.
func (s *Server) Serve() error {
	s.logger.Info("MCP stdio server started")
	defer s.logger.Info("MCP stdio server stopped")
	return server.ServeStdio(s.mcpServer)
}
