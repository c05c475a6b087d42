// Package mcp exposes the adapter to MCP clients: directory inspection,
// diagnostics and directive dispatch as tools over stdio.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/server"
	"github.com/urmzd/homai-alexa/pkg/alexa"
	"github.com/urmzd/homai-alexa/pkg/device"
	"github.com/urmzd/homai-alexa/pkg/diag"
)

// Dispatcher handles one directive.
type Dispatcher interface {
	Handle(ctx context.Context, d alexa.Directive) *alexa.Response
}

// BrokerStatus reports broker connectivity.
type BrokerStatus interface {
	IsConnected() bool
}

// Server wraps the MCP server around the adapter's collaborators
type Server struct {
	mcpServer  *server.MCPServer
	directory  device.Directory
	dispatcher Dispatcher
	broker     BrokerStatus
	recorder   *diag.Recorder
}

// NewServer creates a new MCP server. broker and recorder may be nil.
func NewServer(directory device.Directory, dispatcher Dispatcher, broker BrokerStatus, recorder *diag.Recorder) *Server {
	s := &Server{
		directory:  directory,
		dispatcher: dispatcher,
		broker:     broker,
		recorder:   recorder,
	}

	s.mcpServer = server.NewMCPServer(
		"homai-alexa",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerTools()

	return s
}

// ServeStdio starts the MCP server using stdio transport
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}
