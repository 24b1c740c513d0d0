// Package mcp exposes the scoring service as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/clinical-scoring-engine/internal/history"
	"github.com/clinical-scoring-engine/internal/service"
)

// Options configures a Server.
type Options struct {
	Name    string
	Version string
	// PersistByDefault saves compute_score runs unless the call sets persist=false.
	PersistByDefault bool
	// History enables export_history and import_history when set.
	History   history.Store
	ExportDir string
}

// Server is the MCP front end of a ScoringService.
type Server struct {
	mcpServer *mcp.Server
	scoring   *service.ScoringService
	logger    *logrus.Logger
	opts      Options
}

// NewServer creates an MCP server and registers the scoring tools.
func NewServer(scoring *service.ScoringService, logger *logrus.Logger, opts Options) (*Server, error) {
	if scoring == nil {
		return nil, fmt.Errorf("scoring service is required")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.Name == "" {
		opts.Name = "clinical-scoring-engine"
	}
	if opts.Version == "" {
		opts.Version = "v1.0.0"
	}

	serverInfo := &mcp.Implementation{
		Name:    opts.Name,
		Version: opts.Version,
	}

	server := &Server{
		mcpServer: mcp.NewServer(serverInfo, nil),
		scoring:   scoring,
		logger:    logger,
		opts:      opts,
	}

	tools := server.registerTools()
	resources := server.registerResources()
	prompts := server.registerPrompts()
	logger.WithFields(logrus.Fields{
		"tool_count":      tools,
		"resource_count":  resources,
		"prompt_count":    prompts,
		"history_enabled": scoring.HistoryEnabled(),
	}).Info("Successfully registered all tools")

	return server, nil
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// Run serves the tools over transport until ctx is cancelled or the peer
// disconnects.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	if err := s.mcpServer.Run(ctx, transport); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Start serves over stdin/stdout.
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("transport_type", "stdio").Info("Starting MCP server")
	return s.Run(ctx, &mcp.StdioTransport{})
}
