// Package main provides the lightweight entry point of the clinical scoring
// MCP server. It needs no external services: results are cached in memory and
// history lives in a SQLite file under SCORING_DATA_DIR.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/clinical-scoring-engine/internal/config"
	"github.com/clinical-scoring-engine/internal/mcp"
)

func main() {
	cfg := config.LoadLiteConfig()
	logger := config.NewLogger(cfg.Logging())

	logger.WithField("data_dir", cfg.DataDir).Info("Starting clinical scoring MCP server (lite)")

	server, err := mcp.NewLiteServer(cfg, mcp.WithLogger(logger))
	if err != nil {
		logger.WithError(err).Fatal("Failed to create MCP server")
	}
	defer server.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Error("MCP server failed")
		server.Close()
		os.Exit(1)
	}

	logger.Info("Clinical scoring MCP server (lite) stopped")
}
