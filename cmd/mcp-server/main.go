package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/clinical-scoring-engine/internal/app"
	"github.com/clinical-scoring-engine/internal/config"
	"github.com/clinical-scoring-engine/internal/mcp"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		logrus.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()

	// stdout carries the protocol
	logging := cfg.Logging
	logging.Output = "stderr"
	logger := config.NewLogger(logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !cfg.MCP.EnableCaching {
		cfg.Cache.Enabled = false
	}

	components, err := app.Build(ctx, cfg, app.DriverSQL, prometheus.NewRegistry(), logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize scoring service")
	}
	defer components.Close()

	mcpServer, err := mcp.NewServer(components.Scoring, logger, mcp.Options{
		Name:             cfg.MCP.ServerName,
		Version:          cfg.MCP.ServerVersion,
		PersistByDefault: cfg.MCP.PersistResults,
		History:          components.Store,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create MCP server")
	}

	if err := mcpServer.Start(ctx); err != nil && ctx.Err() == nil {
		logger.WithError(err).Error("MCP server failed")
		components.Close()
		os.Exit(1)
	}

	logger.Info("Clinical scoring MCP server stopped")
}
