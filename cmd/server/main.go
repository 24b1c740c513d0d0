package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/clinical-scoring-engine/internal/api"
	"github.com/clinical-scoring-engine/internal/app"
	"github.com/clinical-scoring-engine/internal/config"
)

func main() {
	configFile := flag.String("config", "", "path to a config file (defaults to config.yaml lookup)")
	flag.Parse()

	// Load configuration
	var (
		configManager *config.Manager
		err           error
	)
	if *configFile != "" {
		configManager, err = config.NewManagerWithFile(*configFile)
	} else {
		configManager, err = config.NewManager()
	}
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		logrus.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := config.NewLogger(cfg.Logging)

	logger.WithFields(logrus.Fields{
		"host":        cfg.Server.Host,
		"port":        cfg.Server.Port,
		"environment": cfg.Environment,
	}).Info("Starting clinical scoring engine")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := app.Build(ctx, cfg, app.DriverPool, prometheus.DefaultRegisterer, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize scoring service")
	}
	defer components.Close()

	server := api.NewServer(configManager, components.Scoring, logger, components.Metrics)

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		components.Close()
		os.Exit(1)
	}

	logger.Info("Clinical scoring engine stopped")
}
