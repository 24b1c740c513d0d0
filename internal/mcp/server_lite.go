package mcp

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/clinical-scoring-engine/internal/cache"
	litecfg "github.com/clinical-scoring-engine/internal/config"
	"github.com/clinical-scoring-engine/internal/history"
	"github.com/clinical-scoring-engine/internal/registry"
	"github.com/clinical-scoring-engine/internal/service"
)

// LiteServer is a lightweight MCP server that requires no external databases.
// It uses an in-memory result cache and SQLite for history.
type LiteServer struct {
	*Server
	config *litecfg.LiteConfig
	store  history.Store
	cache  *cache.ResultCache
}

// LiteServerOption is a functional option for LiteServer.
type LiteServerOption func(*LiteServer) error

// WithHistoryStore sets a custom history store.
func WithHistoryStore(store history.Store) LiteServerOption {
	return func(s *LiteServer) error {
		s.store = store
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) LiteServerOption {
	return func(s *LiteServer) error {
		s.logger = logger
		return nil
	}
}

// NewLiteServer creates a new lightweight MCP server instance.
func NewLiteServer(cfg *litecfg.LiteConfig, opts ...LiteServerOption) (*LiteServer, error) {
	server := &LiteServer{
		Server: &Server{logger: litecfg.NewLogger(cfg.Logging())},
		config: cfg,
	}

	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	resultCache, err := cache.New(cache.Config{
		MemorySize: cfg.CacheMaxItems,
		DefaultTTL: cfg.CacheTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create result cache: %w", err)
	}
	server.cache = resultCache

	if server.store == nil {
		store, err := history.NewSQLiteStore(cfg.HistoryDBPath())
		if err != nil {
			return nil, fmt.Errorf("failed to create history store: %w", err)
		}
		server.store = store
	}

	reg, err := registry.NewDefault()
	if err != nil {
		server.store.Close()
		return nil, fmt.Errorf("failed to build calculator registry: %w", err)
	}

	scoring := service.NewScoringService(reg, server.logger, service.Options{
		Cache:    resultCache,
		CacheTTL: cfg.CacheTTL,
		Store:    server.store,
	})

	mcpServer, err := NewServer(scoring, server.logger, Options{
		Name:             "clinical-scoring-engine-lite",
		Version:          "v1.0.0",
		PersistByDefault: cfg.PersistResults,
		History:          server.store,
		ExportDir:        cfg.ExportDir(),
	})
	if err != nil {
		server.store.Close()
		return nil, err
	}
	server.Server = mcpServer

	server.logger.WithField("data_dir", cfg.DataDir).Info("Lite server initialized successfully")
	return server, nil
}

// Start serves over stdio.
func (s *LiteServer) Start(ctx context.Context) error {
	s.logger.Info("Starting clinical scoring MCP server (lite)")
	return s.Server.Start(ctx)
}

// Close cleans up server resources.
func (s *LiteServer) Close() error {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close history store")
			return err
		}
	}
	return nil
}

// HistoryStore returns the history store.
func (s *LiteServer) HistoryStore() history.Store {
	return s.store
}

// Cache returns the result cache.
func (s *LiteServer) Cache() *cache.ResultCache {
	return s.cache
}
