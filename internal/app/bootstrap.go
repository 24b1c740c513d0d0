// Package app assembles the scoring service from configuration. It is shared
// by the HTTP and MCP entry points.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/clinical-scoring-engine/internal/cache"
	"github.com/clinical-scoring-engine/internal/database"
	"github.com/clinical-scoring-engine/internal/domain"
	"github.com/clinical-scoring-engine/internal/history"
	"github.com/clinical-scoring-engine/internal/metrics"
	"github.com/clinical-scoring-engine/internal/registry"
	"github.com/clinical-scoring-engine/internal/repository"
	"github.com/clinical-scoring-engine/internal/service"
)

// Storage backends accepted by storage.backend.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendNone     = "none"
)

// Driver selects how the postgres backend talks to the database.
type Driver int

const (
	// DriverPool uses the pgx pool and the calculation repository.
	DriverPool Driver = iota
	// DriverSQL uses database/sql with lib/pq. It opens a single small pool
	// and suits the stdio MCP server.
	DriverSQL
)

// Components is a fully wired scoring service and the resources it holds.
type Components struct {
	Scoring *service.ScoringService
	Store   history.Store
	Cache   *cache.ResultCache
	Metrics *metrics.Metrics

	closers []func()
}

// Close releases every resource in reverse order of acquisition.
func (c *Components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func (c *Components) onClose(fn func()) {
	c.closers = append(c.closers, fn)
}

// Build wires the registry, cache, record store and metrics described by cfg.
// reg receives the Prometheus collectors when metrics are enabled.
func Build(ctx context.Context, cfg *domain.Config, driver Driver, reg prometheus.Registerer, logger *logrus.Logger) (*Components, error) {
	catalog, err := registry.NewDefault()
	if err != nil {
		return nil, fmt.Errorf("failed to build calculator registry: %w", err)
	}

	c := &Components{}
	if cfg.Metrics.Enabled {
		c.Metrics = metrics.New(reg)
	}

	opts := service.Options{
		CacheTTL:     cfg.Cache.DefaultTTL,
		Metrics:      c.Metrics,
		BatchLimit:   cfg.Server.BatchLimit,
		StoreTimeout: cfg.Storage.OperationTimeout,
	}

	if cfg.Cache.Enabled {
		c.Cache, err = openCache(ctx, cfg.Cache, logger)
		if err != nil {
			return nil, err
		}
		c.onClose(func() {
			if err := c.Cache.Close(); err != nil {
				logger.WithError(err).Warn("Failed to close result cache")
			}
		})
		opts.Cache = c.Cache
	}

	store, values, err := openStore(ctx, cfg, driver, logger, c)
	if err != nil {
		c.Close()
		return nil, err
	}
	if store != nil {
		c.Store = history.NewResilientStore(store, history.BreakerConfig{
			MaxFailures:      cfg.Storage.BreakerMaxFails,
			Timeout:          cfg.Storage.BreakerTimeout,
			HalfOpenRequests: cfg.Storage.BreakerHalfOpen,
		}, logger, c.Metrics)
		opts.Store = c.Store
		opts.Values = values
	}

	c.Scoring = service.NewScoringService(catalog, logger, opts)

	logger.WithFields(logrus.Fields{
		"calculators":     catalog.Len(),
		"storage_backend": cfg.Storage.Backend,
		"cache_enabled":   cfg.Cache.Enabled,
		"metrics_enabled": cfg.Metrics.Enabled,
	}).Info("Scoring service initialized")

	return c, nil
}

// openCache builds the result cache. A Redis tier that cannot be reached is
// logged and skipped so the cache still works in process.
func openCache(ctx context.Context, cfg domain.CacheConfig, logger *logrus.Logger) (*cache.ResultCache, error) {
	cacheCfg := cache.Config{
		DefaultTTL: cfg.DefaultTTL,
		MemorySize: cfg.MemorySize,
		KeyPrefix:  cfg.KeyPrefix,
	}

	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(ctx, cfg)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, using in-memory result cache only")
		} else {
			cacheCfg.RedisClient = client
		}
	}

	resultCache, err := cache.New(cacheCfg)
	if err != nil {
		if cacheCfg.RedisClient != nil {
			cacheCfg.RedisClient.Close()
		}
		return nil, err
	}
	return resultCache, nil
}

func openStore(ctx context.Context, cfg *domain.Config, driver Driver, logger *logrus.Logger, c *Components) (history.Store, service.ValueLister, error) {
	switch strings.ToLower(cfg.Storage.Backend) {
	case BackendNone:
		logger.Info("Calculation history disabled")
		return nil, nil, nil

	case BackendSQLite:
		store, err := history.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open SQLite history: %w", err)
		}
		c.onClose(func() { store.Close() })
		logger.WithField("path", cfg.Storage.SQLitePath).Info("Using SQLite calculation history")
		return store, nil, nil

	case BackendPostgres, "":
		dbConfig := database.ConfigFrom(cfg.Database)
		if cfg.Database.AutoMigrate {
			if err := database.Migrate(ctx, dbConfig, cfg.Database.MigrationsPath, logger); err != nil {
				return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
			}
		}

		if driver == DriverSQL {
			store, err := history.NewPostgresStoreFromURL(dbConfig.URL())
			if err != nil {
				return nil, nil, fmt.Errorf("failed to open PostgreSQL history: %w", err)
			}
			c.onClose(func() { store.Close() })
			return store, nil, nil
		}

		db, err := database.NewConnection(ctx, dbConfig, logger)
		if err != nil {
			return nil, nil, err
		}
		c.onClose(db.Close)
		repo := repository.NewCalculationRepository(db.Pool, logger)
		return repository.NewRecordStore(db, repo), repo, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
