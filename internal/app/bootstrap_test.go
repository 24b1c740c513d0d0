package app

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinical-scoring-engine/internal/domain"
	"github.com/clinical-scoring-engine/internal/service"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func baseConfig(t *testing.T) *domain.Config {
	return &domain.Config{
		Server: domain.ServerConfig{BatchLimit: 10},
		Cache: domain.CacheConfig{
			Enabled:    true,
			DefaultTTL: time.Minute,
			MemorySize: 100,
		},
		Storage: domain.StorageConfig{
			Backend:          BackendSQLite,
			SQLitePath:       filepath.Join(t.TempDir(), "history.db"),
			OperationTimeout: time.Second,
		},
		Metrics: domain.MetricsConfig{Enabled: true},
	}
}

func TestBuildSQLite(t *testing.T) {
	ctx := context.Background()
	c, err := Build(ctx, baseConfig(t), DriverPool, prometheus.NewRegistry(), quietLogger())
	require.NoError(t, err)
	defer c.Close()

	require.NotNil(t, c.Store)
	require.NotNil(t, c.Cache)
	require.NotNil(t, c.Metrics)
	assert.True(t, c.Scoring.HistoryEnabled())

	resp, err := c.Scoring.Compute(ctx, service.ComputeRequest{
		CalculatorID: "bmi",
		Inputs:       domain.NewInputs(map[string]any{"weight": 70.0, "height": 175.0}),
		Persist:      true,
	})
	require.NoError(t, err)
	assert.True(t, resp.Persisted)

	again, err := c.Scoring.Compute(ctx, service.ComputeRequest{
		CalculatorID: "bmi",
		Inputs:       domain.NewInputs(map[string]any{"weight": 70.0, "height": 175.0}),
	})
	require.NoError(t, err)
	assert.True(t, again.Cached)
}

func TestBuildWithoutStorage(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Storage.Backend = BackendNone
	cfg.Cache.Enabled = false
	cfg.Metrics.Enabled = false

	c, err := Build(context.Background(), cfg, DriverPool, nil, quietLogger())
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.Store)
	assert.Nil(t, c.Cache)
	assert.Nil(t, c.Metrics)
	assert.False(t, c.Scoring.HistoryEnabled())
}

func TestBuildUnknownBackend(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Storage.Backend = "mongodb"

	_, err := Build(context.Background(), cfg, DriverPool, prometheus.NewRegistry(), quietLogger())

	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown storage backend "mongodb"`)
}

func TestBuildFallsBackWhenRedisIsDown(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Storage.Backend = BackendNone
	cfg.Cache.RedisURL = "redis://127.0.0.1:1/0"

	c, err := Build(context.Background(), cfg, DriverPool, prometheus.NewRegistry(), quietLogger())
	require.NoError(t, err)
	defer c.Close()

	require.NotNil(t, c.Cache)
	assert.False(t, c.Cache.Stats().Redis)
}
