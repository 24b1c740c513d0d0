// Package config loads the service configuration. Manager reads config.yaml
// and SCORING_* environment variables through viper; LiteConfig is the
// environment-only variant used by the standalone MCP binary.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// LiteConfig configures the standalone MCP binary and scorecalc. Every field
// comes from a SCORING_* environment variable; nothing is read from disk.
type LiteConfig struct {
	DataDir        string        // SCORING_DATA_DIR, holds history.db and exports/
	CacheMaxItems  int           // SCORING_CACHE_MAX_ITEMS
	CacheTTL       time.Duration // SCORING_CACHE_TTL
	PersistResults bool          // SCORING_PERSIST_RESULTS
	LogLevel       string        // SCORING_LOG_LEVEL
	LogFormat      string        // SCORING_LOG_FORMAT
}

// DefaultLiteConfig returns the settings used when no variable is set.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()

	return &LiteConfig{
		DataDir:       filepath.Join(homeDir, ".clinical-scoring"),
		CacheMaxItems: 1000,
		CacheTTL:      time.Hour,
		LogLevel:      "info",
		LogFormat:     "json",
	}
}

// LoadLiteConfig overlays the environment on DefaultLiteConfig. Values that do
// not parse, or are not positive where a size is expected, keep the default.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	envString("SCORING_DATA_DIR", &cfg.DataDir)
	envInt("SCORING_CACHE_MAX_ITEMS", &cfg.CacheMaxItems)
	envDuration("SCORING_CACHE_TTL", &cfg.CacheTTL)
	envBool("SCORING_PERSIST_RESULTS", &cfg.PersistResults)
	envString("SCORING_LOG_LEVEL", &cfg.LogLevel)
	envString("SCORING_LOG_FORMAT", &cfg.LogFormat)

	return cfg
}

func lookupEnv(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

func envString(key string, dst *string) {
	if v, ok := lookupEnv(key); ok {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v, ok := lookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if v, ok := lookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*dst = d
		}
	}
}

func envBool(key string, dst *bool) {
	if v, ok := lookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// HistoryDBPath is the SQLite file holding calculation records.
func (c *LiteConfig) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// ExportDir is where export_history writes its files.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates DataDir and ExportDir.
func (c *LiteConfig) EnsureDataDir() error {
	return os.MkdirAll(c.ExportDir(), 0o755)
}
