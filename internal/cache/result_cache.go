// Package cache memoizes calculator results in process and, optionally, in Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"

	"github.com/clinical-scoring-engine/internal/domain"
)

// Config defines configuration for result caching
type Config struct {
	// Redis client for the shared tier; nil keeps the cache in process
	RedisClient *redis.Client
	// Default TTL for cached results
	DefaultTTL time.Duration
	// Maximum number of entries held in memory
	MemorySize int
	// Prefix of every Redis key
	KeyPrefix string
}

// Stats tracks cache performance
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Entries   int   `json:"entries"`
	Redis     bool  `json:"redis"`
}

type entry struct {
	Result    domain.Result `json:"result"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// ResultCache is a two-tier cache of compute results keyed by calculator and
// canonical inputs. Only pure results are cached, never records.
type ResultCache struct {
	config Config
	memory *lru.Cache[string, entry]
	now    func() time.Time

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

var _ domain.ResultCache = (*ResultCache)(nil)

// New creates a result cache.
func New(config Config) (*ResultCache, error) {
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = 15 * time.Minute
	}
	if config.MemorySize <= 0 {
		config.MemorySize = 10000
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "scoring:result:"
	}

	c := &ResultCache{config: config, now: time.Now}
	memory, err := lru.NewWithEvict[string, entry](config.MemorySize, func(string, entry) {
		c.evictions.Add(1)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	c.memory = memory
	return c, nil
}

// NewRedisClient opens and pings a Redis client for the shared tier.
func NewRedisClient(ctx context.Context, config domain.CacheConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	if config.MaxRetries > 0 {
		opts.MaxRetries = config.MaxRetries
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Key returns the cache key of a calculator run.
func Key(calculatorID string, inputs domain.Inputs) string {
	hash := sha256.Sum256([]byte(calculatorID + "::" + inputs.Canonical()))
	return hex.EncodeToString(hash[:])
}

// Get retrieves a cached result if available.
func (c *ResultCache) Get(ctx context.Context, calculatorID string, inputs domain.Inputs) (domain.Result, bool) {
	key := Key(calculatorID, inputs)

	if e, ok := c.memory.Get(key); ok {
		if c.now().Before(e.ExpiresAt) {
			c.hits.Add(1)
			return e.Result, true
		}
		c.memory.Remove(key)
	}

	if c.config.RedisClient != nil {
		if e, ok := c.getRedis(ctx, key); ok {
			c.memory.Add(key, e)
			c.hits.Add(1)
			return e.Result, true
		}
	}

	c.misses.Add(1)
	return domain.Result{}, false
}

func (c *ResultCache) getRedis(ctx context.Context, key string) (entry, bool) {
	data, err := c.config.RedisClient.Get(ctx, c.config.KeyPrefix+key).Bytes()
	if err != nil {
		return entry{}, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		// Remove corrupted cache entry
		c.config.RedisClient.Del(ctx, c.config.KeyPrefix+key)
		return entry{}, false
	}
	if !c.now().Before(e.ExpiresAt) {
		return entry{}, false
	}
	return e, true
}

// Set stores a result. A zero ttl uses the configured default.
func (c *ResultCache) Set(ctx context.Context, calculatorID string, inputs domain.Inputs, result domain.Result, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.config.DefaultTTL
	}

	key := Key(calculatorID, inputs)
	e := entry{Result: result, ExpiresAt: c.now().Add(ttl)}
	c.memory.Add(key, e)

	if c.config.RedisClient == nil {
		return nil
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	if err := c.config.RedisClient.Set(ctx, c.config.KeyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write Redis cache: %w", err)
	}
	return nil
}

// Purge drops every in-memory entry. Redis entries expire on their own.
func (c *ResultCache) Purge() {
	c.memory.Purge()
}

// Stats returns a snapshot of cache counters.
func (c *ResultCache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Entries:   c.memory.Len(),
		Redis:     c.config.RedisClient != nil,
	}
}

// Ping checks the Redis tier. A memory-only cache is always healthy.
func (c *ResultCache) Ping(ctx context.Context) error {
	if c.config.RedisClient == nil {
		return nil
	}
	if err := c.config.RedisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close closes the Redis client if one is configured.
func (c *ResultCache) Close() error {
	if c.config.RedisClient == nil {
		return nil
	}
	if err := c.config.RedisClient.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}
