package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinical-scoring-engine/internal/domain"
)

func createTestCache(t *testing.T, size int) *ResultCache {
	t.Helper()
	c, err := New(Config{MemorySize: size, DefaultTTL: time.Minute})
	require.NoError(t, err)
	return c
}

var qsofaResult = domain.Result{
	Value:          domain.NumberValue(2),
	Unit:           "/3",
	Interpretation: "Risque élevé de mortalité",
	NormalRange:    "<2",
	Severity:       domain.SeverityHigh,
}

func TestKeyIsCanonical(t *testing.T) {
	a := domain.NewInputs(map[string]any{"respiratory_rate": 24, "altered_mentation": true})
	b := domain.NewInputs(map[string]any{"altered_mentation": true, "respiratory_rate": 24.0})

	assert.Equal(t, Key("qsofa", a), Key("qsofa", b))
	assert.NotEqual(t, Key("qsofa", a), Key("news", a))
	assert.NotEqual(t, Key("qsofa", a), Key("qsofa", domain.NewInputs(map[string]any{"respiratory_rate": 25})))
	assert.Len(t, Key("qsofa", nil), 64)
}

func TestResultCache_SetGet(t *testing.T) {
	c := createTestCache(t, 10)
	ctx := context.Background()
	in := domain.NewInputs(map[string]any{"respiratory_rate": 24})

	_, ok := c.Get(ctx, "qsofa", in)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "qsofa", in, qsofaResult, 0))

	got, ok := c.Get(ctx, "qsofa", in)
	require.True(t, ok)
	assert.Equal(t, qsofaResult, got)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
	assert.False(t, stats.Redis)
}

func TestResultCache_CachesInvalidResults(t *testing.T) {
	c := createTestCache(t, 10)
	ctx := context.Background()
	invalid := domain.InvalidResult("kg/m²", "18.5-24.9")

	require.NoError(t, c.Set(ctx, "bmi", nil, invalid, 0))

	got, ok := c.Get(ctx, "bmi", domain.Inputs{})
	require.True(t, ok)
	assert.True(t, got.IsInvalid())
}

func TestResultCache_Expiry(t *testing.T) {
	c := createTestCache(t, 10)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "qsofa", nil, qsofaResult, time.Second))

	_, ok := c.Get(ctx, "qsofa", nil)
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok = c.Get(ctx, "qsofa", nil)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestResultCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := createTestCache(t, 2)
	ctx := context.Background()
	first := domain.NewInputs(map[string]any{"weight": 60})
	second := domain.NewInputs(map[string]any{"weight": 70})
	third := domain.NewInputs(map[string]any{"weight": 80})

	require.NoError(t, c.Set(ctx, "bmi", first, qsofaResult, 0))
	require.NoError(t, c.Set(ctx, "bmi", second, qsofaResult, 0))
	_, _ = c.Get(ctx, "bmi", first)
	require.NoError(t, c.Set(ctx, "bmi", third, qsofaResult, 0))

	_, ok := c.Get(ctx, "bmi", second)
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = c.Get(ctx, "bmi", first)
	assert.True(t, ok)
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestResultCache_PurgeAndMemoryOnlyHealth(t *testing.T) {
	c := createTestCache(t, 10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "qsofa", nil, qsofaResult, 0))
	c.Purge()
	_, ok := c.Get(ctx, "qsofa", nil)
	assert.False(t, ok)

	assert.NoError(t, c.Ping(ctx))
	assert.NoError(t, c.Close())
}

func TestResultCache_ConcurrentAccess(t *testing.T) {
	c := createTestCache(t, 100)
	ctx := context.Background()

	done := make(chan struct{})
	for w := 0; w < 8; w++ {
		go func(w int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 200; i++ {
				in := domain.NewInputs(map[string]any{"n": i % 20})
				if _, ok := c.Get(ctx, "qsofa", in); !ok {
					_ = c.Set(ctx, "qsofa", in, qsofaResult, 0)
				}
			}
		}(w)
	}
	for w := 0; w < 8; w++ {
		<-done
	}

	stats := c.Stats()
	assert.Equal(t, int64(8*200), stats.Hits+stats.Misses)
}
