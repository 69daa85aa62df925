package cache

import (
	"testing"
	"time"

	"github.com/drallgood/notion-book-sync/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(now *time.Time) *memoryCache[string, int] {
	c := NewMemoryCache[string, int]("test", logger.Nop()).(*memoryCache[string, int])
	c.now = func() time.Time { return *now }
	return c
}

func TestMemoryCache_SetGet(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCache(&now)

	c.Set("9780140328721", 1, time.Minute)
	c.Set("forever", 2, 0)

	v, ok := c.Get("9780140328721")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get("9780140328721")
	assert.False(t, ok, "entry should have expired")

	v, ok = c.Get("forever")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	assert.Equal(t, Stats{Hits: 2, Misses: 2, Size: 1}, c.Stats())
}

func TestMemoryCache_DeleteClear(t *testing.T) {
	c := NewMemoryCache[string, string]("test", logger.Nop())
	c.Set("a", "1", 0)
	c.Set("b", "2", 0)

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Clear()
	_, ok = c.Get("b")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().Size)
}

func TestWithTTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	base := newTestCache(&now)
	c := WithTTL[string, int](base, time.Second)

	c.Set("a", 1, 0)
	_, ok := c.Get("a")
	require.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok = c.Get("a")
	assert.False(t, ok)
}
