package resolve

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_GetMissing(t *testing.T) {
	c := NewCache(4)

	_, ok := c.Get("op-a", "op-b")
	assert.False(t, ok)
}

func TestCache_SetGet_OrderInsensitive(t *testing.T) {
	c := NewCache(4)
	c.Set("op-a", "op-b", true)

	conflicted, ok := c.Get("op-b", "op-a")
	require.True(t, ok, "lookup must be symmetric in id order")
	assert.True(t, conflicted)
	assert.Equal(t, 1, c.Len())
}

func TestCache_SetOverwrites(t *testing.T) {
	c := NewCache(4)
	c.Set("op-a", "op-b", true)
	c.Set("op-b", "op-a", false)

	conflicted, ok := c.Get("op-a", "op-b")
	require.True(t, ok)
	assert.False(t, conflicted)
	assert.Equal(t, 1, c.Len(), "overwriting must not grow the cache")
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(2)
	c.Set("op-a", "op-b", true)
	c.Set("op-c", "op-d", false)

	// Touch the first pair so the second becomes the eviction victim.
	_, ok := c.Get("op-a", "op-b")
	require.True(t, ok)

	c.Set("op-e", "op-f", true)

	_, ok = c.Get("op-c", "op-d")
	assert.False(t, ok, "least recently used pair should have been evicted")
	_, ok = c.Get("op-a", "op-b")
	assert.True(t, ok)
	_, ok = c.Get("op-e", "op-f")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestCache_CapacityNeverExceeded(t *testing.T) {
	c := NewCache(3)
	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("op-%d", i), fmt.Sprintf("op-%d-peer", i), i%2 == 0)
		assert.LessOrEqual(t, c.Len(), 3)
	}
	assert.Equal(t, 3, c.Len())
}

func TestCache_Clear(t *testing.T) {
	c := NewCache(4)
	c.Set("op-a", "op-b", true)
	c.Set("op-c", "op-d", false)
	require.Equal(t, 2, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("op-a", "op-b")
	assert.False(t, ok)
}

func TestCache_NonPositiveCapacityUsesDefault(t *testing.T) {
	assert.Equal(t, 4096, DefaultCacheCapacity)

	// A zero capacity must not make every insert evict immediately.
	c := NewCache(0)
	c.Set("op-a", "op-b", true)
	c.Set("op-c", "op-d", true)
	assert.Equal(t, 2, c.Len())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := NewCache(64)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id := fmt.Sprintf("op-%d-%d", g, i%16)
				c.Set(id, "peer", i%2 == 0)
				c.Get(id, "peer")
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 64)
}
