package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRU_GetAdd(t *testing.T) {
	c, err := NewLRU[string](Config{Size: 2})
	require.NoError(t, err)

	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Add("a", "1")
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
	assert.True(t, stats.Enabled)
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c, err := NewLRU[int](Config{Size: 2})
	require.NoError(t, err)

	c.Add("a", 1)
	c.Add("b", 2)
	_, _ = c.Get("a") // b is now oldest
	c.Add("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestLRU_DefaultSize(t *testing.T) {
	c, err := NewLRU[int](Config{})
	require.NoError(t, err)

	for i := 0; i < DefaultSize+10; i++ {
		c.Add(fmt.Sprintf("k%d", i), i)
	}
	assert.Equal(t, DefaultSize, c.Len())
}

func TestLRU_TTL(t *testing.T) {
	c, err := NewLRU[string](Config{Size: 4, TTL: 20 * time.Millisecond})
	require.NoError(t, err)

	c.Add("a", "1")
	_, ok := c.Get("a")
	require.True(t, ok)

	time.Sleep(60 * time.Millisecond)
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestLRU_RemovePurge(t *testing.T) {
	c, err := NewLRU[string](Config{Size: 4})
	require.NoError(t, err)

	c.Add("a", "1")
	c.Add("b", "2")
	c.Remove("a")
	assert.Equal(t, 1, c.Len())

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestLRU_ConcurrentAccess(t *testing.T) {
	c, err := NewLRU[int](Config{Size: 16})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (i+j)%20)
				c.Add(key, j)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 16)
}

func TestNoop(t *testing.T) {
	var s Store[string] = Noop[string]{}
	s.Add("a", "1")
	_, ok := s.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Stats().Enabled)
}

func TestLRU_ThroughStore(t *testing.T) {
	lru, err := NewLRU[int](Config{Size: 4})
	require.NoError(t, err)

	var s Store[int] = lru
	s.Add("a", 1)
	v, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	s.Get("missing")
	stats := s.Stats()
	assert.True(t, stats.Enabled)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)

	s.Purge()
	assert.Zero(t, s.Len())
}
