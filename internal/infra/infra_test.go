package infra

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

// ── Cache ──

func TestCacheGetSet(t *testing.T) {
	c := NewCache[string](time.Minute, 0)
	c.Set("run-1", "ok")

	v, ok := c.Get("run-1")
	require.True(t, ok)
	assert.Equal(t, "ok", v)

	_, ok = c.Get("run-2")
	assert.False(t, ok)
}

func TestCacheExpiry(t *testing.T) {
	clk := &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewCache[int](10*time.Second, 0)
	c.now = clk.now

	c.Set("a", 1)
	clk.advance(5 * time.Second)
	c.Set("b", 2)
	clk.advance(6 * time.Second)

	_, ok := c.Get("a")
	assert.False(t, ok, "a expired")
	v, ok := c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	c.Cleanup()
	assert.Equal(t, 1, c.Len())
}

func TestCacheEvictsOldestWhenFull(t *testing.T) {
	clk := &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewCache[int](time.Hour, 2)
	c.now = clk.now

	c.Set("a", 1)
	clk.advance(time.Second)
	c.Set("b", 2)
	clk.advance(time.Second)
	c.Set("c", 3)

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)

	// Overwriting an existing key does not evict.
	c.Set("b", 20)
	assert.Equal(t, 2, c.Len())
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := NewCache[int](time.Minute, 50)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := string(rune('a' + (i*100+j)%26))
				c.Set(key, j)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 50)
}

// ── RateLimiter ──

func TestRateLimiterBurstAndRefill(t *testing.T) {
	clk := &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(2, time.Second)
	rl.now = clk.now
	rl.lastRefill = clk.t

	assert.True(t, rl.Allow())
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())

	clk.advance(1500 * time.Millisecond)
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())

	clk.advance(10 * time.Second)
	assert.True(t, rl.Allow())
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow(), "refill is capped at the burst size")
}

func TestPerMinute(t *testing.T) {
	rl := PerMinute(60)
	assert.Equal(t, time.Second, rl.refillRate)
	assert.Equal(t, 60, rl.maxTokens)
}
