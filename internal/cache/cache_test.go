package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestBalanceCachePutGet(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := NewBalanceCache(clock)

	_, ok := c.Get("addr")
	assert.False(t, ok)

	c.Put("addr", 100)
	clock.Advance(time.Hour)
	c.Put("other", 7)

	e, ok := c.Get("addr")
	require.True(t, ok)
	assert.Equal(t, uint64(100), e.Value)
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC), e.StoredAt)
	assert.Equal(t, 2, c.Len())
}

func TestBalanceCacheConcurrentWriters(t *testing.T) {
	c := NewBalanceCache(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			c.Put("addr", uint64(n))
			c.Get("addr")
		}(i)
	}
	wg.Wait()

	_, ok := c.Get("addr")
	assert.True(t, ok)
}

func TestTTLExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	c := NewTTL[string](60*time.Second, clock)

	_, ok := c.Fresh()
	assert.False(t, ok)

	c.Store("prices")
	v, ok := c.Fresh()
	require.True(t, ok)
	assert.Equal(t, "prices", v)

	clock.Advance(59 * time.Second)
	_, ok = c.Fresh()
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Fresh()
	assert.False(t, ok)

	last, ok := c.Last()
	assert.True(t, ok)
	assert.Equal(t, "prices", last)
}
