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
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache(t *testing.T, size int, ttl time.Duration) (*MemoryCache, *fakeClock) {
	t.Helper()
	mc, err := NewMemoryCache(size, ttl)
	require.NoError(t, err)
	t.Cleanup(mc.Close)

	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	mc.now = clock.Now
	return mc, clock
}

func TestMemoryCache_GetSet(t *testing.T) {
	mc, _ := newTestCache(t, 10, time.Minute)

	_, ok := mc.Get("missing")
	assert.False(t, ok)

	mc.Set("k", []byte(`{"status":"1"}`))
	data, ok := mc.Get("k")
	require.True(t, ok)
	assert.Equal(t, `{"status":"1"}`, string(data))

	mc.Set("k", []byte("second"))
	data, ok = mc.Get("k")
	require.True(t, ok)
	assert.Equal(t, "second", string(data), "set overwrites unconditionally")
}

func TestMemoryCache_Expiry(t *testing.T) {
	mc, clock := newTestCache(t, 10, 5*time.Minute)

	mc.Set("k", []byte("v"))

	clock.Advance(5 * time.Minute)
	_, ok := mc.Get("k")
	assert.True(t, ok, "entry exactly at TTL is still live")

	clock.Advance(time.Millisecond)
	_, ok = mc.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, mc.Len(), "expired entry is removed on lookup")
}

func TestMemoryCache_SetRefreshesAge(t *testing.T) {
	mc, clock := newTestCache(t, 10, time.Minute)

	mc.Set("k", []byte("old"))
	clock.Advance(50 * time.Second)
	mc.Set("k", []byte("new"))
	clock.Advance(50 * time.Second)

	data, ok := mc.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", string(data))
}

func TestMemoryCache_Bounded(t *testing.T) {
	mc, _ := newTestCache(t, 2, time.Minute)

	mc.Set("a", []byte("1"))
	mc.Set("b", []byte("2"))
	mc.Set("c", []byte("3"))

	assert.Equal(t, 2, mc.Len())
	_, ok := mc.Get("a")
	assert.False(t, ok, "least recently used entry is evicted")
}

func TestMemoryCache_RemoveExpired(t *testing.T) {
	mc, clock := newTestCache(t, 10, time.Minute)

	mc.Set("a", []byte("1"))
	clock.Advance(2 * time.Minute)
	mc.Set("b", []byte("2"))

	assert.Equal(t, 1, mc.removeExpired())
	assert.Equal(t, 1, mc.Len())
	_, ok := mc.Get("b")
	assert.True(t, ok)
}

func TestMemoryCache_Clear(t *testing.T) {
	mc, _ := newTestCache(t, 10, time.Minute)

	mc.Set("a", []byte("1"))
	mc.Set("b", []byte("2"))
	mc.Clear()

	assert.Equal(t, 0, mc.Len())
	_, ok := mc.Get("a")
	assert.False(t, ok)
}

func TestMemoryCache_CloseIdempotent(t *testing.T) {
	mc, err := NewMemoryCache(1, time.Minute)
	require.NoError(t, err)
	mc.Close()
	mc.Close()
}

func TestNewMemoryCache_InvalidSize(t *testing.T) {
	_, err := NewMemoryCache(0, time.Minute)
	assert.Error(t, err)
}

func TestNoopCache(t *testing.T) {
	var c Cache = NewNoopCache()
	c.Set("k", []byte("v"))
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
	c.Clear()
	c.Close()
}

func TestPolicy(t *testing.T) {
	p := NewPolicy([]string{"proxy.eth_blockNumber", " Stats "})

	assert.True(t, p.IsCacheable("account", "balance"))
	assert.True(t, p.IsCacheable("proxy", "eth_gasPrice"))
	assert.False(t, p.IsCacheable("proxy", "eth_blocknumber"))
	assert.False(t, p.IsCacheable("stats", "bnbprice"))

	var nilPolicy *Policy
	assert.True(t, nilPolicy.IsCacheable("account", "balance"))
}
