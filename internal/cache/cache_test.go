package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/booklook/internal/config"
	"github.com/mrlokans/booklook/internal/metrics"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newTestMemory(ttl time.Duration) (*Memory, *clock) {
	c := &clock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := NewMemory(ttl, 0)
	m.now = c.Now
	return m, c
}

func TestMemory_GetSet(t *testing.T) {
	m, _ := newTestMemory(time.Hour)
	defer m.Close()
	ctx := context.Background()

	_, ok := m.Get(ctx, "book:detail:1")
	assert.False(t, ok)

	m.Set(ctx, "book:detail:1", []byte("dune"), 0)
	value, ok := m.Get(ctx, "book:detail:1")
	require.True(t, ok)
	assert.Equal(t, "dune", string(value))
}

func TestMemory_Expiry(t *testing.T) {
	m, c := newTestMemory(time.Hour)
	defer m.Close()
	ctx := context.Background()

	m.Set(ctx, "short", []byte("a"), time.Minute)
	m.Set(ctx, "default", []byte("b"), 0)
	m.Set(ctx, "forever", []byte("c"), -1)

	c.now = c.now.Add(2 * time.Minute)
	_, ok := m.Get(ctx, "short")
	assert.False(t, ok, "entry past its own ttl")
	_, ok = m.Get(ctx, "default")
	assert.True(t, ok)

	c.now = c.now.Add(2 * time.Hour)
	_, ok = m.Get(ctx, "default")
	assert.False(t, ok, "entry past the default ttl")
	_, ok = m.Get(ctx, "forever")
	assert.True(t, ok, "negative ttl never expires")
}

func TestMemory_Sweep(t *testing.T) {
	m, c := newTestMemory(time.Minute)
	defer m.Close()
	ctx := context.Background()

	m.Set(ctx, "a", []byte("1"), 0)
	m.Set(ctx, "b", []byte("2"), 0)
	m.Set(ctx, "c", []byte("3"), time.Hour)
	require.Equal(t, 3, m.Len())

	c.now = c.now.Add(5 * time.Minute)
	assert.Equal(t, 2, m.Sweep())
	assert.Equal(t, 1, m.Len())
}

func TestMemory_DeletePrefix(t *testing.T) {
	m, _ := newTestMemory(time.Hour)
	defer m.Close()
	ctx := context.Background()

	m.Set(ctx, BookListKey(map[string]int{"page": 1}), []byte("p1"), 0)
	m.Set(ctx, BookListKey(map[string]int{"page": 2}), []byte("p2"), 0)
	m.Set(ctx, BookDetailKey(9), []byte("detail"), 0)

	m.DeletePrefix(ctx, BookListPrefix)

	assert.Equal(t, 1, m.Len())
	_, ok := m.Get(ctx, BookDetailKey(9))
	assert.True(t, ok)

	m.Delete(ctx, BookDetailKey(9), "missing")
	assert.Zero(t, m.Len())
}

func TestMemory_CloseStopsSweeper(t *testing.T) {
	m := NewMemory(time.Millisecond, time.Millisecond)
	m.Set(context.Background(), "k", []byte("v"), 0)

	assert.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
}

func TestJSONHelpers(t *testing.T) {
	m, _ := newTestMemory(time.Hour)
	defer m.Close()
	ctx := context.Background()

	type payload struct {
		Title string `json:"title"`
		Pages int    `json:"pages"`
	}

	SetJSON(ctx, m, "k", payload{Title: "Fantasy Realm", Pages: 30}, 0)

	var got payload
	require.True(t, GetJSON(ctx, m, "k", &got))
	assert.Equal(t, payload{Title: "Fantasy Realm", Pages: 30}, got)

	m.Set(ctx, "broken", []byte("{not json"), 0)
	assert.False(t, GetJSON(ctx, m, "broken", &got))
	_, ok := m.Get(ctx, "broken")
	assert.False(t, ok, "undecodable entry is dropped")
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	c := NewNoop()

	c.Set(ctx, "k", []byte("v"), 0)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.False(t, GetJSON(ctx, c, "k", &struct{}{}))
}

func TestMetered(t *testing.T) {
	m, _ := newTestMemory(time.Hour)
	c := NewMetered(m)
	defer c.Close()
	ctx := context.Background()

	hits, misses := metrics.CacheHits.Get(), metrics.CacheMisses.Get()

	c.Get(ctx, "k")
	c.Set(ctx, "k", []byte("v"), 0)
	c.Get(ctx, "k")
	c.Get(ctx, "k")

	assert.Equal(t, hits+2, metrics.CacheHits.Get())
	assert.Equal(t, misses+1, metrics.CacheMisses.Get())
	assert.Equal(t, "memory", c.Name())
}

func TestNew(t *testing.T) {
	assert.Equal(t, "none", New(config.Cache{Enabled: false}).Name())

	c := New(config.Cache{Enabled: true, TTL: time.Minute})
	assert.Equal(t, "memory", c.Name())
	require.NoError(t, c.(*Metered).Close())
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "book:detail:4", BookDetailKey(4))
	assert.Equal(t, "book:content:4:300:2", BookContentKey(4, 300, 2))
	assert.Equal(t, "review:distribution:4", ReviewDistributionKey(4))
	assert.Equal(t, "user:auth:4", UserAuthKey(4))
	assert.Equal(t, BookListKey(map[string]any{"q": "x"}), BookListKey(map[string]any{"q": "x"}))
	assert.NotEqual(t, BookListKey(map[string]any{"q": "x"}), BookListKey(map[string]any{"q": "y"}))
}
