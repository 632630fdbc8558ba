package cache

import (
	"context"
	"io"

	"github.com/mrlokans/booklook/internal/metrics"
)

// Metered counts hits and misses of the wrapped cache.
type Metered struct {
	Cache
}

func NewMetered(c Cache) *Metered {
	return &Metered{Cache: c}
}

func (m *Metered) Get(ctx context.Context, key string) ([]byte, bool) {
	value, ok := m.Cache.Get(ctx, key)
	if ok {
		metrics.CacheHits.Inc()
	} else {
		metrics.CacheMisses.Inc()
	}
	return value, ok
}

// Close closes the wrapped cache when it holds resources.
func (m *Metered) Close() error {
	if closer, ok := m.Cache.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
