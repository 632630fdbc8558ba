package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

type entry struct {
	value    []byte
	expireAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && !now.Before(e.expireAt)
}

// Memory is an in-process cache with per-entry expiry. Expired entries are
// dropped on read and by a periodic sweep.
type Memory struct {
	data       *xsync.MapOf[string, entry]
	defaultTTL time.Duration
	now        func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewMemory creates a memory cache. A sweepInterval of zero disables the
// background sweep; expired entries are then only dropped when read.
func NewMemory(defaultTTL, sweepInterval time.Duration) *Memory {
	m := &Memory{
		data:       xsync.NewMapOf[string, entry](),
		defaultTTL: defaultTTL,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	if sweepInterval > 0 {
		m.wg.Add(1)
		go m.sweepLoop(sweepInterval)
	}
	return m
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	e, ok := m.data.Load(key)
	if !ok {
		return nil, false
	}
	now := m.now()
	if e.expired(now) {
		m.data.Compute(key, func(old entry, loaded bool) (entry, bool) {
			return old, !loaded || old.expired(now)
		})
		return nil, false
	}
	return e.value, true
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl == 0 {
		ttl = m.defaultTTL
	}
	e := entry{value: value}
	if ttl > 0 {
		e.expireAt = m.now().Add(ttl)
	}
	m.data.Store(key, e)
}

func (m *Memory) Delete(_ context.Context, keys ...string) {
	for _, key := range keys {
		m.data.Delete(key)
	}
}

func (m *Memory) DeletePrefix(_ context.Context, prefix string) {
	m.data.Range(func(key string, _ entry) bool {
		if strings.HasPrefix(key, prefix) {
			m.data.Delete(key)
		}
		return true
	})
}

// Len reports the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	return m.data.Size()
}

// Sweep removes every expired entry and returns how many were removed.
func (m *Memory) Sweep() int {
	now := m.now()
	removed := 0
	m.data.Range(func(key string, e entry) bool {
		if e.expired(now) {
			m.data.Compute(key, func(old entry, loaded bool) (entry, bool) {
				drop := loaded && old.expired(now)
				if drop {
					removed++
				}
				return old, !loaded || drop
			})
		}
		return true
	})
	return removed
}

func (m *Memory) sweepLoop(interval time.Duration) {
	defer m.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-m.stop:
			return
		}
	}
}

// Close stops the sweeper. It is safe to call more than once.
func (m *Memory) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()
	return nil
}
