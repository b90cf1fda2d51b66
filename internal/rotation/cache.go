// Package rotation tracks which token symbols were recently surfaced so the
// same call is not repeated inside the rotation window. The cache is bounded
// and safe for concurrent use by multiple strategy coordinators.
package rotation

import (
	"context"
	"sync"
	"time"

	"github.com/token-scanner/internal/config"
	"github.com/token-scanner/internal/logging"
)

// Store persists the cache contents as a flat symbol to timestamp map so the
// rotation state survives process restarts.
type Store interface {
	Save(ctx context.Context, entries map[string]time.Time) error
	Load(ctx context.Context) (map[string]time.Time, error)
}

// Cache is a bounded symbol -> lastSurfacedAt map with a rotation window.
type Cache struct {
	mu       sync.RWMutex
	entries  map[string]time.Time
	window   time.Duration
	capacity int
	bypass   bool
	nowFunc  func() time.Time
}

// NewCache creates a rotation cache from configuration.
func NewCache(cfg config.RotationConfig) *Cache {
	return &Cache{
		entries:  make(map[string]time.Time),
		window:   cfg.Window,
		capacity: cfg.Capacity,
		bypass:   cfg.Bypass,
		nowFunc:  time.Now,
	}
}

// SetNowFunc overrides the clock, for tests.
func (c *Cache) SetNowFunc(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nowFunc = now
}

// IsRecentlySurfaced reports whether symbol was surfaced inside the rotation
// window. Always false in bypass mode.
func (c *Cache) IsRecentlySurfaced(symbol string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.bypass {
		return false
	}
	surfacedAt, ok := c.entries[symbol]
	if !ok {
		return false
	}
	return c.nowFunc().Sub(surfacedAt) < c.window
}

// MarkSurfaced records that symbol was surfaced now. Enforces the capacity
// bound: stale entries are evicted first, and if the cache is still over
// capacity it is cleared entirely so it can never grow unbounded.
func (c *Cache) MarkSurfaced(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[symbol] = c.nowFunc()
	if len(c.entries) <= c.capacity {
		return
	}

	c.evictStaleLocked()
	if len(c.entries) > c.capacity {
		c.entries = map[string]time.Time{symbol: c.nowFunc()}
	}
}

// EvictStale removes entries older than the rotation window.
func (c *Cache) EvictStale() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictStaleLocked()
}

func (c *Cache) evictStaleLocked() {
	now := c.nowFunc()
	for symbol, surfacedAt := range c.entries {
		if now.Sub(surfacedAt) >= c.window {
			delete(c.entries, symbol)
		}
	}
}

// Len returns the number of tracked symbols.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot returns a copy of the current entries.
func (c *Cache) Snapshot() map[string]time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]time.Time, len(c.entries))
	for symbol, surfacedAt := range c.entries {
		out[symbol] = surfacedAt
	}
	return out
}

// Persist saves the current entries through the store.
func (c *Cache) Persist(ctx context.Context, store Store) error {
	return store.Save(ctx, c.Snapshot())
}

// Restore loads entries from the store, dropping any that are already older
// than the rotation window.
func (c *Cache) Restore(ctx context.Context, store Store) error {
	entries, err := store.Load(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.nowFunc()
	loaded := 0
	for symbol, surfacedAt := range entries {
		if now.Sub(surfacedAt) >= c.window {
			continue
		}
		c.entries[symbol] = surfacedAt
		loaded++
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"loaded":  loaded,
		"dropped": len(entries) - loaded,
	}).Info("Restored rotation cache")
	return nil
}
