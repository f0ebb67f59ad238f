// Package market caches the latest market statistics for the active
// subscription.
package market

import (
	"sync"
	"time"

	"github.com/bookscope/bookscope/internal/domain"
)

// StatsCache holds the most recent ticker statistics. Every ticker event
// replaces the value wholesale; there is no partial merge.
type StatsCache struct {
	mu        sync.RWMutex
	stats     domain.MarketStats
	updatedAt time.Time
	valid     bool
}

// NewStatsCache returns an empty cache.
func NewStatsCache() *StatsCache {
	return &StatsCache{}
}

// Replace overwrites the cached statistics. Last write wins.
func (c *StatsCache) Replace(last, vol24h float64) {
	c.mu.Lock()
	c.stats = domain.MarketStats{Last: last, Vol24h: vol24h}
	c.updatedAt = time.Now()
	c.valid = true
	c.mu.Unlock()
}

// Get returns the cached statistics and whether any ticker has been applied
// since the last reset.
func (c *StatsCache) Get() (domain.MarketStats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats, c.valid
}

// UpdatedAt returns when the statistics were last replaced.
func (c *StatsCache) UpdatedAt() (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.updatedAt, c.valid
}

// Reset clears the cache. Called when the active venue or symbol changes.
func (c *StatsCache) Reset() {
	c.mu.Lock()
	c.stats = domain.MarketStats{}
	c.updatedAt = time.Time{}
	c.valid = false
	c.mu.Unlock()
}
