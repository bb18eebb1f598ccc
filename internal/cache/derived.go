// Package cache provides a keyed store for derived orbital parameters.
//
// The calculator itself is stateless; this layer avoids recomputing
// parameters for a catalog of many objects. The key is element-set identity:
// catalog ID plus epoch, so a refreshed dataset with newer epochs naturally
// misses and recomputes.
package cache

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/skytrack/skytrack/internal/elements"
	"github.com/skytrack/skytrack/internal/metrics"
	"github.com/skytrack/skytrack/internal/orbital"
)

// Key identifies one element set's derived parameters.
type Key struct {
	CatalogID int
	Epoch     time.Time
}

// DerivedCache memoizes orbital.Derive results. Safe for concurrent use.
type DerivedCache struct {
	mu      sync.RWMutex
	entries map[Key]orbital.Parameters

	minElevationDeg float64
	logger          *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a derived-parameter cache. minElevationDeg shapes the
// coverage radius of every cached entry.
func New(minElevationDeg float64, logger *slog.Logger) *DerivedCache {
	return &DerivedCache{
		entries:         make(map[Key]orbital.Parameters),
		minElevationDeg: minElevationDeg,
		logger:          logger,
	}
}

// Get returns the derived parameters for the element set, computing and
// storing them on a miss. Derivation errors are returned without being
// cached, so a corrected element set is re-evaluated.
func (c *DerivedCache) Get(set elements.ElementSet) (orbital.Parameters, error) {
	key := Key{CatalogID: set.CatalogID, Epoch: set.Epoch}

	c.mu.RLock()
	params, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		c.hits.Add(1)
		metrics.IncDerivedCacheHit()
		return params, nil
	}

	c.misses.Add(1)
	metrics.IncDerivedCacheMiss()

	params, err := orbital.Derive(set, c.minElevationDeg)
	if err != nil {
		return orbital.Parameters{}, err
	}

	c.mu.Lock()
	c.entries[key] = params
	c.mu.Unlock()

	return params, nil
}

// Retain drops entries whose key is not present in the dataset. Called
// after a dataset refresh so stale epochs do not accumulate.
func (c *DerivedCache) Retain(ds *elements.Dataset) {
	if ds == nil {
		return
	}

	valid := make(map[Key]bool, len(ds.Satellites))
	for _, set := range ds.Satellites {
		valid[Key{CatalogID: set.CatalogID, Epoch: set.Epoch}] = true
	}

	c.mu.Lock()
	var dropped int
	for key := range c.entries {
		if !valid[key] {
			delete(c.entries, key)
			dropped++
		}
	}
	size := len(c.entries)
	c.mu.Unlock()

	if dropped > 0 {
		c.logger.Debug("derived cache pruned", "dropped", dropped, "size", size)
	}
}

// Stats returns hit/miss counters and the current entry count.
func (c *DerivedCache) Stats() (hits, misses int64, size int) {
	c.mu.RLock()
	size = len(c.entries)
	c.mu.RUnlock()
	return c.hits.Load(), c.misses.Load(), size
}
