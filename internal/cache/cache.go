// Package cache provides a location-aware memoization layer with time-based
// expiry. Coordinates are rounded to a fixed grid resolution before key
// construction so nearby requests share entries.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Config controls spatial resolution and capacity.
type Config struct {
	// Resolution is the number of decimal places coordinates are rounded
	// to before key construction. Two decimals is roughly a 1.1km cell.
	Resolution int

	// MaxSize caps the number of entries; 0 means unlimited.
	MaxSize int
}

type entry struct {
	value     any
	createdAt time.Time
	ttl       time.Duration
}

func (e entry) expired(now time.Time) bool {
	return now.Sub(e.createdAt) > e.ttl
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Size   int    `json:"size"`
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
}

// SpatialCache is a concurrency-safe TTL cache keyed by (operation, rounded
// coordinate, parameters). Concurrent lookups for the same key serialize
// through a single-flight group so the compute function runs at most once.
type SpatialCache struct {
	cfg Config

	mu      sync.RWMutex
	entries map[string]entry
	hits    uint64
	misses  uint64

	group singleflight.Group
}

// New creates a SpatialCache.
func New(cfg Config) *SpatialCache {
	if cfg.Resolution <= 0 {
		cfg.Resolution = 2
	}
	return &SpatialCache{
		cfg:     cfg,
		entries: make(map[string]entry),
	}
}

// Key builds the deterministic cache key for an operation at a coordinate.
// Parameters are sorted so map iteration order cannot change the key.
func (c *SpatialCache) Key(operation string, lat, lon float64, params map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%.*f|%.*f", operation, c.cfg.Resolution, lat, c.cfg.Resolution, lon)

	if len(params) > 0 {
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "|%s=%s", k, params[k])
		}
	}

	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// GetOrCompute returns the cached value for the key if an unexpired entry
// exists, otherwise invokes compute, stores the result, and returns it.
// Expiry is strict: an expired entry is treated as absent.
func (c *SpatialCache) GetOrCompute(operation string, lat, lon float64, params map[string]string, ttl time.Duration, compute func() (any, error)) (any, error) {
	key := c.Key(operation, lat, lon, params)

	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// A concurrent flight may have populated the entry while this
		// goroutine waited on the group. The outer lookup already counted
		// the miss, so this re-check must not touch the counters.
		if v, ok := c.peek(key); ok {
			return v, nil
		}

		v, err := compute()
		if err != nil {
			return nil, err
		}
		c.set(key, v, ttl)
		return v, nil
	})
	return v, err
}

// Clear removes all entries.
func (c *SpatialCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Stats returns current counters.
func (c *SpatialCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{Size: len(c.entries), Hits: c.hits, Misses: c.misses}
}

func (c *SpatialCache) lookup(key string) (any, bool) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if e.expired(now) {
		// Lazy eviction: expired entries are removed on next lookup.
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	c.hits++
	return e.value, true
}

// peek reports an unexpired entry without touching the hit/miss counters.
func (c *SpatialCache) peek(key string) (any, bool) {
	now := time.Now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || e.expired(now) {
		return nil, false
	}
	return e.value, true
}

func (c *SpatialCache) set(key string, value any, ttl time.Duration) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.MaxSize > 0 && len(c.entries) >= c.cfg.MaxSize {
		c.evictLocked(now)
	}
	c.entries[key] = entry{value: value, createdAt: now, ttl: ttl}
}

// evictLocked drops expired entries first, then the oldest entry if the
// cache is still at capacity. Caller must hold the write lock.
func (c *SpatialCache) evictLocked(now time.Time) {
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
		}
	}
	if len(c.entries) < c.cfg.MaxSize {
		return
	}

	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.createdAt.Before(oldest) {
			oldestKey = k
			oldest = e.createdAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
