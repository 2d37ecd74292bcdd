package weather

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yegors/metar-reader/pkg/logger"
)

// CacheStats describes a report cache
type CacheStats struct {
	Backend       string `json:"backend"`
	Entries       int    `json:"entries"`
	Hits          int64  `json:"hits"`
	Misses        int64  `json:"misses"`
	ExpiryMinutes int    `json:"expiry_minutes"`
}

// ReportCache stores raw report text per airport code
type ReportCache interface {
	Get(ctx context.Context, airportCode string) (string, bool)
	Set(ctx context.Context, airportCode, raw string)
	Invalidate(ctx context.Context, airportCode string)
	Stats() CacheStats
}

type cacheEntry struct {
	raw       string
	expiresAt time.Time
}

// MemoryCache is an in-process ReportCache with per-entry expiry
type MemoryCache struct {
	entries map[string]cacheEntry
	expiry  time.Duration
	clock   clockwork.Clock
	hits    int64
	misses  int64
	logger  *logger.Logger
	mu      sync.RWMutex
}

// NewMemoryCache creates an empty cache whose entries live for expiry
func NewMemoryCache(expiry time.Duration, clock clockwork.Clock, logger *logger.Logger) *MemoryCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryCache{
		entries: make(map[string]cacheEntry),
		expiry:  expiry,
		clock:   clock,
		logger:  logger.Named("weather-cache"),
	}
}

// Get returns the cached report if present and not expired
func (c *MemoryCache) Get(_ context.Context, airportCode string) (string, bool) {
	key := strings.ToUpper(airportCode)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return "", false
	}
	if !c.clock.Now().Before(entry.expiresAt) {
		delete(c.entries, key)
		c.misses++
		return "", false
	}
	c.hits++
	return entry.raw, true
}

// Set stores a report
func (c *MemoryCache) Set(_ context.Context, airportCode, raw string) {
	key := strings.ToUpper(airportCode)
	expiresAt := c.clock.Now().Add(c.expiry)

	c.mu.Lock()
	c.entries[key] = cacheEntry{raw: raw, expiresAt: expiresAt}
	c.mu.Unlock()

	c.logger.Debug("METAR cached",
		logger.String("airport", key),
		logger.Time("expires_at", expiresAt))
}

// Invalidate drops the entry for an airport
func (c *MemoryCache) Invalidate(_ context.Context, airportCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, strings.ToUpper(airportCode))
}

// Stats returns cache statistics. Expired entries not yet evicted are not counted.
func (c *MemoryCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.clock.Now()
	live := 0
	for _, entry := range c.entries {
		if now.Before(entry.expiresAt) {
			live++
		}
	}

	return CacheStats{
		Backend:       "memory",
		Entries:       live,
		Hits:          c.hits,
		Misses:        c.misses,
		ExpiryMinutes: int(c.expiry / time.Minute),
	}
}
