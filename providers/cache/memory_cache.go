package cache

import (
	"sync"
	"time"

	"weathertogether.app/models"
)

type memoryEntry struct {
	snapshot  models.WeatherSnapshot
	expiresAt time.Time
}

// MemoryCache is an in-process snapshot cache with per-entry TTL
type MemoryCache struct {
	mu          sync.RWMutex
	data        map[string]memoryEntry
	ttl         time.Duration
	lastUpdated time.Time
}

// NewMemoryCache creates an in-memory snapshot cache
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		data: make(map[string]memoryEntry),
		ttl:  ttl,
	}
}

func (c *MemoryCache) Get(postalCode string) (*models.WeatherSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.data[postalCode]
	if !exists {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		return nil, false
	}

	snapshot := entry.snapshot
	return &snapshot, true
}

func (c *MemoryCache) Set(postalCode string, snapshot *models.WeatherSnapshot) {
	if snapshot == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[postalCode] = memoryEntry{
		snapshot:  *snapshot,
		expiresAt: time.Now().Add(c.ttl),
	}
}

func (c *MemoryCache) SetLastUpdated(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastUpdated = t
}

func (c *MemoryCache) LastUpdated() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.lastUpdated
}

func (c *MemoryCache) Type() string {
	return "memory"
}
