// Package cache implements the weather snapshot cache: the last observation
// per postal code plus a last-updated marker stamped once per alert sweep.
package cache

import (
	"time"

	"weathertogether.app/config"
	"weathertogether.app/models"
)

// SnapshotCache defines weather snapshot storage operations
type SnapshotCache interface {
	Get(postalCode string) (*models.WeatherSnapshot, bool)
	Set(postalCode string, snapshot *models.WeatherSnapshot)
	SetLastUpdated(t time.Time)
	LastUpdated() time.Time
	Type() string
}

// NewSnapshotCache builds the configured cache implementation
func NewSnapshotCache(cfg *config.CacheConfig) (SnapshotCache, error) {
	if cfg.Type == "redis" {
		return NewRedisCache(cfg)
	}
	return NewMemoryCache(cfg.TTL), nil
}
