package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"weathertogether.app/config"
	"weathertogether.app/models"
)

const (
	snapshotKeyPrefix = "weathertogether:snapshot:"
	lastUpdatedKey    = "weathertogether:snapshot-last-updated"
)

// RedisCache is a snapshot cache backed by Redis
type RedisCache struct {
	client *redis.Client
	ctx    context.Context
	ttl    time.Duration
}

// NewRedisCache connects to Redis and returns a snapshot cache
func NewRedisCache(cfg *config.CacheConfig) (*RedisCache, error) {
	ctx := context.Background()

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  cfg.RedisTimeout,
		ReadTimeout:  cfg.RedisTimeout,
		WriteTimeout: cfg.RedisTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	slog.Info("Redis snapshot cache connected successfully", "addr", cfg.RedisAddr)

	return &RedisCache{
		client: client,
		ctx:    ctx,
		ttl:    cfg.TTL,
	}, nil
}

func (r *RedisCache) Get(postalCode string) (*models.WeatherSnapshot, bool) {
	val, err := r.client.Get(r.ctx, snapshotKeyPrefix+postalCode).Result()
	if err != nil {
		if err != redis.Nil {
			slog.Error("Redis get error", "error", err, "postalCode", postalCode)
		}
		return nil, false
	}

	var snapshot models.WeatherSnapshot
	if err := json.Unmarshal([]byte(val), &snapshot); err != nil {
		slog.Error("Redis unmarshal error", "error", err, "postalCode", postalCode)
		return nil, false
	}

	return &snapshot, true
}

func (r *RedisCache) Set(postalCode string, snapshot *models.WeatherSnapshot) {
	if snapshot == nil {
		return
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		slog.Error("Redis marshal error", "error", err, "postalCode", postalCode)
		return
	}

	if err := r.client.Set(r.ctx, snapshotKeyPrefix+postalCode, data, r.ttl).Err(); err != nil {
		slog.Error("Redis set error", "error", err, "postalCode", postalCode)
	}
}

func (r *RedisCache) SetLastUpdated(t time.Time) {
	if err := r.client.Set(r.ctx, lastUpdatedKey, t.Format(time.RFC3339), 0).Err(); err != nil {
		slog.Error("Redis set error", "error", err, "key", lastUpdatedKey)
	}
}

func (r *RedisCache) LastUpdated() time.Time {
	val, err := r.client.Get(r.ctx, lastUpdatedKey).Result()
	if err != nil {
		if err != redis.Nil {
			slog.Error("Redis get error", "error", err, "key", lastUpdatedKey)
		}
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		slog.Error("Redis parse error", "error", err, "key", lastUpdatedKey)
		return time.Time{}
	}
	return t
}

func (r *RedisCache) Type() string {
	return "redis"
}
