package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yegors/metar-reader/pkg/logger"
)

const redisKeyPrefix = "metar:"

// RedisCache is a ReportCache shared between service instances
type RedisCache struct {
	client *redis.Client
	expiry time.Duration
	hits   atomic.Int64
	misses atomic.Int64
	logger *logger.Logger
}

// NewRedisCache connects to redisURL (redis://host:port/db) and checks the connection
func NewRedisCache(ctx context.Context, redisURL string, expiry time.Duration, log *logger.Logger) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	cacheLogger := log.Named("redis-cache")
	cacheLogger.Info("Connected to Redis",
		logger.String("addr", opts.Addr),
		logger.Int("db", opts.DB))

	return newRedisCacheWithClient(client, expiry, cacheLogger), nil
}

func newRedisCacheWithClient(client *redis.Client, expiry time.Duration, log *logger.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		expiry: expiry,
		logger: log,
	}
}

func redisKey(airportCode string) string {
	return redisKeyPrefix + strings.ToUpper(airportCode)
}

// Get returns the cached report. Redis errors count as misses.
func (c *RedisCache) Get(ctx context.Context, airportCode string) (string, bool) {
	raw, err := c.client.Get(ctx, redisKey(airportCode)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Redis get failed",
				logger.String("airport", airportCode),
				logger.Error(err))
		}
		c.misses.Add(1)
		return "", false
	}
	c.hits.Add(1)
	return raw, true
}

// Set stores a report with the configured TTL
func (c *RedisCache) Set(ctx context.Context, airportCode, raw string) {
	if err := c.client.Set(ctx, redisKey(airportCode), raw, c.expiry).Err(); err != nil {
		c.logger.Warn("Redis set failed",
			logger.String("airport", airportCode),
			logger.Error(err))
	}
}

// Invalidate deletes the key for an airport
func (c *RedisCache) Invalidate(ctx context.Context, airportCode string) {
	if err := c.client.Del(ctx, redisKey(airportCode)).Err(); err != nil {
		c.logger.Warn("Redis delete failed",
			logger.String("airport", airportCode),
			logger.Error(err))
	}
}

// Stats returns hit and miss counts. Entries is not tracked for Redis.
func (c *RedisCache) Stats() CacheStats {
	return CacheStats{
		Backend:       "redis",
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		ExpiryMinutes: int(c.expiry / time.Minute),
	}
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
