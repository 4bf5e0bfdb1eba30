// Package cache provides read-through caches for utilization summaries. Entries
// expire after a fixed TTL and are never invalidated by writes.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"github.com/example/lab-timetable/internal/application"
)

// LookupObserver receives the result of every cache lookup.
type LookupObserver interface {
	ObserveCacheLookup(backend string, hit bool)
}

type noopObserver struct{}

func (noopObserver) ObserveCacheLookup(string, bool) {}

func observerOrNoop(observer LookupObserver) LookupObserver {
	if observer == nil {
		return noopObserver{}
	}
	return observer
}

// MemoryCache is an in-process LRU with per-entry expiry.
type MemoryCache struct {
	lru      *expirable.LRU[string, application.UtilizationSummary]
	observer LookupObserver
}

// NewMemoryCache builds a cache holding at most size entries for ttl each.
func NewMemoryCache(size int, ttl time.Duration, observer LookupObserver) *MemoryCache {
	if size <= 0 {
		size = 128
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &MemoryCache{
		lru:      expirable.NewLRU[string, application.UtilizationSummary](size, nil, ttl),
		observer: observerOrNoop(observer),
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (application.UtilizationSummary, bool) {
	value, ok := c.lru.Get(key)
	c.observer.ObserveCacheLookup("memory", ok)
	if !ok {
		return application.UtilizationSummary{}, false
	}
	return cloneSummary(value), true
}

func (c *MemoryCache) Add(ctx context.Context, key string, value application.UtilizationSummary) {
	c.lru.Add(key, cloneSummary(value))
}

// Len reports the number of live entries.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

func cloneSummary(summary application.UtilizationSummary) application.UtilizationSummary {
	out := summary
	if summary.Rooms != nil {
		out.Rooms = append([]application.RoomUtilization(nil), summary.Rooms...)
	}
	return out
}

// RedisCache shares summaries between service instances through Redis.
// Backend failures are logged and reported as misses.
type RedisCache struct {
	rdb      redis.UniversalClient
	ttl      time.Duration
	prefix   string
	observer LookupObserver
	logger   *slog.Logger
}

// NewRedisCache stores entries under prefix with the given ttl.
func NewRedisCache(rdb redis.UniversalClient, ttl time.Duration, observer LookupObserver, logger *slog.Logger) *RedisCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{
		rdb:      rdb,
		ttl:      ttl,
		prefix:   "timetable:",
		observer: observerOrNoop(observer),
		logger:   logger.With("component", "RedisCache"),
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) (application.UtilizationSummary, bool) {
	raw, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "cache read failed", "key", key, "error", err)
		}
		c.observer.ObserveCacheLookup("redis", false)
		return application.UtilizationSummary{}, false
	}

	var summary application.UtilizationSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		c.logger.WarnContext(ctx, "cache entry is corrupt", "key", key, "error", err)
		c.observer.ObserveCacheLookup("redis", false)
		return application.UtilizationSummary{}, false
	}
	c.observer.ObserveCacheLookup("redis", true)
	return summary, true
}

func (c *RedisCache) Add(ctx context.Context, key string, value application.UtilizationSummary) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.WarnContext(ctx, "cache entry not encodable", "key", key, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "cache write failed", "key", key, "error", err)
	}
}
