package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/thomasly/option-analysis/internal/models"
)

// cachedSeries is the Redis payload: the series flattened to parallel
// slices, revalidated through the TimeSeries constructor on the way out.
type cachedSeries struct {
	Timestamps []time.Time `json:"timestamps"`
	Values     []float64   `json:"values"`
	CachedAt   time.Time   `json:"cached_at"`
}

// CacheStats tracks hit/miss counters for the series cache.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
}

// SeriesCache is a Redis-backed price-history cache keyed by
// symbol + date range + frequency. TTL expiry is the invalidation
// policy; Invalidate drops a symbol's entries ahead of the TTL.
type SeriesCache struct {
	redis  *redis.Client
	ttl    time.Duration
	prefix string
	logger *logrus.Logger

	mu    sync.Mutex
	stats CacheStats
}

// NewSeriesCache creates a series cache with the given TTL.
func NewSeriesCache(redisClient *redis.Client, ttl time.Duration, logger *logrus.Logger) *SeriesCache {
	return &SeriesCache{
		redis:  redisClient,
		ttl:    ttl,
		prefix: "series_cache:",
		logger: logger,
	}
}

// Get returns the cached series for the request, if present.
func (c *SeriesCache) Get(ctx context.Context, req SeriesRequest) (*models.TimeSeries, bool) {
	data, err := c.redis.Get(ctx, c.prefix+req.CacheKey()).Result()
	if err == redis.Nil {
		c.count(func(s *CacheStats) { s.Misses++ })
		return nil, false
	}
	if err != nil {
		c.logger.WithError(err).WithField("key", req.CacheKey()).Warn("Redis error reading series cache")
		c.count(func(s *CacheStats) { s.Misses++ })
		return nil, false
	}

	var entry cachedSeries
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		c.logger.WithError(err).WithField("key", req.CacheKey()).Warn("Corrupt series cache entry")
		c.count(func(s *CacheStats) { s.Misses++ })
		return nil, false
	}

	series, err := models.NewTimeSeries(entry.Timestamps, entry.Values)
	if err != nil {
		c.logger.WithError(err).WithField("key", req.CacheKey()).Warn("Cached series failed validation")
		c.count(func(s *CacheStats) { s.Misses++ })
		return nil, false
	}

	c.count(func(s *CacheStats) { s.Hits++ })
	return series, true
}

// Set stores the series under the request's key with the cache TTL.
func (c *SeriesCache) Set(ctx context.Context, req SeriesRequest, series *models.TimeSeries) {
	entry := cachedSeries{
		Timestamps: series.Timestamps(),
		Values:     series.Values(),
		CachedAt:   time.Now(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.WithError(err).WithField("key", req.CacheKey()).Warn("Failed to serialize series for cache")
		return
	}

	if err := c.redis.Set(ctx, c.prefix+req.CacheKey(), data, c.ttl).Err(); err != nil {
		c.logger.WithError(err).WithField("key", req.CacheKey()).Warn("Redis error writing series cache")
		return
	}
	c.count(func(s *CacheStats) { s.Sets++ })
}

// Invalidate removes every cached range for a symbol.
func (c *SeriesCache) Invalidate(ctx context.Context, symbol string) error {
	pattern := c.prefix + symbol + ":*"

	var keys []string
	iter := c.redis.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("error scanning cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("error invalidating cache for %s: %w", symbol, err)
	}
	c.logger.WithFields(logrus.Fields{"symbol": symbol, "entries": len(keys)}).Info("Invalidated series cache")
	return nil
}

// Stats returns a snapshot of the cache counters.
func (c *SeriesCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *SeriesCache) count(update func(*CacheStats)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	update(&c.stats)
}

// CachedFetcher wraps a Fetcher with the series cache.
type CachedFetcher struct {
	fetcher Fetcher
	cache   *SeriesCache
}

// NewCachedFetcher builds the caching decorator.
func NewCachedFetcher(fetcher Fetcher, cache *SeriesCache) *CachedFetcher {
	return &CachedFetcher{fetcher: fetcher, cache: cache}
}

// FetchSeries serves the request from cache when possible, otherwise
// delegates to the wrapped fetcher and stores the result.
func (f *CachedFetcher) FetchSeries(ctx context.Context, req SeriesRequest) (*models.TimeSeries, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if series, ok := f.cache.Get(ctx, req); ok {
		return series, nil
	}

	series, err := f.fetcher.FetchSeries(ctx, req)
	if err != nil {
		return nil, err
	}
	f.cache.Set(ctx, req, series)
	return series, nil
}
