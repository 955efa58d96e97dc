/*
Package cache provides TTL caching for asynchronous sync job statuses.

This package implements both in-memory and Redis-based caches so that admin
clients can poll the outcome of a queued single-feed sync after the request
that queued it has returned.
*/
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Nexora-Open-Source/job-feed-sync/monitoring"
	"github.com/Nexora-Open-Source/job-feed-sync/types"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultJobStatusTTL is how long a finished job status stays readable
const DefaultJobStatusTTL = 24 * time.Hour

// CacheItem represents a cached item with expiration
type CacheItem struct {
	Data      *types.AsyncJobStatus `json:"data"`
	ExpiresAt time.Time             `json:"expires_at"`
}

// IsExpired checks if the cache item has expired
func (c *CacheItem) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// Cache interface defines caching operations
type Cache interface {
	Get(ctx context.Context, key string) (*types.AsyncJobStatus, bool, error)
	Set(ctx context.Context, key string, status *types.AsyncJobStatus, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// InMemoryCache implements an in-memory cache with TTL support
type InMemoryCache struct {
	items map[string]*CacheItem
	mutex sync.RWMutex
	ttl   time.Duration
	stop  chan struct{}
	once  sync.Once
}

// NewInMemoryCache creates a new in-memory cache and starts its sweeper
func NewInMemoryCache(defaultTTL time.Duration) *InMemoryCache {
	cache := &InMemoryCache{
		items: make(map[string]*CacheItem),
		ttl:   defaultTTL,
		stop:  make(chan struct{}),
	}

	go cache.startCleanup(5 * time.Minute)

	return cache
}

// Get retrieves a copy of the cached status
func (c *InMemoryCache) Get(_ context.Context, key string) (*types.AsyncJobStatus, bool, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.items[key]
	if !exists || item.IsExpired() {
		return nil, false, nil
	}

	status := *item.Data
	return &status, true, nil
}

// Set stores a copy of status in the cache
func (c *InMemoryCache) Set(_ context.Context, key string, status *types.AsyncJobStatus, ttl time.Duration) error {
	if status == nil {
		return errors.New("cache: nil status")
	}
	if ttl == 0 {
		ttl = c.ttl
	}

	stored := *status

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.items[key] = &CacheItem{
		Data:      &stored,
		ExpiresAt: time.Now().Add(ttl),
	}

	return nil
}

// Delete removes an item from cache
func (c *InMemoryCache) Delete(_ context.Context, key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.items, key)
	return nil
}

// Len returns the number of entries, expired or not
func (c *InMemoryCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.items)
}

// Close stops the background sweeper
func (c *InMemoryCache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *InMemoryCache) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

// cleanup removes expired items
func (c *InMemoryCache) cleanup() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for key, item := range c.items {
		if item.IsExpired() {
			delete(c.items, key)
		}
	}
}

// RedisClient is the subset of the go-redis client used by RedisCache
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisCache stores job statuses as JSON strings with a Redis TTL
type RedisCache struct {
	client RedisClient
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed cache. Keys are namespaced under prefix.
func NewRedisCache(client RedisClient, prefix string, defaultTTL time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, ttl: defaultTTL}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*types.AsyncJobStatus, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var status types.AsyncJobStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, false, fmt.Errorf("decode cached status %s: %w", key, err)
	}
	return &status, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, status *types.AsyncJobStatus, ttl time.Duration) error {
	if status == nil {
		return errors.New("cache: nil status")
	}
	if ttl == 0 {
		ttl = c.ttl
	}
	raw, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encode status %s: %w", key, err)
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// JobStatusCache manages cached async job statuses
type JobStatusCache struct {
	cache  Cache
	logger *logrus.Logger
	ttl    time.Duration
}

// NewJobStatusCache creates a new job status cache manager
func NewJobStatusCache(cache Cache, logger *logrus.Logger, ttl time.Duration) *JobStatusCache {
	if ttl <= 0 {
		ttl = DefaultJobStatusTTL
	}
	return &JobStatusCache{
		cache:  cache,
		logger: logger,
		ttl:    ttl,
	}
}

func jobKey(jobID string) string {
	return fmt.Sprintf("job:%s", jobID)
}

// GetJobStatus retrieves a cached job status
func (cm *JobStatusCache) GetJobStatus(ctx context.Context, jobID string) (*types.AsyncJobStatus, bool) {
	status, found, err := cm.cache.Get(ctx, jobKey(jobID))
	if err != nil {
		cm.logger.WithFields(logrus.Fields{
			"job_id": jobID,
			"error":  err.Error(),
		}).Error("Failed to read job status from cache")
		monitoring.RecordCacheMiss("job_status")
		return nil, false
	}

	if found {
		monitoring.RecordCacheHit("job_status")
		cm.logger.WithFields(logrus.Fields{
			"job_id": jobID,
			"status": status.Status,
		}).Debug("Cache hit for job status")
	} else {
		monitoring.RecordCacheMiss("job_status")
		cm.logger.WithField("job_id", jobID).Debug("Cache miss for job status")
	}

	return status, found
}

// SetJobStatus stores a job status for the configured TTL
func (cm *JobStatusCache) SetJobStatus(ctx context.Context, status *types.AsyncJobStatus) error {
	if err := cm.cache.Set(ctx, jobKey(status.JobID), status, cm.ttl); err != nil {
		cm.logger.WithFields(logrus.Fields{
			"job_id": status.JobID,
			"status": status.Status,
			"error":  err.Error(),
		}).Error("Failed to cache job status")
		return err
	}
	return nil
}

// InvalidateJob removes a cached job status
func (cm *JobStatusCache) InvalidateJob(ctx context.Context, jobID string) error {
	if err := cm.cache.Delete(ctx, jobKey(jobID)); err != nil {
		cm.logger.WithFields(logrus.Fields{
			"job_id": jobID,
			"error":  err.Error(),
		}).Error("Failed to invalidate job status")
		return err
	}
	return nil
}
