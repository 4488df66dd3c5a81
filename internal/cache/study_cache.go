// Package cache layers an in-process LRU over an optional Redis tier
// for study list pages, study details and pathology records. Keys are
// scoped so a mutation can invalidate exactly the views it stales.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/study-review-server/internal/domain"
)

const keyPrefix = "review:cache:"

// Scope names one cache segment. List entries are keyed by a hash of the
// query parameters; detail and pathology entries by study uid.
type Scope string

const (
	ScopeList        Scope = "list"
	ScopeStudy       Scope = "study"
	ScopePathologies Scope = "pathologies"
)

// Config tunes the study cache.
type Config struct {
	// RedisClient enables the distributed tier when non-nil.
	RedisClient *redis.Client
	// DefaultTTL applies to both tiers.
	DefaultTTL time.Duration
	// MemorySize caps the in-process LRU entry count.
	MemorySize int
	// Enabled short-circuits every operation when false.
	Enabled bool
}

// Stats tracks hit behavior across both tiers.
type Stats struct {
	MemoryHits int64 `json:"memory_hits"`
	RedisHits  int64 `json:"redis_hits"`
	Misses     int64 `json:"misses"`
}

// StudyCache is the two-tier cache. The memory tier fronts Redis; a
// Redis hit is promoted into memory on the way back.
type StudyCache struct {
	config Config
	memory *lru.LRU[string, []byte]
	logger *logrus.Logger

	statsMutex sync.Mutex
	stats      Stats

	// listKeys tracks which list entries exist so invalidation does not
	// need a memory-tier scan.
	listMutex sync.Mutex
	listKeys  map[string]struct{}
}

// NewStudyCache builds the cache, applying defaults for zero values.
func NewStudyCache(config Config, logger *logrus.Logger) *StudyCache {
	if config.DefaultTTL == 0 {
		config.DefaultTTL = 5 * time.Minute
	}
	if config.MemorySize == 0 {
		config.MemorySize = 1024
	}
	return &StudyCache{
		config:   config,
		memory:   lru.NewLRU[string, []byte](config.MemorySize, nil, config.DefaultTTL),
		logger:   logger,
		listKeys: make(map[string]struct{}),
	}
}

// ListKey derives the cache key for one page of listing parameters.
// Identical parameters always hash to the same key.
func ListKey(params domain.ListProcessingsParams) string {
	raw, _ := json.Marshal(params)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Get looks up key within scope and unmarshals the hit into out.
func (c *StudyCache) Get(ctx context.Context, scope Scope, key string, out interface{}) bool {
	if !c.config.Enabled {
		return false
	}
	full := fullKey(scope, key)

	if data, ok := c.memory.Get(full); ok {
		if json.Unmarshal(data, out) == nil {
			c.bump(func(s *Stats) { s.MemoryHits++ })
			return true
		}
		c.memory.Remove(full)
	}

	if c.config.RedisClient != nil {
		data, err := c.config.RedisClient.Get(ctx, keyPrefix+full).Bytes()
		if err == nil && json.Unmarshal(data, out) == nil {
			c.memory.Add(full, data)
			c.bump(func(s *Stats) { s.RedisHits++ })
			return true
		}
	}

	c.bump(func(s *Stats) { s.Misses++ })
	return false
}

// Set stores value under key within scope in both tiers.
func (c *StudyCache) Set(ctx context.Context, scope Scope, key string, value interface{}) error {
	if !c.config.Enabled {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling cache entry %s/%s: %w", scope, key, err)
	}

	full := fullKey(scope, key)
	c.memory.Add(full, data)
	if scope == ScopeList {
		c.listMutex.Lock()
		c.listKeys[full] = struct{}{}
		c.listMutex.Unlock()
	}

	if c.config.RedisClient != nil {
		if err := c.config.RedisClient.Set(ctx, keyPrefix+full, data, c.config.DefaultTTL).Err(); err != nil {
			// The memory tier already holds the entry; a Redis write
			// failure degrades sharing, not correctness.
			c.logger.WithFields(logrus.Fields{
				"scope": scope,
				"error": err.Error(),
			}).Warn("Redis cache write failed")
		}
	}
	return nil
}

// InvalidateStudy drops the study's detail and pathology entries plus
// every list page, since any of them may embed the stale record.
func (c *StudyCache) InvalidateStudy(ctx context.Context, uid string) error {
	if !c.config.Enabled {
		return nil
	}
	c.memory.Remove(fullKey(ScopeStudy, uid))
	c.memory.Remove(fullKey(ScopePathologies, uid))
	c.invalidateListsMemory()

	if c.config.RedisClient != nil {
		if err := c.config.RedisClient.Del(ctx,
			keyPrefix+fullKey(ScopeStudy, uid),
			keyPrefix+fullKey(ScopePathologies, uid),
		).Err(); err != nil {
			return domain.NewReviewError(domain.ErrCache, "invalidating study entries", err.Error())
		}
		if err := c.deleteRedisScope(ctx, ScopeList); err != nil {
			return err
		}
	}
	return nil
}

// InvalidateLists drops every cached list page in both tiers.
func (c *StudyCache) InvalidateLists(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}
	c.invalidateListsMemory()
	if c.config.RedisClient != nil {
		return c.deleteRedisScope(ctx, ScopeList)
	}
	return nil
}

// Clear empties both tiers and resets stats.
func (c *StudyCache) Clear(ctx context.Context) error {
	c.memory.Purge()
	c.listMutex.Lock()
	c.listKeys = make(map[string]struct{})
	c.listMutex.Unlock()

	c.statsMutex.Lock()
	c.stats = Stats{}
	c.statsMutex.Unlock()

	if c.config.RedisClient != nil {
		keys, err := c.config.RedisClient.Keys(ctx, keyPrefix+"*").Result()
		if err != nil {
			return domain.NewReviewError(domain.ErrCache, "listing cache keys", err.Error())
		}
		if len(keys) > 0 {
			if err := c.config.RedisClient.Del(ctx, keys...).Err(); err != nil {
				return domain.NewReviewError(domain.ErrCache, "clearing cache", err.Error())
			}
		}
	}
	return nil
}

// GetStats returns a snapshot of hit counters.
func (c *StudyCache) GetStats() Stats {
	c.statsMutex.Lock()
	defer c.statsMutex.Unlock()
	return c.stats
}

// IsHealthy verifies the memory tier and, when configured, Redis.
func (c *StudyCache) IsHealthy(ctx context.Context) bool {
	if !c.config.Enabled {
		return true
	}
	probe := "health:" + time.Now().Format("20060102150405.000")
	c.memory.Add(probe, []byte("ok"))
	_, ok := c.memory.Get(probe)
	c.memory.Remove(probe)
	if !ok {
		return false
	}
	if c.config.RedisClient != nil {
		return c.config.RedisClient.Ping(ctx).Err() == nil
	}
	return true
}

func (c *StudyCache) invalidateListsMemory() {
	c.listMutex.Lock()
	defer c.listMutex.Unlock()
	for key := range c.listKeys {
		c.memory.Remove(key)
	}
	c.listKeys = make(map[string]struct{})
}

func (c *StudyCache) deleteRedisScope(ctx context.Context, scope Scope) error {
	keys, err := c.config.RedisClient.Keys(ctx, keyPrefix+string(scope)+":*").Result()
	if err != nil {
		return domain.NewReviewError(domain.ErrCache, "listing "+string(scope)+" cache keys", err.Error())
	}
	if len(keys) > 0 {
		if err := c.config.RedisClient.Del(ctx, keys...).Err(); err != nil {
			return domain.NewReviewError(domain.ErrCache, "invalidating "+string(scope)+" cache", err.Error())
		}
	}
	return nil
}

func (c *StudyCache) bump(update func(*Stats)) {
	c.statsMutex.Lock()
	update(&c.stats)
	c.statsMutex.Unlock()
}

func fullKey(scope Scope, key string) string {
	return string(scope) + ":" + key
}
