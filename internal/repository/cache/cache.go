// Package cache implements the keyed result cache over a TTL-aware KV store.
//
// The cache is strictly optional: every operation degrades to a miss or a
// no-op when the backing store is missing or unreachable. Callers never see
// cache errors.
package cache

import (
	"context"
	"crypto/md5" //nolint:gosec // key derivation, not authentication; 128-bit and deterministic is all that matters
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/tradefind/tradefind/internal/db"
	"github.com/tradefind/tradefind/internal/domain"
)

// store is the consumer interface for the cache backing store (ISP).
type store interface {
	db.KVStore
	db.InfoReader
	db.Pinger
}

// Cache is a namespaced get/set/delete cache with deterministic key
// derivation and per-entry TTL.
type Cache struct {
	store      store
	prefix     string
	defaultTTL time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// Config holds cache construction parameters.
type Config struct {
	KeyPrefix  string
	DefaultTTL time.Duration
}

// New creates a Cache. s may be nil, in which case every read is a miss and
// every write a no-op. cacheTotal is a counter vec with labels
// ("namespace", "result") and may be nil in tests.
func New(s store, cfg Config, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		store:      s,
		prefix:     cfg.KeyPrefix,
		defaultTTL: ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Key derives the storage key for a namespace and its input arguments.
// The digest input is "namespace:arg1:arg2:..."; the namespace is repeated
// in cleartext outside the digest so whole namespaces stay glob-addressable.
func (c *Cache) Key(namespace string, args ...string) string {
	parts := append([]string{namespace}, args...)
	sum := md5.Sum([]byte(strings.Join(parts, ":"))) //nolint:gosec // see package doc
	return c.prefix + namespace + ":" + hex.EncodeToString(sum[:])
}

// Get reads and decodes a cached entry into dest. Returns false on any
// failure: absent key, unreachable store, or an undecodable payload.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if c.store == nil {
		return false
	}

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !isNotFound(err) {
			c.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		c.count(key, "miss")
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		// Undecodable entries are treated as absent, never surfaced.
		c.logger.Warn("Cache entry undecodable, treating as miss",
			zap.String("key", key), zap.Error(err))
		c.count(key, "miss")
		return false
	}

	c.count(key, "hit")
	return true
}

// Set encodes value as JSON and stores it under key. ttl <= 0 selects the
// default TTL. Failures are logged and swallowed.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if c.store == nil {
		return
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("Cache value not serializable", zap.String("key", key), zap.Error(err))
		return
	}

	if err := c.store.SetWithTTL(ctx, key, data, ttl); err != nil {
		c.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes a single key. Failures are logged and swallowed.
func (c *Cache) Delete(ctx context.Context, key string) {
	if c.store == nil {
		return
	}
	if err := c.store.Del(ctx, key); err != nil {
		c.logger.Warn("Cache delete failed", zap.String("key", key), zap.Error(err))
	}
}

// DeletePattern removes every key matching the glob pattern and returns the
// number deleted. The pattern is matched against full storage keys.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) int {
	if c.store == nil {
		return 0
	}

	keys, err := c.store.Scan(ctx, pattern)
	if err != nil {
		c.logger.Warn("Cache pattern scan failed", zap.String("pattern", pattern), zap.Error(err))
		return 0
	}
	if len(keys) == 0 {
		return 0
	}

	n, err := c.store.DelMulti(ctx, keys)
	if err != nil {
		c.logger.Warn("Cache pattern delete failed", zap.String("pattern", pattern), zap.Error(err))
		return 0
	}
	return n
}

// DeleteNamespace wipes every entry in a namespace.
func (c *Cache) DeleteNamespace(ctx context.Context, namespace string) int {
	return c.DeletePattern(ctx, c.prefix+namespace+":*")
}

// InvalidateContractor removes the per-record entries for a contractor id.
// Keys are digests, so the derived keys are deleted directly rather than
// matched by id glob.
func (c *Cache) InvalidateContractor(ctx context.Context, id string) {
	c.Delete(ctx, c.Key(domain.CacheNamespaceContractor, id))
	c.Delete(ctx, c.Key(domain.CacheNamespaceEmbedding, id))
}

// InvalidateSearch wipes the search and rag namespaces wholesale. Coarse on
// purpose: any contractor mutation may shift ranking, and availability wins
// over precision here.
func (c *Cache) InvalidateSearch(ctx context.Context) int {
	n := c.DeleteNamespace(ctx, domain.CacheNamespaceSearch)
	n += c.DeleteNamespace(ctx, domain.CacheNamespaceRAG)
	return n
}

// Clear wipes every entry under the cache key prefix, across all namespaces.
func (c *Cache) Clear(ctx context.Context) int {
	return c.DeletePattern(ctx, c.prefix+"*")
}

// Stats reports backing store statistics for the cache admin surface.
type Stats struct {
	Status                 string `json:"status"`
	UsedMemory             string `json:"used_memory,omitempty"`
	ConnectedClients       int64  `json:"connected_clients,omitempty"`
	TotalCommandsProcessed int64  `json:"total_commands_processed,omitempty"`
	KeyspaceHits           int64  `json:"keyspace_hits,omitempty"`
	KeyspaceMisses         int64  `json:"keyspace_misses,omitempty"`
}

// StatsReport returns store statistics, or {status: disconnected} when the
// store is absent or unreachable.
func (c *Cache) StatsReport(ctx context.Context) Stats {
	if c.store == nil {
		return Stats{Status: "disconnected"}
	}

	info, err := c.store.Info(ctx)
	if err != nil {
		c.logger.Warn("Cache stats unavailable", zap.Error(err))
		return Stats{Status: "disconnected"}
	}

	return Stats{
		Status:                 "connected",
		UsedMemory:             info.UsedMemoryHuman,
		ConnectedClients:       info.ConnectedClients,
		TotalCommandsProcessed: info.TotalCommandsProcessed,
		KeyspaceHits:           info.KeyspaceHits,
		KeyspaceMisses:         info.KeyspaceMisses,
	}
}

// count increments the hit/miss counter, labelling by the key's namespace.
func (c *Cache) count(key, result string) {
	if c.cacheTotal == nil {
		return
	}
	ns := namespaceOf(strings.TrimPrefix(key, c.prefix))
	c.cacheTotal.WithLabelValues(ns, result).Inc()
}

func namespaceOf(key string) string {
	ns, _, ok := strings.Cut(key, ":")
	if !ok {
		return "unknown"
	}
	return ns
}

func isNotFound(err error) bool {
	return errors.Is(err, db.ErrKeyNotFound)
}
