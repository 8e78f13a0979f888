// Package cache provides the Redis backed read cache for catalog queries.
// It exposes three independent namespaces; invalidation is namespace-wide
// via a version counter baked into every key, so stale entries simply stop
// being addressable and age out on their TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/atelier-commerce/atelier/internal/catalog/cachekey"
)

// Namespace identifies one invalidation scope.
type Namespace string

const (
	NamespaceProductLists    Namespace = "product_lists"
	NamespaceCategoryTrees   Namespace = "category_trees"
	NamespacePopularProducts Namespace = "popular_products"
)

const keyPrefix = "catalog"

// MetricsRecorder receives hit/miss counts per namespace.
type MetricsRecorder interface {
	CacheHit(namespace string)
	CacheMiss(namespace string)
}

// Cache wraps Redis based caching with per-namespace versioning. A nil
// client (or an unhealthy one) degrades every read to a miss; catalog reads
// stay available without the cache backend.
type Cache struct {
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	metrics MetricsRecorder
	group   singleflight.Group
}

// New instantiates the cache helper. logger may be nil.
func New(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

// SetMetrics attaches a hit/miss recorder. Safe to skip; counting is then a
// no-op.
func (c *Cache) SetMetrics(recorder MetricsRecorder) {
	if c != nil {
		c.metrics = recorder
	}
}

// Key composes the full cache key for a namespace and params value,
// including the namespace's current version.
func (c *Cache) Key(ctx context.Context, ns Namespace, params any) string {
	encoded := cachekey.EncodeScoped(string(ns), params)
	ver := c.version(ctx, ns)
	return fmt.Sprintf("%s:%s:v%d:%s", keyPrefix, ns, ver, encoded)
}

// FetchJSON loads a cached value into dest, or runs loader on a miss and
// populates the cache with its result. Loader errors propagate; cache-store
// errors degrade to a miss. Concurrent misses for the same key are collapsed
// into a single loader call.
func (c *Cache) FetchJSON(ctx context.Context, ns Namespace, params any, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c == nil || c.client == nil {
		return loadInto(ctx, dest, loader)
	}

	key := c.Key(ctx, ns, params)
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		if uerr := json.Unmarshal(payload, dest); uerr == nil {
			c.recordHit(ns)
			return nil
		}
		// Corrupt entry: fall through and rebuild it.
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("cache get degraded to miss", slog.String("key", key), slog.Any("error", err))
	}
	c.recordMiss(ns)

	raw, err, _ := c.group.Do(key, func() (any, error) {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if serr := c.client.Set(ctx, key, encoded, c.ttl).Err(); serr != nil {
			c.logger.Warn("cache set failed", slog.String("key", key), slog.Any("error", serr))
		}
		return encoded, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.([]byte), dest)
}

// InvalidateProductLists drops every cached product list.
func (c *Cache) InvalidateProductLists(ctx context.Context) {
	c.bump(ctx, NamespaceProductLists)
}

// InvalidateCategoryTrees drops every cached category tree.
func (c *Cache) InvalidateCategoryTrees(ctx context.Context) {
	c.bump(ctx, NamespaceCategoryTrees)
}

// InvalidatePopularProducts drops every cached popular-product list.
func (c *Cache) InvalidatePopularProducts(ctx context.Context) {
	c.bump(ctx, NamespacePopularProducts)
}

// InvalidateAll clears all three namespaces. Product and category writes can
// shift category product counts, which appear in category trees, so write
// paths call this rather than picking namespaces individually.
func (c *Cache) InvalidateAll(ctx context.Context) {
	c.InvalidateProductLists(ctx)
	c.InvalidateCategoryTrees(ctx)
	c.InvalidatePopularProducts(ctx)
}

func (c *Cache) bump(ctx context.Context, ns Namespace) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Incr(ctx, versionKey(ns)).Err(); err != nil {
		c.logger.Warn("cache invalidation failed", slog.String("namespace", string(ns)), slog.Any("error", err))
	}
}

func (c *Cache) version(ctx context.Context, ns Namespace) int64 {
	if c == nil || c.client == nil {
		return 0
	}
	ver, err := c.client.Get(ctx, versionKey(ns)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			if serr := c.client.Set(ctx, versionKey(ns), 1, 0).Err(); serr == nil {
				return 1
			}
		}
		return 0
	}
	return ver
}

func (c *Cache) recordHit(ns Namespace) {
	if c.metrics != nil {
		c.metrics.CacheHit(string(ns))
	}
}

func (c *Cache) recordMiss(ns Namespace) {
	if c.metrics != nil {
		c.metrics.CacheMiss(string(ns))
	}
}

func versionKey(ns Namespace) string {
	return fmt.Sprintf("%s:%s:version", keyPrefix, ns)
}

func loadInto(ctx context.Context, dest any, loader func(context.Context) (any, error)) error {
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
