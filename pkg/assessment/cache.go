package assessment

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
	"go.uber.org/zap"
)

const (
	ResourceCacheTTL = 5 * time.Minute

	resourceCacheKeyPrefix = "resources:"
)

type resourceCacheEntry struct {
	tenantID  string
	resources []api.Resource
	fetchedAt time.Time
	// set once the eviction has been logged
	evicted atomic.Bool
}

// ResourceCache keeps the resource inventory of a tenant for a fixed absolute
// TTL. Concurrent misses for the same tenant may both hit the inventory.
type ResourceCache struct {
	logger    *zap.Logger
	inventory Inventory
	cache     *ristretto.Cache
	ttl       time.Duration
	now       func() time.Time
}

type ResourceCacheOption func(*ResourceCache)

func WithCacheClock(now func() time.Time) ResourceCacheOption {
	return func(c *ResourceCache) {
		c.now = now
	}
}

func WithCacheTTL(ttl time.Duration) ResourceCacheOption {
	return func(c *ResourceCache) {
		c.ttl = ttl
	}
}

func NewResourceCache(logger *zap.Logger, inventory Inventory, maxTenants int64, opts ...ResourceCacheOption) (*ResourceCache, error) {
	c := &ResourceCache{
		logger:    logger.Named("resource-cache"),
		inventory: inventory,
		ttl:       ResourceCacheTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if maxTenants <= 0 {
		maxTenants = 1000
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxTenants * 10,
		MaxCost:     maxTenants,
		BufferItems: 64,
		OnEvict:     c.onEvict,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resource cache: %w", err)
	}
	c.cache = cache
	return c, nil
}

func resourceCacheKey(tenantID string) string {
	return resourceCacheKeyPrefix + tenantID
}

// Resources returns the cached inventory of the tenant, fetching it on a miss.
func (c *ResourceCache) Resources(ctx context.Context, tenantID string) ([]api.Resource, error) {
	key := resourceCacheKey(tenantID)
	if v, ok := c.cache.Get(key); ok {
		entry := v.(*resourceCacheEntry)
		if c.now().Sub(entry.fetchedAt) < c.ttl {
			cacheRequests.WithLabelValues("hit").Inc()
			return entry.resources, nil
		}
		c.cache.Del(key)
		c.logEviction(entry, "expired")
	}
	cacheRequests.WithLabelValues("miss").Inc()

	resources, err := c.inventory.ListResourceGroups(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list resource groups: %w", err)
	}

	entry := &resourceCacheEntry{
		tenantID:  tenantID,
		resources: resources,
		fetchedAt: c.now(),
	}
	if !c.cache.SetWithTTL(key, entry, 1, c.ttl) {
		c.logger.Warn("resource cache dropped entry", zap.String("tenantID", tenantID))
	}
	c.cache.Wait()

	c.logger.Debug("cached tenant resources",
		zap.String("tenantID", tenantID),
		zap.Int("count", len(resources)),
	)
	return resources, nil
}

// ListResourceGroups lets the cache stand in for the inventory of scanners and
// collectors so that they share the cached listing.
func (c *ResourceCache) ListResourceGroups(ctx context.Context, tenantID string) ([]api.Resource, error) {
	return c.Resources(ctx, tenantID)
}

func (c *ResourceCache) onEvict(item *ristretto.Item) {
	entry, ok := item.Value.(*resourceCacheEntry)
	if !ok {
		return
	}
	reason := "capacity"
	if !item.Expiration.IsZero() && !item.Expiration.After(time.Now()) {
		reason = "expired"
	} else if c.now().Sub(entry.fetchedAt) >= c.ttl {
		reason = "expired"
	}
	c.logEviction(entry, reason)
}

// logEviction logs an entry's eviction at most once, whether it was found stale
// on read or removed by ristretto.
func (c *ResourceCache) logEviction(entry *resourceCacheEntry, reason string) {
	if !entry.evicted.CompareAndSwap(false, true) {
		return
	}
	c.logger.Info("resource cache entry evicted",
		zap.String("key", resourceCacheKey(entry.tenantID)),
		zap.String("reason", reason),
	)
}

func (c *ResourceCache) Close() {
	c.cache.Close()
}
