package cache

import (
	"context"
	"time"

	"github.com/circleapp/circle/pkg/config"
)

// Namespace isolates one entity family's keys and TTL policy.
type Namespace string

const (
	NamespaceAccount       Namespace = "account"
	NamespacePost          Namespace = "post"
	NamespaceStory         Namespace = "story"
	NamespaceService       Namespace = "service"
	NamespaceAdvertisement Namespace = "advertisement"
)

// Namespaces lists every cache namespace.
var Namespaces = []Namespace{
	NamespaceAccount,
	NamespacePost,
	NamespaceStory,
	NamespaceService,
	NamespaceAdvertisement,
}

// Store is a namespaced key-value store with per-key TTL.
//
// The store is advisory: it holds copies of durable documents and a miss
// is always correct. Implementations must therefore never surface
// failures — a broken backend degrades to permanent misses.
type Store interface {
	// Get returns the cached value, or ok=false when absent or expired.
	Get(ctx context.Context, ns Namespace, key string) (value []byte, ok bool)
	// Set stores value under key. ttl <= 0 selects the namespace default.
	Set(ctx context.Context, ns Namespace, key string, value []byte, ttl time.Duration)
	// Delete removes a single key.
	Delete(ctx context.Context, ns Namespace, key string)
	// DeletePrefix removes every key in ns starting with prefix.
	DeletePrefix(ctx context.Context, ns Namespace, prefix string)
	// Clear removes every key in ns.
	Clear(ctx context.Context, ns Namespace)
}

// TTLs holds the per-namespace default TTLs.
type TTLs map[Namespace]time.Duration

// TTLsFromConfig builds the namespace TTL table from configuration.
func TTLsFromConfig(cfg *config.CacheConfig) TTLs {
	return TTLs{
		NamespaceAccount:       time.Duration(cfg.AccountTTL) * time.Second,
		NamespacePost:          time.Duration(cfg.PostTTL) * time.Second,
		NamespaceStory:         time.Duration(cfg.StoryTTL) * time.Second,
		NamespaceService:       time.Duration(cfg.ServiceTTL) * time.Second,
		NamespaceAdvertisement: time.Duration(cfg.AdvertisementTTL) * time.Second,
	}
}

// Cache couples a Store with the per-namespace invalidation policy.
//
// Precise namespaces invalidate the named keys plus the listing keys that
// embed values derived from them; coarse namespaces drop everything,
// trading hit rate for simple reasoning.
type Cache struct {
	Store   Store
	precise map[Namespace]bool
}

// New wires a Cache around store using the configured precision levels.
func New(store Store, cfg *config.CacheConfig) *Cache {
	return &Cache{
		Store: store,
		precise: map[Namespace]bool{
			NamespaceAccount: cfg.PreciseAccount,
			NamespacePost:    cfg.PrecisePost,
		},
	}
}

// Get reads a cached value.
func (c *Cache) Get(ctx context.Context, ns Namespace, key string) ([]byte, bool) {
	return c.Store.Get(ctx, ns, key)
}

// Set writes a cached value with the namespace default TTL.
func (c *Cache) Set(ctx context.Context, ns Namespace, key string, value []byte) {
	c.Store.Set(ctx, ns, key, value, 0)
}

// SetTTL writes a cached value with an explicit TTL.
func (c *Cache) SetTTL(ctx context.Context, ns Namespace, key string, value []byte, ttl time.Duration) {
	c.Store.Set(ctx, ns, key, value, ttl)
}

// Invalidate drops the cache entries that depended on a mutated entity.
// keys name the entity's detail entries; prefixes name the listing key
// families that embedded its derived values. In coarse mode the whole
// namespace is cleared instead.
func (c *Cache) Invalidate(ctx context.Context, ns Namespace, keys []string, prefixes []string) {
	if !c.precise[ns] {
		c.Store.Clear(ctx, ns)
		return
	}
	for _, k := range keys {
		c.Store.Delete(ctx, ns, k)
	}
	for _, p := range prefixes {
		c.Store.DeletePrefix(ctx, ns, p)
	}
}
