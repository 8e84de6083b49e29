package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/cart-pricing/internal/pricing"
)

const (
	// SnapshotKey is the Redis key holding the cached catalog.
	SnapshotKey = "catalog:snapshot"
	// UpdatesChannel carries a notice every time the snapshot is rewritten.
	UpdatesChannel = "catalog:updates"
)

// Cache persists catalog snapshots in Redis so promotional flags survive a
// restart within the TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	key    string
}

// NewCache constructs a cache helper. A nil client yields a cache that does nothing.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl, key: SnapshotKey}
}

type cachedSnapshot struct {
	Products []pricing.Product `json:"products"`
	SavedAt  time.Time         `json:"savedAt"`
}

// Load returns the cached snapshot. It reports whether the key existed.
func (c *Cache) Load(ctx context.Context) ([]pricing.Product, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var snap cachedSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false, err
	}
	return snap.Products, true, nil
}

// Save stores products with the configured TTL and announces the write on
// UpdatesChannel. A non-positive TTL keeps the key forever.
func (c *Cache) Save(ctx context.Context, products []pricing.Product) error {
	if c == nil || c.client == nil {
		return nil
	}
	savedAt := time.Now().UTC()
	data, err := json.Marshal(cachedSnapshot{Products: products, SavedAt: savedAt})
	if err != nil {
		return err
	}
	ttl := c.ttl
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, c.key, data, ttl).Err(); err != nil {
		return err
	}
	if err := c.client.Publish(ctx, UpdatesChannel, savedAt.Format(time.RFC3339Nano)).Err(); err != nil {
		return fmt.Errorf("announce catalog snapshot: %w", err)
	}
	return nil
}

// Subscribe listens on UpdatesChannel. It returns nil when the cache has no client.
func (c *Cache) Subscribe(ctx context.Context) *redis.PubSub {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Subscribe(ctx, UpdatesChannel)
}

// Bootstrap builds a store from the cached snapshot when one exists and is
// valid, otherwise from seed. It reports whether the cache was used.
func Bootstrap(ctx context.Context, cache *Cache, seed []pricing.Product) (*Store, bool, error) {
	cached, ok, err := cache.Load(ctx)
	if err == nil && ok {
		if store, storeErr := NewStore(cached); storeErr == nil {
			return store, true, nil
		}
	}
	store, seedErr := NewStore(seed)
	if seedErr != nil {
		return nil, false, seedErr
	}
	return store, false, err
}
