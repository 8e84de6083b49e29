package catalog_test

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cart-pricing/internal/catalog"
	"github.com/noah-isme/cart-pricing/internal/pricing"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCacheRoundTripAndTTL(t *testing.T) {
	mr, client := newRedis(t)
	cache := catalog.NewCache(client, time.Minute)
	ctx := context.Background()

	_, ok, err := cache.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	products := catalog.DefaultProducts()
	products[0].IsFlashSaleActive = true
	require.NoError(t, cache.Save(ctx, products))

	loaded, ok, err := cache.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, products, loaded)

	mr.FastForward(2 * time.Minute)
	_, ok, err = cache.Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBootstrapPrefersCache(t *testing.T) {
	_, client := newRedis(t)
	cache := catalog.NewCache(client, time.Minute)
	ctx := context.Background()

	store, fromCache, err := catalog.Bootstrap(ctx, cache, catalog.DefaultProducts())
	require.NoError(t, err)
	require.False(t, fromCache)
	require.Equal(t, 5, store.Len())

	_, err = store.SetRecommendedSale(pricing.ProductMonitorArm)
	require.NoError(t, err)
	require.NoError(t, cache.Save(ctx, store.Snapshot()))

	restored, fromCache, err := catalog.Bootstrap(ctx, cache, catalog.DefaultProducts())
	require.NoError(t, err)
	require.True(t, fromCache)
	p, ok := restored.Get(pricing.ProductMonitorArm)
	require.True(t, ok)
	require.True(t, p.IsRecommendedSaleActive)
}

func TestBootstrapFallsBackOnRedisError(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0", MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	store, fromCache, err := catalog.Bootstrap(context.Background(), catalog.NewCache(client, time.Minute), catalog.DefaultProducts())
	require.Error(t, err)
	require.False(t, fromCache)
	require.NotNil(t, store)
	require.Equal(t, 5, store.Len())
}

func TestCacheSaveAnnouncesUpdate(t *testing.T) {
	_, client := newRedis(t)
	cache := catalog.NewCache(client, time.Minute)
	ctx := context.Background()

	sub := cache.Subscribe(ctx)
	require.NotNil(t, sub)
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, cache.Save(ctx, catalog.DefaultProducts()))
	select {
	case msg := <-sub.Channel():
		require.Equal(t, catalog.UpdatesChannel, msg.Channel)
	case <-time.After(time.Second):
		t.Fatal("no update announced")
	}

	require.Nil(t, catalog.NewCache(nil, time.Minute).Subscribe(ctx))
}
