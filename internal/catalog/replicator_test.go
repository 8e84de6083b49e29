package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cart-pricing/internal/catalog"
	"github.com/noah-isme/cart-pricing/internal/lock"
	"github.com/noah-isme/cart-pricing/internal/pricing"
)

func newReplica(t *testing.T, client *redis.Client) *catalog.Replicator {
	t.Helper()
	store, err := catalog.NewStore(catalog.DefaultProducts())
	require.NoError(t, err)
	return &catalog.Replicator{
		Store:  store,
		Cache:  catalog.NewCache(client, time.Minute),
		Locker: &lock.Locker{R: client, RetryBackoff: time.Millisecond, Prefix: "lock:"},
		Logger: zerolog.Nop(),
	}
}

func setFlash(store *catalog.Store, id string) func(context.Context) (bool, error) {
	return func(context.Context) (bool, error) {
		_, err := store.SetFlashSale(id)
		return err == nil, err
	}
}

func TestReplicatorUpdateSavesAndReleasesLock(t *testing.T) {
	mr, client := newRedis(t)
	a := newReplica(t, client)
	ctx := context.Background()

	require.NoError(t, a.Update(ctx, setFlash(a.Store, pricing.ProductKeyboard)))
	require.True(t, mr.Exists(catalog.SnapshotKey))
	require.False(t, mr.Exists("lock:catalog:snapshot:write"), "lock released after save")

	loaded, ok, err := a.Cache.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, loaded[0].IsFlashSaleActive)
}

func TestReplicatorUpdateSkipsSaveWithoutChange(t *testing.T) {
	mr, client := newRedis(t)
	a := newReplica(t, client)
	ctx := context.Background()

	require.NoError(t, a.Update(ctx, func(context.Context) (bool, error) { return false, nil }))
	require.False(t, mr.Exists(catalog.SnapshotKey))

	boom := errors.New("boom")
	require.ErrorIs(t, a.Update(ctx, func(context.Context) (bool, error) { return true, boom }), boom)
	require.False(t, mr.Exists(catalog.SnapshotKey))
}

func TestReplicatorUpdateBuildsOnSharedState(t *testing.T) {
	_, client := newRedis(t)
	a := newReplica(t, client)
	b := newReplica(t, client)
	ctx := context.Background()

	require.NoError(t, a.Update(ctx, setFlash(a.Store, pricing.ProductKeyboard)))
	// b never saw a's change locally; its own update must not drop it
	require.NoError(t, b.Update(ctx, setFlash(b.Store, pricing.ProductMouse)))

	loaded, _, err := b.Cache.Load(ctx)
	require.NoError(t, err)
	require.True(t, loaded[0].IsFlashSaleActive)
	require.True(t, loaded[1].IsFlashSaleActive)

	found, err := a.Pull(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, b.Store.Snapshot(), a.Store.Snapshot())
}

func TestReplicatorPullWithoutSnapshotKeepsStore(t *testing.T) {
	_, client := newRedis(t)
	a := newReplica(t, client)
	_, err := a.Store.SetFlashSale(pricing.ProductSpeaker)
	require.NoError(t, err)

	found, err := a.Pull(context.Background())
	require.NoError(t, err)
	require.False(t, found)
	p, _ := a.Store.Get(pricing.ProductSpeaker)
	require.True(t, p.IsFlashSaleActive)
}

func TestReplicatorPullRejectsInvalidSnapshot(t *testing.T) {
	mr, client := newRedis(t)
	a := newReplica(t, client)
	require.NoError(t, mr.Set(catalog.SnapshotKey, `{"products":[{"id":"","unitPrice":-1}]}`))

	_, err := a.Pull(context.Background())
	require.Error(t, err)
	require.Equal(t, 5, a.Store.Len())
}

func TestReplicatorWatchFollowsOtherReplica(t *testing.T) {
	mr, client := newRedis(t)
	a := newReplica(t, client)
	b := newReplica(t, client)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Watch(ctx) }()
	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(catalog.UpdatesChannel)[catalog.UpdatesChannel] == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, a.Update(context.Background(), setFlash(a.Store, pricing.ProductMonitorArm)))
	require.Eventually(t, func() bool {
		p, _ := b.Store.Get(pricing.ProductMonitorArm)
		return p.IsFlashSaleActive
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestReplicatorWatchWithoutRedisWaits(t *testing.T) {
	store, err := catalog.NewStore(catalog.DefaultProducts())
	require.NoError(t, err)
	r := &catalog.Replicator{Store: store, Cache: catalog.NewCache(nil, time.Minute)}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, r.Watch(ctx))
}
