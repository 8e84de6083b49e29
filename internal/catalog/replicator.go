package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/cart-pricing/internal/lock"
)

const (
	snapshotLockKey = "catalog:snapshot:write"
	snapshotLockTTL = 5 * time.Second
)

// Replicator keeps a replica's Store in step with the snapshot shared through
// Cache. Changes go through Update, which reloads the snapshot, applies the
// change and saves it back while holding the cluster-wide write lock.
type Replicator struct {
	Store  *Store
	Cache  *Cache
	Locker *lock.Locker
	Logger zerolog.Logger

	// mu orders reloads against local writes so an older snapshot never
	// overwrites a newer one.
	mu sync.Mutex
}

// Update applies fn to the store on top of the latest shared snapshot. The
// snapshot is saved only when fn reports a change.
func (r *Replicator) Update(ctx context.Context, fn func(context.Context) (bool, error)) error {
	if r == nil || r.Store == nil {
		return errors.New("catalog: replicator store not configured")
	}
	apply := func(ctx context.Context) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, err := r.pull(ctx); err != nil {
			return err
		}
		changed, err := fn(ctx)
		if err != nil || !changed {
			return err
		}
		if err := r.Cache.Save(ctx, r.Store.Snapshot()); err != nil {
			return fmt.Errorf("save catalog snapshot: %w", err)
		}
		return nil
	}
	if r.Locker == nil {
		return apply(ctx)
	}
	return r.Locker.WithLock(ctx, snapshotLockKey, snapshotLockTTL, apply)
}

// Pull replaces the store contents with the shared snapshot. It reports
// whether a snapshot was found.
func (r *Replicator) Pull(ctx context.Context) (bool, error) {
	if r == nil || r.Store == nil {
		return false, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pull(ctx)
}

func (r *Replicator) pull(ctx context.Context) (bool, error) {
	products, ok, err := r.Cache.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load catalog snapshot: %w", err)
	}
	if !ok {
		return false, nil
	}
	if err := r.Store.Restore(products); err != nil {
		return false, fmt.Errorf("restore catalog snapshot: %w", err)
	}
	return true, nil
}

// Watch reloads the store whenever any replica saves a snapshot, until ctx is
// cancelled. Without a Redis client it just waits for ctx.
func (r *Replicator) Watch(ctx context.Context) error {
	sub := r.Cache.Subscribe(ctx)
	if sub == nil {
		<-ctx.Done()
		return nil
	}
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe catalog updates: %w", err)
	}
	// catch up on anything saved before the subscription was live
	if _, err := r.Pull(ctx); err != nil {
		r.Logger.Warn().Err(err).Msg("catalog reload failed")
	}

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-msgs:
			if !ok {
				return nil
			}
			if _, err := r.Pull(ctx); err != nil {
				r.Logger.Warn().Err(err).Msg("catalog reload failed")
				continue
			}
			r.Logger.Debug().Msg("catalog reloaded from snapshot")
		}
	}
}
