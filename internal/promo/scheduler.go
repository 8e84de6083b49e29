package promo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/cart-pricing/internal/catalog"
	"github.com/noah-isme/cart-pricing/internal/events"
	"github.com/noah-isme/cart-pricing/internal/lock"
	"github.com/noah-isme/cart-pricing/internal/obs"
	"github.com/noah-isme/cart-pricing/internal/pricing"
)

// Sale kinds used in logs, metrics and lock keys.
const (
	KindLightning   = "lightning"
	KindRecommended = "recommended"
)

// Config holds the timing of both sale loops.
type Config struct {
	LightningInterval time.Duration
	LightningMaxDelay time.Duration
	RecommendInterval time.Duration
	RecommendMaxDelay time.Duration
	// LockTTL bounds how long one replica owns a tick. Defaults to half the loop interval.
	LockTTL time.Duration
}

// DefaultConfig returns the store's standard promotion timing.
func DefaultConfig() Config {
	return Config{
		LightningInterval: 30 * time.Second,
		LightningMaxDelay: 10 * time.Second,
		RecommendInterval: 60 * time.Second,
		RecommendMaxDelay: 20 * time.Second,
	}
}

// Emitter publishes domain events.
type Emitter interface {
	Emit(ctx context.Context, topic string, aggregateID string, payload any) (events.Event, error)
}

// Selection reports the product a shopper most recently picked.
type Selection interface {
	LastSelected() string
}

// SharedCatalog keeps the local store in step with the other replicas.
// Update applies a change on top of the shared state and publishes it; Pull
// reloads the shared state.
type SharedCatalog interface {
	Update(ctx context.Context, fn func(context.Context) (bool, error)) error
	Pull(ctx context.Context) (bool, error)
}

// Scheduler flips promotional flags on the catalog at random intervals.
// With Locker set only one replica runs each tick; Shared carries its change
// to every other replica.
type Scheduler struct {
	Store     *catalog.Store
	Events    Emitter
	Selection Selection
	Locker    *lock.Locker
	Shared    SharedCatalog
	Policy    pricing.Policy
	Config    Config
	Logger    zerolog.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewScheduler builds a scheduler with a time-seeded random source.
func NewScheduler(store *catalog.Store, emitter Emitter, selection Selection, cfg Config, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		Store:     store,
		Events:    emitter,
		Selection: selection,
		Policy:    pricing.DefaultPolicy(),
		Config:    cfg,
		Logger:    logger,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Scheduler) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rnd == nil {
		s.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s.rnd.Intn(n)
}

func (s *Scheduler) jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(s.intn(int(max)))
}

// Run drives both sale loops until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.Store == nil {
		return errors.New("promo: catalog store not configured")
	}
	cfg := s.Config
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.loop(gctx, KindLightning, s.jitter(cfg.LightningMaxDelay), cfg.LightningInterval)
	})
	g.Go(func() error {
		return s.loop(gctx, KindRecommended, s.jitter(cfg.RecommendMaxDelay), cfg.RecommendInterval)
	})
	err := g.Wait()
	if ctx.Err() != nil {
		// stopped by the caller
		return nil
	}
	return err
}

func (s *Scheduler) loop(ctx context.Context, kind string, delay, interval time.Duration) error {
	if interval <= 0 {
		s.Logger.Info().Str("kind", kind).Msg("promo loop disabled")
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if _, _, err := s.Tick(ctx, kind); err != nil {
			s.Logger.Error().Err(err).Str("kind", kind).Msg("promo tick failed")
		}
	}
}

// Tick runs one tick of the given sale kind. When another replica owns the
// tick the local store is reloaded from the shared catalog instead, and false
// is returned.
func (s *Scheduler) Tick(ctx context.Context, kind string) (pricing.Product, bool, error) {
	var (
		interval time.Duration
		trigger  func(context.Context) (pricing.Product, bool, error)
	)
	switch kind {
	case KindLightning:
		interval, trigger = s.Config.LightningInterval, s.TriggerLightning
	case KindRecommended:
		interval, trigger = s.Config.RecommendInterval, s.TriggerRecommended
	default:
		return pricing.Product{}, false, fmt.Errorf("promo: unknown sale kind %q", kind)
	}

	owned, err := s.ownTick(ctx, kind, interval)
	if err != nil {
		obs.CountPromo(kind, "error")
		return pricing.Product{}, false, fmt.Errorf("claim %s tick: %w", kind, err)
	}
	if owned {
		return trigger(ctx)
	}
	obs.CountPromo(kind, "skipped")
	if s.Shared != nil {
		if _, err := s.Shared.Pull(ctx); err != nil {
			return pricing.Product{}, false, err
		}
	}
	return pricing.Product{}, false, nil
}

// ownTick reports whether this replica should run the tick. Without a locker
// every tick is owned.
func (s *Scheduler) ownTick(ctx context.Context, kind string, interval time.Duration) (bool, error) {
	if s.Locker == nil {
		return true, nil
	}
	ttl := s.Config.LockTTL
	if ttl <= 0 {
		ttl = interval / 2
	}
	return s.Locker.HoldFor(ctx, "promo:"+kind, ttl)
}

// TriggerLightning runs one lightning sale tick. It reports the product put on
// sale, or false when no product qualified.
func (s *Scheduler) TriggerLightning(ctx context.Context) (pricing.Product, bool, error) {
	updated, ok, err := s.apply(ctx, KindLightning, func() (pricing.Product, bool, error) {
		picked, ok := PickLightning(s.Store.Snapshot(), s.intn)
		if !ok {
			return pricing.Product{}, false, nil
		}
		p, err := s.Store.SetFlashSale(picked.ID)
		return p, err == nil, err
	})
	if err != nil || !ok {
		return pricing.Product{}, false, err
	}
	return updated, true, s.announce(ctx, KindLightning, events.TopicLightningSale, updated)
}

// TriggerRecommended runs one recommendation tick against the last selected product.
func (s *Scheduler) TriggerRecommended(ctx context.Context) (pricing.Product, bool, error) {
	last := ""
	if s.Selection != nil {
		last = s.Selection.LastSelected()
	}
	updated, ok, err := s.apply(ctx, KindRecommended, func() (pricing.Product, bool, error) {
		picked, ok := PickRecommended(s.Store.Snapshot(), last)
		if !ok {
			return pricing.Product{}, false, nil
		}
		p, err := s.Store.SetRecommendedSale(picked.ID)
		return p, err == nil, err
	})
	if err != nil || !ok {
		return pricing.Product{}, false, err
	}
	return updated, true, s.announce(ctx, KindRecommended, events.TopicRecommendedSale, updated)
}

// apply runs change against the store, through Shared when configured so the
// pick sees the latest shared flags.
func (s *Scheduler) apply(ctx context.Context, kind string, change func() (pricing.Product, bool, error)) (pricing.Product, bool, error) {
	var (
		updated pricing.Product
		ok      bool
	)
	run := func(context.Context) (bool, error) {
		var err error
		updated, ok, err = change()
		return ok, err
	}
	var err error
	if s.Shared != nil {
		err = s.Shared.Update(ctx, run)
	} else {
		_, err = run(ctx)
	}
	if err != nil {
		obs.CountPromo(kind, "error")
		return pricing.Product{}, false, err
	}
	if !ok {
		obs.CountPromo(kind, "none")
	}
	return updated, ok, nil
}

func (s *Scheduler) announce(ctx context.Context, kind, topic string, p pricing.Product) error {
	obs.CountPromo(kind, "applied")
	payload := events.SalePayload{
		ProductID:    p.ID,
		ProductName:  p.Name,
		UnitPrice:    p.UnitPrice,
		CurrentPrice: s.Policy.CurrentPrice(p),
		Label:        catalog.SaleLabel(p),
	}
	s.Logger.Info().
		Str("kind", kind).
		Str("product_id", p.ID).
		Int64("current_price", payload.CurrentPrice).
		Str("label", payload.Label).
		Msg("promo sale applied")
	if s.Events == nil {
		return nil
	}
	_, err := s.Events.Emit(ctx, topic, p.ID, payload)
	return err
}
