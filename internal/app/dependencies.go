package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/cart-pricing/internal/cart"
	"github.com/noah-isme/cart-pricing/internal/catalog"
	"github.com/noah-isme/cart-pricing/internal/config"
	"github.com/noah-isme/cart-pricing/internal/events"
	"github.com/noah-isme/cart-pricing/internal/lock"
	"github.com/noah-isme/cart-pricing/internal/obs"
	"github.com/noah-isme/cart-pricing/internal/pricing"
	"github.com/noah-isme/cart-pricing/internal/promo"
	"github.com/noah-isme/cart-pricing/internal/quote"
	"github.com/noah-isme/cart-pricing/internal/ratelimit"
)

// Options carries the process-level resources the application is built from.
type Options struct {
	Config *config.Config
	Logger zerolog.Logger
	Redis  *redis.Client
	// Registry receives domain and HTTP metrics. Nil selects the default registerer.
	Registry *prometheus.Registry
	// MetricsNamespace prefixes every Prometheus collector.
	MetricsNamespace string
	// MetricsBuckets overrides the HTTP latency histogram buckets (milliseconds).
	MetricsBuckets []float64
	Tracing        bool
	Metrics        bool
	// Now overrides the clock for carts and quotes.
	Now func() time.Time
}

// Dependencies enumerates the services shared across modules.
type Dependencies struct {
	Config       *config.Config
	Logger       zerolog.Logger
	Redis        *redis.Client
	Policy       pricing.Policy
	Catalog      *catalog.Store
	CatalogCache *catalog.Cache
	Replicator   *catalog.Replicator
	Carts        *cart.Service
	Quotes       *quote.Service
	Events       *events.Bus
	Locker       *lock.Locker
	Scheduler    *promo.Scheduler
	QuoteLimiter *limiter.Limiter
	HTTPMetrics  *obs.HTTPMetrics
	Registry     *prometheus.Registry
	Tracing      bool
}

// New wires every service from opts. The catalog is restored from the Redis
// snapshot when one exists; a Redis failure during restore falls back to the
// seed and is logged.
func New(ctx context.Context, opts Options) (*Dependencies, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	logger := opts.Logger
	policy := cfg.Policy()

	var reg prometheus.Registerer = prometheus.DefaultRegisterer
	if opts.Registry != nil {
		reg = opts.Registry
	}
	obs.MustRegisterDomainMetrics(opts.MetricsNamespace, reg)

	seed, err := catalog.LoadSeed(cfg.CatalogSeedPath)
	if err != nil {
		return nil, fmt.Errorf("load catalog seed: %w", err)
	}
	cache := catalog.NewCache(opts.Redis, cfg.CatalogCacheTTL)
	store, restored, err := catalog.Bootstrap(ctx, cache, seed)
	if store == nil {
		return nil, fmt.Errorf("bootstrap catalog: %w", err)
	}
	if err != nil {
		logger.Warn().Err(err).Msg("catalog snapshot unavailable, using seed")
	}
	logger.Info().Bool("restored", restored).Int("products", store.Len()).Msg("catalog loaded")

	var locker *lock.Locker
	if opts.Redis != nil {
		locker = &lock.Locker{R: opts.Redis, Prefix: "lock:"}
	}

	replicator := &catalog.Replicator{
		Store:  store,
		Cache:  cache,
		Locker: locker,
		Logger: logger.With().Str("component", "catalog").Logger(),
	}
	bus := events.NewBus(events.LogNotifier{Logger: logger})

	carts := &cart.Service{Catalog: store, TTL: cfg.CartTTL, Now: opts.Now}
	quotes := &quote.Service{
		Catalog:   store,
		Engine:    pricing.New(policy),
		Location:  cfg.Location(),
		Strict:    cfg.PricingStrict,
		Currency:  cfg.CurrencyCode,
		Now:       opts.Now,
		Logger:    logger.With().Str("component", "quote").Logger(),
		SaleLabel: catalog.SaleLabel,
	}

	scheduler := promo.NewScheduler(store, bus, carts, cfg.Promo(), logger.With().Str("component", "promo").Logger())
	scheduler.Policy = policy
	scheduler.Locker = locker
	scheduler.Shared = replicator

	limiterStore, err := ratelimit.NewStore(opts.Redis, "ratelimit:quote")
	if err != nil {
		return nil, err
	}
	quoteLimiter, err := ratelimit.New(limiterStore, cfg.RateLimitQuote)
	if err != nil {
		return nil, err
	}

	deps := &Dependencies{
		Config:       cfg,
		Logger:       logger,
		Redis:        opts.Redis,
		Policy:       policy,
		Catalog:      store,
		CatalogCache: cache,
		Replicator:   replicator,
		Carts:        carts,
		Quotes:       quotes,
		Events:       bus,
		Locker:       locker,
		Scheduler:    scheduler,
		QuoteLimiter: quoteLimiter,
		Registry:     opts.Registry,
		Tracing:      opts.Tracing,
	}
	if opts.Metrics {
		deps.HTTPMetrics = obs.NewHTTPMetrics(opts.MetricsNamespace, opts.MetricsBuckets, reg)
	}
	return deps, nil
}

// RunPromotions drives the promo scheduler until ctx is cancelled. It returns
// immediately when promotions are disabled.
func (d *Dependencies) RunPromotions(ctx context.Context) error {
	if d == nil || d.Scheduler == nil || !d.Config.PromoEnabled {
		return nil
	}
	return d.Scheduler.Run(ctx)
}

// WatchCatalog reloads the catalog whenever another replica saves a snapshot,
// until ctx is cancelled. It runs whether or not promotions are enabled here.
func (d *Dependencies) WatchCatalog(ctx context.Context) error {
	if d == nil || d.Replicator == nil {
		return nil
	}
	return d.Replicator.Watch(ctx)
}
