package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/cart-pricing/internal/cart"
	"github.com/noah-isme/cart-pricing/internal/catalog"
	"github.com/noah-isme/cart-pricing/internal/common"
	"github.com/noah-isme/cart-pricing/internal/health"
	"github.com/noah-isme/cart-pricing/internal/obs"
	"github.com/noah-isme/cart-pricing/internal/quote"
	"github.com/noah-isme/cart-pricing/internal/ratelimit"
	"github.com/noah-isme/cart-pricing/internal/security"
)

// NewRouter mounts every HTTP endpoint on a chi router. Callers may Mount
// further subtrees on the returned mux.
func NewRouter(d *Dependencies) *chi.Mux {
	cfg := d.Config

	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{
		Store:    d.Catalog,
		Policy:   &d.Policy,
		Currency: cfg.CurrencyCode,
	})
	cartHandler := &cart.Handler{Svc: d.Carts, Quotes: d.Quotes}
	quoteHandler := &quote.Handler{Svc: d.Quotes}
	idem := common.Idem{R: d.Redis, TTL: cfg.IdempotencyTTL}
	quoteLimit := ratelimit.Handler{
		Limiter: d.QuoteLimiter,
		Key:     common.ClientKey,
		OnError: func(err error) {
			d.Logger.Warn().Err(err).Msg("rate limiter unavailable")
		},
	}
	healthHandler := health.Handler{
		Checker: health.RedisChecker{Client: d.Redis},
		Catalog: d.Catalog,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if d.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if d.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: d.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg.CORSAllowedOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(security.BodyLimit{Max: security.DefaultBodyLimit}.Middleware)

	if d.HTTPMetrics != nil {
		if d.Registry != nil {
			r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{}))
		} else {
			r.Handle("/metrics", promhttp.Handler())
		}
	}

	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/products", catalogHandler.Products)
		v.Get("/products/stock", catalogHandler.Stock)

		v.With(quoteLimit.Middleware).Post("/quote", quoteHandler.Create)

		v.Route("/carts", func(c chi.Router) {
			c.Get("/{id}", cartHandler.Get)
			c.Group(func(g chi.Router) {
				g.Use(idem.Middleware)
				g.Post("/", cartHandler.Create)
				g.Post("/{id}/items", cartHandler.AddItem)
				g.Patch("/{id}/items/{productId}", cartHandler.UpdateItem)
				g.Delete("/{id}/items/{productId}", cartHandler.RemoveItem)
			})
		})
	})

	return r
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
