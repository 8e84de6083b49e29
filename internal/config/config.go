package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // STORE_TIMEZONE must resolve on minimal images

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/cart-pricing/internal/pricing"
	"github.com/noah-isme/cart-pricing/internal/promo"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CORSAllowedOrigins []string

	StoreTimezone   string
	CurrencyCode    string
	CartTTL         time.Duration
	CatalogCacheTTL time.Duration
	CatalogSeedPath string

	PricingStrict         bool
	PricingBulkThreshold  int
	PricingBulkRateBps    int64
	PricingTuesdayRateBps int64
	PointsRateBps         int64

	PromoEnabled           bool
	PromoLightningInterval time.Duration
	PromoLightningMaxDelay time.Duration
	PromoRecommendInterval time.Duration
	PromoRecommendMaxDelay time.Duration
	PromoLockTTL           time.Duration

	// RateLimitQuote is a ulule formatted rate, e.g. "120-M".
	RateLimitQuote string
	IdempotencyTTL time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	defaults := pricing.DefaultPolicy()
	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		StoreTimezone:   valueOrDefault(k.String("STORE_TIMEZONE"), "Asia/Seoul"),
		CurrencyCode:    strings.ToUpper(valueOrDefault(k.String("CURRENCY_CODE"), "KRW")),
		CartTTL:         parseDuration(k.String("CART_TTL"), "168h"),
		CatalogCacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "24h"),
		CatalogSeedPath: strings.TrimSpace(k.String("CATALOG_SEED_PATH")),

		PricingStrict:         parseBool(k.String("PRICING_STRICT")),
		PricingBulkThreshold:  parseInt(k.String("PRICING_BULK_THRESHOLD"), defaults.BulkThreshold),
		PricingBulkRateBps:    parseInt64(k.String("PRICING_BULK_RATE_BPS"), defaults.BulkRateBps),
		PricingTuesdayRateBps: parseInt64(k.String("PRICING_TUESDAY_RATE_BPS"), defaults.SpecialRateBps),
		PointsRateBps:         parseInt64(k.String("POINTS_RATE_BPS"), defaults.PointsRateBps),

		PromoEnabled:           parseBoolDefault(k.String("PROMO_ENABLED"), true),
		PromoLightningInterval: parseDuration(k.String("PROMO_LIGHTNING_INTERVAL"), "30s"),
		PromoLightningMaxDelay: parseDuration(k.String("PROMO_LIGHTNING_MAX_DELAY"), "10s"),
		PromoRecommendInterval: parseDuration(k.String("PROMO_RECOMMEND_INTERVAL"), "60s"),
		PromoRecommendMaxDelay: parseDuration(k.String("PROMO_RECOMMEND_MAX_DELAY"), "20s"),
		PromoLockTTL:           parseDuration(k.String("PROMO_LOCK_TTL"), "0s"),

		RateLimitQuote: valueOrDefault(k.String("RATE_LIMIT_QUOTE"), "120-M"),
		IdempotencyTTL: parseDuration(k.String("IDEMPOTENCY_TTL"), "10m"),
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if _, err := time.LoadLocation(cfg.StoreTimezone); err != nil {
		return nil, fmt.Errorf("STORE_TIMEZONE: %w", err)
	}
	if err := validateBps("PRICING_BULK_RATE_BPS", cfg.PricingBulkRateBps); err != nil {
		return nil, err
	}
	if err := validateBps("PRICING_TUESDAY_RATE_BPS", cfg.PricingTuesdayRateBps); err != nil {
		return nil, err
	}
	if err := validateBps("POINTS_RATE_BPS", cfg.PointsRateBps); err != nil {
		return nil, err
	}
	if cfg.PricingBulkThreshold <= 0 {
		return nil, errors.New("PRICING_BULK_THRESHOLD must be positive")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// Location resolves the store timezone. Load has already validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.StoreTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Policy returns the default pricing rules with the configured overrides applied.
func (c *Config) Policy() pricing.Policy {
	p := pricing.DefaultPolicy()
	p.BulkThreshold = c.PricingBulkThreshold
	p.BulkRateBps = c.PricingBulkRateBps
	p.SpecialRateBps = c.PricingTuesdayRateBps
	p.PointsRateBps = c.PointsRateBps
	return p
}

// Promo returns the promotion scheduler timing.
func (c *Config) Promo() promo.Config {
	return promo.Config{
		LightningInterval: c.PromoLightningInterval,
		LightningMaxDelay: c.PromoLightningMaxDelay,
		RecommendInterval: c.PromoRecommendInterval,
		RecommendMaxDelay: c.PromoRecommendMaxDelay,
		LockTTL:           c.PromoLockTTL,
	}
}

func validateBps(key string, v int64) error {
	if v < 0 || v > 10000 {
		return fmt.Errorf("%s must be between 0 and 10000, got %d", key, v)
	}
	return nil
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	return parseBoolDefault(value, false)
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseInt64(value string, fallback int64) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
