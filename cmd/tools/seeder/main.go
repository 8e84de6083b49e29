// Command seeder writes a catalog seed into the Redis snapshot the API restores
// from on boot. Existing promotion flags in the snapshot are overwritten.
package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/cart-pricing/internal/catalog"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("tool", "seeder").Logger()

	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("no .env file found, relying on environment variables")
	}

	seedPath := flag.String("seed", os.Getenv("CATALOG_SEED_PATH"), "catalog seed JSON (defaults to the built-in catalog)")
	ttl := flag.Duration("ttl", 24*time.Hour, "snapshot expiry, 0 keeps it forever")
	dryRun := flag.Bool("dry-run", false, "validate the seed without writing to Redis")
	flag.Parse()

	products, err := catalog.LoadSeed(strings.TrimSpace(*seedPath))
	if err != nil {
		logger.Fatal().Err(err).Msg("load seed")
	}
	report := catalog.BuildStockReport(products)
	for _, msg := range report.Messages {
		logger.Info().Msg(msg)
	}
	if *dryRun {
		logger.Info().Int("products", len(products)).Msg("seed is valid")
		return
	}

	redisURL := strings.TrimSpace(os.Getenv("REDIS_URL"))
	if redisURL == "" {
		logger.Fatal().Msg("REDIS_URL is not set")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	client := redis.NewClient(opts)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	if err := catalog.NewCache(client, *ttl).Save(ctx, products); err != nil {
		logger.Fatal().Err(err).Msg("write snapshot")
	}
	logger.Info().Int("products", len(products)).Str("key", catalog.SnapshotKey).Msg("catalog snapshot seeded")
}
