package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prepline/prepline-backend/internal/config"
	"github.com/prepline/prepline-backend/internal/content"
	"github.com/prepline/prepline-backend/internal/database"
	"github.com/prepline/prepline-backend/internal/document"
	"github.com/prepline/prepline-backend/internal/logger"
	"github.com/prepline/prepline-backend/internal/repository"
)

// seed-tests normalizes the bundled content and loads it into PostgreSQL as
// the API content source, so a deployment can serve the starter catalog
// without a remote content endpoint.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	testRepo := repository.NewTestRepository(pool)
	normalizer := document.NewNormalizer(log)

	bundled, err := content.LoadBundled()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load bundled content")
	}

	fmt.Printf("=== Seeding %d Tests ===\n", len(bundled))

	for _, src := range bundled {
		test := normalizer.NormalizeBundled(src)

		doc, err := json.Marshal(test)
		if err != nil {
			log.Fatal().Err(err).Str("test_id", test.ID).Msg("Failed to encode test")
		}

		if err := testRepo.Upsert(ctx, test.ID, doc); err != nil {
			log.Fatal().Err(err).Str("test_id", test.ID).Msg("Failed to store test")
		}

		// Drop any stale cached copy so the next read picks up this version.
		cacheKey := config.CacheKey.TestDocumentKey(test.ID)
		if err := rdb.Del(ctx, cacheKey).Err(); err != nil {
			log.Warn().Err(err).Str("test_id", test.ID).Msg("Cache invalidation failed")
		}

		fmt.Printf("Seeded test %s (%s)\n", test.ID, test.Title)
	}

	fmt.Println("Done")
}
