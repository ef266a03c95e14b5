package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prepline/prepline-backend/internal/config"
	"github.com/prepline/prepline-backend/internal/content"
	"github.com/prepline/prepline-backend/internal/document"
	"github.com/prepline/prepline-backend/internal/model"
	"github.com/prepline/prepline-backend/internal/repository"
)

// ErrTestNotFound is the terminal state after both content sources failed.
var ErrTestNotFound = errors.New("test not found in any content source")

const documentCacheTTL = 0 // Documents are immutable per deployment; no expiry.

// ContentService resolves test documents from the two sources: the bundled
// static content shipped with the binary and the API-backed store. Lookups
// try the bundle first and fall through to the store; the merged catalog
// prefers API records over bundled ones with the same id.
type ContentService struct {
	testRepo   *repository.TestRepository
	normalizer *document.Normalizer
	rdb        *redis.Client
	log        zerolog.Logger

	// bundled is normalized once at startup and indexed by id.
	bundled      []model.Test
	bundledIndex map[string]int
}

// NewContentService loads and normalizes the bundled content eagerly. A
// broken bundle is not fatal: the API source still works, and the condition is
// loud in the logs.
func NewContentService(testRepo *repository.TestRepository, rdb *redis.Client, log zerolog.Logger) *ContentService {
	s := &ContentService{
		testRepo:     testRepo,
		normalizer:   document.NewNormalizer(log),
		rdb:          rdb,
		log:          log.With().Str("component", "content_service").Logger(),
		bundledIndex: make(map[string]int),
	}

	bundledTests, err := content.LoadBundled()
	if err != nil {
		s.log.Error().Err(err).Msg("Bundled content failed to load, serving API source only")
		return s
	}

	for _, bt := range bundledTests {
		t := s.normalizer.NormalizeBundled(bt)
		s.bundledIndex[t.ID] = len(s.bundled)
		s.bundled = append(s.bundled, t)
	}
	s.log.Info().Int("tests", len(s.bundled)).Msg("Bundled content loaded")
	return s
}

// GetTest resolves one test document: bundled source first, API fallback.
// Both failing yields ErrTestNotFound, terminal with no retries.
func (s *ContentService) GetTest(ctx context.Context, id string) (*model.Test, error) {
	if i, ok := s.bundledIndex[id]; ok {
		t := s.bundled[i]
		return &t, nil
	}

	if cached, ok := s.cachedDocument(ctx, id); ok {
		return cached, nil
	}

	apiTest, err := s.testRepo.GetByID(ctx, id)
	if err != nil {
		s.log.Debug().Err(err).Str("test_id", id).Msg("Test missing from both sources")
		return nil, ErrTestNotFound
	}

	t := s.normalizer.NormalizeAPI(*apiTest)
	s.cacheDocument(ctx, &t)
	return &t, nil
}

// ListTests returns the merged catalog. An API-sourced record replaces the
// bundled record sharing its id (last write wins by id).
func (s *ContentService) ListTests(ctx context.Context) ([]model.Test, error) {
	apiTests, err := s.testRepo.List(ctx)
	if err != nil {
		// Catalog degrades to the bundle rather than failing outright.
		s.log.Warn().Err(err).Msg("API catalog unavailable, serving bundled only")
		return document.MergeCatalog(s.bundled, nil), nil
	}

	normalized := make([]model.Test, 0, len(apiTests))
	for _, at := range apiTests {
		normalized = append(normalized, s.normalizer.NormalizeAPI(at))
	}

	return document.MergeCatalog(s.bundled, normalized), nil
}

func (s *ContentService) cachedDocument(ctx context.Context, id string) (*model.Test, bool) {
	raw, err := s.rdb.Get(ctx, config.CacheKey.TestDocumentKey(id)).Result()
	if err != nil {
		return nil, false
	}
	var t model.Test
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, false
	}
	return &t, true
}

func (s *ContentService) cacheDocument(ctx context.Context, t *model.Test) {
	raw, err := json.Marshal(t)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, config.CacheKey.TestDocumentKey(t.ID), raw, documentCacheTTL).Err(); err != nil {
		s.log.Debug().Err(err).Str("test_id", t.ID).Msg("Document cache write failed")
	}
}

// InvalidateDocument drops the cached normalized form, used after reseeding.
func (s *ContentService) InvalidateDocument(ctx context.Context, id string) error {
	if err := s.rdb.Del(ctx, config.CacheKey.TestDocumentKey(id)).Err(); err != nil {
		return fmt.Errorf("invalidate document %s: %w", id, err)
	}
	return nil
}
