package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prepline/prepline-backend/internal/answers"
	"github.com/prepline/prepline-backend/internal/middleware"
	"github.com/prepline/prepline-backend/internal/model"
	"github.com/prepline/prepline-backend/internal/render"
	"github.com/prepline/prepline-backend/internal/response"
	"github.com/prepline/prepline-backend/internal/service"
)

// TestHandler serves the normalized test catalog and documents.
type TestHandler struct {
	contentService *service.ContentService
	dispatcher     *render.Dispatcher
	rdb            *redis.Client
	log            zerolog.Logger
}

// NewTestHandler creates a new TestHandler.
func NewTestHandler(contentService *service.ContentService, dispatcher *render.Dispatcher, rdb *redis.Client, log zerolog.Logger) *TestHandler {
	return &TestHandler{
		contentService: contentService,
		dispatcher:     dispatcher,
		rdb:            rdb,
		log:            log.With().Str("component", "test_handler").Logger(),
	}
}

// ListTests godoc
// GET /api/v1/tests
// Returns the merged catalog of bundled and API-sourced tests.
func (h *TestHandler) ListTests(c *gin.Context) {
	tests, err := h.contentService.ListTests(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("List tests failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"tests": tests})
}

// GetTest godoc
// GET /api/v1/tests/:id
// Returns one normalized test document. Bundled content is tried first, then
// the API source; a miss on both is terminal.
func (h *TestHandler) GetTest(c *gin.Context) {
	id := c.Param("id")

	test, err := h.contentService.GetTest(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrTestNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrTestNotFound)
			return
		}
		h.log.Error().Err(err).Str("test_id", id).Msg("Get test failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"test": test})
}

// GetModuleViews godoc
// GET /api/v1/tests/:id/modules/:module/views
// Returns the typed view plan for one module, pre-filled with the caller's
// autosaved answers so a reconnecting client can repaint without replaying.
func (h *TestHandler) GetModuleViews(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id := c.Param("id")
	moduleType := model.ModuleType(c.Param("module"))

	test, err := h.contentService.GetTest(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrTestNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrTestNotFound)
			return
		}
		h.log.Error().Err(err).Str("test_id", id).Msg("Get test failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	module := test.ModuleByType(moduleType)
	if module == nil {
		response.Fail(c, http.StatusNotFound, response.ErrModuleNotFound)
		return
	}

	sink := answers.NewRedisSink(h.rdb, claims.UserID, id, string(moduleType))
	saved, err := sink.Load(c.Request.Context())
	if err != nil {
		h.log.Warn().Err(err).Str("test_id", id).Msg("Answer rehydrate failed, rendering blank")
		saved = map[string]string{}
	}

	views := h.dispatcher.BuildModuleViews(module, answers.MapReader(saved))

	response.Success(c, http.StatusOK, gin.H{
		"module": module.Type,
		"views":  views,
	})
}
