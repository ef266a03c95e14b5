package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prepline/prepline-backend/internal/middleware"
	"github.com/prepline/prepline-backend/internal/model"
	"github.com/prepline/prepline-backend/internal/response"
	"github.com/prepline/prepline-backend/internal/service"
	"github.com/prepline/prepline-backend/internal/validator"
)

// SessionHandler serves test session persistence and lookups.
type SessionHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "session_handler").Logger(),
	}
}

// SaveModuleResult godoc
// POST /api/v1/sessions/save_module_result
// Persists one module attempt onto the caller's session for the test.
func (h *SessionHandler) SaveModuleResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.SaveModuleResultRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempt, err := h.sessionService.SaveModuleResult(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		h.log.Error().Err(err).
			Int("user_id", claims.UserID).
			Str("test_id", req.TestID).
			Str("module", req.ModuleType).
			Msg("Save module result failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrResultSaveFailed)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"session_id": attempt.SessionID,
		"attempt_id": attempt.ID,
	})
}

// GetSession godoc
// GET /api/v1/sessions/:id
// Returns a session with its module attempts; feedback blobs are decoded
// tolerantly so partial or legacy shapes still render.
func (h *SessionHandler) GetSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	view, err := h.sessionService.GetSession(c.Request.Context(), claims.UserID, id)
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
			return
		}
		h.log.Error().Err(err).Str("session_id", id.String()).Msg("Get session failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": view})
}

// CheckCompletion godoc
// GET /api/v1/check-completion/:module/:test_id
// Tells a repeat visitor whether they already finished this module.
func (h *SessionHandler) CheckCompletion(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	module := c.Param("module")
	testID := c.Param("test_id")
	if !validModule(module) {
		response.Fail(c, http.StatusBadRequest, response.ErrModuleNotFound)
		return
	}

	status, err := h.sessionService.CheckCompletion(c.Request.Context(), claims.UserID, module, testID)
	if err != nil {
		h.log.Error().Err(err).
			Int("user_id", claims.UserID).
			Str("test_id", testID).
			Msg("Completion check failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, status)
}

// Resolve godoc
// GET /api/v1/resolve/:module/:test_id
// Single entry-point decision for a visitor opening a test module: take the
// test, or redirect straight to the stored result.
func (h *SessionHandler) Resolve(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	module := c.Param("module")
	testID := c.Param("test_id")
	if !validModule(module) {
		response.Fail(c, http.StatusBadRequest, response.ErrModuleNotFound)
		return
	}

	resolution, err := h.sessionService.Resolve(c.Request.Context(), claims.UserID, module, testID)
	if err != nil {
		h.log.Error().Err(err).
			Int("user_id", claims.UserID).
			Str("test_id", testID).
			Msg("Resolve failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, resolution)
}

func validModule(module string) bool {
	switch model.ModuleType(module) {
	case model.ModuleReading, model.ModuleListening, model.ModuleWriting:
		return true
	}
	return false
}
