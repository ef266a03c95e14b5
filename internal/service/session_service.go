package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/prepline/prepline-backend/internal/config"
	"github.com/prepline/prepline-backend/internal/model"
	"github.com/prepline/prepline-backend/internal/repository"
)

// ErrSessionNotFound is returned for unknown or foreign session ids.
var ErrSessionNotFound = errors.New("session not found")

// SessionService persists module results and reconstructs completed sessions
// for the deep-linked result view.
type SessionService struct {
	sessionRepo *repository.SessionRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(sessionRepo *repository.SessionRepository, rdb *redis.Client, log zerolog.Logger) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "session_service").Logger(),
	}
}

// SaveModuleResult persists one module attempt under the user's session for
// the test and records completion for the fast repeat-visitor check.
func (s *SessionService) SaveModuleResult(ctx context.Context, userID int, req *model.SaveModuleResultRequest) (*model.ModuleAttempt, error) {
	session, err := s.sessionRepo.GetOrCreate(ctx, userID, req.TestID)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}

	attempt := &model.ModuleAttempt{
		SessionID: session.ID,
		Module:    model.ModuleType(req.ModuleType),
		RawScore:  req.RawScore,
		Total:     req.Total,
		BandScore: req.BandScore,
		Answers:   req.Answers,
		Feedback:  req.Feedback,
	}

	if err := s.sessionRepo.SaveModuleAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("save attempt: %w", err)
	}

	// Completion marker is a cache convenience; losing it only costs a
	// database lookup later.
	completionKey := config.CacheKey.CompletionKey(userID, req.ModuleType, req.TestID)
	if err := s.rdb.Set(ctx, completionKey, session.ID.String(), 0).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Completion marker write failed")
	}

	return attempt, nil
}

// AttemptView is one module attempt with its feedback decoded for display.
type AttemptView struct {
	model.ModuleAttempt
	DecodedFeedback model.ModuleFeedback `json:"decoded_feedback"`
}

// SessionView is the deep-linked result reconstruction of a session.
type SessionView struct {
	ID       uuid.UUID     `json:"id"`
	TestID   string        `json:"test_id"`
	UserID   int           `json:"user_id"`
	Attempts []AttemptView `json:"module_attempts"`
}

// GetSession reconstructs a completed state from persisted data. The path
// tolerates partially populated feedback: older attempts lacking structured
// fields get a synthesized placeholder instead of failing.
func (s *SessionService) GetSession(ctx context.Context, userID int, id uuid.UUID) (*SessionView, error) {
	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session.UserID != userID {
		return nil, ErrSessionNotFound
	}

	view := &SessionView{ID: session.ID, TestID: session.TestID, UserID: session.UserID}
	for _, a := range session.Attempts {
		view.Attempts = append(view.Attempts, AttemptView{
			ModuleAttempt:   a,
			DecodedFeedback: model.DecodeFeedback(a.Feedback),
		})
	}
	return view, nil
}

// CheckCompletion reports whether the user already completed a module of a
// test, with the session id to redirect to. Redis answers first; a cache miss
// falls back to PostgreSQL and self-heals the marker.
func (s *SessionService) CheckCompletion(ctx context.Context, userID int, module, testID string) (*model.CompletionStatus, error) {
	key := config.CacheKey.CompletionKey(userID, module, testID)

	val, err := s.rdb.Get(ctx, key).Result()
	if err == nil && val != "" {
		return &model.CompletionStatus{IsCompleted: true, SessionID: val}, nil
	}
	if err != nil && !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("Completion cache read failed, falling back to database")
	}

	sessionID, found, err := s.sessionRepo.FindCompleted(ctx, userID, module, testID)
	if err != nil {
		return nil, fmt.Errorf("find completed attempt: %w", err)
	}
	if !found {
		return &model.CompletionStatus{IsCompleted: false}, nil
	}

	_ = s.rdb.Set(ctx, key, sessionID.String(), 0)
	return &model.CompletionStatus{IsCompleted: true, SessionID: sessionID.String()}, nil
}

// Resolve is the single session-lifecycle query consumed uniformly by the
// reading, listening and writing entry points: a completed module redirects
// straight to its stored result, anything else enters the test.
func (s *SessionService) Resolve(ctx context.Context, userID int, module, testID string) (*model.Resolution, error) {
	status, err := s.CheckCompletion(ctx, userID, module, testID)
	if err != nil {
		return nil, err
	}
	if status.IsCompleted {
		return &model.Resolution{
			State:      model.ResolveSeeResult,
			RedirectTo: fmt.Sprintf("/results/%s", status.SessionID),
		}, nil
	}
	return &model.Resolution{State: model.ResolveTakeTest}, nil
}

// ClearCompletion drops completion state for a retake: the marker and the
// persisted attempt must not leak into the fresh attempt.
func (s *SessionService) ClearCompletion(ctx context.Context, userID int, module, testID string) error {
	key := config.CacheKey.CompletionKey(userID, module, testID)
	return s.rdb.Del(ctx, key).Err()
}

// EvaluationJob is the queued work item consumed by the evaluation result
// worker: the evaluator verdict to persist onto an attempt.
type EvaluationJob struct {
	AttemptID uuid.UUID       `json:"attempt_id"`
	Band      float64         `json:"band_score"`
	Feedback  json.RawMessage `json:"feedback"`
}

// QueueEvaluationResult enqueues an evaluator verdict for persistence.
func (s *SessionService) QueueEvaluationResult(ctx context.Context, job *EvaluationJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal evaluation job: %w", err)
	}
	return s.rdb.RPush(ctx, config.WorkerKey.EvaluationQueue, payload).Err()
}
