package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prepline/prepline-backend/internal/model"
)

// SessionRepository handles persisted test sessions and module attempts.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// GetOrCreate returns the user's session for a test, creating it when absent.
func (r *SessionRepository) GetOrCreate(ctx context.Context, userID int, testID string) (*model.TestSession, error) {
	s := &model.TestSession{UserID: userID, TestID: testID}

	err := r.pool.QueryRow(ctx,
		`INSERT INTO test_sessions (user_id, test_id)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id, test_id) DO UPDATE SET test_id = EXCLUDED.test_id
		 RETURNING id, created_at`,
		userID, testID,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get or create session: %w", err)
	}
	return s, nil
}

// GetByID retrieves a session with all its module attempts, newest first.
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.TestSession, error) {
	s := &model.TestSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, test_id, created_at
		 FROM test_sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.UserID, &s.TestID, &s.CreatedAt)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, module_type, raw_score, total_questions,
		        band_score, answers, feedback, created_at
		 FROM module_attempts
		 WHERE session_id = $1
		 ORDER BY created_at DESC`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var a model.ModuleAttempt
		var answersJSON []byte
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Module, &a.RawScore, &a.Total,
			&a.BandScore, &answersJSON, &a.Feedback, &a.CreatedAt); err != nil {
			return nil, err
		}
		if len(answersJSON) > 0 {
			_ = json.Unmarshal(answersJSON, &a.Answers)
		}
		s.Attempts = append(s.Attempts, a)
	}
	return s, rows.Err()
}

// SaveModuleAttempt inserts a module attempt, replacing any earlier attempt
// of the same module within the session (a retake overwrites). Replacement
// assigns a fresh id, which is what invalidates evaluator verdicts queued
// against the old attempt.
func (r *SessionRepository) SaveModuleAttempt(ctx context.Context, a *model.ModuleAttempt) error {
	answersJSON, err := json.Marshal(a.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	feedback := a.Feedback
	if len(feedback) == 0 {
		feedback = json.RawMessage(`null`)
	}

	return r.pool.QueryRow(ctx,
		`INSERT INTO module_attempts
		   (session_id, module_type, raw_score, total_questions, band_score, answers, feedback)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (session_id, module_type) DO UPDATE
		 SET id = gen_random_uuid(),
		     raw_score = EXCLUDED.raw_score,
		     total_questions = EXCLUDED.total_questions,
		     band_score = EXCLUDED.band_score,
		     answers = EXCLUDED.answers,
		     feedback = EXCLUDED.feedback,
		     created_at = NOW()
		 RETURNING id, created_at`,
		a.SessionID, a.Module, a.RawScore, a.Total, a.BandScore, answersJSON, feedback,
	).Scan(&a.ID, &a.CreatedAt)
}

// UpdateAttemptEvaluation applies the external evaluator's verdict to an
// attempt. The update is conditional on the attempt id still being the
// current row for its (session, module) pair: a retake that replaced the
// attempt makes the stale evaluation a silent no-op.
func (r *SessionRepository) UpdateAttemptEvaluation(ctx context.Context, attemptID uuid.UUID, band float64, feedback json.RawMessage) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE module_attempts
		 SET band_score = $1, feedback = $2
		 WHERE id = $3`,
		band, feedback, attemptID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// FindCompleted looks up a completed attempt for (user, module, test).
// Returns the session id and true when one exists.
func (r *SessionRepository) FindCompleted(ctx context.Context, userID int, module, testID string) (uuid.UUID, bool, error) {
	var sessionID uuid.UUID
	err := r.pool.QueryRow(ctx,
		`SELECT s.id
		 FROM test_sessions s
		 JOIN module_attempts a ON a.session_id = s.id
		 WHERE s.user_id = $1 AND s.test_id = $2 AND a.module_type = $3
		 LIMIT 1`,
		userID, testID, module,
	).Scan(&sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return sessionID, true, nil
}
