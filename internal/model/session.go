package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TestSession groups the persisted module attempts of one user on one test.
type TestSession struct {
	ID        uuid.UUID       `json:"id"`
	UserID    int             `json:"user_id"`
	TestID    string          `json:"test_id"`
	CreatedAt time.Time       `json:"created_at"`
	Attempts  []ModuleAttempt `json:"module_attempts"`
}

// ModuleAttempt is one persisted module result inside a session.
type ModuleAttempt struct {
	ID         uuid.UUID         `json:"id"`
	SessionID  uuid.UUID         `json:"session_id"`
	Module     ModuleType        `json:"module_type"`
	RawScore   int               `json:"raw_score"`
	Total      int               `json:"total_questions"`
	BandScore  float64           `json:"band_score"`
	Answers    map[string]string `json:"answers,omitempty"`
	// Feedback is the evaluator blob as persisted. Older sessions carry a
	// partial shape (or none); readers go through DecodeFeedback.
	Feedback  json.RawMessage `json:"feedback,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// SaveModuleResultRequest is the payload for persisting a module result.
type SaveModuleResultRequest struct {
	TestID     string            `json:"test_id" binding:"required,min=1,max=64"`
	ModuleType string            `json:"module_type" binding:"required,oneof=reading listening writing"`
	BandScore  float64           `json:"band_score" binding:"min=0,max=9"`
	RawScore   int               `json:"raw_score" binding:"min=0"`
	Total      int               `json:"total_questions" binding:"min=0"`
	Answers    map[string]string `json:"answers" binding:"omitempty"`
	Feedback   json.RawMessage   `json:"feedback" binding:"omitempty"`
}

// CompletionStatus is the result of the repeat-visitor completion check.
type CompletionStatus struct {
	IsCompleted bool   `json:"is_completed"`
	SessionID   string `json:"session_id,omitempty"`
}

// ResolveState describes where the session-lifecycle controller sends a
// visitor entering a test.
type ResolveState string

const (
	ResolveTakeTest  ResolveState = "take_test"
	ResolveSeeResult ResolveState = "see_result"
	ResolveNotFound  ResolveState = "not_found"
)

// Resolution is the single entry-point answer consumed uniformly by the
// reading/listening/writing entry points.
type Resolution struct {
	State      ResolveState `json:"state"`
	RedirectTo string       `json:"redirect_to,omitempty"`
}
