package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionStart         Action = "start"
	ActionAudioReady    Action = "audio_ready"
	ActionAudioPosition Action = "audio_position"
	ActionNavigate      Action = "navigate"
	ActionAutosave      Action = "autosave"
	ActionSubmit        Action = "submit"
	ActionRetake        Action = "retake"
	ActionPing          Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// StartRequest begins the module countdown.
type StartRequest struct {
	Action Action `json:"action"`
}

// AudioReadyRequest confirms the client finished its audio check.
type AudioReadyRequest struct {
	Action Action `json:"action"`
}

// AudioPositionRequest reports the audio transport position in seconds.
type AudioPositionRequest struct {
	Action   Action  `json:"action"`
	Position float64 `json:"position"`
}

// NavigateRequest is a manual part selection.
type NavigateRequest struct {
	Action Action `json:"action"`
	Part   int    `json:"part"`
}

// AutosaveRequest is sent by the client to save a single answer.
type AutosaveRequest struct {
	Action Action `json:"action"`
	QID    string `json:"q_id"`
	Answer string `json:"ans"`
}

// SubmitRequest is sent by the client to finish and grade the module.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// RetakeRequest discards the current attempt and resets the module.
type RetakeRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState      Event = "state"
	EventTick       Event = "tick"
	EventSaved      Event = "saved"
	EventGraded     Event = "graded"
	EventEvaluation Event = "evaluation"
	EventError      Event = "error"
	EventPong       Event = "pong"
)

// StateResponse mirrors the runtime snapshot after a lifecycle change.
type StateResponse struct {
	Event       Event  `json:"event"`
	State       string `json:"state"`
	Remaining   int    `json:"remaining"`
	PartIndex   int    `json:"part_index"`
	InputLocked bool   `json:"input_locked"`
	Module      string `json:"module"`
}

// TickResponse is the per-second countdown frame.
type TickResponse struct {
	Event       Event `json:"event"`
	Remaining   int   `json:"remaining"`
	PartIndex   int   `json:"part_index"`
	InputLocked bool  `json:"input_locked"`
}

// SavedResponse acknowledges a flushed autosave batch.
type SavedResponse struct {
	Event Event `json:"event"`
	Count int   `json:"count"`
}

// GradedResponse carries the objective grading result.
type GradedResponse struct {
	Event     Event   `json:"event"`
	Raw       int     `json:"raw"`
	Total     int     `json:"total"`
	Band      float64 `json:"band"`
	AttemptID string  `json:"attempt_id,omitempty"`
}

// EvaluationResponse pushes the external examiner verdict when it arrives
// while the connection is still alive.
type EvaluationResponse struct {
	Event    Event   `json:"event"`
	Band     float64 `json:"band"`
	Feedback any     `json:"feedback"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
