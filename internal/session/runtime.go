package session

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/prepline/prepline-backend/internal/model"
)

// State is the lifecycle phase of one interactive module attempt.
// Transitions are one-directional except completed → not_started on an
// explicit retake.
type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateEvaluating State = "evaluating"
	StateCompleted  State = "completed"
)

// SubmitTrigger records what fired a submission.
type SubmitTrigger string

const (
	TriggerManual SubmitTrigger = "manual"
	TriggerExpiry SubmitTrigger = "expiry"
)

// Lifecycle errors.
var (
	ErrAudioCheckPending = errors.New("audio check has not been confirmed")
	ErrNotStartable      = errors.New("attempt is not in a startable state")
	ErrNotInProgress     = errors.New("attempt is not in progress")
	ErrNotCompleted      = errors.New("attempt is not completed")
	ErrInputLocked       = errors.New("time is up, input is locked")
)

// Runtime drives one module attempt: countdown, part navigation, audio-gated
// start and the single-shot submit guard. All methods are safe for the
// handler goroutine plus the ticker goroutine.
type Runtime struct {
	mu sync.Mutex

	module     model.ModuleType
	state      State
	duration   int // seconds
	remaining  int
	partIndex  int
	partCount  int
	partStarts []int

	audioChecked bool
	// lastAudioPart tracks the furthest part the audio transport has reached.
	// Playback only ever pushes the displayed part forward past this mark, so
	// automatic switching never fights manual navigation and never rewinds.
	lastAudioPart int

	submitted   bool
	inputLocked bool

	onSubmit func(SubmitTrigger)
	log      zerolog.Logger
}

// NewRuntime creates a Runtime in not_started. onSubmit is invoked exactly
// once per attempt, by whichever of manual submit or countdown expiry wins.
func NewRuntime(m *model.Module, onSubmit func(SubmitTrigger), log zerolog.Logger) *Runtime {
	partCount := len(m.Parts())
	if partCount == 0 {
		partCount = 1
	}
	return &Runtime{
		module:        m.Type,
		state:         StateNotStarted,
		duration:      m.DurationSeconds,
		remaining:     m.DurationSeconds,
		partCount:     partCount,
		partStarts:    m.PartStartSeconds,
		lastAudioPart: -1,
		onSubmit:      onSubmit,
		log:           log.With().Str("component", "session_runtime").Logger(),
	}
}

// Snapshot is the externally visible runtime state.
type Snapshot struct {
	State       State  `json:"state"`
	Remaining   int    `json:"time_remaining"`
	PartIndex   int    `json:"part_index"`
	InputLocked bool   `json:"input_locked"`
	Module      string `json:"module_type"`
}

// Snapshot returns a consistent copy of the runtime state.
func (r *Runtime) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		State:       r.state,
		Remaining:   r.remaining,
		PartIndex:   r.partIndex,
		InputLocked: r.inputLocked,
		Module:      string(r.module),
	}
}

// AudioReady records that the audio-check screen was confirmed. Listening
// attempts cannot start before this.
func (r *Runtime) AudioReady() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audioChecked = true
}

// Start moves not_started → in_progress.
func (r *Runtime) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateNotStarted {
		return ErrNotStartable
	}
	if r.module == model.ModuleListening && !r.audioChecked {
		return ErrAudioCheckPending
	}

	r.state = StateInProgress
	r.remaining = r.duration
	return nil
}

// Resume restores an interrupted attempt on reconnect: the clock picks up
// where it left off instead of restarting. Elapsed time beyond the duration
// behaves exactly like a live expiry, the next tick locks or submits. The
// audio check counts as passed, the attempt was already underway.
func (r *Runtime) Resume(elapsed, part int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateNotStarted {
		return ErrNotStartable
	}

	if elapsed < 0 {
		elapsed = 0
	}
	remaining := r.duration - elapsed
	if remaining < 0 {
		remaining = 0
	}
	if part < 0 {
		part = 0
	}
	if part >= r.partCount {
		part = r.partCount - 1
	}

	r.state = StateInProgress
	r.remaining = remaining
	r.partIndex = part
	r.audioChecked = true
	return nil
}

// Tick advances the countdown by one second. Reaching zero force-submits
// reading and listening attempts; a writing timer is advisory only: zero
// locks further input but never submits.
func (r *Runtime) Tick() {
	r.mu.Lock()
	if r.state != StateInProgress {
		r.mu.Unlock()
		return
	}

	if r.remaining > 0 {
		r.remaining--
	}
	if r.remaining > 0 {
		r.mu.Unlock()
		return
	}

	if r.module == model.ModuleWriting {
		r.inputLocked = true
		r.mu.Unlock()
		return
	}

	r.triggerSubmitLocked(TriggerExpiry)
}

// Submit is the explicit user submission. The shared guard makes it a no-op
// when an expiry-driven submit has already started (and vice versa).
func (r *Runtime) Submit() error {
	r.mu.Lock()
	if r.state != StateInProgress {
		r.mu.Unlock()
		return ErrNotInProgress
	}
	r.triggerSubmitLocked(TriggerManual)
	return nil
}

// triggerSubmitLocked flips the guard, enters evaluating and fires the
// callback. Caller holds the lock; the lock is released before the callback
// so grading can read runtime state.
func (r *Runtime) triggerSubmitLocked(trigger SubmitTrigger) {
	if r.submitted {
		r.mu.Unlock()
		return
	}
	r.submitted = true
	r.state = StateEvaluating
	onSubmit := r.onSubmit
	r.mu.Unlock()

	r.log.Info().Str("trigger", string(trigger)).Msg("Submission started")
	if onSubmit != nil {
		onSubmit(trigger)
	}
}

// Complete moves evaluating → completed.
func (r *Runtime) Complete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateEvaluating {
		r.state = StateCompleted
	}
}

// Retake resets a completed attempt back to not_started. The caller is
// responsible for clearing the answer store and any cached evaluation result
// alongside this call.
func (r *Runtime) Retake() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateCompleted {
		return ErrNotCompleted
	}

	r.state = StateNotStarted
	r.remaining = r.duration
	r.partIndex = 0
	r.lastAudioPart = -1
	r.audioChecked = false
	r.submitted = false
	r.inputLocked = false
	return nil
}

// Navigate sets the displayed part explicitly. Manual navigation changes only
// the display index; it never touches the audio transport.
func (r *Runtime) Navigate(part int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if part < 0 {
		part = 0
	}
	if part >= r.partCount {
		part = r.partCount - 1
	}
	r.partIndex = part
}

// AudioPosition maps a playback position onto the displayed part. The mapping
// is monotonic forward: playback advances the display only when it crosses
// into a part beyond any it has reached before, and never rewinds it.
func (r *Runtime) AudioPosition(position float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.partStarts) == 0 {
		return
	}

	target := model.PartIndexForPosition(r.partStarts, position)
	if target <= r.lastAudioPart {
		return
	}
	r.lastAudioPart = target
	r.partIndex = target
}

// InputLocked reports whether the advisory writing timer has expired.
func (r *Runtime) InputLocked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inputLocked
}

// State returns the current lifecycle phase.
func (r *Runtime) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Remaining returns the countdown value in seconds.
func (r *Runtime) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining
}

// PartIndex returns the displayed part index.
func (r *Runtime) PartIndex() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.partIndex
}
