package answers

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Sink receives the dirty subset of answers on each debounced flush.
type Sink interface {
	Flush(ctx context.Context, dirty map[string]string) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, dirty map[string]string) error

func (f SinkFunc) Flush(ctx context.Context, dirty map[string]string) error {
	return f(ctx, dirty)
}

// MapReader adapts a plain answers map to the reader interface consumed by
// the view dispatcher.
type MapReader map[string]string

func (m MapReader) Get(questionID string) string { return m[questionID] }

// Store is the in-memory answer map of one module attempt: question id →
// user-entered string, last write wins per key. Mutations arm a debounce
// timer; when it fires, answers changed since the previous flush are mirrored
// to the sink (Redis in production). Close cancels the pending timer so no
// stale write lands after the session ends.
type Store struct {
	mu       sync.Mutex
	answers  map[string]string
	dirty    map[string]string
	debounce time.Duration
	timer    *time.Timer
	sink     Sink
	closed   bool
	log      zerolog.Logger
}

// NewStore creates an empty Store.
func NewStore(debounce time.Duration, sink Sink, log zerolog.Logger) *Store {
	return &Store{
		answers:  make(map[string]string),
		dirty:    make(map[string]string),
		debounce: debounce,
		sink:     sink,
		log:      log.With().Str("component", "answer_store").Logger(),
	}
}

// Rehydrate seeds the store from durable state (same test id only; callers
// never mix attempts across tests). Rehydrated answers are not re-flushed.
func (s *Store) Rehydrate(saved map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range saved {
		s.answers[k] = v
	}
}

// Get returns the current answer for a question, or "".
func (s *Store) Get(questionID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answers[questionID]
}

// Set records an answer and (re)arms the debounce timer.
func (s *Store) Set(questionID, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.answers[questionID] = value
	s.dirty[questionID] = value

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, s.flushTimer)
}

// Snapshot returns a copy of all answers, read in full at submit time.
func (s *Store) Snapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// Len returns the number of answered questions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}

// Clear empties the store (explicit retake).
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers = make(map[string]string)
	s.dirty = make(map[string]string)
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// FlushNow forces a synchronous flush of pending answers, used right before
// grading so the durable mirror matches what was graded.
func (s *Store) FlushNow(ctx context.Context) error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	dirty := s.takeDirtyLocked()
	s.mu.Unlock()

	return s.flush(ctx, dirty)
}

// Close cancels any pending debounce flush and rejects further writes.
// Answers mutated but not yet flushed are intentionally discarded: the
// session is over and a late write would be stale.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Store) flushTimer() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	dirty := s.takeDirtyLocked()
	s.mu.Unlock()

	if err := s.flush(context.Background(), dirty); err != nil {
		s.log.Error().Err(err).Msg("Debounced flush failed")
	}
}

func (s *Store) takeDirtyLocked() map[string]string {
	if len(s.dirty) == 0 {
		return nil
	}
	dirty := s.dirty
	s.dirty = make(map[string]string)
	return dirty
}

func (s *Store) flush(ctx context.Context, dirty map[string]string) error {
	if len(dirty) == 0 || s.sink == nil {
		return nil
	}
	return s.sink.Flush(ctx, dirty)
}
