package answers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink captures every flushed batch.
type recordingSink struct {
	mu      sync.Mutex
	batches []map[string]string
}

func (r *recordingSink) Flush(_ context.Context, dirty map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := make(map[string]string, len(dirty))
	for k, v := range dirty {
		copied[k] = v
	}
	r.batches = append(r.batches, copied)
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func (r *recordingSink) last() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.batches) == 0 {
		return nil
	}
	return r.batches[len(r.batches)-1]
}

func TestSetAndGetLastWriteWins(t *testing.T) {
	s := NewStore(time.Hour, nil, zerolog.Nop())
	defer s.Close()

	s.Set("q1", "first")
	s.Set("q1", "second")

	assert.Equal(t, "second", s.Get("q1"))
	assert.Equal(t, "", s.Get("missing"))
	assert.Equal(t, 1, s.Len())
}

func TestDebouncedFlushBatchesBurst(t *testing.T) {
	sink := &recordingSink{}
	s := NewStore(30*time.Millisecond, sink, zerolog.Nop())
	defer s.Close()

	// A typing burst: each write re-arms the timer, so nothing flushes yet.
	s.Set("q1", "p")
	s.Set("q1", "pa")
	s.Set("q1", "par")
	s.Set("q2", "7")
	assert.Equal(t, 0, sink.count())

	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, map[string]string{"q1": "par", "q2": "7"}, sink.last())
}

func TestFlushNowOnlySendsDirty(t *testing.T) {
	sink := &recordingSink{}
	s := NewStore(time.Hour, sink, zerolog.Nop())
	defer s.Close()

	s.Set("q1", "a")
	require.NoError(t, s.FlushNow(context.Background()))
	assert.Equal(t, 1, sink.count())

	// Nothing changed since: a second flush is a no-op.
	require.NoError(t, s.FlushNow(context.Background()))
	assert.Equal(t, 1, sink.count())

	s.Set("q2", "b")
	require.NoError(t, s.FlushNow(context.Background()))
	assert.Equal(t, map[string]string{"q2": "b"}, sink.last())
}

func TestCloseCancelsPendingFlush(t *testing.T) {
	sink := &recordingSink{}
	s := NewStore(20*time.Millisecond, sink, zerolog.Nop())

	s.Set("q1", "doomed")
	s.Close()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, sink.count())

	// Writes after close are rejected.
	s.Set("q2", "late")
	assert.Equal(t, "", s.Get("q2"))
}

func TestRehydrateDoesNotReFlush(t *testing.T) {
	sink := &recordingSink{}
	s := NewStore(20*time.Millisecond, sink, zerolog.Nop())
	defer s.Close()

	s.Rehydrate(map[string]string{"q1": "restored", "q2": "also"})
	assert.Equal(t, "restored", s.Get("q1"))
	assert.Equal(t, 2, s.Len())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, sink.count())
}

func TestClearEmptiesStoreAndPending(t *testing.T) {
	sink := &recordingSink{}
	s := NewStore(20*time.Millisecond, sink, zerolog.Nop())
	defer s.Close()

	s.Set("q1", "gone")
	s.Clear()

	assert.Equal(t, 0, s.Len())
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, sink.count())
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore(time.Hour, nil, zerolog.Nop())
	defer s.Close()

	s.Set("q1", "a")
	snap := s.Snapshot()
	snap["q1"] = "mutated"

	assert.Equal(t, "a", s.Get("q1"))
}
