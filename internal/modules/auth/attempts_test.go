package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"librarium/internal/pkg/audit"
)

// recordingSink captures audit events for assertions.
type recordingSink struct {
	kinds []string
}

func (s *recordingSink) Record(_ context.Context, kind, _, _ string) {
	s.kinds = append(s.kinds, kind)
}

func (s *recordingSink) count(kind string) int {
	n := 0
	for _, k := range s.kinds {
		if k == kind {
			n++
		}
	}
	return n
}

func TestTrackerLocksAfterMaxAttempts(t *testing.T) {
	sink := &recordingSink{}
	tr := NewAttemptTracker(3, 30*time.Minute, sink)
	ctx := context.Background()

	tr.RecordFailure(ctx, "10.0.0.1")
	tr.RecordFailure(ctx, "10.0.0.1")
	assert.False(t, tr.IsBlocked("10.0.0.1"))
	assert.Equal(t, 1, tr.RemainingAttempts("10.0.0.1"))

	tr.RecordFailure(ctx, "10.0.0.1")
	assert.True(t, tr.IsBlocked("10.0.0.1"))
	assert.Equal(t, 0, tr.RemainingAttempts("10.0.0.1"))

	until := tr.BlockedUntil("10.0.0.1")
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), until, time.Minute)
}

func TestTrackerEmitsLockEventOncePerTransition(t *testing.T) {
	sink := &recordingSink{}
	tr := NewAttemptTracker(3, 30*time.Minute, sink)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		tr.RecordFailure(ctx, "10.0.0.1")
	}
	assert.Equal(t, 1, sink.count(audit.KindClientLocked))
}

func TestTrackerSuccessResets(t *testing.T) {
	tr := NewAttemptTracker(3, 30*time.Minute, &recordingSink{})
	ctx := context.Background()

	tr.RecordFailure(ctx, "10.0.0.1")
	tr.RecordFailure(ctx, "10.0.0.1")
	tr.RecordSuccess("10.0.0.1")

	assert.Equal(t, 3, tr.RemainingAttempts("10.0.0.1"))
	assert.False(t, tr.IsBlocked("10.0.0.1"))
}

func TestTrackerLockClearsLazily(t *testing.T) {
	tr := NewAttemptTracker(2, 20*time.Millisecond, &recordingSink{})
	ctx := context.Background()

	tr.RecordFailure(ctx, "10.0.0.1")
	tr.RecordFailure(ctx, "10.0.0.1")
	assert.True(t, tr.IsBlocked("10.0.0.1"))

	time.Sleep(30 * time.Millisecond)

	// The elapsed lock is cleared on the next check, no sweeper involved.
	assert.False(t, tr.IsBlocked("10.0.0.1"))
	assert.Equal(t, 2, tr.RemainingAttempts("10.0.0.1"))
}

func TestTrackerKeysAreIndependent(t *testing.T) {
	tr := NewAttemptTracker(2, 30*time.Minute, &recordingSink{})
	ctx := context.Background()

	tr.RecordFailure(ctx, "10.0.0.1")
	tr.RecordFailure(ctx, "10.0.0.1")

	assert.True(t, tr.IsBlocked("10.0.0.1"))
	assert.False(t, tr.IsBlocked("10.0.0.2"))
	assert.Equal(t, 2, tr.RemainingAttempts("10.0.0.2"))
}

func TestTrackerUnknownKeyDefaults(t *testing.T) {
	tr := NewAttemptTracker(5, 30*time.Minute, &recordingSink{})

	assert.False(t, tr.IsBlocked("198.51.100.7"))
	assert.Equal(t, 5, tr.RemainingAttempts("198.51.100.7"))
	assert.True(t, tr.BlockedUntil("198.51.100.7").IsZero())
}
