package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"librarium/internal/pkg/audit"
)

const attemptCacheSize = 100_000

type attemptInfo struct {
	Attempts     int
	BlockedUntil *time.Time
	CreatedAt    time.Time
}

// AttemptTracker rate-limits login attempts per client key (IP). Keying by
// IP rather than username keeps an attacker from locking out a chosen
// account; the cost is shared lockout behind NAT, which we accept.
//
// State per key: clean -> counting -> locked -> clean. Entries live in a
// bounded TTL cache, so abandoned keys age out on their own; the lockout
// window is a flat TTL, not a sliding one.
type AttemptTracker struct {
	mu      sync.Mutex
	entries *expirable.LRU[string, *attemptInfo]

	maxAttempts int
	lockout     time.Duration
	sink        audit.Sink
}

func NewAttemptTracker(maxAttempts int, lockout time.Duration, sink audit.Sink) *AttemptTracker {
	return &AttemptTracker{
		entries:     expirable.NewLRU[string, *attemptInfo](attemptCacheSize, nil, lockout),
		maxAttempts: maxAttempts,
		lockout:     lockout,
		sink:        sink,
	}
}

// RecordFailure bumps the counter for key and locks it once the attempt
// budget is spent. Emits a lock event exactly once per lock transition.
func (t *AttemptTracker) RecordFailure(ctx context.Context, key string) {
	t.mu.Lock()
	info, ok := t.entries.Get(key)
	if !ok {
		info = &attemptInfo{CreatedAt: time.Now()}
	}
	info.Attempts++

	locked := false
	if info.Attempts >= t.maxAttempts && info.BlockedUntil == nil {
		until := time.Now().Add(t.lockout)
		info.BlockedUntil = &until
		locked = true
	}
	t.entries.Add(key, info)
	t.mu.Unlock()

	if locked {
		t.sink.Record(ctx, audit.KindClientLocked, key,
			fmt.Sprintf("locked after %d failed attempts", info.Attempts))
	}
}

// RecordSuccess resets the key to a clean state.
func (t *AttemptTracker) RecordSuccess(key string) {
	t.mu.Lock()
	t.entries.Remove(key)
	t.mu.Unlock()
}

// IsBlocked reports whether key is currently locked out. An elapsed lock is
// cleared lazily here; no background sweep is needed for correctness.
func (t *AttemptTracker) IsBlocked(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	info, ok := t.entries.Get(key)
	if !ok || info.BlockedUntil == nil {
		return false
	}
	if time.Now().Before(*info.BlockedUntil) {
		return true
	}
	t.entries.Remove(key)
	return false
}

// BlockedUntil returns the unlock time for a locked key, or the zero time.
func (t *AttemptTracker) BlockedUntil(key string) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()

	if info, ok := t.entries.Get(key); ok && info.BlockedUntil != nil {
		return *info.BlockedUntil
	}
	return time.Time{}
}

// RemainingAttempts returns how many failures key has left before lockout.
func (t *AttemptTracker) RemainingAttempts(key string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	info, ok := t.entries.Get(key)
	if !ok {
		return t.maxAttempts
	}
	remaining := t.maxAttempts - info.Attempts
	if remaining < 0 {
		return 0
	}
	return remaining
}
