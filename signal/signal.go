// Package signal provides a single-slot, last-write-wins mailbox used to
// notify one task from another without building a backlog.
package signal

import (
	"context"
	"sync"
	"time"

	"thermoblink/errcode"
)

// Signal holds at most one pending value. Signal overwrites an unconsumed
// value; a waiter takes and clears it. The zero value is not usable; call New.
type Signal[T any] struct {
	mu      sync.Mutex
	val     T
	pending bool

	// wake carries at most one token. Tokens may be stale (the value was
	// taken by TryTake), so waiters always re-check the slot.
	wake chan struct{}
}

func New[T any]() *Signal[T] {
	return &Signal[T]{wake: make(chan struct{}, 1)}
}

// Signal stores v, discarding any pending value. It never blocks.
func (s *Signal[T]) Signal(v T) {
	s.mu.Lock()
	s.val = v
	s.pending = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// TryTake takes the pending value, if any, without suspending.
func (s *Signal[T]) TryTake() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero T
	if !s.pending {
		return zero, false
	}
	v := s.val
	s.val = zero
	s.pending = false
	return v, true
}

// Pending reports whether a value is waiting to be taken.
func (s *Signal[T]) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Wait suspends until a value is present, then takes it. It returns
// ctx.Err() if ctx ends first.
func (s *Signal[T]) Wait(ctx context.Context) (T, error) {
	return s.wait(ctx, nil)
}

// WaitTimeout is Wait raced against a timer of length d. When the timer
// wins it returns errcode.Timeout and leaves the slot untouched.
func (s *Signal[T]) WaitTimeout(ctx context.Context, d time.Duration) (T, error) {
	t := time.NewTimer(d)
	defer t.Stop()
	return s.wait(ctx, t.C)
}

func (s *Signal[T]) wait(ctx context.Context, expired <-chan time.Time) (T, error) {
	for {
		if v, ok := s.TryTake(); ok {
			return v, nil
		}
		select {
		case <-s.wake:
		case <-expired:
			var zero T
			return zero, errcode.Timeout
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}
