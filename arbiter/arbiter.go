// Package arbiter serialises access to the single analog converter.
//
// A task acquires a Guard, performs its conversions, and releases. Only the
// conversion itself may suspend while the guard is held; tasks must not wait
// on timers or signals inside the critical section.
package arbiter

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"thermoblink/errcode"
	"thermoblink/hal"
)

type Arbiter struct {
	conv hal.Converter
	sem  chan struct{} // one token = one holder

	acquireTimeout time.Duration // 0 => wait indefinitely

	mu     sync.Mutex
	holder string
	grants uint64
}

type Option func(*Arbiter)

// WithAcquireTimeout bounds how long Acquire waits. Expiry is reported as
// errcode.AcquireTimeout; callers should log it, not retry silently.
func WithAcquireTimeout(d time.Duration) Option {
	return func(a *Arbiter) { a.acquireTimeout = d }
}

func New(conv hal.Converter, opts ...Option) *Arbiter {
	a := &Arbiter{conv: conv, sem: make(chan struct{}, 1)}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Acquire suspends until no other task holds the converter. owner is kept
// for diagnostics only.
func (a *Arbiter) Acquire(ctx context.Context, owner string) (*Guard, error) {
	var expired <-chan time.Time
	if a.acquireTimeout > 0 {
		t := time.NewTimer(a.acquireTimeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case a.sem <- struct{}{}:
	case <-expired:
		return nil, &errcode.E{C: errcode.AcquireTimeout, Op: "adc.acquire", Msg: owner}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	a.mu.Lock()
	a.holder = owner
	a.grants++
	a.mu.Unlock()
	return &Guard{a: a}, nil
}

// With runs fn while holding the converter and releases on every exit path,
// including error returns and panics.
func (a *Arbiter) With(ctx context.Context, owner string, fn func(g *Guard) error) error {
	g, err := a.Acquire(ctx, owner)
	if err != nil {
		return err
	}
	defer g.Release()
	return fn(g)
}

func (a *Arbiter) release() {
	a.mu.Lock()
	a.holder = ""
	a.mu.Unlock()
	<-a.sem
}

type Stats struct {
	Grants uint64
	Holder string // "" when free
}

func (a *Arbiter) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Stats{Grants: a.grants, Holder: a.holder}
}

// Guard is scoped, exclusive access to the converter.
type Guard struct {
	a        *Arbiter
	released atomic.Bool
}

// Sample runs one conversion without giving up the guard.
func (g *Guard) Sample(ctx context.Context, ch hal.Channel) (uint16, error) {
	if g.released.Load() {
		return 0, errcode.Released
	}
	return g.a.conv.Sample(ctx, ch)
}

// Release gives the converter back. Calling it more than once is a no-op.
func (g *Guard) Release() {
	if g.released.CompareAndSwap(false, true) {
		g.a.release()
	}
}
