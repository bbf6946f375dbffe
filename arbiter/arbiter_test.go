package arbiter

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"thermoblink/errcode"
	"thermoblink/hal"
)

// fakeConverter records overlapping use and takes a little time per sample.
type fakeConverter struct {
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
	values   map[hal.Channel]uint16
}

func (f *fakeConverter) Sample(ctx context.Context, ch hal.Channel) (uint16, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	return f.values[ch], nil
}

type token struct {
	owner string
	enter bool
}

func TestCriticalSectionsNeverOverlap(t *testing.T) {
	conv := &fakeConverter{delay: 200 * time.Microsecond}
	a := New(conv)
	ctx := context.Background()

	var (
		mu  sync.Mutex
		log []token
	)
	record := func(tk token) {
		mu.Lock()
		log = append(log, tk)
		mu.Unlock()
	}

	var wg sync.WaitGroup
	for _, owner := range []string{"mcu_temp", "other"} {
		wg.Add(1)
		go func(owner string) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				err := a.With(ctx, owner, func(g *Guard) error {
					record(token{owner, true})
					defer record(token{owner, false})
					if _, err := g.Sample(ctx, hal.ChannelVref); err != nil {
						return err
					}
					_, err := g.Sample(ctx, hal.ChannelTemp)
					return err
				})
				if err != nil {
					t.Errorf("%s: %v", owner, err)
					return
				}
			}
		}(owner)
	}
	wg.Wait()

	if len(log) != 100 {
		t.Fatalf("expected 100 tokens, got %d", len(log))
	}
	for i := 0; i < len(log); i += 2 {
		in, out := log[i], log[i+1]
		if !in.enter || out.enter || in.owner != out.owner {
			t.Fatalf("interleaved critical sections at %d: %+v then %+v", i, in, out)
		}
	}
	if m := conv.maxSeen.Load(); m != 1 {
		t.Fatalf("converter used concurrently: max in flight %d", m)
	}
	if s := a.Stats(); s.Grants != 50 || s.Holder != "" {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestSecondAcquireWaitsForRelease(t *testing.T) {
	a := New(&fakeConverter{})
	ctx := context.Background()

	g, err := a.Acquire(ctx, "first")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if a.Stats().Holder != "first" {
		t.Fatalf("holder = %q", a.Stats().Holder)
	}

	got := make(chan *Guard, 1)
	go func() {
		g2, err := a.Acquire(ctx, "second")
		if err == nil {
			got <- g2
		}
	}()

	select {
	case <-got:
		t.Fatal("second acquire must wait while the guard is held")
	case <-time.After(10 * time.Millisecond):
	}

	g.Release()
	select {
	case g2 := <-got:
		g2.Release()
	case <-time.After(100 * time.Millisecond):
		t.Fatal("second acquire did not proceed after release")
	}
}

func TestReleaseOnErrorAndPanic(t *testing.T) {
	a := New(&fakeConverter{})
	ctx := context.Background()
	boom := errors.New("boom")

	if err := a.With(ctx, "t", func(*Guard) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("error not propagated: %v", err)
	}

	func() {
		defer func() { _ = recover() }()
		_ = a.With(ctx, "t", func(*Guard) error { panic("sensor fault") })
	}()

	// Both exits released the guard.
	tctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	g, err := a.Acquire(tctx, "after")
	if err != nil {
		t.Fatalf("guard leaked: %v", err)
	}
	g.Release()
}

func TestReleaseIsIdempotentAndGuardsSample(t *testing.T) {
	a := New(&fakeConverter{values: map[hal.Channel]uint16{hal.ChannelTemp: 1700}})
	ctx := context.Background()

	g, _ := a.Acquire(ctx, "t")
	v, err := g.Sample(ctx, hal.ChannelTemp)
	if err != nil || v != 1700 {
		t.Fatalf("Sample = %d, %v", v, err)
	}
	g.Release()
	g.Release() // must not free a token it does not own

	if _, err := g.Sample(ctx, hal.ChannelTemp); !errors.Is(err, errcode.Released) {
		t.Fatalf("expected Released, got %v", err)
	}

	g1, _ := a.Acquire(ctx, "a")
	defer g1.Release()
	tctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if _, err := a.Acquire(tctx, "b"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("double release let a second holder in: %v", err)
	}
}

func TestAcquireTimeout(t *testing.T) {
	a := New(&fakeConverter{}, WithAcquireTimeout(5*time.Millisecond))
	ctx := context.Background()

	g, _ := a.Acquire(ctx, "slow")
	defer g.Release()

	_, err := a.Acquire(ctx, "late")
	if !errors.Is(err, errcode.AcquireTimeout) {
		t.Fatalf("expected AcquireTimeout, got %v", err)
	}
}
