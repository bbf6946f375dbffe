package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"thermoblink/errcode"
	"thermoblink/logx"
)

func waitCtx(ctx context.Context) error { <-ctx.Done(); return nil }

func TestRunStopsAllOnCancel(t *testing.T) {
	s := New(logx.Nop())
	var running atomic.Int32
	for _, name := range []string{"blink", "button", "mcu_temp"} {
		if err := s.Add(name, func(ctx context.Context) error {
			running.Add(1)
			defer running.Add(-1)
			return waitCtx(ctx)
		}); err != nil {
			t.Fatalf("Add(%s): %v", name, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(time.Second)
	for running.Load() != 3 {
		if time.Now().After(deadline) {
			t.Fatalf("tasks not started: %d", running.Load())
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	if running.Load() != 0 {
		t.Fatalf("tasks still running: %d", running.Load())
	}
}

func TestTaskFailureIsFatal(t *testing.T) {
	s := New(logx.Nop())
	boom := errors.New("i2c bus missing")
	var cancelled atomic.Bool
	_ = s.Add("healthy", func(ctx context.Context) error {
		<-ctx.Done()
		cancelled.Store(true)
		return nil
	})
	_ = s.Add("broken", func(context.Context) error { return boom })

	err := s.Run(context.Background())
	if !errors.Is(err, errcode.TaskFailed) || !errors.Is(err, boom) {
		t.Fatalf("want TaskFailed wrapping cause, got %v", err)
	}
	if !cancelled.Load() {
		t.Fatal("healthy task was not cancelled")
	}
}

func TestPanicIsFatal(t *testing.T) {
	s := New(logx.Nop())
	_ = s.Add("panicky", func(context.Context) error { panic("bad state") })
	_ = s.Add("other", waitCtx)
	if err := s.Run(context.Background()); !errors.Is(err, errcode.TaskFailed) {
		t.Fatalf("want TaskFailed, got %v", err)
	}
}

func TestEarlyExitIsFatal(t *testing.T) {
	s := New(logx.Nop())
	_ = s.Add("quitter", func(context.Context) error { return nil })
	_ = s.Add("other", waitCtx)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	start := time.Now()
	err := s.Run(ctx)
	if !errors.Is(err, errcode.TaskFailed) {
		t.Fatalf("want TaskFailed, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("Run waited for the deadline: %v", time.Since(start))
	}
}

func TestNoAddAfterRun(t *testing.T) {
	s := New(logx.Nop())
	_ = s.Add("only", waitCtx)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := s.Add("late", waitCtx); !errors.Is(err, errcode.Started) {
		t.Fatalf("want Started, got %v", err)
	}
	if err := s.Run(context.Background()); !errors.Is(err, errcode.Started) {
		t.Fatalf("second Run: want Started, got %v", err)
	}
}

func TestAddValidation(t *testing.T) {
	s := New(logx.Nop())
	if err := s.Add("", waitCtx); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("empty name: %v", err)
	}
	if err := s.Add("x", nil); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("nil func: %v", err)
	}
	_ = s.Add("x", waitCtx)
	if err := s.Add("x", waitCtx); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("duplicate: %v", err)
	}
	if got := s.Tasks(); len(got) != 1 || got[0] != "x" {
		t.Fatalf("Tasks() = %v", got)
	}
}

func TestRunWithoutTasks(t *testing.T) {
	if err := New(logx.Nop()).Run(context.Background()); !errors.Is(err, errcode.InvalidParams) {
		t.Fatalf("want InvalidParams, got %v", err)
	}
}
