// Package scheduler runs the fixed set of long-lived firmware tasks.
//
// Tasks are registered before Run and never added afterwards. Each task runs
// on its own goroutine; on TinyGo these are cooperatively scheduled on one
// core, so a task only yields at a suspension point (timer, channel, ADC
// conversion). A task that returns an error, or panics, while the context is
// still live is fatal: every other task is cancelled and Run reports it.
package scheduler

import (
	"context"
	"sync"

	"thermoblink/errcode"
	"thermoblink/logx"
)

type TaskFunc func(ctx context.Context) error

type task struct {
	name string
	run  TaskFunc
}

type Scheduler struct {
	log logx.Logger

	mu      sync.Mutex
	tasks   []task
	started bool
}

func New(log logx.Logger) *Scheduler {
	return &Scheduler{log: log}
}

// Add registers a task. It fails with errcode.Started once Run has been
// called and with errcode.InvalidParams for a nil func or duplicate name.
func (s *Scheduler) Add(name string, run TaskFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return &errcode.E{C: errcode.Started, Op: "scheduler.add", Msg: name}
	}
	if name == "" || run == nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "scheduler.add", Msg: "task needs a name and a func"}
	}
	for _, t := range s.tasks {
		if t.name == name {
			return &errcode.E{C: errcode.InvalidParams, Op: "scheduler.add", Msg: "duplicate task " + name}
		}
	}
	s.tasks = append(s.tasks, task{name: name, run: run})
	return nil
}

// Tasks lists registered task names in registration order.
func (s *Scheduler) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.tasks))
	for i, t := range s.tasks {
		names[i] = t.name
	}
	return names
}

// Run starts every task and blocks until all have returned. It returns nil
// when ctx ends, or the first task failure wrapped as errcode.TaskFailed.
// Run may only be called once.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return &errcode.E{C: errcode.Started, Op: "scheduler.run"}
	}
	s.started = true
	tasks := s.tasks
	s.mu.Unlock()

	if len(tasks) == 0 {
		return &errcode.E{C: errcode.InvalidParams, Op: "scheduler.run", Msg: "no tasks"}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		failOnce sync.Once
		failure  error
	)
	fail := func(err error) {
		failOnce.Do(func() {
			failure = err
			cancel()
		})
	}

	for _, t := range tasks {
		wg.Add(1)
		go func(t task) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("task panicked", "task", t.name, "panic", r)
					fail(&errcode.E{C: errcode.TaskFailed, Op: t.name, Msg: "panic"})
				}
			}()
			err := t.run(ctx)
			if err != nil && ctx.Err() == nil {
				s.log.Error("task failed", "task", t.name, "err", err)
				fail(errcode.Wrap(errcode.TaskFailed, t.name, err))
				return
			}
			if ctx.Err() == nil {
				s.log.Error("task exited early", "task", t.name)
				fail(&errcode.E{C: errcode.TaskFailed, Op: t.name, Msg: "exited early"})
				return
			}
			s.log.Debug("task stopped", "task", t.name)
		}(t)
	}
	s.log.Info("scheduler running", "tasks", len(tasks))

	wg.Wait()
	return failure
}
