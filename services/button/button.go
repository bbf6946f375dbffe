// Package button forwards button presses to the blink controller through
// the shared event signal.
package button

import (
	"context"
	"sync/atomic"

	"thermoblink/hal"
	"thermoblink/logx"
	"thermoblink/signal"
	"thermoblink/types"
)

type Task struct {
	src     hal.EdgeSource
	sig     *signal.Signal[types.ButtonEvent]
	log     logx.Logger
	presses atomic.Uint32
}

func New(src hal.EdgeSource, sig *signal.Signal[types.ButtonEvent], log logx.Logger) *Task {
	return &Task{src: src, sig: sig, log: log}
}

// Presses is the number of presses forwarded so far.
func (t *Task) Presses() uint32 { return t.presses.Load() }

// Run waits for falling edges and signals ButtonPressed for each one.
// It returns nil when ctx ends and the source's error otherwise.
func (t *Task) Run(ctx context.Context) error {
	t.log.Info("Button task started")
	for {
		if err := t.src.WaitFallingEdge(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		n := t.presses.Add(1)
		t.log.Info("Button pressed", "n", n)
		t.sig.Signal(types.ButtonPressed)
	}
}
