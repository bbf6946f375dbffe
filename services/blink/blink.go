// Package blink drives the status LED. The half-period starts at
// Config.InitialMS; every button press halves it, and once the halved value
// would fall below Config.MinMS it wraps back to InitialMS rather than
// clamping at the floor.
package blink

import (
	"context"
	"errors"
	"time"

	"thermoblink/bus"
	"thermoblink/errcode"
	"thermoblink/hal"
	"thermoblink/logx"
	"thermoblink/signal"
	"thermoblink/types"
	"thermoblink/x/timex"
)

var topicStatus = bus.T("status", "blink")

type Config struct {
	InitialMS uint32
	MinMS     uint32
	LogEvery  uint32
}

// State is owned by the controller's task; nothing else writes it.
type State struct {
	Level      types.Level // level applied on the next step
	IntervalMS uint32
	Counter    uint32 // completed high phases
}

type Controller struct {
	cfg  Config
	led  hal.OutputPin
	sig  *signal.Signal[types.ButtonEvent]
	log  logx.Logger
	conn *bus.Connection // optional status publisher

	st State
}

func New(cfg Config, led hal.OutputPin, sig *signal.Signal[types.ButtonEvent], log logx.Logger, conn *bus.Connection) *Controller {
	if cfg.LogEvery == 0 {
		cfg.LogEvery = 1
	}
	return &Controller{
		cfg:  cfg,
		led:  led,
		sig:  sig,
		log:  log,
		conn: conn,
		st:   State{Level: types.High, IntervalMS: cfg.InitialMS},
	}
}

// NextInterval halves cur with integer division; a result below min wraps
// to initial.
func NextInterval(cur, initial, min uint32) uint32 {
	next := cur / 2
	if next < min {
		return initial
	}
	return next
}

// State returns a copy of the controller state. Only call it from the
// goroutine running Step/Run.
func (c *Controller) State() State { return c.st }

// Step runs one loop body: race a button press against the current
// interval, apply the level, and advance the state. It reports whether a
// press won the race. The only error is the context's.
func (c *Controller) Step(ctx context.Context) (pressed bool, err error) {
	_, err = c.sig.WaitTimeout(ctx, time.Duration(c.st.IntervalMS)*time.Millisecond)
	switch {
	case err == nil:
		pressed = true
		c.st.Level = types.High
		c.st.IntervalMS = NextInterval(c.st.IntervalMS, c.cfg.InitialMS, c.cfg.MinMS)
		c.log.Info("Blink speed set", "ms", c.st.IntervalMS)
		c.publish()
	case errors.Is(err, errcode.Timeout):
	default:
		return false, err
	}

	c.led.Set(bool(c.st.Level))

	if c.st.Level == types.High {
		c.st.Level = types.Low
		c.st.Counter++
		if c.st.Counter%c.cfg.LogEvery == 0 {
			c.log.Info("LED blinked", "count", c.st.Counter)
			c.publish()
		}
	} else {
		c.st.Level = types.High
	}
	return pressed, nil
}

// Run repeats Step until ctx ends.
func (c *Controller) Run(ctx context.Context) error {
	c.log.Info("Blink task started", "initial_ms", c.cfg.InitialMS, "min_ms", c.cfg.MinMS)
	for {
		if _, err := c.Step(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (c *Controller) publish() {
	if c.conn == nil {
		return
	}
	c.conn.Publish(&bus.Message{
		Topic: topicStatus,
		Payload: types.BlinkStatus{
			IntervalMS: c.st.IntervalMS,
			Blinks:     c.st.Counter,
			TSms:       timex.NowMs(),
		},
		Retained: true,
	})
}
