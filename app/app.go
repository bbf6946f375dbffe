// Package app wires the shared firmware context and the fixed task set.
package app

import (
	"context"

	"thermoblink/arbiter"
	"thermoblink/bus"
	"thermoblink/calib"
	"thermoblink/config"
	"thermoblink/drivers/sht31"
	"thermoblink/errcode"
	"thermoblink/logx"
	"thermoblink/platform"
	"thermoblink/scheduler"
	"thermoblink/services/blink"
	"thermoblink/services/button"
	"thermoblink/services/envsensor"
	"thermoblink/services/heartbeat"
	"thermoblink/services/mcutemp"
	"thermoblink/services/telemetry"
	"thermoblink/signal"
	"thermoblink/types"
)

const busQueueLen = 8

// Shared is constructed once at startup and handed to every task. There are
// no package-level singletons.
type Shared struct {
	Config *config.Config
	Log    logx.Logger
	Bus    *bus.Bus
	ADC    *arbiter.Arbiter
	Button *signal.Signal[types.ButtonEvent]
	Calib  *calib.Provider
}

// App is the assembled firmware.
type App struct {
	Shared

	Sched     *scheduler.Scheduler
	Blink     *blink.Controller
	Press     *button.Task
	MCUTemp   *mcutemp.Task
	Env       *envsensor.Task // nil when the SHT31 is disabled
	Heartbeat *heartbeat.Service
	Telemetry *telemetry.Service

	edge *button.EdgeWaiter
}

type Option func(*options)

type options struct {
	sink telemetry.Sink
}

// WithTelemetrySink forwards every telemetry message to sink.
func WithTelemetrySink(sink telemetry.Sink) Option {
	return func(o *options) { o.sink = sink }
}

// Build validates cfg, constructs the shared context and registers every
// task. Any failure here is a startup failure.
func Build(cfg *config.Config, tgt *platform.Target, log logx.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	board := tgt.Board
	if board == nil || board.Converter == nil || board.Calibration == nil || board.LED == nil || board.Button == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "app.build", Msg: "incomplete board"}
	}
	if cfg.SHT31.Enabled && board.I2C == nil {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "app.build", Msg: "sht31 enabled without an I2C bus"}
	}

	var adcOpts []arbiter.Option
	if cfg.ADC.AcquireTimeout > 0 {
		adcOpts = append(adcOpts, arbiter.WithAcquireTimeout(cfg.ADC.AcquireTimeout))
	}
	b := bus.New(busQueueLen)
	a := &App{
		Shared: Shared{
			Config: cfg,
			Log:    log,
			Bus:    b,
			ADC:    arbiter.New(board.Converter, adcOpts...),
			Button: signal.New[types.ButtonEvent](),
			Calib:  calib.NewProvider(board.Calibration, tgt.Calib),
		},
		Sched: scheduler.New(log.With("task", "scheduler")),
	}

	edge, err := button.NewEdgeWaiter(board.Button, cfg.Button.Debounce)
	if err != nil {
		return nil, errcode.Wrap(errcode.Error, "app.button_irq", err)
	}
	a.edge = edge

	a.Blink = blink.New(blink.Config{
		InitialMS: cfg.Blink.InitialMS,
		MinMS:     cfg.Blink.MinMS,
		LogEvery:  cfg.Blink.LogEvery,
	}, board.LED, a.Button, log.With("task", "blink"), b.NewConnection("blink"))
	a.Press = button.New(edge, a.Button, log.With("task", "button"))
	a.MCUTemp = mcutemp.New(cfg.MCUTemp.Period, a.ADC, a.Calib, log.With("task", "mcu_temp"), b.NewConnection("mcu_temp"))
	a.Telemetry = telemetry.New(b.NewConnection("telemetry"), log.With("task", "telemetry"), o.sink)

	tasks := []platform.Task{
		{Name: "telemetry", Run: a.Telemetry.Run},
		{Name: "blink", Run: a.Blink.Run},
		{Name: "button", Run: a.Press.Run},
		{Name: "mcu_temp", Run: a.MCUTemp.Run},
	}

	if cfg.SHT31.Enabled {
		rep, _ := sht31.ParseRepeatability(cfg.SHT31.Repeatability)
		dev := sht31.New(board.I2C)
		dev.Configure(sht31.Config{Address: cfg.SHT31.Address, Repeatability: rep, Delay: board.Delay})
		a.Env = envsensor.New(cfg.SHT31.Period, &dev, log.With("task", "sht31"), b.NewConnection("sht31"))
		tasks = append(tasks, platform.Task{Name: "sht31", Run: a.Env.Run})
	}
	if cfg.Heartbeat.Interval > 0 {
		a.Heartbeat = heartbeat.New(cfg.Heartbeat.Interval, log.With("task", "heartbeat"), b.NewConnection("heartbeat"))
		tasks = append(tasks, platform.Task{Name: "heartbeat", Run: a.Heartbeat.Run})
	}
	tasks = append(tasks, tgt.Background...)

	for _, t := range tasks {
		if err := a.Sched.Add(t.Name, t.Run); err != nil {
			_ = edge.Close()
			return nil, err
		}
	}
	return a, nil
}

// Run starts every task and blocks until ctx ends or a task fails.
func (a *App) Run(ctx context.Context) error {
	defer a.edge.Close()
	a.Log.Info("Starting", "tasks", len(a.Sched.Tasks()))
	return a.Sched.Run(ctx)
}
