// Package mcutemp periodically samples the on-die temperature sensor
// through the shared converter and reports calibrated readings.
package mcutemp

import (
	"context"
	"errors"
	"time"

	"thermoblink/arbiter"
	"thermoblink/bus"
	"thermoblink/calib"
	"thermoblink/errcode"
	"thermoblink/hal"
	"thermoblink/logx"
	"thermoblink/types"
	"thermoblink/x/conv"
	"thermoblink/x/timex"
)

const owner = "mcu_temp"

var TopicTemperature = bus.T("telemetry", "mcu", "temperature")

type Task struct {
	period time.Duration
	adc    *arbiter.Arbiter
	cal    *calib.Provider
	log    logx.Logger
	conn   *bus.Connection // optional

	seq uint32
}

func New(period time.Duration, adc *arbiter.Arbiter, cal *calib.Provider, log logx.Logger, conn *bus.Connection) *Task {
	return &Task{period: period, adc: adc, cal: cal, log: log, conn: conn}
}

// Sample takes the reference then the sensor reading under one guard.
// The guard is released before returning.
func (t *Task) Sample(ctx context.Context) (rawTemp, rawVref uint16, err error) {
	err = t.adc.With(ctx, owner, func(g *arbiter.Guard) error {
		var err error
		if rawVref, err = g.Sample(ctx, hal.ChannelVref); err != nil {
			return err
		}
		rawTemp, err = g.Sample(ctx, hal.ChannelTemp)
		return err
	})
	return rawTemp, rawVref, err
}

// ReadOnce performs one iteration: sample, compute, report. Calibration
// failures are published with Err set; converter and arbiter failures are
// logged and the reading is skipped. The returned error is for callers
// that want it; Run ignores everything but context cancellation.
func (t *Task) ReadOnce(ctx context.Context) (types.TemperatureReading, error) {
	rawTemp, rawVref, err := t.Sample(ctx)
	if err != nil {
		if ctx.Err() == nil {
			if errors.Is(err, errcode.AcquireTimeout) {
				t.log.Error("ADC acquire timed out", "err", err)
			} else {
				t.log.Warn("ADC conversion failed", "err", err)
			}
		}
		return types.TemperatureReading{}, err
	}

	t.seq++
	r := types.TemperatureReading{Sensor: "mcu", Seq: t.seq, TSms: timex.NowMs()}
	c, err := calib.CalculateTemperature(rawTemp, rawVref, t.cal.Get())
	if err != nil {
		r.Err = string(errcode.Of(err))
		t.log.Error("Temperature calculation failed", "n", t.seq, "raw", rawTemp, "vref", rawVref, "err", err)
		t.publish(r)
		return r, err
	}
	r.DeciC = calib.DeciC(c)
	t.log.Info("Reading #"+string(conv.AppendInt(nil, int64(t.seq)))+": Temperature: "+conv.Deci(r.DeciC)+"°C",
		"raw", rawTemp, "vref", rawVref)
	t.publish(r)
	return r, nil
}

// Run reads once per period until ctx ends. There is no retry and no
// backoff; a failed iteration simply waits for the next tick.
func (t *Task) Run(ctx context.Context) error {
	t.log.Info("MCU temperature task started", "period_ms", t.period.Milliseconds())
	tick := time.NewTicker(t.period)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			_, _ = t.ReadOnce(ctx)
		}
	}
}

// Readings is the number of successful conversions so far.
func (t *Task) Readings() uint32 { return t.seq }

func (t *Task) publish(r types.TemperatureReading) {
	if t.conn == nil {
		return
	}
	t.conn.Publish(&bus.Message{Topic: TopicTemperature, Payload: r, Retained: true})
}
