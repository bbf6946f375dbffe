// Package envsensor polls the external SHT31 temperature/humidity sensor.
// It shares the I²C bus with nothing else and does not use the converter
// arbiter.
package envsensor

import (
	"context"
	"time"

	"thermoblink/bus"
	"thermoblink/drivers/sht31"
	"thermoblink/errcode"
	"thermoblink/logx"
	"thermoblink/types"
	"thermoblink/x/conv"
	"thermoblink/x/timex"
)

var (
	TopicTemperature = bus.T("telemetry", "sht31", "temperature")
	TopicHumidity    = bus.T("telemetry", "sht31", "humidity")
)

// Sensor is the subset of *sht31.Device the task needs.
type Sensor interface {
	ReadStatus() (uint16, error)
	Measure() (sht31.Measurement, error)
}

type Task struct {
	period time.Duration
	dev    Sensor
	log    logx.Logger
	conn   *bus.Connection // optional

	seq    uint32
	errors uint32
}

func New(period time.Duration, dev Sensor, log logx.Logger, conn *bus.Connection) *Task {
	return &Task{period: period, dev: dev, log: log, conn: conn}
}

// Probe reads the status register once. A failure is only a warning: the
// sensor may still answer measurement commands.
func (t *Task) Probe() (uint16, error) {
	st, err := t.dev.ReadStatus()
	if err != nil {
		t.log.Warn("SHT31 status read failed", "err", err)
		return 0, err
	}
	t.log.Info("SHT31 status: " + conv.Hex16(st))
	return st, nil
}

// ReadOnce performs one measurement and reports it. Bus errors and CRC
// mismatches are logged and the reading skipped.
func (t *Task) ReadOnce() (sht31.Measurement, error) {
	m, err := t.dev.Measure()
	if err != nil {
		t.errors++
		t.log.Error("SHT31 measurement error", "code", string(errcode.Of(err)), "err", err)
		return m, err
	}
	t.seq++
	deci := milliToDeci(m.MilliC)
	t.log.Info("SHT31 reading #"+string(conv.AppendInt(nil, int64(t.seq)))+
		": Temperature: "+conv.Deci(deci)+"°C, Humidity: "+conv.Centi(m.RHx100)+"%")
	if t.conn != nil {
		now := timex.NowMs()
		t.conn.Publish(&bus.Message{
			Topic:    TopicTemperature,
			Payload:  types.TemperatureReading{Sensor: "sht31", Seq: t.seq, DeciC: deci, TSms: now},
			Retained: true,
		})
		t.conn.Publish(&bus.Message{
			Topic:    TopicHumidity,
			Payload:  types.HumidityReading{Sensor: "sht31", Seq: t.seq, RHx100: m.RHx100, TSms: now},
			Retained: true,
		})
	}
	return m, nil
}

// Run probes the sensor, then measures once per period until ctx ends.
func (t *Task) Run(ctx context.Context) error {
	t.log.Info("SHT31 task started", "period_ms", t.period.Milliseconds())
	_, _ = t.Probe()
	tick := time.NewTicker(t.period)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			_, _ = t.ReadOnce()
		}
	}
}

// Readings and Errors count successful and failed measurements.
func (t *Task) Readings() uint32 { return t.seq }
func (t *Task) Errors() uint32   { return t.errors }

// milliToDeci rounds half away from zero.
func milliToDeci(mc int32) int16 {
	if mc < 0 {
		return int16((mc - 50) / 100)
	}
	return int16((mc + 50) / 100)
}
