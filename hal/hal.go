// Package hal names the hardware capabilities the tasks consume. Backends
// live in package platform; tests use small fakes.
package hal

import (
	"context"
	"time"

	"tinygo.org/x/drivers"
)

// ---- Analog converter ----

// Channel is a logical converter input.
type Channel uint8

const (
	ChannelTemp Channel = iota // on-die temperature sensor
	ChannelVref                // internal/external voltage reference
)

func (c Channel) String() string {
	switch c {
	case ChannelTemp:
		return "temp"
	case ChannelVref:
		return "vref"
	}
	return "unknown"
}

// Converter performs one hardware-timed conversion. Sample suspends the
// caller until the conversion completes. Callers must hold the arbiter guard;
// implementations need not be safe for concurrent use.
type Converter interface {
	Sample(ctx context.Context, ch Channel) (uint16, error)
}

// ---- Factory calibration ----

// CalibrationSource reads one 16-bit word from read-only storage.
type CalibrationSource interface {
	ReadCalibrationWord(addr uintptr) uint16
}

// ---- GPIO ----

// OutputPin drives a digital output; synchronous, never suspends.
type OutputPin interface {
	Set(level bool)
}

// Edge selects which transitions an IRQ pin reports.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

// IRQPin is an input whose handler runs in interrupt context. The handler
// must not block.
type IRQPin interface {
	Get() bool
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}

// EdgeSource suspends until the next falling edge (a button press).
type EdgeSource interface {
	WaitFallingEdge(ctx context.Context) error
}

// ---- I²C ----

// I2C is the tinygo drivers bus shape: write w then read r in one transaction.
type I2C = drivers.I2C

// ---- Board ----

// Board bundles everything a platform backend hands to the application.
type Board struct {
	Name        string
	Converter   Converter
	Calibration CalibrationSource
	LED         OutputPin
	Button      IRQPin
	I2C         I2C
	// Delay blocks briefly for sensor conversion waits that are shorter than
	// a scheduling slice; nil means time.Sleep.
	Delay func(time.Duration)
}
