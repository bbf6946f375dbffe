//go:build rp2040

package platform

import (
	"context"
	"device/rp"
	"machine"
	"runtime"
	"runtime/volatile"
	"unsafe"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"

	"thermoblink/calib"
	"thermoblink/config"
	"thermoblink/hal"
)

// Board wiring (Pico GP numbering).
const (
	pinButton   = machine.GP15 // to GND, internal pull-up
	pinVrefADC  = machine.ADC0 // GP26: external 2.048 V shunt reference
	consoleBaud = 115200
)

// The RP2040 has no factory temperature calibration, so the three words are
// provisioned into the last flash sector (read through XIP) at production
// test.
const calibBase uintptr = 0x101F_F000

var calibAddresses = calib.Addresses{
	Temp30:  calibBase + 0x0,
	Vref:    calibBase + 0x2,
	Temp110: calibBase + 0xA,
}

// ADC input mux selectors.
const (
	ainVref = 0 // GP26
	ainTemp = 4 // on-die sensor
)

// Open configures the peripherals and returns the Pico target.
func Open(cfg *config.Config) (*Target, error) {
	console := uartx.UART0
	if err := console.Configure(uartx.UARTConfig{
		BaudRate: consoleBaud,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	}); err != nil {
		return nil, err
	}

	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})

	btn := pinButton
	btn.Configure(machine.PinConfig{Mode: machine.PinInputPullup})

	i2c := machine.I2C0
	if err := i2c.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       machine.I2C0_SDA_PIN,
		SCL:       machine.I2C0_SCL_PIN,
	}); err != nil {
		return nil, err
	}

	machine.InitADC()
	pinVrefADC.Configure(machine.PinConfig{Mode: machine.PinAnalog})
	rp.ADC.CS.SetBits(rp.ADC_CS_TS_EN)

	return &Target{
		Board: &hal.Board{
			Name:        "pico",
			Converter:   rp2ADC{},
			Calibration: flashCalib{},
			LED:         led,
			Button:      &rp2Pin{p: btn},
			I2C:         i2c,
		},
		Calib:   calibAddresses,
		Console: console,
	}, nil
}

// ---- ADC ----

type rp2ADC struct{}

// Sample starts one conversion and yields until the hardware reports READY.
// Results are 12-bit.
func (rp2ADC) Sample(ctx context.Context, ch hal.Channel) (uint16, error) {
	ain := uint32(ainTemp)
	if ch == hal.ChannelVref {
		ain = ainVref
	}
	rp.ADC.CS.ReplaceBits(ain<<rp.ADC_CS_AINSEL_Pos, rp.ADC_CS_AINSEL_Msk, 0)
	rp.ADC.CS.SetBits(rp.ADC_CS_START_ONCE)
	for !rp.ADC.CS.HasBits(rp.ADC_CS_READY) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		runtime.Gosched()
	}
	return uint16(rp.ADC.RESULT.Get() & 0x0FFF), nil
}

// ---- Calibration ----

type flashCalib struct{}

func (flashCalib) ReadCalibrationWord(addr uintptr) uint16 {
	return volatile.LoadUint16((*uint16)(unsafe.Pointer(addr)))
}

// ---- GPIO with IRQ ----

type rp2Pin struct{ p machine.Pin }

func (r *rp2Pin) Get() bool { return r.p.Get() }

func (r *rp2Pin) SetIRQ(edge hal.Edge, handler func()) error {
	return r.p.SetInterrupt(toPinChange(edge), func(machine.Pin) { handler() })
}

func (r *rp2Pin) ClearIRQ() error {
	var zero machine.PinChange
	return r.p.SetInterrupt(zero, nil)
}

func toPinChange(e hal.Edge) machine.PinChange {
	switch e {
	case hal.EdgeRising:
		return machine.PinRising
	case hal.EdgeFalling:
		return machine.PinFalling
	case hal.EdgeBoth:
		return machine.PinToggle
	}
	var zero machine.PinChange
	return zero
}
