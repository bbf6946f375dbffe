// Package sht31 provides a driver for the Sensirion SHT3x temperature and
// humidity sensors using single-shot measurements without clock stretching:
//
//	d := sht31.New(bus)
//	d.Configure(sht31.Config{Repeatability: sht31.Medium})
//	m, err := d.Measure()
//
// Every 16-bit word returned by the sensor is followed by a CRC-8, which is
// verified; a mismatch is reported as errcode.CRCMismatch. Bus failures are
// wrapped as errcode.BusError.
//
// Conversions are fixed-point: milli-°C and hundredths of %RH.
package sht31

import (
	"time"

	"tinygo.org/x/drivers"

	"thermoblink/errcode"
	"thermoblink/x/mathx"
)

// I2C addresses (ADDR pin low / high).
const (
	AddressA = 0x44
	AddressB = 0x45
)

var (
	cmdReadStatus  = [2]byte{0xF3, 0x2D}
	cmdClearStatus = [2]byte{0x30, 0x41}
	cmdSoftReset   = [2]byte{0x30, 0xA2}
	cmdHeaterOn    = [2]byte{0x30, 0x6D}
	cmdHeaterOff   = [2]byte{0x30, 0x66}
)

// Repeatability trades conversion time for noise.
type Repeatability uint8

const (
	Medium Repeatability = iota
	High
	Low
)

// single-shot, clock stretching disabled
func (r Repeatability) command() [2]byte {
	switch r {
	case High:
		return [2]byte{0x24, 0x00}
	case Low:
		return [2]byte{0x24, 0x16}
	}
	return [2]byte{0x24, 0x0B}
}

// maximum conversion time per datasheet
func (r Repeatability) duration() time.Duration {
	switch r {
	case High:
		return 15 * time.Millisecond
	case Low:
		return 4 * time.Millisecond
	}
	return 6 * time.Millisecond
}

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// Address defaults to AddressA if zero.
	Address       uint16
	Repeatability Repeatability
	// Delay waits for the conversion. Defaults to time.Sleep.
	Delay func(time.Duration)
}

// Device wraps an I2C connection to an SHT3x device.
type Device struct {
	bus     drivers.I2C
	Address uint16

	rep   Repeatability
	delay func(time.Duration)
	buf   [6]byte
}

// New creates a Device with defaults. It does not touch the bus.
func New(bus drivers.I2C) Device {
	return Device{
		bus:     bus,
		Address: AddressA,
		delay:   time.Sleep,
	}
}

func (d *Device) Configure(cfg Config) {
	if cfg.Address != 0 {
		d.Address = cfg.Address
	}
	d.rep = cfg.Repeatability
	if cfg.Delay != nil {
		d.delay = cfg.Delay
	}
}

// Measurement is one converted sample.
type Measurement struct {
	MilliC int32  // milli-°C
	RHx100 uint16 // hundredths of %RH, 0..10000
}

func (m Measurement) Celsius() float32  { return float32(m.MilliC) / 1000 }
func (m Measurement) Humidity() float32 { return float32(m.RHx100) / 100 }

// Measure runs one single-shot conversion and returns the converted values.
func (d *Device) Measure() (Measurement, error) {
	cmd := d.rep.command()
	if err := d.bus.Tx(d.Address, cmd[:], nil); err != nil {
		return Measurement{}, errcode.Wrap(errcode.BusError, "sht31.measure", err)
	}
	d.delay(d.rep.duration())

	buf := d.buf[:6]
	if err := d.bus.Tx(d.Address, nil, buf); err != nil {
		return Measurement{}, errcode.Wrap(errcode.BusError, "sht31.measure", err)
	}
	traw, err := word(buf[0:3])
	if err != nil {
		return Measurement{}, err
	}
	hraw, err := word(buf[3:6])
	if err != nil {
		return Measurement{}, err
	}
	return Measurement{MilliC: TemperatureMilliC(traw), RHx100: HumidityX100(hraw)}, nil
}

// ReadStatus returns the 16-bit status register.
func (d *Device) ReadStatus() (uint16, error) {
	if err := d.bus.Tx(d.Address, cmdReadStatus[:], nil); err != nil {
		return 0, errcode.Wrap(errcode.BusError, "sht31.status", err)
	}
	buf := d.buf[:3]
	if err := d.bus.Tx(d.Address, nil, buf); err != nil {
		return 0, errcode.Wrap(errcode.BusError, "sht31.status", err)
	}
	return word(buf)
}

func (d *Device) ClearStatus() error { return d.command("sht31.clear_status", cmdClearStatus) }

// SoftReset restarts the sensor. Allow ~1.5 ms before the next command.
func (d *Device) SoftReset() error { return d.command("sht31.reset", cmdSoftReset) }

// SetHeater switches the internal heater, used for plausibility checks.
func (d *Device) SetHeater(on bool) error {
	if on {
		return d.command("sht31.heater", cmdHeaterOn)
	}
	return d.command("sht31.heater", cmdHeaterOff)
}

func (d *Device) command(op string, cmd [2]byte) error {
	if err := d.bus.Tx(d.Address, cmd[:], nil); err != nil {
		return errcode.Wrap(errcode.BusError, op, err)
	}
	return nil
}

// word checks the CRC of a [msb, lsb, crc] triple and returns the value.
func word(b []byte) (uint16, error) {
	if CRC8(b[:2]) != b[2] {
		return 0, &errcode.E{C: errcode.CRCMismatch, Op: "sht31"}
	}
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

// CRC8 is the Sensirion checksum: polynomial 0x31, init 0xFF, no reflection.
func CRC8(data []byte) uint8 {
	crc := uint8(0xFF)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// TemperatureMilliC converts a raw word: T = -45 + 175 * raw / 65535.
func TemperatureMilliC(raw uint16) int32 {
	return -45000 + int32(mathx.ScaleU16(raw, 175000))
}

// HumidityX100 converts a raw word: RH = 100 * raw / 65535.
func HumidityX100(raw uint16) uint16 {
	return uint16(mathx.Clamp(mathx.ScaleU16(raw, 10000), 0, 10000))
}

// RawFromMilliC is the inverse of TemperatureMilliC, used by simulators.
func RawFromMilliC(mc int32) uint16 {
	mc = mathx.Clamp(mc, -45000, 130000)
	return uint16(mathx.RoundDiv(uint64(mc+45000)*0xFFFF, 175000))
}

// RawFromRHx100 is the inverse of HumidityX100, used by simulators.
func RawFromRHx100(rh uint16) uint16 {
	rh = mathx.Min(rh, 10000)
	return uint16(mathx.RoundDiv(uint64(rh)*0xFFFF, 10000))
}

// ParseRepeatability maps "low", "medium" and "high"; "" means Medium.
func ParseRepeatability(s string) (Repeatability, bool) {
	switch s {
	case "", "medium":
		return Medium, true
	case "high":
		return High, true
	case "low":
		return Low, true
	}
	return Medium, false
}
