// Package calib turns raw on-die temperature samples into degrees Celsius
// using the vendor's two-point factory calibration and a supply-voltage
// reference sample.
package calib

import (
	"sync"

	"thermoblink/hal"
)

// Supply voltage at which the factory words were captured, and the two
// calibration temperatures they correspond to.
const (
	NominalSupplyMV = 3300
	LowPointC       = 30.0
	HighPointC      = 110.0
)

// Data is the immutable factory calibration triple.
type Data struct {
	Temp30Raw  uint16 // converter reading at LowPointC
	Temp110Raw uint16 // converter reading at HighPointC
	VrefRaw    uint16 // reference channel reading at NominalSupplyMV
}

// Addresses locates the three words in the platform's read-only storage.
type Addresses struct {
	Temp30  uintptr
	Temp110 uintptr
	Vref    uintptr
}

// Provider reads the calibration words once, on first use, and hands the
// same value to every caller afterwards.
type Provider struct {
	src  hal.CalibrationSource
	addr Addresses

	once sync.Once
	data Data
}

func NewProvider(src hal.CalibrationSource, addr Addresses) *Provider {
	return &Provider{src: src, addr: addr}
}

// Get returns the cached calibration. Concurrent first calls block until the
// single underlying read has finished.
func (p *Provider) Get() Data {
	p.once.Do(func() {
		p.data = Data{
			Temp30Raw:  p.src.ReadCalibrationWord(p.addr.Temp30),
			Temp110Raw: p.src.ReadCalibrationWord(p.addr.Temp110),
			VrefRaw:    p.src.ReadCalibrationWord(p.addr.Vref),
		}
	})
	return p.data
}
