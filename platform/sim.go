//go:build !rp2040

package platform

import (
	"context"
	"time"

	"thermoblink/calib"
	"thermoblink/config"
	"thermoblink/hal"
)

// SimCalibAddresses mirror the vendor system-memory layout the calibration
// words come from on parts that have them.
var SimCalibAddresses = calib.Addresses{
	Temp30:  0x1FFF_F7B8,
	Vref:    0x1FFF_F7BA,
	Temp110: 0x1FFF_F7C2,
}

// Sim is a complete simulated board. Its parts are exported so tests can
// drive inputs and inspect outputs.
type Sim struct {
	Cfg    config.SimConfig
	ADC    *SimADC
	Calib  *CalibTable
	LED    *RecordingPin
	Button *SimButton
	Sensor *SimSHT31
}

// NewSim builds a simulated board. seed makes converter noise repeatable.
func NewSim(cfg config.SimConfig, sensorAddr uint16, seed int64) *Sim {
	cal := NewCalibTable(SimCalibAddresses, calib.Data{
		Temp30Raw:  cfg.Calibration.Temp30Raw,
		Temp110Raw: cfg.Calibration.Temp110Raw,
		VrefRaw:    cfg.Calibration.VrefRaw,
	})
	return &Sim{
		Cfg:    cfg,
		ADC:    NewSimADC(cfg, seed),
		Calib:  cal,
		LED:    &RecordingPin{},
		Button: NewSimButton(),
		Sensor: NewSimSHT31(sensorAddr, cfg),
	}
}

func (s *Sim) Board() *hal.Board {
	return &hal.Board{
		Name:        "sim",
		Converter:   s.ADC,
		Calibration: s.Calib,
		LED:         s.LED,
		Button:      s.Button,
		I2C:         s.Sensor,
	}
}

// PressLoop presses the button every interval until ctx ends.
func (s *Sim) PressLoop(ctx context.Context, every time.Duration) error {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.Button.Press()
		}
	}
}

// Target wraps the simulator for the application, adding the scripted
// press task when configured.
func (s *Sim) Target() *Target {
	t := &Target{Board: s.Board(), Calib: SimCalibAddresses}
	if every := s.Cfg.PressEvery; every > 0 {
		t.Background = append(t.Background, Task{
			Name: "sim_button",
			Run:  func(ctx context.Context) error { return s.PressLoop(ctx, every) },
		})
	}
	return t
}

// Open returns a simulated target built from cfg.
func Open(cfg *config.Config) (*Target, error) {
	return NewSim(cfg.Sim, cfg.SHT31.Address, time.Now().UnixNano()).Target(), nil
}
