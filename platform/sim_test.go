//go:build !rp2040

package platform

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thermoblink/calib"
	"thermoblink/config"
	"thermoblink/drivers/sht31"
	"thermoblink/errcode"
	"thermoblink/hal"
)

func quietSim() config.SimConfig {
	c := config.Default().Sim
	c.NoiseCounts = 0
	c.ConversionTime = 0
	return c
}

func calibrated(t *testing.T, s *Sim) float32 {
	t.Helper()
	ctx := context.Background()
	vref, err := s.ADC.Sample(ctx, hal.ChannelVref)
	require.NoError(t, err)
	raw, err := s.ADC.Sample(ctx, hal.ChannelTemp)
	require.NoError(t, err)
	c, err := calib.CalculateTemperature(raw, vref, calib.NewProvider(s.Calib, SimCalibAddresses).Get())
	require.NoError(t, err)
	return c
}

func TestSimADCRoundTripsThroughCalibration(t *testing.T) {
	s := NewSim(quietSim(), 0, 1)
	s.ADC.SetDieC(30)
	assert.InDelta(t, 30.0, calibrated(t, s), 0.5)
	s.ADC.SetDieC(110)
	assert.InDelta(t, 110.0, calibrated(t, s), 0.5)
	s.ADC.SetDieC(45)
	assert.InDelta(t, 45.0, calibrated(t, s), 0.5)
}

func TestSimADCSupplySagIsCompensated(t *testing.T) {
	s := NewSim(quietSim(), 0, 1)
	s.ADC.SetDieC(40)
	s.ADC.SetSupplyMV(3000)
	assert.InDelta(t, 40.0, calibrated(t, s), 0.5)
}

func TestSimADCCountsOverlap(t *testing.T) {
	cfg := quietSim()
	cfg.ConversionTime = 5 * time.Millisecond
	a := NewSimADC(cfg, 1)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = a.Sample(context.Background(), hal.ChannelTemp)
		}()
	}
	wg.Wait()
	assert.Equal(t, uint32(1), a.Overlaps())
	assert.Equal(t, uint32(2), a.Samples())
}

func TestSimADCFault(t *testing.T) {
	a := NewSimADC(quietSim(), 1)
	a.FailNext()
	_, err := a.Sample(context.Background(), hal.ChannelVref)
	assert.ErrorIs(t, err, errcode.BusError)
	_, err = a.Sample(context.Background(), hal.ChannelVref)
	assert.NoError(t, err)
}

func TestSimSHT31WithDriver(t *testing.T) {
	cfg := quietSim()
	cfg.AmbientC = 21.5
	cfg.HumidityPct = 48.25
	sim := NewSimSHT31(sht31.AddressA, cfg)

	d := sht31.New(sim)
	d.Configure(sht31.Config{Delay: func(time.Duration) {}})

	st, err := d.ReadStatus()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x8010), st)
	require.NoError(t, d.ClearStatus())
	st, err = d.ReadStatus()
	require.NoError(t, err)
	assert.Equal(t, uint16(0), st)

	m, err := d.Measure()
	require.NoError(t, err)
	assert.InDelta(t, 21500, m.MilliC, 5)
	assert.InDelta(t, 4825, m.RHx100, 1)
}

func TestSimSHT31Faults(t *testing.T) {
	cfg := quietSim()
	cfg.CRCFaultEvery = 2
	sim := NewSimSHT31(sht31.AddressA, cfg)
	d := sht31.New(sim)
	d.Configure(sht31.Config{Delay: func(time.Duration) {}})

	_, err := d.Measure()
	require.NoError(t, err)
	_, err = d.Measure()
	assert.ErrorIs(t, err, errcode.CRCMismatch)

	wrong := sht31.New(sim)
	wrong.Configure(sht31.Config{Address: sht31.AddressB, Delay: func(time.Duration) {}})
	_, err = wrong.Measure()
	assert.ErrorIs(t, err, errcode.BusError)

	cfg = quietSim()
	cfg.I2CFaultEvery = 1
	d = sht31.New(NewSimSHT31(sht31.AddressA, cfg))
	_, err = d.Measure()
	assert.ErrorIs(t, err, errcode.BusError)
}

func TestSimButtonFallingEdgeOnly(t *testing.T) {
	b := NewSimButton()
	assert.True(t, b.Get(), "idle high")
	var fired int
	require.NoError(t, b.SetIRQ(hal.EdgeFalling, func() { fired++ }))
	b.Press()
	b.Press()
	assert.Equal(t, 2, fired)
	require.NoError(t, b.ClearIRQ())
	b.Press()
	assert.Equal(t, 2, fired)
}

func TestTargetAddsPressTask(t *testing.T) {
	cfg := quietSim()
	assert.Empty(t, NewSim(cfg, 0, 1).Target().Background)
	cfg.PressEvery = time.Second
	tgt := NewSim(cfg, 0, 1).Target()
	require.Len(t, tgt.Background, 1)
	assert.Equal(t, "sim_button", tgt.Background[0].Name)
	assert.Equal(t, SimCalibAddresses, tgt.Calib)
}
