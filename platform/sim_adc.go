//go:build !rp2040

package platform

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"thermoblink/calib"
	"thermoblink/config"
	"thermoblink/errcode"
	"thermoblink/hal"
	"thermoblink/x/mathx"
)

// SimADC models a 12-bit converter sharing one sample-and-hold between the
// on-die sensor and the reference input. Overlapping conversions are
// counted, never serialised, so tests can prove callers arbitrate.
type SimADC struct {
	mu       sync.Mutex
	cal      config.SimCalibration
	dieC     float64
	supplyMV uint32
	convTime time.Duration
	noise    int
	rng      *rand.Rand

	busy     atomic.Int32
	overlaps atomic.Uint32
	samples  atomic.Uint32
	failNext atomic.Bool
}

func NewSimADC(cfg config.SimConfig, seed int64) *SimADC {
	return &SimADC{
		cal:      cfg.Calibration,
		dieC:     cfg.AmbientC + cfg.DieOffsetC,
		supplyMV: cfg.SupplyMV,
		convTime: cfg.ConversionTime,
		noise:    int(cfg.NoiseCounts),
		rng:      rand.New(rand.NewSource(seed)),
	}
}

func (a *SimADC) SetDieC(c float64) {
	a.mu.Lock()
	a.dieC = c
	a.mu.Unlock()
}

func (a *SimADC) SetSupplyMV(mv uint32) {
	a.mu.Lock()
	a.supplyMV = mv
	a.mu.Unlock()
}

// FailNext makes the next conversion return errcode.BusError.
func (a *SimADC) FailNext() { a.failNext.Store(true) }

func (a *SimADC) Overlaps() uint32 { return a.overlaps.Load() }
func (a *SimADC) Samples() uint32  { return a.samples.Load() }

func (a *SimADC) Sample(ctx context.Context, ch hal.Channel) (uint16, error) {
	if a.busy.Add(1) > 1 {
		a.overlaps.Add(1)
	}
	defer a.busy.Add(-1)

	if a.convTime > 0 {
		t := time.NewTimer(a.convTime)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return 0, ctx.Err()
		}
	}
	if a.failNext.CompareAndSwap(true, false) {
		return 0, &errcode.E{C: errcode.BusError, Op: "sim.adc", Msg: "conversion fault"}
	}
	a.samples.Add(1)

	a.mu.Lock()
	defer a.mu.Unlock()
	supply := float64(a.supplyMV)
	if supply == 0 {
		supply = calib.NominalSupplyMV
	}
	// Inputs are fixed voltages, so a sagging supply raises every reading.
	scale := calib.NominalSupplyMV / supply
	var nominal float64
	switch ch {
	case hal.ChannelVref:
		nominal = float64(a.cal.VrefRaw)
	default:
		span := float64(a.cal.Temp110Raw) - float64(a.cal.Temp30Raw)
		nominal = float64(a.cal.Temp30Raw) + (a.dieC-calib.LowPointC)*span/(calib.HighPointC-calib.LowPointC)
	}
	raw := math.Round(nominal*scale) + float64(a.jitter())
	return uint16(mathx.Clamp(raw, 0, 4095)), nil
}

// caller holds a.mu
func (a *SimADC) jitter() int {
	if a.noise == 0 {
		return 0
	}
	return a.rng.Intn(2*a.noise+1) - a.noise
}

// CalibTable serves calibration words from a map and counts reads.
type CalibTable struct {
	words map[uintptr]uint16
	reads atomic.Uint32
}

func NewCalibTable(addr calib.Addresses, d calib.Data) *CalibTable {
	return &CalibTable{words: map[uintptr]uint16{
		addr.Temp30:  d.Temp30Raw,
		addr.Temp110: d.Temp110Raw,
		addr.Vref:    d.VrefRaw,
	}}
}

func (c *CalibTable) ReadCalibrationWord(addr uintptr) uint16 {
	c.reads.Add(1)
	return c.words[addr]
}

func (c *CalibTable) Reads() uint32 { return c.reads.Load() }
