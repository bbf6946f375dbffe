package calib

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thermoblink/errcode"
)

var testAddr = Addresses{Temp30: 0x10, Temp110: 0x12, Vref: 0x14}

// countingSource implements hal.CalibrationSource and counts reads.
type countingSource struct {
	words map[uintptr]uint16
	reads atomic.Int32
}

func (s *countingSource) ReadCalibrationWord(addr uintptr) uint16 {
	s.reads.Add(1)
	return s.words[addr]
}

func TestCalibrationIdentity(t *testing.T) {
	triples := []Data{
		{Temp30Raw: 1760, Temp110Raw: 1330, VrefRaw: 1530}, // typical: sensor slope is negative
		{Temp30Raw: 870, Temp110Raw: 699, VrefRaw: 2541},
		{Temp30Raw: 100, Temp110Raw: 4000, VrefRaw: 1},
		{Temp30Raw: 65534, Temp110Raw: 65535, VrefRaw: 65535},
		{Temp30Raw: 0, Temp110Raw: 1, VrefRaw: 3000},
	}
	for _, d := range triples {
		lo, err := CalculateTemperature(d.Temp30Raw, d.VrefRaw, d)
		require.NoError(t, err)
		assert.InDelta(t, 30.0, lo, 1e-3, "%+v", d)

		hi, err := CalculateTemperature(d.Temp110Raw, d.VrefRaw, d)
		require.NoError(t, err)
		assert.InDelta(t, 110.0, hi, 1e-3, "%+v", d)
	}
}

func TestSupplyCompensation(t *testing.T) {
	d := Data{Temp30Raw: 1000, Temp110Raw: 2000, VrefRaw: 1500}

	// Supply rose to 3960 mV: the reference reads lower (1250), so 1000 raw
	// counts compensate to 1200 => 30 + 200*80/1000 = 46.
	got, err := CalculateTemperature(1000, 1250, d)
	require.NoError(t, err)
	assert.InDelta(t, 46.0, got, 1e-3)

	// Midpoint at nominal supply.
	got, err = CalculateTemperature(1500, 1500, d)
	require.NoError(t, err)
	assert.InDelta(t, 70.0, got, 1e-3)
}

func TestCompensationTruncates(t *testing.T) {
	d := Data{Temp30Raw: 1760, Temp110Raw: 1330, VrefRaw: 1530}

	// 3300*1530/1600 = 3155.6 truncates to 3155, then 1700*3155/3300 =
	// 1625.3 truncates to 1625 => 30 + 135*80/430.
	got, err := CalculateTemperature(1700, 1600, d)
	require.NoError(t, err)
	assert.InDelta(t, 55.116, got, 1e-3)
	assert.Equal(t, int16(551), DeciC(got))
}

func TestDivisionByZeroGuard(t *testing.T) {
	cases := []struct {
		name   string
		sensor uint16
		ref    uint16
		d      Data
	}{
		{"zero reference", 1500, 0, Data{Temp30Raw: 1000, Temp110Raw: 2000, VrefRaw: 1500}},
		{"identical points", 1500, 1500, Data{Temp30Raw: 1234, Temp110Raw: 1234, VrefRaw: 1500}},
		{"erased region", 0xFFFF, 1500, Data{Temp30Raw: 0xFFFF, Temp110Raw: 0xFFFF, VrefRaw: 0xFFFF}},
		{"both", 0, 0, Data{}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := CalculateTemperature(c.sensor, c.ref, c.d)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errcode.DivisionByZero), "got %v", err)
			assert.False(t, math32.IsNaN(got) || math32.IsInf(got, 0))
		})
	}
}

func TestFullRawRangeAccepted(t *testing.T) {
	d := Data{Temp30Raw: 1760, Temp110Raw: 1330, VrefRaw: 1530}
	for _, raw := range []uint16{0, 1, 0x7FFF, 0xFFFF} {
		for _, ref := range []uint16{1, 0xFFFF} {
			got, err := CalculateTemperature(raw, ref, d)
			require.NoError(t, err, "raw=%d ref=%d", raw, ref)
			assert.False(t, math32.IsNaN(got) || math32.IsInf(got, 0))
		}
	}
}

func TestDeterministic(t *testing.T) {
	d := Data{Temp30Raw: 1760, Temp110Raw: 1330, VrefRaw: 1530}
	a, _ := CalculateTemperature(1700, 1525, d)
	b, _ := CalculateTemperature(1700, 1525, d)
	assert.Equal(t, a, b)
}

func TestDeciC(t *testing.T) {
	assert.Equal(t, int16(235), DeciC(23.46))
	assert.Equal(t, int16(-401), DeciC(-40.06))
	assert.Equal(t, int16(32767), DeciC(1e6))
	assert.Equal(t, int16(-32768), DeciC(-1e6))
}

func TestProviderReadsOnceUnderConcurrency(t *testing.T) {
	src := &countingSource{words: map[uintptr]uint16{0x10: 1760, 0x12: 1330, 0x14: 1530}}
	p := NewProvider(src, testAddr)

	const n = 32
	got := make([]Data, n)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			got[i] = p.Get()
		}(i)
	}
	close(start)
	wg.Wait()

	want := Data{Temp30Raw: 1760, Temp110Raw: 1330, VrefRaw: 1530}
	for i := range got {
		require.Equal(t, want, got[i])
	}
	// One read per word, exactly once.
	assert.Equal(t, int32(3), src.reads.Load())

	p.Get()
	assert.Equal(t, int32(3), src.reads.Load())
}
