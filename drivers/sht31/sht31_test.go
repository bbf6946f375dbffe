package sht31

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thermoblink/errcode"
)

// scriptBus implements drivers.I2C. Writes are recorded; reads are served
// from resp in order.
type scriptBus struct {
	writes [][]byte
	resp   [][]byte
	failOn int // 1-based Tx index to fail, 0 = never
	n      int
}

func (b *scriptBus) Tx(addr uint16, w, r []byte) error {
	b.n++
	if b.failOn == b.n {
		return errors.New("nack")
	}
	if len(w) > 0 {
		b.writes = append(b.writes, append([]byte(nil), w...))
	}
	if len(r) > 0 {
		copy(r, b.resp[0])
		b.resp = b.resp[1:]
	}
	return nil
}

func frame(words ...uint16) []byte {
	var out []byte
	for _, w := range words {
		b := []byte{byte(w >> 8), byte(w)}
		out = append(out, b[0], b[1], CRC8(b))
	}
	return out
}

func noDelay(time.Duration) {}

func TestCRC8DatasheetVector(t *testing.T) {
	assert.Equal(t, uint8(0x92), CRC8([]byte{0xBE, 0xEF}))
}

func TestConversions(t *testing.T) {
	assert.Equal(t, int32(-45000), TemperatureMilliC(0))
	assert.Equal(t, int32(130000), TemperatureMilliC(0xFFFF))
	assert.Equal(t, uint16(0), HumidityX100(0))
	assert.Equal(t, uint16(10000), HumidityX100(0xFFFF))

	for _, mc := range []int32{-40000, 0, 23450, 85000} {
		got := TemperatureMilliC(RawFromMilliC(mc))
		assert.InDelta(t, mc, got, 3, "mc=%d", mc)
	}
	assert.InDelta(t, 5034, HumidityX100(RawFromRHx100(5034)), 1)
}

func TestMeasure(t *testing.T) {
	bus := &scriptBus{resp: [][]byte{frame(RawFromMilliC(23100), RawFromRHx100(4550))}}
	d := New(bus)
	d.Configure(Config{Delay: noDelay})

	m, err := d.Measure()
	require.NoError(t, err)
	assert.InDelta(t, 23100, m.MilliC, 3)
	assert.InDelta(t, 4550, m.RHx100, 1)
	assert.InDelta(t, 23.1, m.Celsius(), 0.01)
	require.Len(t, bus.writes, 1)
	assert.Equal(t, []byte{0x24, 0x0B}, bus.writes[0], "medium repeatability, no clock stretching")
}

func TestMeasureRepeatabilityAndDelay(t *testing.T) {
	var waited time.Duration
	bus := &scriptBus{resp: [][]byte{frame(0x6666, 0x8000)}}
	d := New(bus)
	d.Configure(Config{Address: AddressB, Repeatability: High, Delay: func(d time.Duration) { waited = d }})

	_, err := d.Measure()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x24, 0x00}, bus.writes[0])
	assert.Equal(t, 15*time.Millisecond, waited)
	assert.Equal(t, uint16(AddressB), d.Address)
}

func TestMeasureCRCMismatch(t *testing.T) {
	f := frame(0x6666, 0x8000)
	f[5] ^= 0xFF // corrupt humidity CRC
	d := New(&scriptBus{resp: [][]byte{f}})
	d.Configure(Config{Delay: noDelay})

	_, err := d.Measure()
	assert.True(t, errors.Is(err, errcode.CRCMismatch), "got %v", err)
}

func TestMeasureBusError(t *testing.T) {
	for _, failOn := range []int{1, 2} {
		d := New(&scriptBus{failOn: failOn, resp: [][]byte{frame(1, 2)}})
		d.Configure(Config{Delay: noDelay})
		_, err := d.Measure()
		assert.True(t, errors.Is(err, errcode.BusError), "failOn=%d: %v", failOn, err)
	}
}

func TestReadStatus(t *testing.T) {
	bus := &scriptBus{resp: [][]byte{frame(0x8010)}}
	d := New(bus)
	st, err := d.ReadStatus()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x8010), st)
	assert.Equal(t, []byte{0xF3, 0x2D}, bus.writes[0])
}

func TestCommands(t *testing.T) {
	bus := &scriptBus{}
	d := New(bus)
	require.NoError(t, d.SoftReset())
	require.NoError(t, d.ClearStatus())
	require.NoError(t, d.SetHeater(true))
	require.NoError(t, d.SetHeater(false))
	assert.Equal(t, [][]byte{{0x30, 0xA2}, {0x30, 0x41}, {0x30, 0x6D}, {0x30, 0x66}}, bus.writes)
}

func TestParseRepeatability(t *testing.T) {
	for s, want := range map[string]Repeatability{"": Medium, "medium": Medium, "high": High, "low": Low} {
		got, ok := ParseRepeatability(s)
		assert.True(t, ok, s)
		assert.Equal(t, want, got, s)
	}
	_, ok := ParseRepeatability("ultra")
	assert.False(t, ok)
}
