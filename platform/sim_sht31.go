//go:build !rp2040

package platform

import (
	"math"
	"sync"

	"thermoblink/config"
	"thermoblink/drivers/sht31"
	"thermoblink/errcode"
)

const (
	statusAlert   = 1 << 15
	statusHeater  = 1 << 13
	statusRHAlert = 1 << 11
	statusTAlert  = 1 << 10
	statusReset   = 1 << 4

	statusAfterReset = statusAlert | statusReset
)

type pendingRead uint8

const (
	readNone pendingRead = iota
	readMeasurement
	readStatus
)

// SimSHT31 answers the SHT3x single-shot command set on an I²C address. It
// produces valid CRCs and can inject bus NACKs and CRC corruption.
type SimSHT31 struct {
	mu       sync.Mutex
	addr     uint16
	milliC   int32
	rhx100   uint16
	status   uint16
	pending  pendingRead
	i2cEvery int
	crcEvery int
	txs      int
	reads    int
}

func NewSimSHT31(addr uint16, cfg config.SimConfig) *SimSHT31 {
	if addr == 0 {
		addr = sht31.AddressA
	}
	s := &SimSHT31{
		addr:     addr,
		status:   statusAfterReset,
		i2cEvery: cfg.I2CFaultEvery,
		crcEvery: cfg.CRCFaultEvery,
	}
	s.SetConditions(cfg.AmbientC, cfg.HumidityPct)
	return s
}

// SetConditions sets what the next measurement reports.
func (s *SimSHT31) SetConditions(c, rhPct float64) {
	s.mu.Lock()
	s.milliC = int32(math.Round(c * 1000))
	s.rhx100 = uint16(math.Round(math.Max(0, math.Min(rhPct, 100)) * 100))
	s.mu.Unlock()
}

// Tx implements drivers.I2C.
func (s *SimSHT31) Tx(addr uint16, w, r []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if addr != s.addr {
		return &errcode.E{C: errcode.BusError, Op: "sim.i2c", Msg: "nack"}
	}
	s.txs++
	if s.i2cEvery > 0 && s.txs%s.i2cEvery == 0 {
		s.pending = readNone
		return &errcode.E{C: errcode.BusError, Op: "sim.i2c", Msg: "injected nack"}
	}
	if len(w) >= 2 {
		s.command(uint16(w[0])<<8 | uint16(w[1]))
	}
	if len(r) > 0 {
		return s.read(r)
	}
	return nil
}

// caller holds s.mu
func (s *SimSHT31) command(cmd uint16) {
	switch {
	case cmd>>8 == 0x24:
		s.pending = readMeasurement
	case cmd == 0xF32D:
		s.pending = readStatus
	case cmd == 0x3041:
		s.status &^= statusAlert | statusRHAlert | statusTAlert | statusReset
	case cmd == 0x30A2:
		s.status = statusAfterReset
		s.pending = readNone
	case cmd == 0x306D:
		s.status |= statusHeater
	case cmd == 0x3066:
		s.status &^= statusHeater
	}
}

// caller holds s.mu
func (s *SimSHT31) read(r []byte) error {
	var words []uint16
	switch s.pending {
	case readMeasurement:
		words = []uint16{sht31.RawFromMilliC(s.milliC), sht31.RawFromRHx100(s.rhx100)}
	case readStatus:
		words = []uint16{s.status}
	default:
		return &errcode.E{C: errcode.BusError, Op: "sim.i2c", Msg: "nack: no data"}
	}
	s.pending = readNone
	s.reads++
	corrupt := s.crcEvery > 0 && s.reads%s.crcEvery == 0

	for i := range r {
		r[i] = 0xFF
	}
	for i, w := range words {
		o := i * 3
		if o+3 > len(r) {
			break
		}
		r[o], r[o+1] = byte(w>>8), byte(w)
		r[o+2] = sht31.CRC8(r[o : o+2])
		if corrupt {
			r[o+2] ^= 0x01
		}
	}
	return nil
}
