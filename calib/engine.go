package calib

import (
	"github.com/chewxy/math32"

	"thermoblink/errcode"
	"thermoblink/x/mathx"
)

// CalculateTemperature applies supply compensation and two-point linear
// interpolation:
//
//	actualMV    = NominalSupplyMV * d.VrefRaw / rawRef
//	compensated = rawSensor * actualMV / NominalSupplyMV
//	t           = 30 + (compensated - Temp30Raw) * 80 / (Temp110Raw - Temp30Raw)
//
// The first two steps are integer divisions that truncate; only the
// interpolation is done in floating point.
// rawRef == 0 and Temp110Raw == Temp30Raw fail with errcode.DivisionByZero.
// All other raw values are accepted.
func CalculateTemperature(rawSensor, rawRef uint16, d Data) (float32, error) {
	if rawRef == 0 {
		return 0, &errcode.E{C: errcode.DivisionByZero, Op: "calib", Msg: "reference sample is zero"}
	}
	if d.Temp110Raw == d.Temp30Raw {
		return 0, &errcode.E{C: errcode.DivisionByZero, Op: "calib", Msg: "calibration points are identical"}
	}

	// Integer steps truncate at each division, as the firmware does. uint64
	// keeps the full 16-bit input range from overflowing.
	actualMV := uint64(NominalSupplyMV) * uint64(d.VrefRaw) / uint64(rawRef)
	compensated := uint64(rawSensor) * actualMV / NominalSupplyMV
	span := float64(d.Temp110Raw) - float64(d.Temp30Raw)
	t := float32(LowPointC + (float64(compensated)-float64(d.Temp30Raw))*(HighPointC-LowPointC)/span)

	if math32.IsNaN(t) || math32.IsInf(t, 0) {
		return 0, &errcode.E{C: errcode.Error, Op: "calib", Msg: "non-finite result"}
	}
	return t, nil
}

// DeciC converts °C to tenths, rounded and saturated to int16.
func DeciC(c float32) int16 {
	v := math32.Round(c * 10)
	return int16(mathx.Clamp(v, -32768, 32767))
}
