package mathx

import "golang.org/x/exp/constraints"

// RoundDiv returns floor((a + b/2)/b), classic rounding for positives.
// b == 0 yields 0; keep to positives for firmware maths.
func RoundDiv[T constraints.Unsigned](a, b T) T {
	if b == 0 {
		return 0
	}
	return (a + b/2) / b
}

// ScaleU16 maps a full-range 16-bit raw word onto [0, span] with rounding,
// using 64-bit intermediates so span may be large.
func ScaleU16(raw uint16, span uint32) uint32 {
	return uint32(RoundDiv(uint64(raw)*uint64(span), 0xFFFF))
}
