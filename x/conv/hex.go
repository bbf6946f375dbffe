package conv

const hexd = "0123456789ABCDEF"

// Hex16 formats n as "0x" plus four uppercase, zero-padded hex digits.
func Hex16(n uint16) string {
	b := [6]byte{'0', 'x'}
	for i := 5; i >= 2; i-- {
		b[i] = hexd[n&0xF]
		n >>= 4
	}
	return string(b[:])
}
