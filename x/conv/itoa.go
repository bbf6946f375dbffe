package conv

// AppendInt appends the base-10 form of n to dst. No fmt/strconv
// dependency, so it is usable from the MCU log path.
func AppendInt(dst []byte, n int64) []byte {
	var buf [20]byte
	i := len(buf)
	neg := n < 0
	u := uint64(n)
	if neg {
		u = uint64(-n)
	}
	for {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
		if u == 0 {
			break
		}
	}
	if neg {
		dst = append(dst, '-')
	}
	return append(dst, buf[i:]...)
}

// AppendFixed appends n scaled down by 10^places, e.g. (231, 1) => "23.1",
// (-5, 1) => "-0.5", (5034, 2) => "50.34".
func AppendFixed(dst []byte, n int64, places int) []byte {
	if places <= 0 {
		return AppendInt(dst, n)
	}
	div := int64(1)
	for i := 0; i < places; i++ {
		div *= 10
	}
	if n < 0 {
		dst = append(dst, '-')
		n = -n
	}
	dst = AppendInt(dst, n/div)
	dst = append(dst, '.')
	frac := n % div
	for d := div / 10; d > 0; d /= 10 {
		dst = append(dst, byte('0'+frac/d))
		frac %= d
	}
	return dst
}

// Deci formats tenths, e.g. 231 => "23.1".
func Deci(n int16) string { return string(AppendFixed(nil, int64(n), 1)) }

// Centi formats hundredths, e.g. 5034 => "50.34".
func Centi(n uint16) string { return string(AppendFixed(nil, int64(n), 2)) }
