package codegen

import "math"

// appendVarint writes v as a signed LEB128-style integer: 7 bits per
// byte, low-to-high, continuation bit in the high bit of each byte.
func appendVarint(buf []byte, v int64) []byte {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			more = false
		} else {
			b |= 0x80
		}
		buf = append(buf, b)
	}
	return buf
}

// appendDouble writes f as an IEEE-754 little-endian double.
func appendDouble(buf []byte, f float64) []byte {
	bits := math.Float64bits(f)
	for i := 0; i < 8; i++ {
		buf = append(buf, byte(bits>>(8*i)))
	}
	return buf
}
