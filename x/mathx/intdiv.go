package mathx

import "math/bits"

// MulDiv returns floor(a*b/d) using a 128-bit intermediate.
// The quotient must fit in 64 bits (a*b/d < 2^64); d == 0 yields 0.
func MulDiv(a, b, d uint64) uint64 {
	if d == 0 {
		return 0
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return ^uint64(0)
	}
	q, _ := bits.Div64(hi, lo, d)
	return q
}

// ScaleU8 multiplies an 8-bit channel by a Q8 factor (256 == 1.0).
func ScaleU8(c uint8, q8 uint16) uint8 {
	if q8 >= 256 {
		return c
	}
	return uint8((uint16(c)*q8 + 128) >> 8)
}
