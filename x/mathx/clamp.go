package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. If lo > hi, the bounds are swapped.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if hi < lo {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampFloat is Clamp for floats, mapping NaN to lo.
func ClampFloat[T constraints.Float](v, lo, hi T) T {
	if v != v {
		return lo
	}
	return Clamp(v, lo, hi)
}
