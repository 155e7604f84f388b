package mathx

import "golang.org/x/exp/constraints"

// RoundDiv returns floor((a + b/2)/b), classic rounding for positives.
// b == 0 yields 0.
func RoundDiv[T constraints.Unsigned](a, b T) T {
	if b == 0 {
		return 0
	}
	return (a + b/2) / b
}

// MulDiv returns floor(a*b/c) with a 64-bit intermediate.
func MulDiv(a, b, c uint32) uint32 {
	if c == 0 {
		return 0
	}
	return uint32(uint64(a) * uint64(b) / uint64(c))
}
