package mathx

import "testing"

func TestClamp(t *testing.T) {
	for _, c := range []struct{ v, lo, hi, want int }{
		{-1000, 0, 100, 0},
		{1000, 0, 100, 100},
		{42, 0, 100, 42},
		{5, 100, 0, 5}, // swapped bounds
		{-5, 100, 0, 0},
	} {
		if got := Clamp(c.v, c.lo, c.hi); got != c.want {
			t.Fatalf("Clamp(%d, %d, %d) = %d, want %d", c.v, c.lo, c.hi, got, c.want)
		}
	}
}

func TestRoundDiv(t *testing.T) {
	if got := RoundDiv[uint64](16_000_000, 8*500); got != 4000 {
		t.Fatalf("RoundDiv = %d, want 4000", got)
	}
	if got := RoundDiv[uint32](7, 2); got != 4 {
		t.Fatalf("RoundDiv(7,2) = %d, want 4", got)
	}
	if got := RoundDiv[uint32](1, 0); got != 0 {
		t.Fatalf("RoundDiv(x,0) = %d, want 0", got)
	}
}

func TestMulDiv(t *testing.T) {
	if got := MulDiv(3999, 70, 100); got != 2799 {
		t.Fatalf("MulDiv = %d, want 2799", got)
	}
	// 65535*65535 overflows 32 bits.
	if got := MulDiv(65535, 65535, 65535); got != 65535 {
		t.Fatalf("MulDiv overflowed: %d", got)
	}
}
