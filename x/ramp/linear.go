package ramp

import (
	"time"

	"pumptest-go/x/mathx"
)

// Tick waits for d and reports whether to continue (false => cancelled).
type Tick func(d time.Duration) bool

// Linear walks from 'from' to 'to' in evenly spaced integer steps, calling set
// after each wait. It is synchronous; the caller owns timing through tick.
// steps==0 or durationMs==0 snaps to 'to'. It reports false if tick cancelled
// the ramp before it finished.
func Linear[T ~uint8 | ~uint16](from, to T, durationMs uint32, steps uint16, tick Tick, set func(T)) bool {
	if steps == 0 || durationMs == 0 {
		set(to)
		return true
	}
	delta := int32(to) - int32(from)
	st := int32(steps)
	cur := int32(from)
	acc := int32(0)
	stepDur := time.Duration(mathx.Max(durationMs/uint32(steps), 1)) * time.Millisecond

	lo, hi := int32(mathx.Min(from, to)), int32(mathx.Max(from, to))
	for i := uint16(1); i < steps; i++ {
		if !tick(stepDur) {
			return false
		}
		acc += delta
		if inc := acc / st; inc != 0 {
			acc -= inc * st
			cur = mathx.Clamp(cur+inc, lo, hi)
			set(T(cur))
		}
	}
	if !tick(stepDur) {
		return false
	}
	set(to)
	return true
}
