package pwm

import "pumptest-go/x/mathx"

// Timer is the hardware capability behind the pump output. Implementations
// live in the per-target HAL providers; tests use a recording fake.
type Timer interface {
	// ConfigureFastPWM stops and resets the timer, then programs
	// non-inverting fast PWM with the given prescaler and TOP (period count).
	ConfigureFastPWM(prescaler uint16, top uint16) error
	// SetCompare writes the output-compare register (0..top).
	SetCompare(compare uint16)
}

// TimerSpec describes the counter feeding the PWM output.
type TimerSpec struct {
	ClockHz   uint32
	Prescaler uint16
	Bits      uint8 // counter width; TOP is limited to 2^Bits-1
}

// ATmega328P Timer1 at 16 MHz with prescaler 8 (Arduino Uno pin 9).
var Uno16MHz = TimerSpec{ClockHz: 16_000_000, Prescaler: 8, Bits: 16}

func (s TimerSpec) maxTop() uint32 {
	bits := mathx.Clamp(s.Bits, 1, 16)
	return 1<<bits - 1
}

func (s TimerSpec) tick() uint64 { return uint64(mathx.Max(s.Prescaler, 1)) }

// TopFor returns round(clock / (prescaler * hz)) - 1 clamped to [1, 2^Bits-1],
// and whether clamping was needed.
func (s TimerSpec) TopFor(hz uint32) (top uint16, clamped bool) {
	hz = mathx.Max(hz, 1)
	counts := mathx.RoundDiv(uint64(s.ClockHz), s.tick()*uint64(hz))
	if counts < 2 {
		return 1, true
	}
	raw := counts - 1
	if raw > uint64(s.maxTop()) {
		return uint16(s.maxTop()), true
	}
	return uint16(raw), false
}

// HzFor is the carrier frequency produced by top.
func (s TimerSpec) HzFor(top uint16) float64 {
	return float64(s.ClockHz) / (float64(s.tick()) * (float64(top) + 1))
}

// ValidRange is the frequency range representable without clamping:
// TOP 2^Bits-1 gives the minimum, TOP 1 the maximum. At 16 MHz with
// prescaler 8 and a 16-bit counter that is 30.52 Hz .. 1 MHz.
func (s TimerSpec) ValidRange() (minHz, maxHz float64) {
	return s.HzFor(uint16(s.maxTop())), s.HzFor(1)
}
