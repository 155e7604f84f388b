package timex

import (
	"sync"
	"time"
)

// Clock is the millisecond time source polled by the control loop.
// Millis wraps at 2^32 like a free-running MCU counter.
type Clock interface {
	Millis() uint32
	Sleep(d time.Duration)
}

// Since returns now-start in wrap-safe unsigned arithmetic.
func Since(now, start uint32) uint32 { return now - start }

// PeriodFromHz returns a nanosecond period for a requested frequency.
// freqHz==0 is coerced to 1 to avoid division by zero.
func PeriodFromHz(freqHz uint32) uint64 {
	if freqHz == 0 {
		freqHz = 1
	}
	return uint64(1_000_000_000 / uint64(freqHz))
}

// Mono counts milliseconds since it was created.
type Mono struct{ boot time.Time }

func NewMono() *Mono { return &Mono{boot: time.Now()} }

func (m *Mono) Millis() uint32         { return uint32(time.Since(m.boot).Milliseconds()) }
func (m *Mono) Sleep(d time.Duration) { time.Sleep(d) }

// Scaled runs Mono time Factor times faster; Sleep shrinks accordingly.
type Scaled struct {
	Mono
	Factor uint32
}

func NewScaled(factor uint32) *Scaled {
	if factor == 0 {
		factor = 1
	}
	return &Scaled{Mono: Mono{boot: time.Now()}, Factor: factor}
}

func (s *Scaled) Millis() uint32 {
	return uint32(time.Since(s.boot).Milliseconds() * int64(s.Factor))
}

func (s *Scaled) Sleep(d time.Duration) { time.Sleep(d / time.Duration(s.Factor)) }

// Manual is a virtual clock: Sleep advances it instantly.
type Manual struct {
	mu  sync.Mutex
	now uint32
}

func NewManual(start uint32) *Manual { return &Manual{now: start} }

func (m *Manual) Millis() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Sleep(d time.Duration) { m.Advance(uint32(d / time.Millisecond)) }

// Advance moves the clock forward by ms, wrapping at 2^32.
func (m *Manual) Advance(ms uint32) {
	m.mu.Lock()
	m.now += ms
	m.mu.Unlock()
}
