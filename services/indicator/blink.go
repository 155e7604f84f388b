package indicator

import (
	"time"

	"pumptest-go/types"
)

// BlinkInterval is the on and the off time of a single blink.
const BlinkInterval = 150 * time.Millisecond

// Blink reports the phase number as a count of short blinks on one LED.
type Blink struct {
	pin   Pin
	sleep Sleeper
	on    time.Duration
	off   time.Duration
}

func NewBlink(pin Pin, sleep Sleeper) *Blink {
	return &Blink{pin: pin, sleep: sleep, on: BlinkInterval, off: BlinkInterval}
}

// Apply keeps the LED dark between signals.
func (b *Blink) Apply(types.IndicatorState) { b.pin.Set(false) }

// Signal blinks st.Blinks times. It blocks for Blinks x (on+off).
func (b *Blink) Signal(st types.IndicatorState) {
	for i := 0; i < st.Blinks; i++ {
		b.pin.Set(true)
		b.sleep.Sleep(b.on)
		b.pin.Set(false)
		b.sleep.Sleep(b.off)
	}
}

func (b *Blink) Off() { b.pin.Set(false) }

// Duration is how long Signal blocks for n blinks.
func (b *Blink) Duration(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * (b.on + b.off)
}
