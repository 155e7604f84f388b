// Package indicator shows the running phase on a status LED.
package indicator

import (
	"time"

	"pumptest-go/types"
)

// Indicator is driven by the sequencer.
//
// Apply runs on every loop tick and must be cheap and idempotent. Signal runs
// on phase entry and on each periodic reminder; it may block (the blink driver
// holds the loop for Blinks x 300 ms). Off is called once when the sequence
// completes.
type Indicator interface {
	Apply(st types.IndicatorState)
	Signal(st types.IndicatorState)
	Off()
}

// Pin is a digital output.
type Pin interface {
	Set(high bool)
}

// Level is one 8-bit analog (PWM) output channel.
type Level interface {
	SetLevel(v uint8)
}

// Sleeper blocks the caller; the control loop's clock satisfies it.
type Sleeper interface {
	Sleep(d time.Duration)
}

// None ignores all requests (headless builds and tests).
type None struct{}

func (None) Apply(types.IndicatorState)  {}
func (None) Signal(types.IndicatorState) {}
func (None) Off()                        {}

// Multi fans every call out to each member in order.
type Multi []Indicator

func (m Multi) Apply(st types.IndicatorState) {
	for _, ind := range m {
		ind.Apply(st)
	}
}

func (m Multi) Signal(st types.IndicatorState) {
	for _, ind := range m {
		ind.Signal(st)
	}
}

func (m Multi) Off() {
	for _, ind := range m {
		ind.Off()
	}
}
