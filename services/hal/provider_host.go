//go:build !tinygo

package hal

import (
	"os"
	"sync"

	"pumptest-go/errcode"
	"pumptest-go/services/indicator"
	"pumptest-go/services/pwm"
	"pumptest-go/x/timex"
)

// SimTimer models an AVR-style 16-bit timer: it accepts the usual clock
// select prescalers and records what was programmed.
type SimTimer struct {
	mu        sync.Mutex
	Prescaler uint16
	Top       uint16
	Compare   uint16
	Running   bool
	Writes    int
}

func (t *SimTimer) ConfigureFastPWM(prescaler, top uint16) error {
	switch prescaler {
	case 1, 8, 64, 256, 1024:
	default:
		return errcode.Wrap(errcode.Unsupported, "SimTimer.ConfigureFastPWM", "prescaler")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Prescaler, t.Top, t.Compare, t.Running = prescaler, top, 0, true
	return nil
}

func (t *SimTimer) SetCompare(c uint16) {
	t.mu.Lock()
	t.Compare = c
	t.Writes++
	t.mu.Unlock()
}

// Snapshot returns top and compare under the lock.
func (t *SimTimer) Snapshot() (top, compare uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Top, t.Compare
}

// SimPin is a digital output that counts rising edges.
type SimPin struct {
	mu    sync.Mutex
	level bool
	rises int
}

func (p *SimPin) Set(on bool) {
	p.mu.Lock()
	if on && !p.level {
		p.rises++
	}
	p.level = on
	p.mu.Unlock()
}

func (p *SimPin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

func (p *SimPin) Rises() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rises
}

// SimLevel is an 8-bit analog output.
type SimLevel struct {
	mu sync.Mutex
	v  uint8
}

func (l *SimLevel) SetLevel(v uint8) {
	l.mu.Lock()
	l.v = v
	l.mu.Unlock()
}

func (l *SimLevel) Level() uint8 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.v
}

// Open returns a simulated Uno-class board logging to stderr.
func Open() (*Platform, error) {
	rgb := [3]indicator.Level{&SimLevel{}, &SimLevel{}, &SimLevel{}}
	return &Platform{
		Name:    "host",
		Spec:    pwm.Uno16MHz,
		Pump:    &SimTimer{},
		LED:     &SimPin{},
		RGB:     &rgb,
		Console: os.Stderr,
		Clock:   timex.NewMono(),
	}, nil
}
