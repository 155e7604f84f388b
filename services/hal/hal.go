// Package hal assembles the board-specific capabilities the test firmware
// drives. Open is provided per target by build-tagged files:
//
//	host (!tinygo)       simulated timer, LED and RGB levels
//	atmega328p (tinygo)  Timer1 fast PWM on D9, LED on D13, RGB on D11/D3/D10
//	rp2040 (tinygo)      PWM slice on GP15, LED on GP25, RGB on GP18..20,
//	                     optional ws2812 on GP22 and HD44780 on I2C0
package hal

import (
	"io"
	"log/slog"

	"pumptest-go/services/indicator"
	"pumptest-go/services/monitor"
	"pumptest-go/services/pwm"
	"pumptest-go/services/sequencer"
	"pumptest-go/x/timex"
)

// Platform is what a board offers. Optional members are nil when absent.
type Platform struct {
	Name string

	Spec pwm.TimerSpec
	Pump pwm.Timer

	LED     indicator.Pin
	RGB     *[3]indicator.Level
	Pixel   indicator.ColorWriter
	Display monitor.Display

	Console io.Writer
	Clock   timex.Clock

	// Lean boards run without the telemetry bus and monitor goroutine;
	// the control path logs to the console directly.
	Lean bool
}

// Logger writes text records to the console at level. Lean boards log the
// control path at Debug, so level is lowered to include it.
func (p *Platform) Logger(level slog.Level) *slog.Logger {
	w := p.Console
	if w == nil {
		w = io.Discard
	}
	if p.Lean {
		level = min(level, slog.LevelDebug)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// ReportOpen logs a partial Open failure. Open still returns a usable
// platform then, with the failed optional members left nil.
func (p *Platform) ReportOpen(log *slog.Logger, err error) {
	if err == nil {
		return
	}
	log.Warn("hal:degraded", slog.String("board", p.Name), slog.Any("reason", err))
}

// UsesColor reports whether the profile is meant for a color indicator.
func UsesColor(prof sequencer.Profile) bool {
	for _, ph := range prof.Phases {
		if ph.Indicator.Blinks > 0 {
			return false
		}
	}
	return len(prof.Phases) > 0
}

// Indicator picks the driver matching the profile and the fitted hardware:
// blink counts go to the LED, colors go to every fitted color output.
// Without matching hardware it falls back to a silent indicator.
func (p *Platform) Indicator(prof sequencer.Profile) indicator.Indicator {
	if UsesColor(prof) {
		var m indicator.Multi
		if p.RGB != nil {
			m = append(m, indicator.NewRGB(p.RGB[0], p.RGB[1], p.RGB[2]))
		}
		if p.Pixel != nil {
			m = append(m, indicator.NewPixel(p.Pixel, 1))
		}
		switch len(m) {
		case 0:
			return indicator.None{}
		case 1:
			return m[0]
		}
		return m
	}
	if p.LED != nil {
		return indicator.NewBlink(p.LED, p.Clock)
	}
	return indicator.None{}
}
