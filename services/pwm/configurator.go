// Package pwm programs the pump's PWM timer and maps duty percentages to
// compare values.
package pwm

import (
	"log/slog"

	"pumptest-go/services/telemetry"
	"pumptest-go/types"
	"pumptest-go/x/mathx"
)

const unsetPercent = -1

// Config wires a Configurator to its timer and observers.
type Config struct {
	Spec     TimerSpec
	Timer    Timer
	SupplyMv uint32 // logic supply used for the expected-voltage estimate
	Emitter  telemetry.Emitter
	Logger   *slog.Logger
}

// Configurator owns the pump timer. It is not safe for concurrent use; the
// control loop is its only caller.
type Configurator struct {
	spec     TimerSpec
	hw       Timer
	supplyMv uint32
	pub      telemetry.Emitter
	log      *slog.Logger

	targetHz    uint32
	top         uint16
	clamped     bool
	lastPercent int
	warnedEarly bool
}

func New(cfg Config) *Configurator {
	c := &Configurator{
		spec:        cfg.Spec,
		hw:          cfg.Timer,
		supplyMv:    cfg.SupplyMv,
		pub:         cfg.Emitter,
		log:         cfg.Logger,
		lastPercent: unsetPercent,
	}
	if c.supplyMv == 0 {
		c.supplyMv = 5000
	}
	if c.pub == nil {
		c.pub = telemetry.Discard{}
	}
	if c.log == nil {
		c.log = slog.New(slog.DiscardHandler)
	}
	return c
}

// Configure computes TOP for targetHz, programs the timer and returns TOP.
// Frequencies outside ValidRange are clamped to the nearest representable
// TOP and logged; the error reports only a hardware rejection.
func (c *Configurator) Configure(targetHz uint32) (uint16, error) {
	top, clamped := c.spec.TopFor(targetHz)
	if clamped {
		lo, hi := c.spec.ValidRange()
		c.log.Warn("pwm:frequency-clamped",
			slog.Uint64("target_hz", uint64(targetHz)),
			slog.Float64("min_hz", lo),
			slog.Float64("max_hz", hi),
			slog.Uint64("top", uint64(top)))
	}
	c.targetHz = mathx.Max(targetHz, 1)
	c.top = top
	c.clamped = clamped
	c.lastPercent = unsetPercent

	err := c.hw.ConfigureFastPWM(c.spec.Prescaler, top)
	if err != nil {
		c.log.Error("pwm:configure-failed", slog.Any("reason", err))
	}

	c.log.Debug("pwm:configured",
		slog.Int("prescaler", int(c.spec.Prescaler)),
		slog.Int("top", int(top)),
		slog.Float64("actual_hz", c.ActualHz()))
	c.pub.Emit(telemetry.Event{Topic: telemetry.TopicTimerInfo, Payload: c.Info(), Retained: true})
	return top, err
}

// Info reports the programmed timer.
func (c *Configurator) Info() types.TimerInfo {
	return types.TimerInfo{
		ClockHz:   c.spec.ClockHz,
		Prescaler: c.spec.Prescaler,
		Top:       c.top,
		TargetHz:  c.targetHz,
		ActualHz:  c.ActualHz(),
		PeriodUs:  c.PeriodUs(),
		Clamped:   c.clamped,
	}
}

// Top returns the programmed period count (0 before Configure).
func (c *Configurator) Top() uint16 { return c.top }

// ActualHz is the carrier produced by the programmed TOP (0 before Configure).
func (c *Configurator) ActualHz() float64 {
	if c.top == 0 {
		return 0
	}
	return c.spec.HzFor(c.top)
}

// PeriodUs is the carrier period in microseconds (0 before Configure).
func (c *Configurator) PeriodUs() float64 {
	hz := c.ActualHz()
	if hz == 0 {
		return 0
	}
	return 1e6 / hz
}

// Compare maps a duty percentage to a compare value for top.
// percent is clamped to [0,100]; the result never exceeds top.
func Compare(top uint16, percent int) uint16 {
	p := mathx.Clamp(percent, 0, 100)
	cmp := mathx.MulDiv(uint32(top), uint32(p), 100)
	return uint16(mathx.Min(cmp, uint32(top)))
}

// SetDutyCycle clamps percent to [0,100] and writes the compare register.
// A record is emitted only when the applied percentage changes.
func (c *Configurator) SetDutyCycle(percent int) {
	p := mathx.Clamp(percent, 0, 100)
	if c.top == 0 && !c.warnedEarly {
		c.warnedEarly = true
		c.log.Warn("pwm:duty-before-configure", slog.Int("percent", p))
	}
	cmp := Compare(c.top, p)
	c.hw.SetCompare(cmp)

	if p == c.lastPercent {
		return
	}
	c.lastPercent = p
	c.log.Debug("pwm:duty", slog.Int("percent", p), slog.Int("compare", int(cmp)))
	c.pub.Emit(telemetry.Event{Topic: telemetry.TopicDuty, Payload: c.record(p, cmp), Retained: true})
}

// Percent returns the last applied percentage, or -1 if none.
func (c *Configurator) Percent() int { return c.lastPercent }

func (c *Configurator) record(p int, cmp uint16) types.DutyRecord {
	r := types.DutyRecord{
		Percent: p,
		Compare: cmp,
		Top:     c.top,
		Volts:   float64(c.supplyMv) / 1000 * float64(p) / 100,
	}
	if c.top > 0 {
		r.EffectivePercent = float64(cmp) * 100 / float64(c.top)
	}
	if c.targetHz > 0 {
		periodUs := 1e6 / float64(c.targetHz)
		r.HighUs = periodUs * float64(p) / 100
		r.LowUs = periodUs - r.HighUs
	}
	return r
}
