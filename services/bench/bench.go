// Package bench wires a platform and a profile into a running pump test.
// Both the firmware and the host simulator boot through it.
package bench

import (
	"context"
	"log/slog"

	"pumptest-go/bus"
	"pumptest-go/errcode"
	"pumptest-go/services/config"
	"pumptest-go/services/hal"
	"pumptest-go/services/indicator"
	"pumptest-go/services/monitor"
	"pumptest-go/services/pwm"
	"pumptest-go/services/sequencer"
	"pumptest-go/services/telemetry"
)

type Options struct {
	Profile  string
	Logger   *slog.Logger
	QueueLen int    // bus queue per subscription, default 16
	SweepMs  uint32 // RGB power-on sweep per ramp; 0 skips it
}

// Bench is a booted test bench. Bus is nil on lean platforms.
type Bench struct {
	Bus       *bus.Bus
	PWM       *pwm.Configurator
	Sequencer *sequencer.Sequencer
	Profile   sequencer.Profile
}

// Boot resolves and validates the profile, starts the monitor and config
// services, programs the pump timer and parks it at the stop duty. It does
// not start the phase sequence. Lean platforms skip the bus and services.
func Boot(ctx context.Context, p *hal.Platform, opt Options) (*Bench, error) {
	log := opt.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if p.Pump == nil {
		return nil, errcode.Wrap(errcode.NoDevice, "bench.Boot", "no pump timer")
	}
	prof, err := config.Lookup(opt.Profile)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(prof, p.Spec); err != nil {
		return nil, err
	}

	var b *bus.Bus
	var em telemetry.Emitter = telemetry.Discard{}
	if !p.Lean {
		qLen := opt.QueueLen
		if qLen <= 0 {
			qLen = 16
		}
		b = bus.NewBus(qLen)

		mon := monitor.New(monitor.Config{Logger: log, Display: p.Display})
		if err := mon.Start(ctx, b.NewConnection("monitor")); err != nil {
			return nil, err
		}
		config.NewConfigService(prof, log).Start(ctx, b.NewConnection("config"))
		em = telemetry.NewBusEmitter(b.NewConnection("pumptest"))
	}

	pw := pwm.New(pwm.Config{
		Spec:     p.Spec,
		Timer:    p.Pump,
		SupplyMv: prof.SupplyMv,
		Emitter:  em,
		Logger:   log,
	})
	// A rejected timer is logged by the configurator; keep going so the
	// indicator still shows the sequence.
	_, _ = pw.Configure(prof.FrequencyHz)
	pw.SetDutyCycle(prof.StopPercent)

	if opt.SweepMs > 0 && hal.UsesColor(prof) && p.RGB != nil {
		indicator.Sweep(p.RGB[0], p.RGB[1], p.RGB[2], opt.SweepMs, p.Clock)
	}

	seq := sequencer.New(sequencer.Config{
		Profile:   prof,
		PWM:       pw,
		Indicator: p.Indicator(prof),
		Clock:     p.Clock,
		Emitter:   em,
		Logger:    log,
	})
	return &Bench{Bus: b, PWM: pw, Sequencer: seq, Profile: prof}, nil
}

// Run executes the sequence to completion or until ctx is done.
func (b *Bench) Run(ctx context.Context) error { return b.Sequencer.Run(ctx) }
