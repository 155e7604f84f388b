// Package sequencer runs the timed pump test: a fixed table of phases, each
// holding one duty cycle and indicator state, followed by a terminal
// Complete state that parks the pump at its stop duty.
package sequencer

import (
	"context"
	"log/slog"
	"time"

	"pumptest-go/services/indicator"
	"pumptest-go/services/telemetry"
	"pumptest-go/types"
	"pumptest-go/x/mathx"
	"pumptest-go/x/timex"
)

// DutySetter applies a duty percentage to the pump output.
type DutySetter interface {
	SetDutyCycle(percent int)
}

// State is the sequencer's entire mutable state. Only Start and Tick change
// it; a device reset is the only way back to the first phase.
type State struct {
	Index      int    // 0-based index into Profile.Phases
	PhaseStart uint32 // ms timestamp of phase entry
	LastStatus uint32 // ms timestamp of the last reminder
	Started    bool
	Completed  bool
}

type Config struct {
	Profile   Profile
	PWM       DutySetter
	Indicator indicator.Indicator
	Clock     timex.Clock
	Emitter   telemetry.Emitter
	Logger    *slog.Logger
}

type Sequencer struct {
	prof Profile
	pwm  DutySetter
	ind  indicator.Indicator
	clk  timex.Clock
	pub  telemetry.Emitter
	log  *slog.Logger
	st   State
}

func New(cfg Config) *Sequencer {
	s := &Sequencer{
		prof: cfg.Profile,
		pwm:  cfg.PWM,
		ind:  cfg.Indicator,
		clk:  cfg.Clock,
		pub:  cfg.Emitter,
		log:  cfg.Logger,
	}
	if s.ind == nil {
		s.ind = indicator.None{}
	}
	if s.pub == nil {
		s.pub = telemetry.Discard{}
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	return s
}

func (s *Sequencer) State() State { return s.st }

// Phase returns the 1-based running phase, or completed=true once finished.
func (s *Sequencer) Phase() (phase int, completed bool) {
	if s.st.Completed {
		return 0, true
	}
	return s.st.Index + 1, false
}

// Start parks the pump at the stop duty and enters the first phase.
// Calling it again has no effect.
func (s *Sequencer) Start(now uint32) {
	if s.st.Started {
		return
	}
	s.st.Started = true
	s.pwm.SetDutyCycle(s.prof.StopPercent)
	s.log.Debug("sequencer:start",
		slog.String("profile", s.prof.Name),
		slog.Int("phases", len(s.prof.Phases)),
		slog.Uint64("total_ms", s.prof.TotalMs()))
	s.enter(0, now)
}

// Tick advances the state machine to now. At most one transition happens
// per call. It blocks only while the indicator signals.
func (s *Sequencer) Tick(now uint32) {
	if !s.st.Started {
		s.Start(now)
	}
	if s.st.Completed {
		return
	}

	ph := s.prof.Phases[s.st.Index]
	elapsed := timex.Since(now, s.st.PhaseStart)

	s.pwm.SetDutyCycle(ph.DutyPercent)
	s.ind.Apply(ph.Indicator)

	if elapsed >= ph.DurationMs {
		s.enter(s.st.Index+1, now)
		return
	}

	if iv := s.prof.StatusIntervalMs; iv > 0 && timex.Since(now, s.st.LastStatus) >= iv {
		s.st.LastStatus = now
		s.ind.Signal(ph.Indicator)
		s.pub.Emit(telemetry.Event{
			Topic: telemetry.TopicProgress,
			Payload: types.Progress{
				Phase:       s.st.Index + 1,
				RemainingMs: ph.DurationMs - elapsed,
				TSms:        now,
			},
		})
	}
}

func (s *Sequencer) enter(i int, now uint32) {
	if i >= len(s.prof.Phases) {
		s.complete(now)
		return
	}
	s.st.Index = i
	s.st.PhaseStart = now
	s.st.LastStatus = now

	// The phase record goes out before the duty record it causes.
	ph := s.prof.Phases[i]
	s.log.Debug("sequencer:phase",
		slog.Int("phase", i+1),
		slog.Int("duty", ph.DutyPercent),
		slog.String("label", ph.Label),
		slog.Uint64("duration_ms", uint64(ph.DurationMs)))
	s.pub.Emit(telemetry.Event{Topic: telemetry.TopicPhase, Payload: s.prof.phaseValue(i, now), Retained: true})
	s.pwm.SetDutyCycle(ph.DutyPercent)
	s.ind.Signal(ph.Indicator)
}

func (s *Sequencer) complete(now uint32) {
	s.st.Completed = true
	s.pwm.SetDutyCycle(s.prof.StopPercent)
	s.ind.Off()
	s.log.Debug("sequencer:complete", slog.Int("stop_duty", s.prof.StopPercent))
	s.pub.Emit(telemetry.Event{
		Topic:    telemetry.TopicComplete,
		Payload:  types.Completion{StopDuty: s.prof.StopPercent, TSms: now},
		Retained: true,
	})
}

// Run starts the sequence and polls it until it completes (nil) or ctx is
// done (ctx.Err()). Ticks are separated by the profile's throttle.
func (s *Sequencer) Run(ctx context.Context) error {
	s.Start(s.clk.Millis())
	throttle := time.Duration(mathx.Max(s.prof.ThrottleMs, 1)) * time.Millisecond
	for !s.st.Completed {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		s.Tick(s.clk.Millis())
		if s.st.Completed {
			break
		}
		s.clk.Sleep(throttle)
	}
	return nil
}
