// Package config holds the compiled-in test profiles and publishes the
// selected one as a retained bus message.
package config

import (
	"context"
	"log/slog"
	"strconv"

	"pumptest-go/bus"
	"pumptest-go/errcode"
	"pumptest-go/services/pwm"
	"pumptest-go/services/sequencer"
	"pumptest-go/services/telemetry"
)

const serviceName = "config"

// Lookup returns a fresh copy of the named profile.
func Lookup(name string) (sequencer.Profile, error) {
	mk, ok := profiles[name]
	if !ok {
		return sequencer.Profile{}, errcode.Wrap(errcode.UnknownProfile, "config.Lookup", name)
	}
	return mk(), nil
}

// Validate checks a profile against the timer it will drive.
func Validate(p sequencer.Profile, spec pwm.TimerSpec) error {
	const op = "config.Validate"
	if p.Name == "" {
		return errcode.Wrap(errcode.InvalidParams, op, "empty name")
	}
	if len(p.Phases) == 0 {
		return errcode.Wrap(errcode.InvalidParams, op, "no phases")
	}
	if p.FrequencyHz == 0 {
		return errcode.Wrap(errcode.InvalidParams, op, "frequency_hz is zero")
	}
	if _, clamped := spec.TopFor(p.FrequencyHz); clamped {
		return errcode.Wrap(errcode.InvalidParams, op, "frequency_hz outside timer range")
	}
	if !percentOK(p.StopPercent) {
		return errcode.Wrap(errcode.InvalidParams, op, "stop_percent out of range")
	}
	for i, ph := range p.Phases {
		n := strconv.Itoa(i + 1)
		if ph.DurationMs == 0 {
			return errcode.Wrap(errcode.InvalidParams, op, "phase "+n+": zero duration")
		}
		if !percentOK(ph.DutyPercent) {
			return errcode.Wrap(errcode.InvalidParams, op, "phase "+n+": duty out of range")
		}
		// A zero band is unset.
		if ph.Band.Hi != 0 && (ph.DutyPercent < ph.Band.Lo || ph.DutyPercent > ph.Band.Hi) {
			return errcode.Wrap(errcode.InvalidParams, op, "phase "+n+": duty outside its band")
		}
	}
	return nil
}

func percentOK(p int) bool { return p >= 0 && p <= 100 }

// ConfigService publishes the active profile.
type ConfigService struct {
	Name    string
	profile sequencer.Profile
	log     *slog.Logger
}

func NewConfigService(p sequencer.Profile, log *slog.Logger) *ConfigService {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &ConfigService{Name: serviceName, profile: p, log: log}
}

// Start publishes the profile summary as a retained message. It returns
// without publishing if ctx is already done.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	if ctx.Err() != nil {
		return
	}
	info := s.profile.Info()
	conn.Publish(conn.NewMessage(telemetry.TopicProfile, info, true))
	s.log.Info("config:profile",
		slog.String("name", info.Name),
		slog.Int("phases", len(info.Phases)),
		slog.Uint64("total_ms", s.profile.TotalMs()))
}
