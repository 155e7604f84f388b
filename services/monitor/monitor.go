// Package monitor renders the telemetry stream: structured log records on
// the serial console and, when one is fitted, a 16x2 status display.
package monitor

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"pumptest-go/bus"
	"pumptest-go/types"
)

// Display is the subset of an HD44780 character LCD the monitor drives.
type Display interface {
	ClearDisplay()
	SetCursor(x, y uint8)
	Print(data []byte)
}

type Config struct {
	Logger  *slog.Logger
	Display Display       // optional
	Columns int           // display width, default 16
	Alive   time.Duration // heartbeat period; 0 disables
}

type Service struct {
	log   *slog.Logger
	disp  Display
	cols  int
	alive time.Duration

	phase types.PhaseValue
}

func New(cfg Config) *Service {
	s := &Service{log: cfg.Logger, disp: cfg.Display, cols: cfg.Columns, alive: cfg.Alive}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	if s.cols <= 0 {
		s.cols = 16
	}
	return s
}

// Start subscribes before returning so no record published afterwards is
// missed, then serves in a goroutine until ctx is done. A single subscription
// keeps records in publish order across topics.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	sub := conn.Subscribe(bus.T("#"))
	go s.serviceLoop(ctx, conn, sub)
	return nil
}

func (s *Service) serviceLoop(ctx context.Context, conn *bus.Connection, sub *bus.Subscription) {
	defer conn.Unsubscribe(sub)

	var aliveC <-chan time.Time
	if s.alive > 0 {
		tick := time.NewTicker(s.alive)
		defer tick.Stop()
		aliveC = tick.C
	}
	boot := time.Now()

	for {
		select {
		case <-ctx.Done():
			s.log.Debug("monitor:stopping", slog.String("conn", conn.ID()))
			return
		case <-aliveC:
			s.log.Info("monitor:alive", slog.Int64("uptime_s", int64(time.Since(boot)/time.Second)))
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			s.Handle(msg)
		}
	}
}

// Handle renders one telemetry record. Unknown payloads are ignored.
func (s *Service) Handle(msg *bus.Message) {
	switch p := msg.Payload.(type) {
	case types.ProfileInfo:
		s.profile(p)
	case types.TimerInfo:
		s.log.Info("monitor:timer",
			slog.String("kind", string(types.KindPWM)),
			slog.Uint64("clock_hz", uint64(p.ClockHz)),
			slog.Int("prescaler", int(p.Prescaler)),
			slog.Int("top", int(p.Top)),
			slog.Uint64("target_hz", uint64(p.TargetHz)),
			slog.Float64("actual_hz", round(p.ActualHz, 100)),
			slog.Float64("period_ms", round(p.PeriodUs/1000, 1000)),
			slog.Bool("clamped", p.Clamped))
	case types.DutyRecord:
		s.log.Info("monitor:duty",
			slog.String("kind", string(types.KindPWM)),
			slog.Int("percent", p.Percent),
			slog.Int("compare", int(p.Compare)),
			slog.Int("top", int(p.Top)),
			slog.Float64("effective", round(p.EffectivePercent, 100)),
			slog.Float64("high_us", round(p.HighUs, 10)),
			slog.Float64("low_us", round(p.LowUs, 10)),
			slog.Float64("volts", round(p.Volts, 100)))
	case types.PhaseValue:
		s.phase = p
		s.log.Info("monitor:phase",
			slog.String("kind", string(types.KindSequencer)),
			slog.Int("phase", p.Phase),
			slog.Int("of", p.Of),
			slog.Int("duty", p.Duty),
			slog.String("label", p.Label),
			slog.Int("band_lo", p.Band.Lo),
			slog.Int("band_hi", p.Band.Hi),
			slog.Int64("duration_s", int64(p.DurationMs/1000)))
		s.show(phaseLine(p), appendBand([]byte("band "), p.Band))
	case types.Progress:
		s.log.Info("monitor:progress",
			slog.String("kind", string(types.KindSequencer)),
			slog.Int("phase", p.Phase),
			slog.Int64("remaining_s", int64(p.RemainingMs/1000)))
		if p.Phase == s.phase.Phase {
			line := strconv.AppendInt([]byte("left "), int64(p.RemainingMs/1000), 10)
			s.show(phaseLine(s.phase), append(line, 's'))
		}
	case types.Completion:
		s.log.Info("monitor:complete",
			slog.String("kind", string(types.KindSequencer)),
			slog.Int("stop_duty", p.StopDuty),
			slog.String("hint", "press reset to repeat"))
		line := strconv.AppendInt([]byte("stop "), int64(p.StopDuty), 10)
		s.show([]byte("test complete"), append(line, "% reset"...))
	}
}

func (s *Service) profile(p types.ProfileInfo) {
	s.log.Info("monitor:profile",
		slog.String("kind", string(types.KindConfig)),
		slog.String("name", p.Name),
		slog.Uint64("frequency_hz", uint64(p.FrequencyHz)),
		slog.Int("stop_duty", p.StopDuty),
		slog.Int("phases", len(p.Phases)))
	for _, ph := range p.Phases {
		s.log.Info("monitor:plan",
			slog.String("kind", string(types.KindIndicator)),
			slog.Int("phase", ph.Phase),
			slog.Int("duty", ph.Duty),
			slog.String("label", ph.Label),
			slog.Int("blinks", ph.Indicator.Blinks),
			slog.String("color", colorName(ph.Indicator.Color)))
	}
	s.show([]byte("pump test"), []byte(p.Name))
}

func (s *Service) show(l1, l2 []byte) {
	if s.disp == nil {
		return
	}
	s.disp.ClearDisplay()
	s.disp.SetCursor(0, 0)
	s.disp.Print(s.clip(l1))
	s.disp.SetCursor(0, 1)
	s.disp.Print(s.clip(l2))
}

func (s *Service) clip(b []byte) []byte {
	if len(b) > s.cols {
		return b[:s.cols]
	}
	return b
}

// phaseLine formats "P2/4 70% medium".
func phaseLine(p types.PhaseValue) []byte {
	b := strconv.AppendInt([]byte{'P'}, int64(p.Phase), 10)
	b = append(b, '/')
	b = strconv.AppendInt(b, int64(p.Of), 10)
	b = append(b, ' ')
	b = strconv.AppendInt(b, int64(p.Duty), 10)
	b = append(b, "% "...)
	return append(b, p.Label...)
}

func appendBand(b []byte, band types.Band) []byte {
	b = strconv.AppendInt(b, int64(band.Lo), 10)
	b = append(b, '-')
	b = strconv.AppendInt(b, int64(band.Hi), 10)
	return append(b, '%')
}

func colorName(c types.RGB) string {
	switch c {
	case types.Black:
		return ""
	case types.Red:
		return "red"
	case types.Green:
		return "green"
	case types.Blue:
		return "blue"
	case types.White:
		return "white"
	}
	return "custom"
}

func round(v, scale float64) float64 {
	if v < 0 {
		return float64(int64(v*scale-0.5)) / scale
	}
	return float64(int64(v*scale+0.5)) / scale
}
