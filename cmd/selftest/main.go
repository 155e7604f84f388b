// Command selftest checks the pump test logic on the target itself before a
// bench run: timer arithmetic, duty mapping, the telemetry bus and a full
// sequence on a virtual clock. The LED stays on if everything passed and
// blinks fast otherwise.
//
//	tinygo flash -target arduino ./cmd/selftest
package main

import (
	"log/slog"
	"time"

	"pumptest-go/bus"
	"pumptest-go/services/config"
	"pumptest-go/services/hal"
	"pumptest-go/services/pwm"
	"pumptest-go/services/sequencer"
	"pumptest-go/services/telemetry"
	"pumptest-go/types"
	"pumptest-go/x/timex"
)

type check struct {
	name string
	fn   func() string // "" on success, otherwise the reason
}

type dutyLog struct{ last int }

func (d *dutyLog) SetDutyCycle(p int) { d.last = p }

func checkTimerTop() string {
	top, clamped := pwm.Uno16MHz.TopFor(500)
	if top != 3999 || clamped {
		return "500 Hz did not give TOP 3999"
	}
	if _, clamped := pwm.Uno16MHz.TopFor(10); !clamped {
		return "10 Hz not clamped"
	}
	return ""
}

func checkCompare() string {
	want := map[int]uint16{-5: 0, 5: 199, 33: 1319, 70: 2799, 98: 3919, 150: 3999}
	for p, c := range want {
		if got := pwm.Compare(3999, p); got != c {
			return "compare mismatch"
		}
	}
	return ""
}

func checkBusRetained() string {
	b := bus.NewBus(4)
	em := telemetry.NewBusEmitter(b.NewConnection("pwm"))
	em.Emit(telemetry.Event{Topic: telemetry.TopicDuty, Payload: types.DutyRecord{Percent: 98}, Retained: true})

	sub := b.NewConnection("probe").Subscribe(bus.T("pwm", "+", "duty"))
	select {
	case m := <-sub.Channel():
		if r, ok := m.Payload.(types.DutyRecord); !ok || r.Percent != 98 {
			return "wrong retained payload"
		}
	case <-time.After(100 * time.Millisecond):
		return "retained record not delivered"
	}
	return ""
}

func checkSequence(name string, total uint32) func() string {
	return func() string {
		prof, err := config.Lookup(name)
		if err != nil {
			return err.Error()
		}
		clk := timex.NewManual(0)
		d := &dutyLog{}
		s := sequencer.New(sequencer.Config{Profile: prof, PWM: d, Clock: clk})
		for s.Start(0); ; clk.Advance(prof.ThrottleMs) {
			s.Tick(clk.Millis())
			if _, done := s.Phase(); done {
				break
			}
			if clk.Millis() > 2*total {
				return "never completed"
			}
		}
		if clk.Millis() != total || d.last != prof.StopPercent {
			return "completion time or stop duty wrong"
		}
		return ""
	}
}

func main() {
	time.Sleep(250 * time.Millisecond)

	plat, err := hal.Open()
	log := plat.Logger(slog.LevelInfo)
	plat.ReportOpen(log, err)
	if plat.LED != nil {
		plat.LED.Set(true) // running
	}

	checks := []check{
		{"timer-top", checkTimerTop},
		{"compare", checkCompare},
		{"bus-retained", checkBusRetained},
		{"sequence-blink", checkSequence(config.NameBlink, 40000)},
		{"sequence-rgb", checkSequence(config.NameRGB, 67000)},
	}

	failed := 0
	log.Info("selftest:start", slog.String("board", plat.Name), slog.Int("checks", len(checks)))
	for _, c := range checks {
		if why := c.fn(); why != "" {
			failed++
			log.Error("selftest:fail", slog.String("check", c.name), slog.String("reason", why))
			continue
		}
		log.Info("selftest:pass", slog.String("check", c.name))
	}
	log.Info("selftest:done", slog.Int("passed", len(checks)-failed), slog.Int("failed", failed))

	for {
		if plat.LED == nil {
			time.Sleep(time.Hour)
			continue
		}
		if failed == 0 {
			plat.LED.Set(true)
			time.Sleep(2 * time.Second)
			continue
		}
		plat.LED.Set(true)
		time.Sleep(250 * time.Millisecond)
		plat.LED.Set(false)
		time.Sleep(250 * time.Millisecond)
	}
}
