package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"pumptest-go/bus"
	"pumptest-go/errcode"
	"pumptest-go/services/pwm"
	"pumptest-go/services/sequencer"
	"pumptest-go/services/telemetry"
	"pumptest-go/types"
)

func TestProfiles_Tables(t *testing.T) {
	cases := []struct {
		name    string
		prof    sequencer.Profile
		dur     []uint32
		duty    []int
		tick    uint32
		totalMs uint64
	}{
		{NameBlink, Blink(), []uint32{10000, 10000, 10000, 10000}, []int{98, 70, 33, 5}, 50, 40000},
		{NameRGB, RGB(), []uint32{20000, 20000, 20000, 7000}, []int{98, 33, 50, 5}, 100, 67000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.prof
			if p.Name != tc.name || p.FrequencyHz != 500 || p.StopPercent != 98 || p.ThrottleMs != tc.tick {
				t.Fatalf("header = %+v", p)
			}
			if len(p.Phases) != 4 {
				t.Fatalf("phases = %d", len(p.Phases))
			}
			for i, ph := range p.Phases {
				if ph.DurationMs != tc.dur[i] || ph.DutyPercent != tc.duty[i] {
					t.Fatalf("phase %d = %+v", i+1, ph)
				}
			}
			if p.TotalMs() != tc.totalMs {
				t.Fatalf("TotalMs = %d, want %d", p.TotalMs(), tc.totalMs)
			}
			if err := Validate(p, pwm.Uno16MHz); err != nil {
				t.Fatalf("Validate: %v", err)
			}
		})
	}
}

func TestProfiles_Indicators(t *testing.T) {
	for i, ph := range Blink().Phases {
		if ph.Indicator.Blinks != i+1 {
			t.Fatalf("blink phase %d signals %d blinks", i+1, ph.Indicator.Blinks)
		}
	}
	want := []types.RGB{types.Red, types.Green, types.Blue, types.White}
	for i, ph := range RGB().Phases {
		if ph.Indicator.Color != want[i] {
			t.Fatalf("rgb phase %d color %+v", i+1, ph.Indicator.Color)
		}
	}
}

func TestLookup(t *testing.T) {
	for _, n := range Names() {
		p, err := Lookup(n)
		if err != nil || p.Name != n {
			t.Fatalf("Lookup(%q) = %q, %v", n, p.Name, err)
		}
	}
	_, err := Lookup("turbo")
	if !errors.Is(err, errcode.UnknownProfile) {
		t.Fatalf("Lookup(turbo) err = %v", err)
	}
}

func TestLookup_ReturnsCopies(t *testing.T) {
	a, _ := Lookup(NameBlink)
	a.Phases[0].DutyPercent = 0
	b, _ := Lookup(NameBlink)
	if b.Phases[0].DutyPercent != 98 {
		t.Fatal("profile table was mutated through a lookup")
	}
}

func TestValidate_Rejects(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*sequencer.Profile)
	}{
		{"empty name", func(p *sequencer.Profile) { p.Name = "" }},
		{"no phases", func(p *sequencer.Profile) { p.Phases = nil }},
		{"zero hz", func(p *sequencer.Profile) { p.FrequencyHz = 0 }},
		{"too slow", func(p *sequencer.Profile) { p.FrequencyHz = 10 }},
		{"stop > 100", func(p *sequencer.Profile) { p.StopPercent = 101 }},
		{"zero duration", func(p *sequencer.Profile) { p.Phases[2].DurationMs = 0 }},
		{"negative duty", func(p *sequencer.Profile) { p.Phases[1].DutyPercent = -1 }},
		{"outside band", func(p *sequencer.Profile) { p.Phases[3].DutyPercent = 50 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Blink()
			tc.mut(&p)
			err := Validate(p, pwm.Uno16MHz)
			if errcode.Of(err) != errcode.InvalidParams {
				t.Fatalf("err = %v, want invalid_params", err)
			}
		})
	}
}

func TestConfigService_PublishesRetainedProfile(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("config")
	NewConfigService(RGB(), nil).Start(context.Background(), conn)

	// Retained: a late subscriber still sees it.
	sub := b.NewConnection("late").Subscribe(bus.T("config", "#"))
	select {
	case m := <-sub.Channel():
		if m.Topic.String() != telemetry.TopicProfile.String() || !m.Retained {
			t.Fatalf("topic=%s retained=%v", m.Topic, m.Retained)
		}
		info, ok := m.Payload.(types.ProfileInfo)
		if !ok {
			t.Fatalf("payload %T", m.Payload)
		}
		if info.Name != NameRGB || len(info.Phases) != 4 || info.Phases[3].DurationMs != 7000 {
			t.Fatalf("info = %+v", info)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("no retained profile")
	}
}

func TestConfigService_CancelledContext(t *testing.T) {
	b := bus.NewBus(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	NewConfigService(Blink(), nil).Start(ctx, b.NewConnection("config"))

	sub := b.NewConnection("probe").Subscribe(telemetry.TopicProfile)
	select {
	case m := <-sub.Channel():
		t.Fatalf("unexpected publish %+v", m)
	case <-time.After(20 * time.Millisecond):
	}
}
