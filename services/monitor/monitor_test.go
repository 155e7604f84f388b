package monitor

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"pumptest-go/bus"
	"pumptest-go/services/telemetry"
	"pumptest-go/types"
)

type syncBuf struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (w *syncBuf) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.b.Write(p)
}

func (w *syncBuf) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.b.String()
}

type fakeLCD struct {
	mu     sync.Mutex
	lines  [2]string
	y      uint8
	clears int
	shown  chan struct{}
}

func newFakeLCD() *fakeLCD { return &fakeLCD{shown: make(chan struct{}, 16)} }

func (d *fakeLCD) ClearDisplay() {
	d.mu.Lock()
	d.lines = [2]string{}
	d.clears++
	d.mu.Unlock()
}

func (d *fakeLCD) SetCursor(_, y uint8) {
	d.mu.Lock()
	d.y = y
	d.mu.Unlock()
}

func (d *fakeLCD) Print(b []byte) {
	d.mu.Lock()
	d.lines[d.y] += string(b)
	y := d.y
	d.mu.Unlock()
	if y == 1 {
		select {
		case d.shown <- struct{}{}:
		default:
		}
	}
}

func (d *fakeLCD) text() [2]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lines
}

func newService(disp Display) (*Service, *syncBuf) {
	out := &syncBuf{}
	log := slog.New(slog.NewTextHandler(out, nil))
	return New(Config{Logger: log, Display: disp}), out
}

func TestHandle_TimerReport(t *testing.T) {
	s, out := newService(nil)
	s.Handle(&bus.Message{Payload: types.TimerInfo{
		ClockHz: 16_000_000, Prescaler: 8, Top: 3999, TargetHz: 500, ActualHz: 500, PeriodUs: 2000,
	}})
	got := out.String()
	for _, want := range []string{"msg=monitor:timer", "top=3999", "prescaler=8", "actual_hz=500", "period_ms=2", "clamped=false"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in %q", want, got)
		}
	}
}

func TestHandle_DutyRecord(t *testing.T) {
	s, out := newService(nil)
	s.Handle(&bus.Message{Payload: types.DutyRecord{
		Percent: 98, Compare: 3919, Top: 3999, EffectivePercent: 97.9994998, HighUs: 1960, LowUs: 40, Volts: 4.9,
	}})
	got := out.String()
	for _, want := range []string{"percent=98", "compare=3919", "effective=98", "high_us=1960", "low_us=40", "volts=4.9"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in %q", want, got)
		}
	}
}

func TestHandle_PhaseAndProgressOnDisplay(t *testing.T) {
	lcd := newFakeLCD()
	s, _ := newService(lcd)

	s.Handle(&bus.Message{Payload: types.PhaseValue{
		Phase: 2, Of: 4, Duty: 70, Label: "medium", Band: types.Band{Lo: 11, Hi: 84},
	}})
	if got := lcd.text(); got[0] != "P2/4 70% medium" || got[1] != "band 11-84%" {
		t.Fatalf("display = %q", got)
	}

	s.Handle(&bus.Message{Payload: types.Progress{Phase: 2, RemainingMs: 6000}})
	if got := lcd.text(); got[1] != "left 6s" {
		t.Fatalf("display = %q", got)
	}

	// Progress for another phase leaves the display alone.
	s.Handle(&bus.Message{Payload: types.Progress{Phase: 3, RemainingMs: 1000}})
	if got := lcd.text(); got[1] != "left 6s" {
		t.Fatalf("display = %q", got)
	}
}

func TestHandle_ClipsToColumns(t *testing.T) {
	lcd := newFakeLCD()
	s := New(Config{Display: lcd, Columns: 8})
	s.Handle(&bus.Message{Payload: types.PhaseValue{Phase: 1, Of: 4, Duty: 98, Label: "stop"}})
	if got := lcd.text()[0]; got != "P1/4 98%" {
		t.Fatalf("line 1 = %q", got)
	}
}

func TestHandle_ProfilePlan(t *testing.T) {
	s, out := newService(nil)
	s.Handle(&bus.Message{Payload: types.ProfileInfo{
		Name: "rgb", FrequencyHz: 500, StopDuty: 98,
		Phases: []types.PhaseValue{
			{Phase: 1, Duty: 98, Label: "stop", Indicator: types.IndicatorState{Color: types.Red}},
			{Phase: 2, Duty: 33, Label: "high", Indicator: types.IndicatorState{Color: types.Green}},
		},
	}})
	got := out.String()
	if strings.Count(got, "msg=monitor:plan") != 2 || !strings.Contains(got, "color=green") {
		t.Fatalf("plan output = %q", got)
	}
}

func TestHandle_IgnoresUnknownPayload(t *testing.T) {
	lcd := newFakeLCD()
	s, out := newService(lcd)
	s.Handle(&bus.Message{Payload: "noise"})
	if out.String() != "" || lcd.clears != 0 {
		t.Fatal("unknown payload produced output")
	}
}

func TestStart_RendersBusTraffic(t *testing.T) {
	b := bus.NewBus(8)
	lcd := newFakeLCD()
	s, out := newService(lcd)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx, b.NewConnection("monitor")); err != nil {
		t.Fatal(err)
	}

	em := telemetry.NewBusEmitter(b.NewConnection("seq"))
	em.Emit(telemetry.Event{Topic: telemetry.TopicComplete, Payload: types.Completion{StopDuty: 98}, Retained: true})

	select {
	case <-lcd.shown:
	case <-time.After(time.Second):
		t.Fatal("display never updated")
	}
	if got := lcd.text(); got[0] != "test complete" || got[1] != "stop 98% reset" {
		t.Fatalf("display = %q", got)
	}
	if !strings.Contains(out.String(), "msg=monitor:complete") {
		t.Fatalf("log = %q", out.String())
	}
}

func TestStart_RendersInPublishOrderAcrossTopics(t *testing.T) {
	b := bus.NewBus(64)
	s, out := newService(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx, b.NewConnection("monitor")); err != nil {
		t.Fatal(err)
	}

	seq := telemetry.NewBusEmitter(b.NewConnection("seq"))
	pw := telemetry.NewBusEmitter(b.NewConnection("pwm"))
	for ph, duty := range []int{98, 70, 33, 5} {
		seq.Emit(telemetry.Event{Topic: telemetry.TopicPhase, Payload: types.PhaseValue{Phase: ph + 1, Of: 4, Duty: duty}})
		for i := 0; i < 3; i++ {
			seq.Emit(telemetry.Event{Topic: telemetry.TopicProgress, Payload: types.Progress{Phase: ph + 1}})
		}
		pw.Emit(telemetry.Event{Topic: telemetry.TopicDuty, Payload: types.DutyRecord{Percent: duty}})
	}
	seq.Emit(telemetry.Event{Topic: telemetry.TopicComplete, Payload: types.Completion{StopDuty: 98}})

	deadline := time.Now().Add(time.Second)
	for !strings.Contains(out.String(), "msg=monitor:complete") {
		if time.Now().After(deadline) {
			t.Fatalf("stream never completed: %q", out.String())
		}
		time.Sleep(time.Millisecond)
	}

	var got []string
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		switch {
		case strings.Contains(line, "msg=monitor:phase"):
			got = append(got, "phase "+field(line, "phase"))
		case strings.Contains(line, "msg=monitor:duty"):
			got = append(got, "duty "+field(line, "percent"))
		}
	}
	want := []string{"phase 1", "duty 98", "phase 2", "duty 70", "phase 3", "duty 33", "phase 4", "duty 5"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("render order = %v, want %v", got, want)
	}
}

// field returns the value of key=value in a text handler line.
func field(line, key string) string {
	for _, kv := range strings.Fields(line) {
		if v, ok := strings.CutPrefix(kv, key+"="); ok {
			return v
		}
	}
	return ""
}

func TestStart_StopsOnDisconnect(t *testing.T) {
	b := bus.NewBus(8)
	conn := b.NewConnection("monitor")
	s, _ := newService(nil)
	_ = s.Start(context.Background(), conn)
	conn.Disconnect()

	// The loop exits; later publishes reach no one and must not block.
	em := telemetry.NewBusEmitter(b.NewConnection("pwm"))
	for i := 0; i < 32; i++ {
		em.Emit(telemetry.Event{Topic: telemetry.TopicDuty, Payload: types.DutyRecord{Percent: i}})
	}
}
