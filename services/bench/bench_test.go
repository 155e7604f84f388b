//go:build !tinygo

package bench

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"pumptest-go/errcode"
	"pumptest-go/services/hal"
	"pumptest-go/services/telemetry"
	"pumptest-go/types"
	"pumptest-go/x/timex"
)

func simBoard(t *testing.T) (*hal.Platform, *timex.Manual) {
	t.Helper()
	p, err := hal.Open()
	if err != nil {
		t.Fatal(err)
	}
	clk := timex.NewManual(0)
	p.Clock = clk
	p.Console = nil
	return p, clk
}

func waitCompletion(t *testing.T, b *Bench) types.Completion {
	t.Helper()
	sub := b.Bus.NewConnection("probe").Subscribe(telemetry.TopicComplete)
	select {
	case m := <-sub.Channel():
		return m.Payload.(types.Completion)
	case <-time.After(time.Second):
		t.Fatal("no retained completion")
	}
	return types.Completion{}
}

func TestBlinkBench_RunsToCompletion(t *testing.T) {
	p, clk := simBoard(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b, err := Boot(ctx, p, Options{Profile: "blink"})
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Run(ctx); err != nil {
		t.Fatal(err)
	}

	if c := waitCompletion(t, b); c.StopDuty != 98 || c.TSms != 40000 {
		t.Fatalf("completion = %+v", c)
	}
	if now := clk.Millis(); now != 40000 {
		t.Fatalf("finished at %d ms", now)
	}
	top, cmp := p.Pump.(*hal.SimTimer).Snapshot()
	if top != 3999 || cmp != 3919 {
		t.Fatalf("top=%d compare=%d, want 3999/3919", top, cmp)
	}
	led := p.LED.(*hal.SimPin)
	// Entry blinks 1+2+3+4 plus four reminders per phase.
	if got := led.Rises(); got != 50 {
		t.Fatalf("LED blinked %d times, want 50", got)
	}
	if led.Get() {
		t.Fatal("LED left on")
	}
}

func TestRGBBench_SweepThenRun(t *testing.T) {
	p, clk := simBoard(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b, err := Boot(ctx, p, Options{Profile: "rgb", SweepMs: 320})
	if err != nil {
		t.Fatal(err)
	}
	if now := clk.Millis(); now != 1920 {
		t.Fatalf("sweep ended at %d ms, want 1920", now)
	}
	if err := b.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if now := clk.Millis(); now != 1920+67000 {
		t.Fatalf("finished at %d ms", now)
	}
	for i, l := range p.RGB {
		if v := l.(*hal.SimLevel).Level(); v != 0 {
			t.Fatalf("channel %d left at %d", i, v)
		}
	}
	if p.LED.(*hal.SimPin).Rises() != 0 {
		t.Fatal("rgb profile blinked the LED")
	}
	waitCompletion(t, b)
}

func TestBoot_Errors(t *testing.T) {
	p, _ := simBoard(t)
	if _, err := Boot(context.Background(), p, Options{Profile: "turbo"}); errcode.Of(err) != errcode.UnknownProfile {
		t.Fatalf("unknown profile err = %v", err)
	}
	p.Pump = nil
	if _, err := Boot(context.Background(), p, Options{Profile: "blink"}); errcode.Of(err) != errcode.NoDevice {
		t.Fatalf("no pump err = %v", err)
	}
}

func TestBoot_ParksPumpAtStop(t *testing.T) {
	p, _ := simBoard(t)
	b, err := Boot(context.Background(), p, Options{Profile: "blink"})
	if err != nil {
		t.Fatal(err)
	}
	if b.PWM.Percent() != 98 {
		t.Fatalf("duty after boot = %d", b.PWM.Percent())
	}
	if ph, done := b.Sequencer.Phase(); ph != 1 || done || b.Sequencer.State().Started {
		t.Fatal("Boot must not start the sequence")
	}
}

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

func TestBlinkBench_DiagnosticsInCausalOrder(t *testing.T) {
	p, _ := simBoard(t)
	out := &syncBuf{}
	log := slog.New(slog.NewTextHandler(out, nil))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b, err := Boot(ctx, p, Options{Profile: "blink", Logger: log, QueueLen: 128})
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Run(ctx); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(time.Second)
	for !strings.Contains(out.String(), "msg=monitor:complete") {
		if time.Now().After(deadline) {
			t.Fatal("monitor never rendered completion")
		}
		time.Sleep(time.Millisecond)
	}

	got := out.String()
	phase2 := strings.Index(got, "msg=monitor:phase kind=sequencer phase=2 ")
	duty70 := strings.Index(got, "msg=monitor:duty kind=pwm percent=70 ")
	lastP1 := strings.LastIndex(got, "msg=monitor:progress kind=sequencer phase=1 ")
	if phase2 < 0 || duty70 < 0 || lastP1 < 0 {
		t.Fatalf("missing records in %q", got)
	}
	if !(lastP1 < phase2 && phase2 < duty70) {
		t.Fatalf("order: last phase 1 progress at %d, phase 2 at %d, duty 70 at %d", lastP1, phase2, duty70)
	}
}

func TestLeanBench_RunsWithoutBus(t *testing.T) {
	p, clk := simBoard(t)
	p.Lean = true
	out := &syncBuf{}
	p.Console = out

	b, err := Boot(context.Background(), p, Options{Profile: "blink", Logger: p.Logger(slog.LevelInfo)})
	if err != nil {
		t.Fatal(err)
	}
	if b.Bus != nil {
		t.Fatal("lean boot created a bus")
	}
	if err := b.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if clk.Millis() != 40000 || b.PWM.Percent() != 98 {
		t.Fatalf("finished at %d ms with duty %d", clk.Millis(), b.PWM.Percent())
	}
	got := out.String()
	phase2 := strings.Index(got, "msg=sequencer:phase phase=2 ")
	duty70 := strings.Index(got, "msg=pwm:duty percent=70 ")
	if phase2 < 0 || duty70 < phase2 || !strings.Contains(got, "msg=sequencer:complete") {
		t.Fatalf("lean log = %q", got)
	}
}
