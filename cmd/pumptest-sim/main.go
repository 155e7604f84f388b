// Command pumptest-sim runs a pump test profile against the simulated board
// and prints the diagnostic stream to stderr.
//
//	go run ./cmd/pumptest-sim -profile rgb -speed 10
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"pumptest-go/errcode"
	"pumptest-go/services/bench"
	"pumptest-go/services/config"
	"pumptest-go/services/hal"
	"pumptest-go/x/timex"
)

func main() {
	profile := flag.String("profile", config.NameBlink, "test profile: "+strings.Join(config.Names(), ", "))
	speed := flag.Uint("speed", 1, "time acceleration; 0 runs on a virtual clock without waiting")
	verbose := flag.Bool("v", false, "include debug records")
	flag.Parse()

	plat, openErr := hal.Open()
	if *speed == 0 {
		plat.Clock = timex.NewManual(0)
	} else if *speed > 1 {
		plat.Clock = timex.NewScaled(uint32(*speed))
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := plat.Logger(level)
	plat.ReportOpen(log, openErr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	b, err := bench.Boot(ctx, plat, bench.Options{Profile: *profile, Logger: log, QueueLen: 64})
	if err != nil {
		log.Error("sim:boot-failed", slog.String("code", string(errcode.Of(err))), slog.Any("reason", err))
		os.Exit(2)
	}
	runErr := b.Run(ctx)

	// Let the monitor drain the last records.
	time.Sleep(50 * time.Millisecond)

	pump := plat.Pump.(*hal.SimTimer)
	top, cmp := pump.Snapshot()
	log.Info("sim:done",
		slog.String("profile", b.Profile.Name),
		slog.Uint64("virtual_ms", uint64(plat.Clock.Millis())),
		slog.Int("top", int(top)),
		slog.Int("compare", int(cmp)),
		slog.Int("led_blinks", plat.LED.(*hal.SimPin).Rises()),
		slog.Any("interrupted", runErr))
	if runErr != nil {
		os.Exit(1)
	}
}
