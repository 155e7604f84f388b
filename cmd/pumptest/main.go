// Command pumptest is the bench firmware: it runs the compiled-in pump test
// profile once after reset and then idles with the pump stopped. On the Uno
// it boots lean, without the telemetry bus or status monitor.
//
//	tinygo flash -target arduino ./cmd/pumptest
//	tinygo flash -target pico -tags profile_rgb ./cmd/pumptest
package main

import (
	"context"
	"log/slog"
	"time"

	"pumptest-go/errcode"
	"pumptest-go/services/bench"
	"pumptest-go/services/hal"
)

func main() {
	// Give the serial monitor time to attach.
	time.Sleep(time.Second)
	ctx := context.Background()

	plat, err := hal.Open()
	log := plat.Logger(slog.LevelInfo)
	plat.ReportOpen(log, err)
	log.Info("pumptest:boot", slog.String("board", plat.Name), slog.String("profile", profileName))

	b, err := bench.Boot(ctx, plat, bench.Options{Profile: profileName, Logger: log, SweepMs: 200})
	if err != nil {
		log.Error("pumptest:boot-failed", slog.String("code", string(errcode.Of(err))), slog.Any("reason", err))
		idle(plat)
	}
	if err := b.Run(ctx); err != nil {
		log.Error("pumptest:aborted", slog.Any("reason", err))
	}
	log.Info("pumptest:idle", slog.String("hint", "press reset to repeat"))
	idle(plat)
}

func idle(p *hal.Platform) {
	for {
		p.Clock.Sleep(time.Hour)
	}
}
