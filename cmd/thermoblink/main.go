// Command thermoblink is the firmware entry point. On the Pico it runs
// against the real peripherals; on a host build it runs the simulator with
// default settings.
package main

import (
	"context"
	"os"
	"time"

	"thermoblink/app"
	"thermoblink/config"
	"thermoblink/logx"
	"thermoblink/platform"
)

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)
	println("boot")

	cfg := config.Default()
	tgt, err := platform.Open(cfg)
	if err != nil {
		println("Error: platform:", err.Error())
		halt()
	}

	out := tgt.Console
	if out == nil {
		out = os.Stdout
	}
	level, _ := logx.ParseLevel(cfg.Log.Level)
	log := logx.NewConsole(out, level)

	a, err := app.Build(cfg, tgt, log)
	if err != nil {
		log.Error("startup failed", "err", err)
		halt()
	}
	if err := a.Run(context.Background()); err != nil {
		log.Error("fatal", "err", err)
		halt()
	}
}

// halt parks the main goroutine so the last log line stays readable on the
// console instead of the board resetting.
func halt() {
	for {
		time.Sleep(time.Hour)
	}
}
