// Package platform builds the hal.Board for the current target. The rp2040
// build talks to the Pico's peripherals; every other build gets a simulated
// board used by tests and the host CLI.
package platform

import (
	"context"
	"io"

	"thermoblink/calib"
	"thermoblink/hal"
)

// Target is everything a backend hands to the application.
type Target struct {
	Board   *hal.Board
	Calib   calib.Addresses
	Console io.Writer // MCU log sink; nil on host
	// Background lists extra long-lived tasks the backend needs
	// (e.g. the simulator's scripted button presses).
	Background []Task
}

type Task struct {
	Name string
	Run  func(ctx context.Context) error
}
