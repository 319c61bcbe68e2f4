package game

import (
	"github.com/pthm-cable/sightline/inspector"
	"github.com/pthm-cable/sightline/telemetry"
)

// stuckReplanTicks is how many refused steps in a row make a mover with a
// target plan a fresh path from where it stands.
const stuckReplanTicks = 30

// Options holds configuration for game initialization.
type Options struct {
	LogStats       bool                        // Log window and perf stats via slog
	StatsWindowSec float64                     // Stats window size (0 = telemetry.stats_window)
	OutputDir      string                      // CSV output directory (empty = disabled)
	StatsCallback  func(telemetry.WindowStats) // Called on every window flush
	Snapshots      chan<- inspector.Snapshot   // Inspector feed (nil = disabled)
	StepsPerUpdate int                         // Ticks per Update call in headless runs
}

// DefaultOptions returns options with every output disabled.
func DefaultOptions() Options {
	return Options{StepsPerUpdate: 1}
}
