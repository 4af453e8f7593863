package render

import "time"

// Per-device session statistics.
type DeviceStat struct {
	// The device id.
	ID string

	// Tiles (or tile sample batches) rendered by this device.
	Tiles int

	// Cumulative render time on this device.
	RenderTime time.Duration
}

// SessionStats aggregates statistics for one session run.
type SessionStats struct {
	// Individual device stats.
	Devices []DeviceStat

	// Total wall time and render time.
	TotalTime  time.Duration
	RenderTime time.Duration

	// Finished per-tile sample units.
	Samples int
}
