package model

import "time"

// CaptureStats is the per-session counter block, reset on every
// startCapture and written only by the controller, which copies the
// worker's atomic counters into it under its mutex (see
// internal/controller).
type CaptureStats struct {
	PacketsReceived uint64
	PacketsDropped  uint64
	BytesReceived   uint64
	CurrentRate     float64
	StartTime       time.Time
}

// Snapshot returns a copy safe to hand to an observer; CaptureStats
// itself has no internal synchronization, by design — the controller is
// the only writer and it always copies before publishing.
func (s CaptureStats) Snapshot() CaptureStats {
	return s
}
