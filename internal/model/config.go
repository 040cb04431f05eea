package model

// SpoofMode selects whether the pipeline's MAC-based spoof filter is
// active (spec.md §3, §4.3 step 2).
type SpoofMode struct {
	On      bool
	Targets []string // uppercase colon-form MAC addresses
}

// SamplingKind enumerates the sampling policies of spec.md §3.
type SamplingKind uint8

const (
	SamplingNone SamplingKind = iota
	SamplingEveryNth
	SamplingTargetRate
)

// Sampling configures which packets survive the pipeline's sampling step
// (spec.md §4.3 step 3).
type Sampling struct {
	Kind SamplingKind
	N    uint64  // for SamplingEveryNth: keep every Nth packet
	PPS  float64 // for SamplingTargetRate: target packets/second
}

// CaptureConfig is the controller-owned configuration snapshot. A new
// immutable value is swapped in on every change; the worker reads one
// value at the top of each iteration and never observes a torn config
// (spec.md §5, §9 "cross-thread mutability").
type CaptureConfig struct {
	InterfaceName       string
	BPFFilter           string
	Spoof               SpoofMode
	Sampling            Sampling
	RingBufferSize      int
	BackpressureDelayMs int
}

// DefaultConfig returns the zero-value-safe starting configuration: no
// filter, spoofing off, sampling off, ring buffer size 0 (the pipeline
// then uses an output channel of capacity 1), and no initial
// backpressure delay.
func DefaultConfig() CaptureConfig {
	return CaptureConfig{
		Sampling:            Sampling{Kind: SamplingNone},
		RingBufferSize:      0,
		BackpressureDelayMs: 0,
	}
}
