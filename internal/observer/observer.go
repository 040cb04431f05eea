// Package observer defines the capability set (component E) that
// consumes pipeline output: packet batches, status transitions,
// statistics ticks, errors, and the two edge-trigger signals sampling
// and backpressure emit. Grounded on spec.md §4.5 — a tiny interface
// rather than a class hierarchy, per spec.md §9's polymorphism note.
package observer

import "github.com/runzeroinc/netkit-capture/internal/model"

// State mirrors the controller's state machine for delivery to observers.
type State string

const (
	StateStopped           State = "stopped"
	StateCapturing         State = "capturing"
	StateCapturingPaused   State = "capturing_paused"
	StateError             State = "error"
)

// ErrorKind classifies an Error event for observers that branch on it.
type ErrorKind string

const (
	ErrorKindConfig  ErrorKind = "config"
	ErrorKindOpen    ErrorKind = "open"
	ErrorKindRuntime ErrorKind = "runtime"
)

// Observer is the consumer contract from spec.md §4.5. Every method
// MUST be non-blocking; the controller delivers fire-and-forget and a
// slow observer degrades the whole delivery loop, not just its own
// feed. An observer responsible for slow work (disk, network) must
// queue internally.
type Observer interface {
	OnPackets(batch []model.PacketRecord)
	OnStatus(state State)
	OnStats(stats model.CaptureStats)
	OnError(kind ErrorKind, message string)
	OnSamplingActive()
	OnBackpressure()
}

// NopObserver implements Observer with no-ops, useful as an embedding
// base for observers that only care about a subset of events.
type NopObserver struct{}

func (NopObserver) OnPackets(batch []model.PacketRecord) {}
func (NopObserver) OnStatus(state State)                 {}
func (NopObserver) OnStats(stats model.CaptureStats)     {}
func (NopObserver) OnError(kind ErrorKind, message string) {}
func (NopObserver) OnSamplingActive()                    {}
func (NopObserver) OnBackpressure()                      {}
