// Package pipeline implements the Packet Pipeline (component C): the
// worker loop that polls the capture source, applies the spoof-mode
// filter and sampling policy, fans frames out through the dissector
// registry, and emits batched PacketRecords through a bounded channel
// with exponential backpressure. Grounded on spec.md §4.3 and the
// worker/channel-fullness backoff idiom in
// 0d3efe85_mandyl-goreplay__capture-capture.go.go.
package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/runzeroinc/netkit-capture/internal/capture"
	"github.com/runzeroinc/netkit-capture/internal/dissect"
	"github.com/runzeroinc/netkit-capture/internal/model"
	"github.com/runzeroinc/netkit-capture/internal/netutil"
)

const (
	pollBatchSize         = 500
	backpressureCeilingMs = 2000
	minEthernetFrameLen   = 14
)

// Signals is the narrow set of edge-trigger events the worker reports
// upward; the controller adapts these onto the observer broadcast
// (spec.md §4.5) so the pipeline itself never depends on the observer
// package.
type Signals interface {
	SamplingActive()
	Backpressure()
	RuntimeError(message string)
}

// Worker runs one capture session's read/filter/dissect/emit loop on
// its own goroutine (spec.md §5).
type Worker struct {
	handle  *capture.Handle
	cfg     atomic.Pointer[model.CaptureConfig]
	out     chan []model.PacketRecord
	signals Signals

	postFilterCounter uint64
	backpressureDelay time.Duration
	samplingSignaled  bool
	lastKeepTime      time.Time

	packetsReceived atomic.Uint64
	packetsDropped  atomic.Uint64
	bytesReceived   atomic.Uint64
}

// NewWorker constructs a worker over an already-opened capture handle.
// The output channel capacity comes from cfg.RingBufferSize (0 means a
// minimal capacity of 1, since an unbuffered channel would make every
// send a synchronization point).
func NewWorker(handle *capture.Handle, cfg *model.CaptureConfig, signals Signals) *Worker {
	capacity := cfg.RingBufferSize
	if capacity <= 0 {
		capacity = 1
	}
	w := &Worker{
		handle:  handle,
		out:     make(chan []model.PacketRecord, capacity),
		signals: signals,
	}
	w.cfg.Store(cfg)
	return w
}

// Output returns the channel D reads emitted batches from.
func (w *Worker) Output() <-chan []model.PacketRecord {
	return w.out
}

// UpdateConfig atomically swaps the config snapshot read once per
// iteration by Run (spec.md §5, §9 cross-thread mutability redesign).
func (w *Worker) UpdateConfig(cfg *model.CaptureConfig) {
	w.cfg.Store(cfg)
}

// Snapshot returns the counters accumulated so far, safe to call from
// the controller goroutine concurrently with Run.
func (w *Worker) Snapshot() (received, dropped, bytes uint64) {
	return w.packetsReceived.Load(), w.packetsDropped.Load(), w.bytesReceived.Load()
}

// Run executes the poll/filter/sample/dissect/emit loop until ctx is
// canceled or the capture source reports EOF or a runtime error. It
// closes the output channel on exit, which signals D the worker is done.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.out)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		cfg := w.cfg.Load()
		result := w.handle.PollBatch(pollBatchSize)
		switch result.Status {
		case capture.StatusEOF:
			return
		case capture.StatusError:
			w.signals.RuntimeError(result.Err.Error())
			return
		}

		if len(result.Frames) == 0 {
			continue
		}

		var batch []model.PacketRecord
		for i := range result.Frames {
			frame := &result.Frames[i]
			w.packetsReceived.Add(1)
			w.bytesReceived.Add(uint64(frame.WireLen))

			if len(frame.Data) < minEthernetFrameLen {
				// Empty or sub-link-layer frame: dropped, never a record.
				w.packetsDropped.Add(1)
				frame.Raw.Release()
				continue
			}
			if cfg.Spoof.On && !w.passesSpoofFilter(frame.Data, cfg.Spoof.Targets) {
				frame.Raw.Release()
				continue
			}

			// Serial tracks every packet that survives the spoof filter,
			// not just the ones sampling keeps — it is the same counter
			// the every_nth test runs against, so a dropped sample still
			// consumes a serial value (spec.md §8 scenario 6: 10 frames,
			// every_nth(3), no drops yields serials {3, 6, 9}).
			w.postFilterCounter++
			if !w.passesSampling(cfg.Sampling) {
				frame.Raw.Release()
				continue
			}

			rec := dissect.Dissect(frame)
			rec.Serial = w.postFilterCounter
			batch = append(batch, rec)
		}

		if len(batch) == 0 {
			continue
		}
		w.emit(ctx, batch)
	}
}

// passesSpoofFilter implements spec.md §4.3 step 2: keep the frame only
// if the Ethernet header's src or dst MAC is in the target set.
func (w *Worker) passesSpoofFilter(data []byte, targets []string) bool {
	if len(data) < 12 {
		return false
	}
	dst := netutil.NormalizeMAC(formatMAC(data[0:6]))
	src := netutil.NormalizeMAC(formatMAC(data[6:12]))
	for _, t := range targets {
		norm := netutil.NormalizeMAC(t)
		if norm == dst || norm == src {
			return true
		}
	}
	return false
}

func formatMAC(b []byte) string {
	const hex = "0123456789abcdef"
	out := make([]byte, 0, 17)
	for i, v := range b {
		if i > 0 {
			out = append(out, ':')
		}
		out = append(out, hex[v>>4], hex[v&0xf])
	}
	return string(out)
}

// passesSampling implements spec.md §4.3 step 3.
func (w *Worker) passesSampling(s model.Sampling) bool {
	switch s.Kind {
	case model.SamplingNone:
		return true
	case model.SamplingEveryNth:
		n := s.N
		if n == 0 {
			n = 1
		}
		keep := w.postFilterCounter%n == 0
		if keep {
			w.signalSamplingOnce()
		}
		return keep
	case model.SamplingTargetRate:
		return w.passesTargetRate(s.PPS)
	default:
		return true
	}
}

const targetRateHysteresis = 1.1

func (w *Worker) passesTargetRate(pps float64) bool {
	now := time.Now()
	if w.lastKeepTime.IsZero() {
		w.lastKeepTime = now
		w.signalSamplingOnce()
		return true
	}
	elapsed := now.Sub(w.lastKeepTime).Seconds()
	if elapsed <= 0 {
		return false
	}
	instantRate := 1.0 / elapsed
	if instantRate <= pps*targetRateHysteresis {
		w.lastKeepTime = now
		w.signalSamplingOnce()
		return true
	}
	return false
}

func (w *Worker) signalSamplingOnce() {
	if w.samplingSignaled {
		return
	}
	w.samplingSignaled = true
	w.signals.SamplingActive()
}

// emit sends batch on the output channel, applying the exponential
// backpressure delay from spec.md §4.3 step 7: doubling on fullness up
// to a ceiling, halving on success down to zero.
func (w *Worker) emit(ctx context.Context, batch []model.PacketRecord) {
	select {
	case w.out <- batch:
		w.halveBackpressure()
		return
	default:
	}

	w.signals.Backpressure()
	w.growBackpressure()
	if w.backpressureDelay > 0 {
		timer := time.NewTimer(w.backpressureDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			releaseBatch(batch)
			return
		case <-timer.C:
		}
	}

	select {
	case w.out <- batch:
		w.halveBackpressure()
	case <-ctx.Done():
		releaseBatch(batch)
	}
}

// releaseBatch returns every record's backing buffer to the pool; called
// only when a batch is abandoned on shutdown rather than delivered, since
// a delivered batch is released by the controller once every observer in
// that delivery has returned (see internal/controller's drainLoop).
func releaseBatch(batch []model.PacketRecord) {
	for i := range batch {
		batch[i].Raw.Release()
	}
}

func (w *Worker) growBackpressure() {
	if w.backpressureDelay == 0 {
		w.backpressureDelay = time.Millisecond
		return
	}
	next := w.backpressureDelay * 2
	ceiling := time.Duration(backpressureCeilingMs) * time.Millisecond
	if next > ceiling {
		next = ceiling
	}
	w.backpressureDelay = next
}

func (w *Worker) halveBackpressure() {
	if w.backpressureDelay == 0 {
		return
	}
	w.backpressureDelay /= 2
	if w.backpressureDelay < time.Millisecond {
		w.backpressureDelay = 0
	}
}
