// Package capture implements the Capture Source (component A): opening
// a link-layer interface in promiscuous mode with a 1 ms read timeout
// and exposing a bounded, timed poll_batch primitive. Grounded on the
// inactive-handle → configure → activate sequence used by
// KleaSCM-netscope's capture engine and the read-loop/Stats() shape
// from postmanlabs-observability-cli's pcap stream wrapper (spec.md §4.1).
package capture

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/gopacket/pcap"
	"github.com/sirupsen/logrus"

	"github.com/runzeroinc/netkit-capture/internal/bufpool"
	"github.com/runzeroinc/netkit-capture/internal/model"
)

const (
	snapLen        = 65536
	readTimeout    = time.Millisecond
	defaultMaxBatch = 500
)

// BatchStatus distinguishes the three outcomes of a PollBatch call from
// spec.md §4.1: frames read (possibly none, within the timeout), the
// source closed, or a read error.
type BatchStatus int

const (
	StatusFrames BatchStatus = iota
	StatusEOF
	StatusError
)

// BatchResult is the return value of PollBatch.
type BatchResult struct {
	Status BatchStatus
	Frames []model.RawFrame
	Err    error
}

// Handle wraps a live pcap handle. The zero value is not usable; obtain
// one from Open.
type Handle struct {
	iface  string
	handle *pcap.Handle
	closed bool
	pool   *bufpool.Pool
}

// Open opens iface with snap length 65536, promiscuous mode, and a 1 ms
// read timeout, then sets the capture direction to in/out; a failure to
// set the direction is logged as a warning, not fatal. The handle is not
// switched to non-blocking mode: each read waits up to the read timeout.
func Open(iface string) (*Handle, *model.OpenError) {
	inactive, err := pcap.NewInactiveHandle(iface)
	if err != nil {
		return nil, classifyOpenError(err)
	}
	defer inactive.CleanUp()

	if err := inactive.SetSnapLen(snapLen); err != nil {
		return nil, &model.OpenError{Kind: model.OpenErrorDriver, Message: err.Error()}
	}
	if err := inactive.SetPromisc(true); err != nil {
		return nil, &model.OpenError{Kind: model.OpenErrorDriver, Message: err.Error()}
	}
	if err := inactive.SetTimeout(readTimeout); err != nil {
		return nil, &model.OpenError{Kind: model.OpenErrorDriver, Message: err.Error()}
	}

	active, err := inactive.Activate()
	if err != nil {
		return nil, classifyOpenError(err)
	}

	if err := active.SetDirection(pcap.DirectionInOut); err != nil {
		logrus.WithError(err).WithField("interface", iface).Warn("capture: direction hint failed")
	}

	return &Handle{iface: iface, handle: active, pool: bufpool.New(snapLen)}, nil
}

// classifyOpenError maps libpcap's string-only error reporting onto the
// OpenError taxonomy from spec.md §7; libpcap does not expose a typed
// error hierarchy, only formatted messages, so this matches on the
// well-known substrings the library and the underlying OS both use.
func classifyOpenError(err error) *model.OpenError {
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "no such device"):
		return &model.OpenError{Kind: model.OpenErrorInterfaceNotFound, Message: msg}
	case strings.Contains(lower, "permission denied") || strings.Contains(lower, "operation not permitted"):
		return &model.OpenError{Kind: model.OpenErrorPermissionDenied, Message: msg}
	default:
		return &model.OpenError{Kind: model.OpenErrorDriver, Message: msg}
	}
}

// SetFilter compiles a BPF-style expression; an empty expression clears
// any filter currently installed (spec.md §4.1).
func (h *Handle) SetFilter(expr string) error {
	if expr == "" {
		return h.handle.SetBPFFilter("")
	}
	if err := h.handle.SetBPFFilter(expr); err != nil {
		return fmt.Errorf("filter syntax: %s: %w", expr, err)
	}
	return nil
}

// PollBatch reads up to maxFrames frames, breaking early on timeout or
// error (spec.md §4.1 algorithmic notes); it never blocks longer than
// the handle's configured read timeout per call to ReadPacketData.
func (h *Handle) PollBatch(maxFrames int) BatchResult {
	if h.closed {
		return BatchResult{Status: StatusEOF}
	}
	if maxFrames <= 0 {
		maxFrames = defaultMaxBatch
	}

	frames := make([]model.RawFrame, 0, maxFrames)
	for i := 0; i < maxFrames; i++ {
		data, ci, err := h.handle.ReadPacketData()
		if err == pcap.NextErrorTimeoutExpired {
			break
		}
		if err != nil {
			if h.closed {
				return BatchResult{Status: StatusEOF, Frames: frames}
			}
			return BatchResult{Status: StatusError, Frames: frames, Err: err}
		}
		// gopacket reuses its internal read buffer on the next
		// ReadPacketData call, so data must be copied out before this
		// loop iterates again; the pool buffer becomes the frame's
		// owned backing array and is returned once every reference
		// (one per PacketRecord built from it) is released.
		buf := h.pool.Get()
		n := copy(buf, data)
		raw := h.pool.Wrap(buf, n)
		frames = append(frames, model.RawFrame{
			TimestampSec:  ci.Timestamp.Unix(),
			TimestampUsec: int64(ci.Timestamp.Nanosecond() / 1000),
			CapturedLen:   ci.CaptureLength,
			WireLen:       ci.Length,
			Data:          raw.Bytes(),
			Raw:           raw,
		})
	}
	return BatchResult{Status: StatusFrames, Frames: frames}
}

// Stats reports the kernel-level packet/drop counters gopacket exposes:
// what the NIC/driver discarded before userspace ever saw the frame.
// These counters are not folded into CaptureStats.PacketsDropped, which
// counts only the pipeline's own drops.
func (h *Handle) Stats() (received, dropped uint64, err error) {
	s, err := h.handle.Stats()
	if err != nil {
		return 0, 0, err
	}
	return uint64(s.PacketsReceived), uint64(s.PacketsDropped), nil
}

// Close is idempotent; subsequent PollBatch calls return StatusEOF.
func (h *Handle) Close() {
	if h.closed {
		return
	}
	h.closed = true
	h.handle.Close()
}
