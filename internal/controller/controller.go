// Package controller implements the Capture Controller (component D):
// the mutex-guarded state machine and live configuration surface that
// owns one capture session at a time, wiring the capture source
// (internal/capture) and packet pipeline (internal/pipeline) together
// and fanning results out to observers (internal/observer). Grounded
// on spec.md §4.4 and the teacher's cmd/get/main.go control-flow style.
// Setter failures are returned as *model.ConfigError, not logged here.
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/runzeroinc/netkit-capture/internal/capture"
	"github.com/runzeroinc/netkit-capture/internal/model"
	"github.com/runzeroinc/netkit-capture/internal/netutil"
	"github.com/runzeroinc/netkit-capture/internal/observer"
	"github.com/runzeroinc/netkit-capture/internal/pipeline"
)

// captureOpen is a seam for tests: it stands in for capture.Open so the
// state machine can be exercised without a live network interface.
var captureOpen = capture.Open

const (
	stopGracePeriod = 5 * time.Second
	statsTickPeriod = time.Second
)

// Controller owns one capture session's state and configuration. All
// exported methods are safe for concurrent use.
type Controller struct {
	mu    sync.Mutex
	state observer.State
	cfg   model.CaptureConfig

	sessionID  xid.ID
	handle     *capture.Handle
	worker     *pipeline.Worker
	cancel     context.CancelFunc
	workerDone chan struct{}

	stats      model.CaptureStats
	lastTick   model.CaptureStats
	lastTickAt time.Time

	broadcast *observer.Broadcast
}

// New constructs a stopped controller with the default configuration
// and the given initial observers.
func New(observers ...observer.Observer) *Controller {
	return &Controller{
		state:     observer.StateStopped,
		cfg:       model.DefaultConfig(),
		broadcast: observer.NewBroadcast(observers...),
	}
}

// AddObserver registers another observer with the controller's
// broadcast fan-out (spec.md §4.5).
func (c *Controller) AddObserver(o observer.Observer) {
	c.broadcast.Add(o)
}

// State returns the controller's current state machine value.
func (c *Controller) State() observer.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetInterface validates and stores the capture interface name. Legal
// only while stopped (spec.md §4.4).
func (c *Controller) SetInterface(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != observer.StateStopped {
		return &model.ConfigError{Field: "interface", Value: name, Message: "cannot change interface while capturing"}
	}
	if !netutil.ValidInterfaceName(name) {
		return &model.ConfigError{Field: "interface", Value: name, Message: "must match [A-Za-z0-9._-]{1,50}"}
	}
	c.cfg.InterfaceName = name
	return nil
}

// SetFilter stores a BPF expression and, if a capture is active,
// forwards it live to the capture source, which compiles and so
// validates it (spec.md §4.4). While stopped the expression is stored
// unchecked and is compiled at Start.
func (c *Controller) SetFilter(expr string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle != nil {
		if err := c.handle.SetFilter(expr); err != nil {
			return &model.ConfigError{Field: "filter", Value: expr, Message: err.Error()}
		}
	}
	c.cfg.BPFFilter = expr
	c.publishConfigLocked()
	return nil
}

// SetSpoofMode enables or disables the MAC spoof filter and normalizes
// and validates the target MAC set (spec.md §4.4).
func (c *Controller) SetSpoofMode(on bool, macs []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	normalized := make([]string, len(macs))
	for i, m := range macs {
		n := netutil.NormalizeMAC(m)
		if !netutil.ValidMAC(n) {
			return &model.ConfigError{Field: "spoof_mode", Value: m, Message: "must match ^([0-9A-F]{2}:){5}[0-9A-F]{2}$"}
		}
		normalized[i] = n
	}
	c.cfg.Spoof = model.SpoofMode{On: on, Targets: normalized}
	c.publishConfigLocked()
	return nil
}

// SetSampling configures the pipeline sampling policy (spec.md §4.4).
// N is the every_nth divisor; pps is the target_rate threshold.
func (c *Controller) SetSampling(kind model.SamplingKind, n uint64, pps float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch kind {
	case model.SamplingNone:
	case model.SamplingEveryNth:
		if n == 0 {
			return &model.ConfigError{Field: "sampling", Value: "0", Message: "every_nth requires N >= 1"}
		}
	case model.SamplingTargetRate:
		if pps <= 0 {
			return &model.ConfigError{Field: "sampling", Value: fmt.Sprintf("%g", pps), Message: "target_rate requires pps > 0"}
		}
	default:
		return &model.ConfigError{Field: "sampling", Value: "", Message: "unknown sampling kind"}
	}
	c.cfg.Sampling = model.Sampling{Kind: kind, N: n, PPS: pps}
	c.publishConfigLocked()
	return nil
}

// publishConfigLocked pushes the current config snapshot to the live
// worker, if one is running. Callers must hold c.mu.
func (c *Controller) publishConfigLocked() {
	if c.worker != nil {
		cfg := c.cfg
		c.worker.UpdateConfig(&cfg)
	}
}

// Start transitions Stopped → Capturing: opens the capture source,
// spawns the worker, and begins the 1 Hz stats tick. Legal only from
// Stopped (spec.md §4.4).
func (c *Controller) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != observer.StateStopped {
		return &model.ConfigError{Field: "state", Value: string(c.state), Message: "start() requires Stopped"}
	}
	if c.cfg.InterfaceName == "" {
		return &model.ConfigError{Field: "interface", Value: "", Message: "interface must be set before start()"}
	}

	handle, openErr := captureOpen(c.cfg.InterfaceName)
	if openErr != nil {
		c.state = observer.StateError
		c.broadcast.OnError(observer.ErrorKindOpen, openErr.Error())
		c.broadcast.OnStatus(c.state)
		return openErr
	}
	if c.cfg.BPFFilter != "" {
		if err := handle.SetFilter(c.cfg.BPFFilter); err != nil {
			handle.Close()
			c.state = observer.StateError
			c.broadcast.OnError(observer.ErrorKindOpen, err.Error())
			c.broadcast.OnStatus(c.state)
			return err
		}
	}

	c.sessionID = xid.New()
	c.stats = model.CaptureStats{StartTime: time.Now()}
	c.lastTick = c.stats
	c.lastTickAt = c.stats.StartTime

	cfgSnapshot := c.cfg
	c.handle = handle
	c.worker = pipeline.NewWorker(handle, &cfgSnapshot, c)

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.workerDone = make(chan struct{})

	go c.worker.Run(ctx)
	go c.drainLoop(ctx, c.worker.Output(), c.workerDone)
	go c.statsTickLoop(ctx)

	c.state = observer.StateCapturing
	c.broadcast.OnStatus(c.state)
	logrus.WithFields(logrus.Fields{
		"session":   c.sessionID.String(),
		"interface": c.cfg.InterfaceName,
	}).Info("controller: capture started")
	return nil
}

// Stop signals the worker, waits up to 5s for it to drain, and force
// closes the capture source on timeout. Idempotent (spec.md §4.4).
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.state == observer.StateStopped {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	done := c.workerDone
	handle := c.handle
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(stopGracePeriod):
			logrus.Warn("controller: worker did not drain within grace period, force-closing capture source")
			if handle != nil {
				handle.Close()
			}
			<-done
		}
	}
	if handle != nil {
		handle.Close()
	}

	c.mu.Lock()
	c.handle = nil
	c.worker = nil
	c.cancel = nil
	c.workerDone = nil
	c.state = observer.StateStopped
	c.mu.Unlock()

	c.broadcast.OnStatus(observer.StateStopped)
	logrus.Info("controller: capture stopped")
}

// Pause suspends observer packet delivery without stopping the worker,
// so the kernel-side receive buffer keeps draining (spec.md §4.4).
// Legal only from Capturing.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != observer.StateCapturing {
		return &model.ConfigError{Field: "state", Value: string(c.state), Message: "pause() requires Capturing"}
	}
	c.state = observer.StateCapturingPaused
	c.broadcast.OnStatus(c.state)
	return nil
}

// Resume reverses Pause. Legal only from Capturing+Paused.
func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != observer.StateCapturingPaused {
		return &model.ConfigError{Field: "state", Value: string(c.state), Message: "resume() requires Capturing+Paused"}
	}
	c.state = observer.StateCapturing
	c.broadcast.OnStatus(c.state)
	return nil
}

// CurrentStats returns a copy of the session's counters.
func (c *Controller) CurrentStats() model.CaptureStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats.Snapshot()
}

// drainLoop reads emitted batches from the worker and forwards them to
// observers unless the controller is paused, in which case the batch
// is still drained (to avoid stalling the pipeline) but not delivered.
func (c *Controller) drainLoop(ctx context.Context, in <-chan []model.PacketRecord, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case batch, ok := <-in:
			if !ok {
				return
			}
			c.recordBatch(batch)
			c.mu.Lock()
			paused := c.state == observer.StateCapturingPaused
			c.mu.Unlock()
			if !paused {
				c.broadcast.OnPackets(batch)
			}
			releaseBatch(batch)
		case <-ctx.Done():
			// Drain whatever remains so the worker's close(out) observes
			// no blocked send before exiting.
			for batch := range in {
				c.recordBatch(batch)
				releaseBatch(batch)
			}
			return
		}
	}
}

// releaseBatch returns every record's pool-owned buffer once this
// delivery is done with it: OnPackets is synchronous across every
// observer (internal/observer.Broadcast), so by the time it returns no
// observer may still be reading the batch unless it called Retain.
func releaseBatch(batch []model.PacketRecord) {
	for i := range batch {
		batch[i].Raw.Release()
	}
}

func (c *Controller) recordBatch(batch []model.PacketRecord) {
	if len(batch) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	received, dropped, bytes := c.worker.Snapshot()
	c.stats.PacketsReceived = received
	c.stats.PacketsDropped = dropped
	c.stats.BytesReceived = bytes
}

// statsTickLoop implements the 1 Hz aggregation of spec.md §4.4.
func (c *Controller) statsTickLoop(ctx context.Context) {
	ticker := time.NewTicker(statsTickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.tick(now)
		}
	}
}

func (c *Controller) tick(now time.Time) {
	c.mu.Lock()
	deltaPackets := c.stats.PacketsReceived - c.lastTick.PacketsReceived
	deltaMs := now.Sub(c.lastTickAt).Milliseconds()
	if deltaMs > 0 {
		c.stats.CurrentRate = (float64(deltaPackets) / float64(deltaMs)) * 1000
	}
	c.lastTick = c.stats
	c.lastTickAt = now
	snapshot := c.stats.Snapshot()
	c.mu.Unlock()
	c.broadcast.OnStats(snapshot)
}

// SamplingActive implements pipeline.Signals.
func (c *Controller) SamplingActive() {
	c.broadcast.OnSamplingActive()
}

// Backpressure implements pipeline.Signals.
func (c *Controller) Backpressure() {
	c.broadcast.OnBackpressure()
}

// RuntimeError implements pipeline.Signals: any worker-reported runtime
// failure forces the state machine to Error (spec.md §4.4, §7).
func (c *Controller) RuntimeError(message string) {
	c.mu.Lock()
	c.state = observer.StateError
	c.mu.Unlock()
	c.broadcast.OnError(observer.ErrorKindRuntime, message)
	c.broadcast.OnStatus(observer.StateError)
	logrus.WithField("error", message).Error("controller: runtime capture error")
}
