package controller

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes the controller's live CaptureStats as Prometheus
// metrics, grounded directly on the teacher's
// exporter.TCPInfoCollector: a mutex-guarded entity polled on every
// Collect call via the same Describe/Collect pair, here collecting the
// single active session's counters rather than a map of connections.
type Collector struct {
	ctrl *Controller

	descPacketsReceived *prometheus.Desc
	descPacketsDropped  *prometheus.Desc
	descBytesReceived   *prometheus.Desc
	descCurrentRate     *prometheus.Desc
	descState           *prometheus.Desc
}

// NewCollector wraps ctrl for Prometheus registration.
func NewCollector(ctrl *Controller) *Collector {
	return &Collector{
		ctrl: ctrl,
		descPacketsReceived: prometheus.NewDesc(
			"netkit_capture_packets_received_total", "Packets received by the capture source.", nil, nil),
		descPacketsDropped: prometheus.NewDesc(
			"netkit_capture_packets_dropped_total", "Packets dropped before reaching the dissector fan-out.", nil, nil),
		descBytesReceived: prometheus.NewDesc(
			"netkit_capture_bytes_received_total", "Bytes received by the capture source.", nil, nil),
		descCurrentRate: prometheus.NewDesc(
			"netkit_capture_current_rate_pps", "1 Hz-aggregated packet receive rate.", nil, nil),
		descState: prometheus.NewDesc(
			"netkit_capture_state", "Controller state machine value (1=active state, 0=otherwise) per state label.",
			[]string{"state"}, nil),
	}
}

func (c *Collector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.descPacketsReceived
	descs <- c.descPacketsDropped
	descs <- c.descBytesReceived
	descs <- c.descCurrentRate
	descs <- c.descState
}

func (c *Collector) Collect(metrics chan<- prometheus.Metric) {
	stats := c.ctrl.CurrentStats()
	state := c.ctrl.State()

	metrics <- prometheus.MustNewConstMetric(c.descPacketsReceived, prometheus.CounterValue, float64(stats.PacketsReceived))
	metrics <- prometheus.MustNewConstMetric(c.descPacketsDropped, prometheus.CounterValue, float64(stats.PacketsDropped))
	metrics <- prometheus.MustNewConstMetric(c.descBytesReceived, prometheus.CounterValue, float64(stats.BytesReceived))
	metrics <- prometheus.MustNewConstMetric(c.descCurrentRate, prometheus.GaugeValue, stats.CurrentRate)

	for _, s := range []string{"stopped", "capturing", "capturing_paused", "error"} {
		var v float64
		if string(state) == s {
			v = 1
		}
		metrics <- prometheus.MustNewConstMetric(c.descState, prometheus.GaugeValue, v, s)
	}
}
