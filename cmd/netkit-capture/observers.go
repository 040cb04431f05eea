package main

import (
	"github.com/sirupsen/logrus"

	"github.com/runzeroinc/netkit-capture/internal/model"
	"github.com/runzeroinc/netkit-capture/internal/observer"
)

// cliDumper is the logrus-backed CLI observer (spec.md §4.5 "two
// concrete observers ship in cmd/netkit-capture"): one structured log
// line per PacketRecord, plus status/error transitions.
type cliDumper struct {
	observer.NopObserver
}

func (cliDumper) OnPackets(batch []model.PacketRecord) {
	for _, rec := range batch {
		logrus.WithFields(logrus.Fields{
			"serial": rec.Serial,
			"proto":  rec.TopProtocol,
			"src":    rec.SrcAddr,
			"dst":    rec.DstAddr,
		}).Info(rec.SummaryLine)
	}
}

func (cliDumper) OnStatus(state observer.State) {
	logrus.WithField("state", state).Info("netkit-capture: state transition")
}

func (cliDumper) OnError(kind observer.ErrorKind, message string) {
	logrus.WithField("kind", kind).Error(message)
}

func (cliDumper) OnSamplingActive() {
	logrus.Warn("netkit-capture: sampling became active")
}

func (cliDumper) OnBackpressure() {
	logrus.Warn("netkit-capture: backpressure applied")
}

// statsLogger consumes only the 1 Hz StatsTick and logs it at debug
// level; it does not export anything, since the metrics endpoint
// already exposes the same counters through controller.Collector.
type statsLogger struct {
	observer.NopObserver
}

func (statsLogger) OnStats(stats model.CaptureStats) {
	logrus.WithFields(logrus.Fields{
		"packets_received": stats.PacketsReceived,
		"packets_dropped":  stats.PacketsDropped,
		"bytes_received":   stats.BytesReceived,
		"current_rate":     stats.CurrentRate,
	}).Debug("netkit-capture: stats tick")
}
