/**
 * Copyright (c) 2022, Xerra Earth Observation Institute.
 * Copyright (c) 2025, Simeon Miteff.
 *
 * See LICENSE.TXT in the root directory of this source tree.
 */

// Command netkit-capture runs one packet capture session end to end:
// it wires the controller to a logrus CLI dumper and a Prometheus
// metrics endpoint, following the construct/register/run/log-summary
// flow of the teacher's cmd/get/main.go, generalized from a single
// HTTP GET to a long-running capture session.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/runzeroinc/netkit-capture/internal/controller"
	"github.com/runzeroinc/netkit-capture/internal/model"
)

const metricsShutdownGrace = 5 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.Fatal(err)
	}
}

type cliFlags struct {
	iface        string
	filter       string
	spoofOn      bool
	spoofTargets []string
	samplingKind string
	samplingN    uint64
	samplingPPS  float64
	metricsAddr  string
}

func newRootCmd() *cobra.Command {
	var f cliFlags
	cmd := &cobra.Command{
		Use:   "netkit-capture",
		Short: "Capture and dissect packets on a live interface",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(f)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&f.iface, "interface", "i", "", "capture interface name (required)")
	flags.StringVarP(&f.filter, "filter", "f", "", "BPF filter expression")
	flags.BoolVar(&f.spoofOn, "spoof-filter", false, "enable the MAC-based spoof filter")
	flags.StringSliceVar(&f.spoofTargets, "spoof-mac", nil, "MAC address to keep when --spoof-filter is set (repeatable)")
	flags.StringVar(&f.samplingKind, "sampling", "none", "sampling policy: none, every_nth, target_rate")
	flags.Uint64Var(&f.samplingN, "sampling-n", 0, "N for --sampling=every_nth")
	flags.Float64Var(&f.samplingPPS, "sampling-pps", 0, "target packets/second for --sampling=target_rate")
	flags.StringVar(&f.metricsAddr, "metrics-addr", ":9464", "address to serve Prometheus metrics on")
	return cmd
}

func parseSamplingKind(s string) (model.SamplingKind, error) {
	switch s {
	case "", "none":
		return model.SamplingNone, nil
	case "every_nth":
		return model.SamplingEveryNth, nil
	case "target_rate":
		return model.SamplingTargetRate, nil
	default:
		return 0, fmt.Errorf("unknown sampling policy %q", s)
	}
}

func run(f cliFlags) error {
	if f.iface == "" {
		return fmt.Errorf("--interface is required")
	}

	ctrl := controller.New()
	ctrl.AddObserver(&cliDumper{})
	ctrl.AddObserver(&statsLogger{})

	if err := ctrl.SetInterface(f.iface); err != nil {
		return err
	}
	if f.filter != "" {
		if err := ctrl.SetFilter(f.filter); err != nil {
			return err
		}
	}
	if f.spoofOn {
		if err := ctrl.SetSpoofMode(true, f.spoofTargets); err != nil {
			return err
		}
	}
	kind, err := parseSamplingKind(f.samplingKind)
	if err != nil {
		return err
	}
	if err := ctrl.SetSampling(kind, f.samplingN, f.samplingPPS); err != nil {
		return err
	}

	stopMetrics := serveMetrics(f.metricsAddr, ctrl)
	defer stopMetrics()

	if err := ctrl.Start(); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	logrus.Info("netkit-capture: shutdown signal received")
	ctrl.Stop()
	return nil
}

// serveMetrics starts the Prometheus endpoint exposing the controller's
// live capture counters. It returns a shutdown func.
func serveMetrics(addr string, ctrl *controller.Controller) func() {
	prometheus.MustRegister(controller.NewCollector(ctrl))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("netkit-capture: metrics server stopped")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownGrace)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}
