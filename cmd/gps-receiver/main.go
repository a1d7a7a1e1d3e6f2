// Command gps-receiver ingests baseband I/Q samples from a file or an
// RTL-SDR dongle and reports GPS position fixes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/chrisdoble/gps-receiver/internal/antenna"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/acquirer"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/prn"
	"github.com/chrisdoble/gps-receiver/internal/gpscore/receiver"
	"github.com/chrisdoble/gps-receiver/internal/telemetry"
)

func main() {
	var (
		file       = pflag.StringP("file", "f", "", "Read samples from this file")
		startTime  = pflag.Float64P("time", "t", 0, "UNIX timestamp (UTC) of the file's first sample")
		useRtlSdr  = pflag.Bool("rtl-sdr", false, "Read samples from an RTL-SDR dongle in real time")
		rtlSdrAddr = pflag.String("rtl-sdr-addr", "127.0.0.1:1234", "rtl_tcp server address")
		gain       = pflag.IntP("gain", "g", 20, "SDR gain")
		runHTTP    = pflag.Bool("http", false, "Run the telemetry HTTP server")
		httpAddr   = pflag.String("http-addr", ":8080", "Telemetry HTTP listen address")
		verbose    = pflag.BoolP("verbose", "v", false, "Enable debug-level logging")
	)
	pflag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if *file == "" && !*useRtlSdr {
		fmt.Fprintln(os.Stderr, "one of --file or --rtl-sdr is required")
		pflag.Usage()
		os.Exit(1)
	}

	codes := prn.Build()

	var telemetryCh chan receiver.Snapshot
	if *runHTTP {
		telemetryCh = make(chan receiver.Snapshot, 1)
	}

	var sched acquirer.Scheduler
	if *useRtlSdr {
		sched = acquirer.NewBackground(codes)
	} else {
		sched = acquirer.NewInProcess(codes)
	}

	recv := receiver.New(sched, codes, telemetryCh, log)

	if *runHTTP {
		srv := telemetry.NewServer(*httpAddr, log)
		go srv.Consume(telemetryCh)
		go func() {
			if err := srv.Serve(); err != nil {
				log.WithError(err).Warn("telemetry server stopped")
			}
		}()
	}

	if err := run(log, recv, *file, *startTime, *useRtlSdr, *rtlSdrAddr, *gain); err != nil {
		log.WithError(err).Fatal("fatal error")
	}
}

func run(log logrus.FieldLogger, recv *receiver.Receiver, file string, startTime float64, useRtlSdr bool, rtlSdrAddr string, gain int) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	done := make(chan error, 1)

	if useRtlSdr {
		a := antenna.NewRtlSdrAntenna(rtlSdrAddr, gain, recv, log)
		go func() { done <- a.Run() }()
	} else {
		startTimestamp := time.Unix(0, int64(startTime*float64(time.Second))).UTC()
		a, err := antenna.NewFileAntenna(file, recv, startTimestamp, log)
		if err != nil {
			return fmt.Errorf("opening sample file: %w", err)
		}
		defer a.Close()
		go func() { done <- a.Run() }()
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		return nil
	case err := <-done:
		return err
	}
}
