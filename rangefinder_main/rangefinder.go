/*
	Copyright (c) 2026 The rangefinder authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	rangefinder.go: Ultrasonic rangefinder daemon. Claims the trigger/echo lines,
	  samples the distance periodically and exports metrics.
*/

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/b3nn0/rangefinder/common"
	"github.com/b3nn0/rangefinder/gpio"
	"github.com/b3nn0/rangefinder/sensors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/takama/daemon"
)

const (
	configLocation = "/boot/rangefinder.conf"

	// name of the service
	name        = "rangefinder"
	description = "ultrasonic distance sensor sampling"
)

var stdlog, errlog *log.Logger

func rangefinder(ctx context.Context, s settings) (err error) {
	if !common.CanAccessGPIO(s.Backend) {
		log.Printf("no access to the %q GPIO lines, run as root or join the gpio group\n", s.Backend)
	}

	dev, err := gpio.Open(s.Backend)
	if err != nil {
		return err
	}
	if sim, ok := dev.(*gpio.Sim); ok {
		echo := gpio.EchoFor(s.SimDistance, s.SpeedOfSound)
		sim.Default = &echo
	}

	cfg := s.sensorConfig()
	rf, err := sensors.Open(dev, cfg, metricsObserver{})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rf.Close(); cerr != nil {
			log.Printf("releasing GPIO %d/%d: %s\n", cfg.TriggerPin, cfg.EchoPin, cerr.Error())
		} else {
			log.Printf("released GPIO %d/%d\n", cfg.TriggerPin, cfg.EchoPin)
		}
	}()
	log.Printf("sensor ready: trigger %d, echo %d, pull-down %t, timeout %s, %d samples every %s\n",
		cfg.TriggerPin, cfg.EchoPin, cfg.PullDown, cfg.Timeout, cfg.Samples, cfg.SampleInterval)

	// Start Prometheus
	registerMetrics()
	go updateStats(ctx)
	go common.CpuTempMonitor(ctx, common.CpuTempPath, time.Second, func(cpuTemp float32) {
		cpuTempGauge.Set(float64(cpuTemp))
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: s.Addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics listener %s: %s\n", s.Addr, err.Error())
		}
	}()
	defer srv.Close()

	r := newRanger(rf, s)
	r.run(ctx)
	return nil
}

// Service has embedded daemon
type Service struct {
	daemon.Daemon
}

// Manage by daemon commands or run the daemon
func (service *Service) Manage(args []string) (string, error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	opts := bindFlags(fs)
	fs.Parse(args)

	usage := "Usage: " + name + " install | remove | start | stop | status"
	// if received any kind of command, do it
	if fs.NArg() > 0 {
		switch fs.Arg(0) {
		case "install":
			return service.Install(args[:len(args)-fs.NArg()]...)
		case "remove":
			return service.Remove()
		case "start":
			return service.Start()
		case "stop":
			return service.Stop()
		case "status":
			return service.Status()
		default:
			return usage, nil
		}
	}

	s, err := loadSettings(*opts.config, fs, opts)
	if err != nil {
		return "Invalid settings", err
	}
	initLogging(s.LogDir)
	logDebug = s.Debug
	log.Printf("%s starting with %+v\n", name, s)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- rangefinder(ctx, s)
	}()

	// Set up channel on which to send signal notifications.
	// We must use a buffered channel or risk missing the signal
	// if we're not ready to receive when the signal is sent.
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)

	select {
	case killSignal := <-interrupt:
		log.Println("Got signal:", killSignal)
		cancel()
		// the lines are released before we report back
		if err := <-done; err != nil {
			return "Daemon stopped with error", err
		}
		if killSignal == syscall.SIGINT {
			return "Daemon was interrupted by system signal", nil
		}
		return "Daemon was killed", nil
	case err := <-done:
		if err != nil {
			return "Daemon could not start", fmt.Errorf("rangefinder: %w", err)
		}
		return "Daemon stopped", nil
	}
}

func init() {
	stdlog = log.New(os.Stdout, "", 0)
	errlog = log.New(os.Stderr, "", 0)
}

func main() {
	srv, err := daemon.New(name, description, daemon.SystemDaemon)
	if err != nil {
		errlog.Println("Error: ", err)
		os.Exit(1)
	}
	service := &Service{srv}
	status, err := service.Manage(os.Args[1:])
	if err != nil {
		errlog.Println(status, "\nError: ", err)
		os.Exit(1)
	}
	fmt.Println(status)
}
