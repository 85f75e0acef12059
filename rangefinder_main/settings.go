/*
	Copyright (c) 2026 The rangefinder authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	settings.go: Settings file (JSON, or YAML by extension) and command line overrides.
*/

package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/b3nn0/rangefinder/gpio"
	"github.com/b3nn0/rangefinder/sensors"
	"gopkg.in/yaml.v3"
)

type settings struct {
	Backend          string  `yaml:"backend"`
	TriggerPin       int     `yaml:"trigger_pin"`
	EchoPin          int     `yaml:"echo_pin"`
	PullDown         bool    `yaml:"pull_down"`
	TimeoutMS        int     `yaml:"timeout_ms"`
	SpeedOfSound     float64 `yaml:"speed_of_sound"`
	Samples          int     `yaml:"samples"`
	SampleIntervalMS int     `yaml:"sample_interval_ms"`
	SettleDelayMS    int     `yaml:"settle_delay_ms"`
	TriggerPulseUS   int     `yaml:"trigger_pulse_us"`
	PollIntervalUS   int     `yaml:"poll_interval_us"`
	PeriodMS         int     `yaml:"period_ms"`      // pause between batches
	MaxBackoffMS     int     `yaml:"max_backoff_ms"` // cap on the pause while the sensor is unavailable
	SimDistance      float64 `yaml:"sim_distance"`   // meters, sim backend only
	Addr             string  `yaml:"addr"`
	LogDir           string  `yaml:"log_dir"`
	Debug            bool    `yaml:"debug"`
}

func defaultSettings() settings {
	cfg := sensors.DefaultConfig()
	return settings{
		Backend:          "rpio",
		TriggerPin:       int(cfg.TriggerPin),
		EchoPin:          int(cfg.EchoPin),
		PullDown:         cfg.PullDown,
		TimeoutMS:        int(cfg.Timeout / time.Millisecond),
		SpeedOfSound:     cfg.SpeedOfSound,
		Samples:          cfg.Samples,
		SampleIntervalMS: int(cfg.SampleInterval / time.Millisecond),
		SettleDelayMS:    int(cfg.SettleDelay / time.Millisecond),
		TriggerPulseUS:   int(cfg.TriggerPulse / time.Microsecond),
		PeriodMS:         200,
		MaxBackoffMS:     5000,
		SimDistance:      0.5,
		Addr:             ":9978",
		LogDir:           "/var/log",
	}
}

func (s settings) sensorConfig() sensors.Config {
	cfg := sensors.DefaultConfig()
	cfg.TriggerPin = gpio.Pin(s.TriggerPin)
	cfg.EchoPin = gpio.Pin(s.EchoPin)
	cfg.PullDown = s.PullDown
	cfg.Timeout = time.Duration(s.TimeoutMS) * time.Millisecond
	cfg.SpeedOfSound = s.SpeedOfSound
	cfg.Samples = s.Samples
	cfg.SampleInterval = time.Duration(s.SampleIntervalMS) * time.Millisecond
	cfg.SettleDelay = time.Duration(s.SettleDelayMS) * time.Millisecond
	cfg.TriggerPulse = time.Duration(s.TriggerPulseUS) * time.Microsecond
	cfg.PollInterval = time.Duration(s.PollIntervalUS) * time.Microsecond
	return cfg
}

func (s settings) validate() error {
	if err := s.sensorConfig().Validate(); err != nil {
		return err
	}
	if s.PeriodMS < 0 || s.MaxBackoffMS < s.PeriodMS {
		return fmt.Errorf("period %dms and max backoff %dms", s.PeriodMS, s.MaxBackoffMS)
	}
	if s.Backend == "sim" && s.SimDistance <= 0 {
		return fmt.Errorf("sim distance %g", s.SimDistance)
	}
	return nil
}

// readSettings overlays the file at path onto s. A missing file leaves s
// untouched.
func readSettings(path string, s *settings) error {
	buf, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Printf("can't read settings %s: %s\n", path, err.Error())
		return nil
	}
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(buf, s)
	default:
		err = json.Unmarshal(buf, s)
	}
	if err != nil {
		return fmt.Errorf("settings %s: %w", path, err)
	}
	log.Printf("read in settings.\n")
	return nil
}

type cmdline struct {
	config   *string
	backend  *string
	trigger  *int
	echo     *int
	pulldown *bool
	timeout  *time.Duration
	samples  *int
	interval *time.Duration
	period   *time.Duration
	addr     *string
	logdir   *string
	debug    *bool
}

func bindFlags(flags *flag.FlagSet) cmdline {
	d := defaultSettings()
	return cmdline{
		config:   flags.String("config", configLocation, "Settings file (JSON, or YAML with a .yaml extension)"),
		backend:  flags.String("backend", d.Backend, "GPIO backend: rpio, embd or sim"),
		trigger:  flags.Int("trigger", d.TriggerPin, "Trigger pin (BCM numbering)"),
		echo:     flags.Int("echo", d.EchoPin, "Echo pin (BCM numbering)"),
		pulldown: flags.Bool("pulldown", d.PullDown, "Enable the pull-down on the echo line"),
		timeout:  flags.Duration("timeout", time.Duration(d.TimeoutMS)*time.Millisecond, "Bound on each echo edge wait"),
		samples:  flags.Int("samples", d.Samples, "Measurements per batch"),
		interval: flags.Duration("interval", time.Duration(d.SampleIntervalMS)*time.Millisecond, "Pause after every measurement"),
		period:   flags.Duration("period", time.Duration(d.PeriodMS)*time.Millisecond, "Pause between batches"),
		addr:     flags.String("addr", d.Addr, "Metrics listen address"),
		logdir:   flags.String("logdir", d.LogDir, "Log directory"),
		debug:    flags.Bool("debug", d.Debug, "Log every measurement attempt"),
	}
}

// wholeMS converts a flag duration to the millisecond fields of the
// settings file, refusing anything the file could not hold.
func wholeMS(name string, d time.Duration) (int, error) {
	if d%time.Millisecond != 0 {
		return 0, fmt.Errorf("-%s %v: must be a whole number of milliseconds", name, d)
	}
	return int(d / time.Millisecond), nil
}

// overlay copies the flags given on the command line into s; flags left at
// their default do not override the settings file.
func (c cmdline) overlay(flags *flag.FlagSet, s *settings) error {
	var err error
	keep := func(e error) {
		if e != nil && err == nil {
			err = e
		}
	}
	flags.Visit(func(f *flag.Flag) {
		var e error
		switch f.Name {
		case "backend":
			s.Backend = *c.backend
		case "trigger":
			s.TriggerPin = *c.trigger
		case "echo":
			s.EchoPin = *c.echo
		case "pulldown":
			s.PullDown = *c.pulldown
		case "timeout":
			s.TimeoutMS, e = wholeMS(f.Name, *c.timeout)
		case "samples":
			s.Samples = *c.samples
		case "interval":
			s.SampleIntervalMS, e = wholeMS(f.Name, *c.interval)
		case "period":
			s.PeriodMS, e = wholeMS(f.Name, *c.period)
		case "addr":
			s.Addr = *c.addr
		case "logdir":
			s.LogDir = *c.logdir
		case "debug":
			s.Debug = *c.debug
		}
		keep(e)
	})
	return err
}

func loadSettings(path string, flags *flag.FlagSet, c cmdline) (settings, error) {
	s := defaultSettings()
	if err := readSettings(path, &s); err != nil {
		return s, err
	}
	if err := c.overlay(flags, &s); err != nil {
		return s, err
	}
	return s, s.validate()
}
