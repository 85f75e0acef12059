/*
	Copyright (c) 2026 The rangefinder authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	gpio.go: Pin level abstraction shared by the rpio, embd and simulated backends.
*/

// Package gpio provides the two-line digital I/O capability an ultrasonic
// ranging module needs: one output (trigger) and one input (echo), plus the
// clock used to timestamp edges.
package gpio

import (
	"errors"
	"fmt"
	"time"
)

// Pin is a BCM GPIO number.
type Pin int

// Level is the logic state of a line.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "high"
	}
	return "low"
}

// Pull selects the bias resistor of an input line.
type Pull int

const (
	PullNone Pull = iota
	PullDown
)

// Device is the hardware capability a ranging sensor is driven through.
// Setup claims the lines, Release deconfigures whatever was claimed and is
// safe to call more than once.
type Device interface {
	Setup(trigger, echo Pin, pull Pull) error
	SetOutput(pin Pin, level Level)
	ReadInput(pin Pin) Level
	Now() time.Time
	Sleep(d time.Duration)
	Release() error
}

var (
	ErrAlreadySetup  = errors.New("gpio: lines already set up")
	ErrUnknownDevice = errors.New("gpio: unknown backend")
)

// Open returns an unclaimed device for the named backend.
func Open(backend string) (Device, error) {
	switch backend {
	case "rpio", "":
		return NewRPIO(), nil
	case "embd":
		return NewEMBD(), nil
	case "sim":
		return NewSim(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDevice, backend)
}

// spinThreshold is the longest wait done by spinning on the clock instead of
// calling time.Sleep, whose granularity is far above the microsecond pulses
// the sensor needs.
const spinThreshold = 100 * time.Microsecond

func hostSleep(d time.Duration) {
	if d <= 0 {
		return
	}
	if d >= spinThreshold {
		time.Sleep(d)
		return
	}
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
	}
}
