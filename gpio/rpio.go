/*
	Copyright (c) 2026 The rangefinder authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	rpio.go: Memory mapped Raspberry Pi GPIO backend.
*/

package gpio

import (
	"fmt"
	"sync"
	"time"

	"github.com/stianeikeland/go-rpio/v4"
)

// RPIO drives the lines through /dev/gpiomem.
type RPIO struct {
	mu      sync.Mutex
	open    bool
	trigger rpio.Pin
	echo    rpio.Pin
}

func NewRPIO() *RPIO {
	return &RPIO{}
}

func (r *RPIO) Setup(trigger, echo Pin, pull Pull) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.open {
		return ErrAlreadySetup
	}
	if err := rpio.Open(); err != nil {
		return fmt.Errorf("rpio open: %w", err)
	}
	r.open = true

	r.trigger = rpio.Pin(trigger)
	r.trigger.Output()
	r.trigger.Low()

	r.echo = rpio.Pin(echo)
	r.echo.Input()
	if pull == PullDown {
		r.echo.PullDown()
	} else {
		r.echo.PullOff()
	}
	return nil
}

func (r *RPIO) SetOutput(pin Pin, level Level) {
	p := rpio.Pin(pin)
	if level {
		p.High()
	} else {
		p.Low()
	}
}

func (r *RPIO) ReadInput(pin Pin) Level {
	return rpio.Pin(pin).Read() == rpio.High
}

func (r *RPIO) Now() time.Time {
	return time.Now()
}

func (r *RPIO) Sleep(d time.Duration) {
	hostSleep(d)
}

// Release leaves the trigger low, returns both lines to floating inputs and
// unmaps the GPIO memory.
func (r *RPIO) Release() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return nil
	}
	r.trigger.Low()
	r.trigger.Input()
	r.echo.PullOff()
	r.echo.Input()
	r.open = false
	return rpio.Close()
}
