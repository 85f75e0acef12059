/*
	Copyright (c) 2026 The rangefinder authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	embd.go: sysfs GPIO backend through kidoman/embd.
*/

package gpio

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/rpi"
)

// EMBD drives the lines through the embd host drivers. It is slower than
// RPIO but does not need access to /dev/gpiomem.
type EMBD struct {
	ioErrors atomic.Uint64
	mu       sync.Mutex
	open     bool
	trigger  embd.DigitalPin
	echo     embd.DigitalPin
}

func NewEMBD() *EMBD {
	return &EMBD{}
}

func (e *EMBD) Setup(trigger, echo Pin, pull Pull) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.open {
		return ErrAlreadySetup
	}
	if err = embd.InitGPIO(); err != nil {
		return fmt.Errorf("embd init: %w", err)
	}
	e.open = true
	defer func() {
		if err != nil {
			e.releaseLocked()
		}
	}()

	if e.trigger, err = embd.NewDigitalPin(int(trigger)); err != nil {
		return fmt.Errorf("trigger pin %d: %w", trigger, err)
	}
	if err = e.trigger.SetDirection(embd.Out); err != nil {
		return fmt.Errorf("trigger pin %d: %w", trigger, err)
	}
	if err = e.trigger.Write(embd.Low); err != nil {
		return fmt.Errorf("trigger pin %d: %w", trigger, err)
	}

	if e.echo, err = embd.NewDigitalPin(int(echo)); err != nil {
		return fmt.Errorf("echo pin %d: %w", echo, err)
	}
	if err = e.echo.SetDirection(embd.In); err != nil {
		return fmt.Errorf("echo pin %d: %w", echo, err)
	}
	if pull == PullDown {
		if err = e.echo.PullDown(); err != nil {
			return fmt.Errorf("echo pin %d pull-down: %w", echo, err)
		}
	}
	return nil
}

func (e *EMBD) pin(p Pin) embd.DigitalPin {
	if e.trigger != nil && e.trigger.N() == int(p) {
		return e.trigger
	}
	if e.echo != nil && e.echo.N() == int(p) {
		return e.echo
	}
	return nil
}

func (e *EMBD) SetOutput(pin Pin, level Level) {
	dp := e.pin(pin)
	if dp == nil {
		return
	}
	v := embd.Low
	if level {
		v = embd.High
	}
	if dp.Write(v) != nil {
		e.ioErrors.Add(1)
	}
}

// ReadInput reports Low when the read fails so a broken line looks like a
// sensor that never answers.
func (e *EMBD) ReadInput(pin Pin) Level {
	dp := e.pin(pin)
	if dp == nil {
		return Low
	}
	v, err := dp.Read()
	if err != nil {
		e.ioErrors.Add(1)
		return Low
	}
	return v == embd.High
}

// IOErrors counts failed line reads and writes.
func (e *EMBD) IOErrors() uint64 {
	return e.ioErrors.Load()
}

func (e *EMBD) Now() time.Time {
	return time.Now()
}

func (e *EMBD) Sleep(d time.Duration) {
	hostSleep(d)
}

func (e *EMBD) Release() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.open {
		return nil
	}
	return e.releaseLocked()
}

func (e *EMBD) releaseLocked() error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if e.trigger != nil {
		keep(e.trigger.Write(embd.Low))
		keep(e.trigger.SetDirection(embd.In))
		keep(e.trigger.Close())
		e.trigger = nil
	}
	if e.echo != nil {
		keep(e.echo.Close())
		e.echo = nil
	}
	keep(embd.CloseGPIO())
	e.open = false
	return first
}
