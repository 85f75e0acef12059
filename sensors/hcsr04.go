package sensors

import (
	"errors"
	"fmt"
	"time"

	"github.com/b3nn0/rangefinder/gpio"
)

// ErrNoReading is wrapped by every failed measurement attempt.
var ErrNoReading = errors.New("no reading")

// Edge names the echo transition a measurement was waiting for.
type Edge int

const (
	RisingEdge Edge = iota
	FallingEdge
)

func (e Edge) String() string {
	if e == RisingEdge {
		return "rising"
	}
	return "falling"
}

// EdgeTimeoutError is returned when the echo line did not change within the
// timeout. A rising edge timeout means the sensor never answered; a falling
// edge timeout means the echo line stayed high.
type EdgeTimeoutError struct {
	Edge    Edge
	Timeout time.Duration
}

func (e *EdgeTimeoutError) Error() string {
	return fmt.Sprintf("no %s echo edge within %s", e.Edge, e.Timeout)
}

func (e *EdgeTimeoutError) Unwrap() error { return ErrNoReading }

// HCSR04 times single trigger/echo cycles of an HC-SR04 class module.
//
// Datasheet: https://cdn.sparkfun.com/datasheets/Sensors/Proximity/HCSR04.pdf
type HCSR04 struct {
	dev gpio.Device
	cfg Config
}

// NewHCSR04 wraps lines that are already set up.
func NewHCSR04(dev gpio.Device, cfg Config) *HCSR04 {
	return &HCSR04{dev: dev, cfg: cfg}
}

// Measure runs one ranging cycle. Each of the two edge waits is bounded by
// timeout on its own, so the call never blocks for much more than twice
// timeout plus the trigger pulse.
func (h *HCSR04) Measure(timeout time.Duration) (Distance, error) {
	dev, trig := h.dev, h.cfg.TriggerPin

	dev.SetOutput(trig, gpio.Low)
	dev.Sleep(h.cfg.TriggerLow)
	dev.SetOutput(trig, gpio.High)
	dev.Sleep(h.cfg.TriggerPulse)
	dev.SetOutput(trig, gpio.Low)

	start := dev.Now()
	if !h.waitFor(gpio.High, start, timeout) {
		return 0, &EdgeTimeoutError{Edge: RisingEdge, Timeout: timeout}
	}
	t1 := dev.Now()
	if !h.waitFor(gpio.Low, t1, timeout) {
		return 0, &EdgeTimeoutError{Edge: FallingEdge, Timeout: timeout}
	}
	t2 := dev.Now()

	d, ok := PulseDistance(t2.Sub(t1), h.cfg.SpeedOfSound)
	if !ok {
		return 0, fmt.Errorf("echo pulse of %s: %w", t2.Sub(t1), ErrNoReading)
	}
	return d, nil
}

// MeasureOnce is Measure with every failure folded into ok == false.
func (h *HCSR04) MeasureOnce(timeout time.Duration) (d Distance, ok bool) {
	d, err := h.Measure(timeout)
	return d, err == nil
}

func (h *HCSR04) waitFor(level gpio.Level, since time.Time, timeout time.Duration) bool {
	for h.dev.ReadInput(h.cfg.EchoPin) != level {
		if h.dev.Now().Sub(since) > timeout {
			return false
		}
		if h.cfg.PollInterval > 0 {
			h.dev.Sleep(h.cfg.PollInterval)
		}
	}
	return true
}
