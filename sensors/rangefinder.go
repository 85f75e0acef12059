// Package sensors provides the ranging interface to an ultrasonic
// time-of-flight module wired to two GPIO lines.
package sensors

import (
	"fmt"
	"sync"

	"github.com/b3nn0/rangefinder/gpio"
)

// RangeReader provides an interface to a distance sensor.
type RangeReader interface {
	Distance() (Distance, error) // Distance returns a batch median, or ErrBatchExhausted.
	Close() error                // Close releases the sensor lines.
}

// Rangefinder owns the lines of one sensor for its whole lifetime.
type Rangefinder struct {
	*Sampler
	Sensor *HCSR04

	dev       gpio.Device
	closeOnce sync.Once
	closeErr  error
}

// Open validates cfg, claims the lines and waits for them to settle.
func Open(dev gpio.Device, cfg Config, observer Observer) (*Rangefinder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := dev.Setup(cfg.TriggerPin, cfg.EchoPin, cfg.pull()); err != nil {
		// Release whatever a failed Setup left claimed.
		dev.Release()
		return nil, fmt.Errorf("claim lines (trigger %d, echo %d): %w", cfg.TriggerPin, cfg.EchoPin, err)
	}
	dev.Sleep(cfg.SettleDelay)

	sensor := NewHCSR04(dev, cfg)
	return &Rangefinder{
		Sampler: NewSampler(sensor, observer),
		Sensor:  sensor,
		dev:     dev,
	}, nil
}

func (r *Rangefinder) Distance() (Distance, error) {
	return r.Read()
}

// Close waits for a batch in flight, then releases the lines. Later calls
// return the first result; sampling after Close reports no reading.
func (r *Rangefinder) Close() error {
	r.closeOnce.Do(func() {
		r.Sampler.mu.Lock()
		defer r.Sampler.mu.Unlock()
		r.Sampler.closed = true
		r.closeErr = r.dev.Release()
	})
	return r.closeErr
}

// Config returns the profile the sensor was opened with.
func (r *Rangefinder) Config() Config {
	return r.Sensor.cfg
}

var _ RangeReader = (*Rangefinder)(nil)
