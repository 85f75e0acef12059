package sensors

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/b3nn0/rangefinder/gpio"
)

// ErrBatchExhausted is returned when no attempt of a batch produced a reading.
var ErrBatchExhausted = errors.New("every sample of the batch failed")

// ErrClosed is returned by Read once the sensor lines have been released.
var ErrClosed = fmt.Errorf("sensor closed: %w", ErrNoReading)

// Batch is the outcome of one sampling call.
type Batch struct {
	Values          []Distance // valid readings in acquisition order
	Attempts        int
	RisingTimeouts  int
	FallingTimeouts int
}

// Failures is the number of attempts that produced no reading.
func (b Batch) Failures() int {
	return b.Attempts - len(b.Values)
}

// Observer is told about every attempt and every finished batch.
type Observer interface {
	OnMeasurement(d Distance, err error)
	OnBatch(b Batch, median Distance, ok bool)
}

// Sampler turns repeated single measurements into one median estimate.
// Batches are serialized: one pulse in flight per physical sensor.
type Sampler struct {
	mu       sync.Mutex
	sensor   *HCSR04
	dev      gpio.Device
	cfg      Config
	observer Observer
	closed   bool // lines released; guarded by mu
}

func NewSampler(sensor *HCSR04, observer Observer) *Sampler {
	return &Sampler{sensor: sensor, dev: sensor.dev, cfg: sensor.cfg, observer: observer}
}

// Collect runs count attempts and pauses interval after each of them,
// successful or not. A closed sampler returns an empty batch without
// touching the lines.
func (s *Sampler) Collect(count int, interval, timeout time.Duration) Batch {
	b, _ := s.collect(count, interval, timeout)
	return b
}

func (s *Sampler) collect(count int, interval, timeout time.Duration) (Batch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Batch{}, false
	}
	if count < 0 {
		count = 0
	}
	b := Batch{Values: make([]Distance, 0, count)}
	for i := 0; i < count; i++ {
		d, err := s.sensor.Measure(timeout)
		b.Attempts++
		var te *EdgeTimeoutError
		switch {
		case err == nil:
			b.Values = append(b.Values, d)
		case errors.As(err, &te) && te.Edge == RisingEdge:
			b.RisingTimeouts++
		case errors.As(err, &te):
			b.FallingTimeouts++
		}
		if s.observer != nil {
			s.observer.OnMeasurement(d, err)
		}
		s.dev.Sleep(interval)
	}
	return b, true
}

// SampleDistance returns the median of the valid readings out of count
// attempts, or false when all of them failed.
func (s *Sampler) SampleDistance(count int, interval, timeout time.Duration) (Distance, bool) {
	d, ok, _ := s.sampleDistance(count, interval, timeout)
	return d, ok
}

func (s *Sampler) sampleDistance(count int, interval, timeout time.Duration) (Distance, bool, bool) {
	b, open := s.collect(count, interval, timeout)
	if !open {
		return 0, false, false
	}
	d, ok := Median(b.Values)
	if s.observer != nil {
		s.observer.OnBatch(b, d, ok)
	}
	return d, ok, true
}

// Sample is SampleDistance with the configured count, interval and timeout.
func (s *Sampler) Sample() (Distance, bool) {
	return s.SampleDistance(s.cfg.Samples, s.cfg.SampleInterval, s.cfg.Timeout)
}

// Read is Sample reporting an exhausted batch as ErrBatchExhausted and a
// released sensor as ErrClosed.
func (s *Sampler) Read() (Distance, error) {
	d, ok, open := s.sampleDistance(s.cfg.Samples, s.cfg.SampleInterval, s.cfg.Timeout)
	if !open {
		return 0, ErrClosed
	}
	if !ok {
		return 0, ErrBatchExhausted
	}
	return d, nil
}

// SampleContext races Sample against ctx. A cutoff counts as no reading;
// the abandoned batch still owns the sensor until it finishes, so the next
// call waits for it.
func (s *Sampler) SampleContext(ctx context.Context) (Distance, bool) {
	type result struct {
		d  Distance
		ok bool
	}
	done := make(chan result, 1)
	go func() {
		d, ok := s.Sample()
		done <- result{d, ok}
	}()
	select {
	case r := <-done:
		return r.d, r.ok
	case <-ctx.Done():
		return 0, false
	}
}

// Median of values; an even count averages the two middle values. The
// input is not reordered.
func Median(values []Distance) (Distance, bool) {
	n := len(values)
	if n == 0 {
		return 0, false
	}
	sorted := make([]float64, n)
	for i, v := range values {
		sorted[i] = float64(v)
	}
	sort.Float64s(sorted)
	if n%2 == 1 {
		return Distance(sorted[n/2]), true
	}
	return Distance((sorted[n/2-1] + sorted[n/2]) / 2), true
}
