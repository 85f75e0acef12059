package main

import (
	"context"
	"log"
	"time"

	"github.com/b3nn0/rangefinder/sensors"
	"github.com/cenkalti/backoff/v4"
	humanize "github.com/dustin/go-humanize"
)

// Consecutive exhausted batches before the loop starts backing off.
const missesBeforeBackoff = 3

type batchSampler interface {
	SampleContext(ctx context.Context) (sensors.Distance, bool)
}

// ranger runs the sampling loop: one batch per period, logged in
// centimeters. While the sensor keeps failing the period grows
// exponentially up to maxBackoff.
type ranger struct {
	sampler   batchSampler
	period    time.Duration
	batchTime time.Duration // upper bound for one batch
	backoff   *backoff.ExponentialBackOff
	out       *log.Logger
	now       func() time.Time

	misses    int
	lastValid time.Time
	last      sensors.Distance
}

func newRanger(sampler batchSampler, s settings) *ranger {
	period := time.Duration(s.PeriodMS) * time.Millisecond
	cfg := s.sensorConfig()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = period
	if b.InitialInterval <= 0 {
		b.InitialInterval = time.Millisecond
	}
	b.MaxInterval = time.Duration(s.MaxBackoffMS) * time.Millisecond
	b.MaxElapsedTime = 0
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.Reset()

	return &ranger{
		sampler:   sampler,
		period:    period,
		batchTime: time.Duration(cfg.Samples) * (2*cfg.Timeout + cfg.SampleInterval + cfg.TriggerPulse),
		backoff:   b,
		out:       stdlog,
		now:       time.Now,
	}
}

// step samples one batch and returns the pause before the next one.
func (r *ranger) step(ctx context.Context) time.Duration {
	// A batch that overruns its worst case is reported as no reading.
	bctx, cancel := context.WithTimeout(ctx, r.batchTime+time.Second)
	defer cancel()
	d, ok := r.sampler.SampleContext(bctx)
	if ctx.Err() != nil {
		return 0
	}

	if ok {
		if r.misses >= missesBeforeBackoff {
			log.Printf("sensor back after %d failed batches\n", r.misses)
		}
		r.misses = 0
		r.lastValid = r.now()
		r.last = d
		r.backoff.Reset()
		r.out.Printf("%.2f cm\n", d.Centimeters())
		return r.period
	}

	r.misses++
	if r.lastValid.IsZero() {
		r.out.Println("no reading")
	} else {
		r.out.Printf("no reading (last %s %s)\n", r.last, humanize.RelTime(r.lastValid, r.now(), "ago", "from now"))
	}
	if r.misses < missesBeforeBackoff {
		return r.period
	}
	if r.misses == missesBeforeBackoff {
		log.Printf("sensor unavailable: %d batches without a reading\n", r.misses)
	}
	return r.backoff.NextBackOff()
}

func (r *ranger) run(ctx context.Context) {
	for {
		wait := r.step(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}
