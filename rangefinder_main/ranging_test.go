package main

import (
	"bytes"
	"context"
	"log"
	"testing"
	"time"

	"github.com/b3nn0/rangefinder/gpio"
	"github.com/b3nn0/rangefinder/sensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	d  sensors.Distance
	ok bool
}

type scriptedSampler struct {
	results []result
}

func (s *scriptedSampler) SampleContext(ctx context.Context) (sensors.Distance, bool) {
	if len(s.results) == 0 {
		return 0, false
	}
	r := s.results[0]
	s.results = s.results[1:]
	return r.d, r.ok
}

func newTestRanger(sampler batchSampler) (*ranger, *bytes.Buffer) {
	var buf bytes.Buffer
	s := defaultSettings()
	s.PeriodMS = 100
	s.MaxBackoffMS = 1000
	r := newRanger(sampler, s)
	r.out = log.New(&buf, "", 0)
	clock := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return r, &buf
}

func TestRangerLogsCentimeters(t *testing.T) {
	r, out := newTestRanger(&scriptedSampler{results: []result{{0.1025, true}}})

	wait := r.step(context.Background())
	assert.Equal(t, 100*time.Millisecond, wait)
	assert.Equal(t, "10.25 cm\n", out.String())
}

func TestRangerBacksOffWhileUnavailable(t *testing.T) {
	r, out := newTestRanger(&scriptedSampler{results: []result{
		{0.5, true},
		{}, {}, {}, {}, {}, {}, {},
		{0.5, true},
	}})
	ctx := context.Background()

	var waits []time.Duration
	for i := 0; i < 9; i++ {
		waits = append(waits, r.step(ctx))
	}
	ms := time.Millisecond
	assert.Equal(t, []time.Duration{
		100 * ms,
		100 * ms, 100 * ms, 100 * ms, 200 * ms, 400 * ms, 800 * ms, 1000 * ms,
		100 * ms,
	}, waits)
	assert.Contains(t, out.String(), "no reading (last 50.00 cm 1 second ago)")
	assert.Zero(t, r.misses)
}

func TestRangerNeverValid(t *testing.T) {
	r, out := newTestRanger(&scriptedSampler{})
	r.step(context.Background())
	assert.Equal(t, "no reading\n", out.String())
}

func TestRangerStopsWithContext(t *testing.T) {
	r, _ := newTestRanger(&scriptedSampler{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Zero(t, r.step(ctx))

	done := make(chan struct{})
	go func() {
		r.run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run did not stop")
	}
}

func TestRangerWithSimulatedSensor(t *testing.T) {
	s := defaultSettings()
	s.Backend = "sim"
	dev, err := gpio.Open(s.Backend)
	require.NoError(t, err)
	sim := dev.(*gpio.Sim)
	sim.Default = &gpio.Echo{Delay: 100 * time.Microsecond, Width: 2 * time.Millisecond}

	rf, err := sensors.Open(dev, s.sensorConfig(), nil)
	require.NoError(t, err)
	defer rf.Close()

	r, out := newTestRanger(rf)
	r.step(context.Background())
	assert.Equal(t, "34.00 cm\n", out.String())
	assert.InDelta(t, 0.34, r.last.Meters(), 1e-9)
}
