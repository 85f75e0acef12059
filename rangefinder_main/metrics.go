package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/b3nn0/rangefinder/sensors"
	"github.com/prometheus/client_golang/prometheus"
)

// Initialize Prometheus metrics.
var (
	distanceGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rangefinder_distance_meters",
		Help: "Median of the last successful batch.",
	})

	validSamples = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rangefinder_valid_samples",
		Help: "Valid measurements in the last batch.",
	})

	measurementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rangefinder_measurements_total",
			Help: "Single measurement attempts by result.",
		},
		[]string{"result"},
	)

	batchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rangefinder_batches_total",
			Help: "Sampling batches by result.",
		},
		[]string{"result"},
	)

	cpuTempGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rangefinder_cpu_temp",
		Help: "Current CPU temp.",
	})

	totalUptime = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rangefinder_uptime_seconds",
		Help: "Total uptime.",
	})
)

var registerOnce sync.Once

func registerMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(distanceGauge)
		prometheus.MustRegister(validSamples)
		prometheus.MustRegister(measurementsTotal)
		prometheus.MustRegister(batchesTotal)
		prometheus.MustRegister(cpuTempGauge)
		prometheus.MustRegister(totalUptime)
	})
}

func updateStats(ctx context.Context) {
	updateTicker := time.NewTicker(1 * time.Second)
	defer updateTicker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updateTicker.C:
			totalUptime.Inc()
		}
	}
}

// metricsObserver feeds the sensor callbacks into the collectors above.
type metricsObserver struct{}

func measurementResult(err error) string {
	var te *sensors.EdgeTimeoutError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &te) && te.Edge == sensors.RisingEdge:
		return "rising_timeout"
	case errors.As(err, &te):
		return "falling_timeout"
	}
	return "invalid"
}

func (metricsObserver) OnMeasurement(d sensors.Distance, err error) {
	result := measurementResult(err)
	measurementsTotal.WithLabelValues(result).Inc()
	if err != nil {
		logDbg("measurement failed: %s\n", err.Error())
	} else {
		logDbg("measured %s\n", d)
	}
}

func (metricsObserver) OnBatch(b sensors.Batch, median sensors.Distance, ok bool) {
	validSamples.Set(float64(len(b.Values)))
	if !ok {
		batchesTotal.WithLabelValues("exhausted").Inc()
		return
	}
	batchesTotal.WithLabelValues("ok").Inc()
	distanceGauge.Set(median.Meters())
}
