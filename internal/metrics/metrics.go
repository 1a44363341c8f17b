package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	drivesStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "svcdeck",
			Subsystem: "drive",
			Name:      "started_total",
			Help:      "Number of drive operations issued, by action.",
		}, []string{"action"},
	)
	drivesReached = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "svcdeck",
			Subsystem: "drive",
			Name:      "reached_total",
			Help:      "Number of drive operations that reached their target state.",
		}, []string{"action"},
	)
	driveTimeouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "svcdeck",
			Subsystem: "drive",
			Name:      "timeouts_total",
			Help:      "Number of drive operations that exhausted the poll bound.",
		}, []string{"action"},
	)
	driveFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "svcdeck",
			Subsystem: "drive",
			Name:      "failures_total",
			Help:      "Number of drive operations whose control call failed.",
		}, []string{"action"},
	)
	snapshotDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "svcdeck",
			Subsystem: "snapshot",
			Name:      "duration_seconds",
			Help:      "Time to enumerate and refresh all services for a full snapshot.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	knownServices = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "svcdeck",
			Subsystem: "snapshot",
			Name:      "services",
			Help:      "Number of services in the last full snapshot.",
		},
	)
	refreshSweeps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "svcdeck",
			Subsystem: "refresh",
			Name:      "sweeps_total",
			Help:      "Number of completed background refresh sweeps.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{drivesStarted, drivesReached, driveTimeouts, driveFailures, snapshotDuration, knownServices, refreshSweeps}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
// The caller is responsible for starting an HTTP server and wiring the route.
func Handler() http.Handler { return promhttp.Handler() }

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func IncDriveStarted(action string) {
	if regOK.Load() {
		drivesStarted.WithLabelValues(action).Inc()
	}
}

func IncDriveReached(action string) {
	if regOK.Load() {
		drivesReached.WithLabelValues(action).Inc()
	}
}

func IncDriveTimeout(action string) {
	if regOK.Load() {
		driveTimeouts.WithLabelValues(action).Inc()
	}
}

func IncDriveFailure(action string) {
	if regOK.Load() {
		driveFailures.WithLabelValues(action).Inc()
	}
}

func ObserveSnapshot(seconds float64, services int) {
	if regOK.Load() {
		snapshotDuration.Observe(seconds)
		knownServices.Set(float64(services))
	}
}

func IncRefreshSweep() {
	if regOK.Load() {
		refreshSweeps.Inc()
	}
}
