package gtsam

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus.
type MetricsCollector interface {
	// RecordOptimize is called after each optimization run.
	// iterations is the number of accepted iterations, duration the wall
	// time of the whole run, err is nil on success.
	RecordOptimize(iterations int, duration time.Duration, err error)

	// RecordIteration is called once per solve attempt of a run, with the
	// damping factor used and whether the step was accepted.
	RecordIteration(lambda float64, accepted bool)

	// RecordMarginals is called after each marginal-covariance
	// computation.
	RecordMarginals(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordOptimize(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordIteration(float64, bool)            {}
func (NoopMetricsCollector) RecordMarginals(time.Duration, error)     {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	OptimizeCount      atomic.Int64
	OptimizeErrors     atomic.Int64
	OptimizeTotalNanos atomic.Int64
	IterationCount     atomic.Int64
	RejectedSteps      atomic.Int64
	MarginalsCount     atomic.Int64
	MarginalsErrors    atomic.Int64
}

// RecordOptimize implements MetricsCollector.
func (m *BasicMetricsCollector) RecordOptimize(iterations int, duration time.Duration, err error) {
	m.OptimizeCount.Add(1)
	m.OptimizeTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		m.OptimizeErrors.Add(1)
	}
}

// RecordIteration implements MetricsCollector.
func (m *BasicMetricsCollector) RecordIteration(lambda float64, accepted bool) {
	m.IterationCount.Add(1)
	if !accepted {
		m.RejectedSteps.Add(1)
	}
}

// RecordMarginals implements MetricsCollector.
func (m *BasicMetricsCollector) RecordMarginals(duration time.Duration, err error) {
	m.MarginalsCount.Add(1)
	if err != nil {
		m.MarginalsErrors.Add(1)
	}
}
