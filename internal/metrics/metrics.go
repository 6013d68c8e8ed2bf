// Package metrics exposes Prometheus collectors for validation and call
// outcomes.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/broady/restcat"
)

const namespace = "restcat"

// Metrics holds the explorer's collectors.
type Metrics struct {
	validations  *prometheus.CounterVec
	violations   *prometheus.CounterVec
	calls        *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Requests prepared, by outcome",
		}, []string{"outcome"}), // ok, invalid
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations_total",
			Help:      "Parameter violations by code",
		}, []string{"code"}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Calls sent to the target API by classified outcome",
		}, []string{"outcome"}),
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Histogram of call round-trip time",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~41s
		}, []string{"method"}),
	}
	for _, c := range []prometheus.Collector{m.validations, m.violations, m.calls, m.callDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveValidation counts one prepare attempt and its violations.
func (m *Metrics) ObserveValidation(violations []restcat.Violation) {
	if m == nil {
		return
	}
	if len(violations) == 0 {
		m.validations.WithLabelValues("ok").Inc()
		return
	}
	m.validations.WithLabelValues("invalid").Inc()
	for _, v := range violations {
		m.violations.WithLabelValues(string(v.Code)).Inc()
	}
}

// ObserveCall records a call that produced a status.
func (m *Metrics) ObserveCall(method string, outcome restcat.Outcome, d time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(string(outcome)).Inc()
	m.callDuration.WithLabelValues(method).Observe(d.Seconds())
}

// ObserveCallError records a call that never produced a status.
func (m *Metrics) ObserveCallError(method string, d time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues("transport_error").Inc()
	m.callDuration.WithLabelValues(method).Observe(d.Seconds())
}
