package prometheus

import (
	"errors"
	"fmt"

	"github.com/abczzz13/forwarded"
	prom "github.com/prometheus/client_golang/prometheus"
)

const (
	sourcesAppliedMetric   = "forwarded_sources_applied_total"
	addressesDroppedMetric = "forwarded_addresses_dropped_total"
	anomaliesMetric        = "forwarded_anomalies_total"
)

// PrometheusMetrics is a Prometheus-backed implementation of
// forwarded.Metrics.
type PrometheusMetrics struct {
	sourcesApplied   *prom.CounterVec
	addressesDropped *prom.CounterVec
	anomalies        *prom.CounterVec
}

// WithMetrics returns a forwarded option that installs Prometheus-backed
// metrics using prom.DefaultRegisterer.
func WithMetrics() forwarded.Option {
	return withMetricsFactory(New)
}

// WithRegisterer returns a forwarded option that installs Prometheus-backed
// metrics using the provided registerer.
//
// If registerer is nil, prom.DefaultRegisterer is used.
func WithRegisterer(registerer prom.Registerer) forwarded.Option {
	return withMetricsFactory(func() (*PrometheusMetrics, error) {
		return NewWithRegisterer(registerer)
	})
}

// withMetricsFactory adapts a PrometheusMetrics constructor into a lazy
// forwarded.Option.
func withMetricsFactory(factory func() (*PrometheusMetrics, error)) forwarded.Option {
	return forwarded.WithMetricsFactory(func() (forwarded.Metrics, error) {
		metrics, err := factory()
		if err != nil {
			return nil, err
		}
		return metrics, nil
	})
}

// New creates PrometheusMetrics and registers its collectors on
// prom.DefaultRegisterer.
func New() (*PrometheusMetrics, error) {
	return NewWithRegisterer(prom.DefaultRegisterer)
}

// NewWithRegisterer creates PrometheusMetrics and registers its collectors on
// the given registerer.
//
// If registerer is nil, prom.DefaultRegisterer is used. If the metrics are
// already registered, existing compatible collectors are reused.
func NewWithRegisterer(registerer prom.Registerer) (*PrometheusMetrics, error) {
	if registerer == nil {
		registerer = prom.DefaultRegisterer
	}

	sourcesApplied, err := registerCounterVec(registerer, prom.NewCounterVec(
		prom.CounterOpts{
			Name: sourcesAppliedMetric,
			Help: "Reconciliations a forwarding source contributed to, by source (schema name or forwarded).",
		},
		[]string{"source"},
	), sourcesAppliedMetric)
	if err != nil {
		return nil, err
	}

	addressesDropped, err := registerCounterVec(registerer, prom.NewCounterVec(
		prom.CounterOpts{
			Name: addressesDroppedMetric,
			Help: "Addresses removed from results by the filter policy, by reason (filter, private).",
		},
		[]string{"reason"},
	), addressesDroppedMetric)
	if err != nil {
		return nil, err
	}

	anomalies, err := registerCounterVec(registerer, prom.NewCounterVec(
		prom.CounterOpts{
			Name: anomaliesMetric,
			Help: "Malformed input absorbed during reconciliation, labeled by event.",
		},
		[]string{"event"},
	), anomaliesMetric)
	if err != nil {
		return nil, err
	}

	return &PrometheusMetrics{
		sourcesApplied:   sourcesApplied,
		addressesDropped: addressesDropped,
		anomalies:        anomalies,
	}, nil
}

func registerCounterVec(registerer prom.Registerer, collector *prom.CounterVec, metricName string) (*prom.CounterVec, error) {
	if err := registerer.Register(collector); err != nil {
		var alreadyRegistered prom.AlreadyRegisteredError
		if errors.As(err, &alreadyRegistered) {
			existing, ok := alreadyRegistered.ExistingCollector.(*prom.CounterVec)
			if ok {
				return existing, nil
			}
			return nil, fmt.Errorf("metric %q already registered with incompatible collector type %T", metricName, alreadyRegistered.ExistingCollector)
		}

		return nil, fmt.Errorf("register metric %q: %w", metricName, err)
	}

	return collector, nil
}

// RecordSourceApplied increments forwarded_sources_applied_total for the
// provided source.
func (m *PrometheusMetrics) RecordSourceApplied(source string) {
	m.sourcesApplied.WithLabelValues(source).Inc()
}

// RecordAddressDropped increments forwarded_addresses_dropped_total for the
// provided reason.
func (m *PrometheusMetrics) RecordAddressDropped(reason string) {
	m.addressesDropped.WithLabelValues(reason).Inc()
}

// RecordAnomaly increments forwarded_anomalies_total for the provided event.
func (m *PrometheusMetrics) RecordAnomaly(event string) {
	m.anomalies.WithLabelValues(event).Inc()
}
