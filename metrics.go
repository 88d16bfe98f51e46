package gqlgremlin

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Invocation outcomes, the "outcome" label of the invocation counter.
const (
	OutcomeSuccess          = "success"
	OutcomeFailure          = "failure"
	OutcomeResolverNotFound = "resolver_not_found"
	OutcomeInternalError    = "internal_error"
)

// unknownLabel stands for the type and field of invocations without a
// registered resolver.
const unknownLabel = "unknown"

type metrics struct {
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// newMetrics registers the handler metrics on reg. A nil reg yields
// unregistered collectors. Collectors already registered on reg by another
// handler are reused.
func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gqlgremlin_resolver_invocations_total",
				Help: "Total number of resolver invocations",
			},
			[]string{"type", "field", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "gqlgremlin_resolver_duration_seconds",
				Help: "Duration of resolver invocations in seconds, graph round trips included",
				// From in-memory graphs to remote clusters under load.
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"type", "field"},
		),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	if m.invocations, err = register(reg, m.invocations); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, fmt.Errorf("failed to register metrics: %w", err)
}

func (m *metrics) observe(typeName, fieldName, outcome string, elapsed time.Duration) {
	m.invocations.WithLabelValues(typeName, fieldName, outcome).Inc()
	m.duration.WithLabelValues(typeName, fieldName).Observe(elapsed.Seconds())
}
