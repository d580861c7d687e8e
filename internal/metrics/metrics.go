// Package metrics counts loader events with Prometheus collectors kept on a
// private registry.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kingrea/modload/internal/module"
)

// Failure reasons used for the modload_load_failures_total label.
const (
	ReasonExhausted = "exhausted"
	ReasonCompile   = "compile"
	ReasonExecution = "execution"
	ReasonCycle     = "cycle"
	ReasonOther     = "other"
)

// Metrics is a module.Observer that feeds load counters.
type Metrics struct {
	registry *prometheus.Registry

	recordsCreated  prometheus.Counter
	candidateMisses prometheus.Counter
	modulesReady    *prometheus.CounterVec
	loadFailures    *prometheus.CounterVec
	groupsDrained   prometheus.Counter
	groupEntries    prometheus.Histogram
}

// New registers the loader collectors plus the Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		recordsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modload_records_created_total",
			Help: "Number of module records created.",
		}),
		candidateMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modload_candidate_misses_total",
			Help: "Number of candidate locations that missed during resolution.",
		}),
		modulesReady: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modload_modules_ready_total",
			Help: "Number of modules that reached the ready state, by kind.",
		}, []string{"kind"}),
		loadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "modload_load_failures_total",
			Help: "Number of failed resolutions and executions, by reason.",
		}, []string{"reason"}),
		groupsDrained: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "modload_groups_drained_total",
			Help: "Number of groups drained.",
		}),
		groupEntries: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "modload_group_entries",
			Help:    "Entries per drained group.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}),
	}
	m.registry.MustRegister(
		m.recordsCreated,
		m.candidateMisses,
		m.modulesReady,
		m.loadFailures,
		m.groupsDrained,
		m.groupEntries,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Observe implements module.Observer.
func (m *Metrics) Observe(e module.Event) {
	switch e.Kind {
	case module.EventCreated:
		m.recordsCreated.Inc()
	case module.EventCandidateMiss:
		m.candidateMisses.Inc()
	case module.EventLoaded:
		// data modules are counted on their ready event
	case module.EventReady:
		kind := "code"
		if e.Data {
			kind = "data"
		}
		m.modulesReady.WithLabelValues(kind).Inc()
	case module.EventFailed, module.EventExecutionFailed:
		m.loadFailures.WithLabelValues(Reason(e.Err)).Inc()
	case module.EventGroupDrained:
		m.groupsDrained.Inc()
		m.groupEntries.Observe(float64(e.Count))
	}
}

// Reason classifies a load failure for the failures counter.
func Reason(err error) string {
	var compileErr *module.CompileError
	var execErr *module.ExecutionError
	switch {
	case err == nil:
		return ReasonOther
	case errors.Is(err, module.ErrCycle):
		return ReasonCycle
	case errors.As(err, &compileErr):
		return ReasonCompile
	case errors.As(err, &execErr):
		return ReasonExecution
	case errors.Is(err, module.ErrResolutionExhausted):
		return ReasonExhausted
	default:
		return ReasonOther
	}
}
