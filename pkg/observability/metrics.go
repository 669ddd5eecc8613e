package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the Prometheus collectors used by agents, the benchmark
// driver and the docs verifier. All methods are safe on a nil receiver so
// components can run without metrics.
type Metrics struct {
	registry prometheus.Gatherer

	// Agent metrics
	envelopesProcessed *prometheus.CounterVec
	handlerErrors      *prometheus.CounterVec
	loopTicks          *prometheus.CounterVec
	inboxDepth         *prometheus.GaugeVec

	// Benchmark metrics
	benchmarkDuration *prometheus.HistogramVec

	// Docs metrics
	docBlocksExecuted *prometheus.CounterVec
	docChecks         *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	initOnce       sync.Once
)

// InitMetrics registers the default collectors on the global Prometheus
// registry and returns them. Subsequent calls return the same instance.
func InitMetrics() *Metrics {
	initOnce.Do(func() {
		defaultMetrics = newMetrics(prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	})
	return defaultMetrics
}

// NewMetrics creates collectors registered on a private registry.
// Tests use this to avoid duplicate registration on the global one.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	return newMetrics(reg, reg)
}

func newMetrics(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		registry: gatherer,
		envelopesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devkit_agent_envelopes_processed_total",
				Help: "Total number of envelopes taken from agent inboxes",
			},
			[]string{"agent"},
		),
		handlerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devkit_agent_handler_errors_total",
				Help: "Total number of handler errors",
			},
			[]string{"agent", "skill", "handler"},
		),
		loopTicks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devkit_agent_loop_ticks_total",
				Help: "Total number of agent loop iterations",
			},
			[]string{"agent"},
		),
		inboxDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "devkit_agent_inbox_depth",
				Help: "Number of envelopes waiting in an agent inbox",
			},
			[]string{"agent"},
		),
		benchmarkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "devkit_benchmark_duration_seconds",
				Help:    "Wall-clock duration of a benchmark case",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
			},
			[]string{"case"},
		),
		docBlocksExecuted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devkit_doc_blocks_executed_total",
				Help: "Total number of documentation code blocks executed",
			},
			[]string{"status"},
		),
		docChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "devkit_doc_checks_total",
				Help: "Total number of documentation checks by outcome",
			},
			[]string{"check", "status"},
		),
	}

	reg.MustRegister(
		m.envelopesProcessed,
		m.handlerErrors,
		m.loopTicks,
		m.inboxDepth,
		m.benchmarkDuration,
		m.docBlocksExecuted,
		m.docChecks,
	)
	return m
}

// Gatherer returns the registry the collectors are registered on.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.DefaultGatherer
	}
	return m.registry
}

// Handler returns an HTTP handler exposing the collectors.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordEnvelope counts one envelope processed by agent.
func (m *Metrics) RecordEnvelope(agent string) {
	if m == nil {
		return
	}
	m.envelopesProcessed.WithLabelValues(agent).Inc()
}

// RecordHandlerError counts a failed handler invocation.
func (m *Metrics) RecordHandlerError(agent, skill, handler string) {
	if m == nil {
		return
	}
	m.handlerErrors.WithLabelValues(agent, skill, handler).Inc()
}

// RecordTick counts one loop iteration.
func (m *Metrics) RecordTick(agent string) {
	if m == nil {
		return
	}
	m.loopTicks.WithLabelValues(agent).Inc()
}

// SetInboxDepth sets the inbox depth gauge.
func (m *Metrics) SetInboxDepth(agent string, depth int) {
	if m == nil {
		return
	}
	m.inboxDepth.WithLabelValues(agent).Set(float64(depth))
}

// ObserveBenchmark records the duration of a benchmark case.
func (m *Metrics) ObserveBenchmark(name string, d time.Duration) {
	if m == nil {
		return
	}
	m.benchmarkDuration.WithLabelValues(name).Observe(d.Seconds())
}

// RecordDocBlock counts an executed documentation block ("ok" or "error").
func (m *Metrics) RecordDocBlock(status string) {
	if m == nil {
		return
	}
	m.docBlocksExecuted.WithLabelValues(status).Inc()
}

// RecordDocCheck counts a documentation check outcome.
func (m *Metrics) RecordDocCheck(check, status string) {
	if m == nil {
		return
	}
	m.docChecks.WithLabelValues(check, status).Inc()
}
