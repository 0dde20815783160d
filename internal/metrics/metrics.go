// Package metrics exposes Prometheus instrumentation for the ingest
// pipeline, hybrid retriever, agent loop, and HTTP surface. Grounded on
// pkg/observability/metrics.go's registry-per-process /
// counter-vec-per-concern shape, scoped down to this repo's own
// subsystems.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every counter/histogram/gauge this repo records. A nil
// *Metrics is valid and every Record*/Set* method no-ops on it, so
// instrumentation can be wired unconditionally and only actually
// collect when Enabled.
type Metrics struct {
	registry *prometheus.Registry

	jobsClaimed     *prometheus.CounterVec
	jobsCompleted   prometheus.Counter
	jobsRetried     prometheus.Counter
	jobsFailed      prometheus.Counter
	jobDuration     *prometheus.HistogramVec
	jobsActive      prometheus.Gauge

	retrievalLatency  *prometheus.HistogramVec
	retrievalResults  *prometheus.HistogramVec

	agentIterations prometheus.Histogram
	agentToolCalls  *prometheus.CounterVec
	agentTurns      *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New builds a Metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.jobsClaimed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "footnote",
		Subsystem: "job",
		Name:      "claimed_total",
		Help:      "Total number of indexing jobs claimed by a worker.",
	}, []string{"mime_kind"})

	m.jobsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "footnote", Subsystem: "job", Name: "completed_total",
		Help: "Total number of indexing jobs that completed successfully.",
	})
	m.jobsRetried = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "footnote", Subsystem: "job", Name: "retried_total",
		Help: "Total number of indexing jobs requeued after a transient failure.",
	})
	m.jobsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "footnote", Subsystem: "job", Name: "failed_total",
		Help: "Total number of indexing jobs moved to the dead-letter table.",
	})
	m.jobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "footnote", Subsystem: "job", Name: "duration_seconds",
		Help:    "Per-file ingest pipeline duration in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
	}, []string{"outcome"})
	m.jobsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "footnote", Subsystem: "job", Name: "active",
		Help: "Number of ingest jobs currently running in this worker.",
	})

	m.retrievalLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "footnote", Subsystem: "retrieve", Name: "latency_seconds",
		Help:    "Hybrid retrieval latency in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"stage"})
	m.retrievalResults = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "footnote", Subsystem: "retrieve", Name: "results_count",
		Help:    "Number of chunks a retrieval call returned.",
		Buckets: prometheus.LinearBuckets(0, 5, 10),
	}, []string{"stage"})

	m.agentIterations = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "footnote", Subsystem: "agent", Name: "iterations",
		Help:    "Number of loop iterations an agentic chat turn took.",
		Buckets: prometheus.LinearBuckets(1, 1, 10),
	})
	m.agentToolCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "footnote", Subsystem: "agent", Name: "tool_calls_total",
		Help: "Total number of tool calls the agent loop executed.",
	}, []string{"tool"})
	m.agentTurns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "footnote", Subsystem: "agent", Name: "turns_total",
		Help: "Total number of chat turns run, by mode.",
	}, []string{"mode"})

	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "footnote", Subsystem: "http", Name: "requests_total",
		Help: "Total number of HTTP requests, by route and status class.",
	}, []string{"route", "status"})
	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "footnote", Subsystem: "http", Name: "request_duration_seconds",
		Help:    "HTTP request duration in seconds, by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	m.registry.MustRegister(
		m.jobsClaimed, m.jobsCompleted, m.jobsRetried, m.jobsFailed, m.jobDuration, m.jobsActive,
		m.retrievalLatency, m.retrievalResults,
		m.agentIterations, m.agentToolCalls, m.agentTurns,
		m.httpRequests, m.httpDuration,
	)
	return m
}

func (m *Metrics) RecordJobClaimed(mimeKind string) {
	if m == nil {
		return
	}
	m.jobsClaimed.WithLabelValues(mimeKind).Inc()
}

func (m *Metrics) RecordJobOutcome(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	switch outcome {
	case "completed":
		m.jobsCompleted.Inc()
	case "retried":
		m.jobsRetried.Inc()
	case "failed":
		m.jobsFailed.Inc()
	}
	m.jobDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (m *Metrics) IncJobsActive() {
	if m == nil {
		return
	}
	m.jobsActive.Inc()
}

func (m *Metrics) DecJobsActive() {
	if m == nil {
		return
	}
	m.jobsActive.Dec()
}

func (m *Metrics) RecordRetrieval(stage string, duration time.Duration, resultCount int) {
	if m == nil {
		return
	}
	m.retrievalLatency.WithLabelValues(stage).Observe(duration.Seconds())
	m.retrievalResults.WithLabelValues(stage).Observe(float64(resultCount))
}

func (m *Metrics) RecordAgentTurn(mode string, iterations int) {
	if m == nil {
		return
	}
	m.agentTurns.WithLabelValues(mode).Inc()
	if mode == "agentic" {
		m.agentIterations.Observe(float64(iterations))
	}
}

func (m *Metrics) RecordAgentToolCall(tool string) {
	if m == nil {
		return
	}
	m.agentToolCalls.WithLabelValues(tool).Inc()
}

func (m *Metrics) RecordHTTPRequest(route, statusClass string, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, statusClass).Inc()
	m.httpDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// Handler serves the Prometheus exposition format over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
