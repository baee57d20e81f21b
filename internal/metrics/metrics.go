// Package metrics exposes Prometheus collectors for the HTTP API and the
// readiness pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "air_jarvis"

// Metrics methods are safe to call on a nil receiver.
type Metrics struct {
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	analyses        *prometheus.CounterVec
	readinessScore  prometheus.Histogram
	alerts          *prometheus.CounterVec
}

// MustNewMetrics registers the collectors with reg and panics on a
// registration conflict. Tests should pass a fresh registry.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by route and status code.",
			},
			[]string{"route", "code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency by route.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "errors_total",
				Help:      "Error responses by application error code.",
			},
			[]string{"code"},
		),
		analyses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "readiness",
				Name:      "analyses_total",
				Help:      "Readiness analysis requests by outcome (cached, computed, failed).",
			},
			[]string{"result"},
		),
		readinessScore: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "readiness",
				Name:      "score",
				Help:      "Distribution of freshly computed readiness scores.",
				Buckets:   prometheus.LinearBuckets(10, 10, 10),
			},
		),
		alerts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "alerts",
				Name:      "sent_total",
				Help:      "Telegram messages sent by kind and status.",
			},
			[]string{"kind", "status"},
		),
	}
	reg.MustRegister(m.requests, m.requestDuration, m.errors, m.analyses, m.readinessScore, m.alerts)
	return m
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) IncError(code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(code).Inc()
}

// ObserveAnalysis counts an analysis outcome; computed scores also feed the
// score histogram.
func (m *Metrics) ObserveAnalysis(result string, score float64) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(result).Inc()
	if result == "computed" {
		m.readinessScore.Observe(score)
	}
}

func (m *Metrics) IncAlert(kind string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.alerts.WithLabelValues(kind, status).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
