// Package metrics exposes Prometheus counters for HTTP traffic and bulk runs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/listenupapp/bulkmeta/internal/domain"
)

const namespace = "bulkmeta"

// Metrics holds the collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	RunsTotal           *prometheus.CounterVec
	RowsTotal           *prometheus.CounterVec
	RunDuration         *prometheus.HistogramVec
	ContentUpdatedTotal *prometheus.CounterVec
	RewritesTotal       *prometheus.CounterVec
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"method", "route", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Bulk runs by tool and summary severity.",
			},
			[]string{"tool", "severity"},
		),

		RowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_total",
				Help:      "CSV rows processed by tool and outcome.",
			},
			[]string{"tool", "outcome"},
		),

		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of bulk runs.",
				Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"tool"},
		),

		ContentUpdatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "content_bodies_updated_total",
				Help:      "Content bodies rewritten by the alt-text tool.",
			},
			[]string{"tool"},
		),

		RewritesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "image_tag_rewrites_total",
				Help:      "Individual <img> tags whose alt attribute changed.",
			},
			[]string{"tool"},
		),
	}
}

// ObserveRun records a finished bulk run.
func (m *Metrics) ObserveRun(tool string, severity domain.Severity, c domain.RunCounts, d time.Duration) {
	m.RunsTotal.WithLabelValues(tool, string(severity)).Inc()
	m.RunDuration.WithLabelValues(tool).Observe(d.Seconds())

	outcomes := map[string]int{
		"updated":   c.Updated,
		"not_found": c.NotFound,
		"skipped":   c.Skipped,
		"warned":    c.Warned,
		"failed":    c.Failed,
	}
	for outcome, n := range outcomes {
		if n > 0 {
			m.RowsTotal.WithLabelValues(tool, outcome).Add(float64(n))
		}
	}
	if c.ContentUpdated > 0 {
		m.ContentUpdatedTotal.WithLabelValues(tool).Add(float64(c.ContentUpdated))
	}
	if c.Rewrites > 0 {
		m.RewritesTotal.WithLabelValues(tool).Add(float64(c.Rewrites))
	}
}

// ObserveRequest records one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
