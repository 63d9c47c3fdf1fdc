package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics are the server's Prometheus collectors, registered on their own
// registry so tests can build servers side by side.
type Metrics struct {
	Registry *prometheus.Registry

	requests    *prometheus.CounterVec
	writes      *prometheus.CounterVec
	reportCache *prometheus.CounterVec
	rateLimited prometheus.Counter
}

func newMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drivertrack",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drivertrack",
			Name:      "store_writes_total",
			Help:      "Record writes by kind and result (ok, invalid, not_persisted).",
		}, []string{"kind", "result"}),
		reportCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "drivertrack",
			Name:      "report_cache_lookups_total",
			Help:      "Yearly report cache lookups by result (hit, miss).",
		}, []string{"result"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "drivertrack",
			Name:      "rate_limited_total",
			Help:      "Write requests refused by the rate limiter.",
		}),
	}
	reg.MustRegister(
		m.requests, m.writes, m.reportCache, m.rateLimited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}
