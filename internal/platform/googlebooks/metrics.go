package googlebooks

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	cacheHits prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookcrew",
			Subsystem: "googlebooks",
			Name:      "requests_total",
			Help:      "Provider requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bookcrew",
			Subsystem: "googlebooks",
			Name:      "request_duration_seconds",
			Help:      "Provider request latency including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bookcrew",
			Subsystem: "googlebooks",
			Name:      "cache_hits_total",
			Help:      "Responses served from the short-term cache.",
		}),
	}
	reg.MustRegister(m.requests, m.latency, m.cacheHits)
	return m
}

func (m *metrics) observe(endpoint string, err error, elapsed time.Duration) {
	outcome := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	m.requests.WithLabelValues(endpoint, outcome).Inc()
	m.latency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}
