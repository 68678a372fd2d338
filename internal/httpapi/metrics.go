package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles Prometheus collectors for the monitor. Live state
// (pending correlations, history depths, buffered rows) is sampled at
// scrape time through GaugeFuncs registered from Probes.
type Metrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	sseClients      prometheus.Gauge
	rateLimited     prometheus.Counter
	eventsTotal     *prometheus.CounterVec
	matricesTotal   *prometheus.CounterVec
	storeErrors     prometheus.Counter
}

func newMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "soopcast",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests received",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "soopcast",
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request durations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		sseClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "soopcast",
			Name:      "sse_clients",
			Help:      "Current connected SSE clients",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "soopcast",
			Name:      "http_rate_limited_total",
			Help:      "Number of HTTP requests rejected due to rate limiting",
		}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "soopcast",
			Name:      "events_dispatched_total",
			Help:      "Domain events dispatched to addons, by kind",
		}, []string{"kind"}),
		matricesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "soopcast",
			Name:      "stats_matrices_total",
			Help:      "Stats matrices emitted, by kind",
		}, []string{"kind"}),
		storeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "soopcast",
			Name:      "store_errors_total",
			Help:      "Number of store write errors reported",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.sseClients,
		m.rateLimited,
		m.eventsTotal,
		m.matricesTotal,
		m.storeErrors,
	)

	return m
}

// registerProbes exposes the live-state samplers as gauges. Nil probe
// fields are skipped.
func (m *Metrics) registerProbes(p Probes) {
	gauge := func(name, help string, fn func() int) {
		if fn == nil {
			return
		}
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "soopcast",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(fn()) }))
	}

	gauge("pending_donations", "Donations waiting inside the correlation window", p.PendingDonations)
	gauge("chat_history_len", "Enriched chats held in the stats window", p.ChatHistory)
	gauge("donation_history_len", "Enriched donations held in the stats window", p.DonationHistory)
	gauge("buffered_log_rows", "Log rows waiting for a batch write", p.BufferedRows)
	gauge("registered_addons", "Addons currently registered", p.Addons)
}

// Handler returns an HTTP handler exposing the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records timing and status information.
func (m *Metrics) ObserveRequest(route, method string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(dur.Seconds())
}

// IncSSEClients adjusts the SSE client gauge by delta.
func (m *Metrics) IncSSEClients(delta float64) {
	if m == nil {
		return
	}
	m.sseClients.Add(delta)
}

// IncRateLimited increments the rate limit counter.
func (m *Metrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

// IncEventsDispatched increments the dispatch counter for an event kind.
func (m *Metrics) IncEventsDispatched(kind string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(kind).Inc()
}

// IncMatricesEmitted increments the matrix counter for a matrix kind.
func (m *Metrics) IncMatricesEmitted(kind string) {
	if m == nil {
		return
	}
	m.matricesTotal.WithLabelValues(kind).Inc()
}

// IncStoreErrors increments the store write error counter.
func (m *Metrics) IncStoreErrors() {
	if m == nil {
		return
	}
	m.storeErrors.Inc()
}
