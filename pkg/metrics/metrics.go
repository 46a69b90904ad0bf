// Package metrics exposes Prometheus instrumentation for session handling:
// load and commit counters, store failures, the in-memory store size and
// per-request HTTP metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lzztt/session-minimal/pkg/session"
)

const namespace = "session"

// Collector implements session.Observer.
type Collector struct {
	loads        *prometheus.CounterVec
	commits      *prometheus.CounterVec
	failures     *prometheus.CounterVec
	storeEntries prometheus.Gauge

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
}

var _ session.Observer = (*Collector)(nil)

// New registers the collectors with reg. Passing a fresh registry per
// Collector keeps tests independent; production code passes
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		loads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Sessions attached to requests.",
		}, []string{"result"}), // result = "found", "new"
		commits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_total",
			Help:      "Session commits by outcome.",
		}, []string{"action"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Failed store and cookie operations.",
		}, []string{"op"}),
		storeEntries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_store_entries",
			Help:      "Records held by the in-memory store.",
		}),
		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Tracks the number of HTTP requests.",
		}, []string{"method", "code"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Tracks the latencies for HTTP requests.",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
		}, []string{"method", "code"}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Requests currently being served.",
		}),
	}
}

func (c *Collector) Loaded(found bool) {
	result := "new"
	if found {
		result = "found"
	}
	c.loads.WithLabelValues(result).Inc()
}

func (c *Collector) Committed(action session.Action) {
	c.commits.WithLabelValues(string(action)).Inc()
}

func (c *Collector) Failed(op string, _ error) {
	c.failures.WithLabelValues(op).Inc()
}

// StoreSize matches the store.WithOnChange callback.
func (c *Collector) StoreSize(n int) {
	c.storeEntries.Set(float64(n))
}

// Middleware records request count, latency and in-flight requests.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	h := promhttp.InstrumentHandlerInFlight(c.inFlight, next)
	h = promhttp.InstrumentHandlerDuration(c.requestDuration, h)
	return promhttp.InstrumentHandlerCounter(c.requestsTotal, h)
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
