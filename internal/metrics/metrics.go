// Package metrics defines the Prometheus collectors of the gateway.  All
// collectors live on a private registry owned by Metrics, so tests can build
// as many instances as they like.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/cinema-booking-gateway/internal/querycache"
)

type Metrics struct {
	reg *prometheus.Registry

	seatToggles     *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	payments        *prometheus.CounterVec
	expiryRefetches prometheus.Counter
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	ticketStreams   prometheus.Gauge
}

// New registers every collector plus the Go runtime collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		seatToggles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_seat_toggles_total",
			Help: "Seat toggle requests by result (changed, ignored)",
		}, []string{"result"}),
		submissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_booking_submissions_total",
			Help: "Booking submissions by outcome",
		}, []string{"outcome"}),
		payments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_payments_total",
			Help: "Payment confirmations by status (ok, error)",
		}, []string{"status"}),
		expiryRefetches: f.NewCounter(prometheus.CounterOpts{
			Name: "gateway_expiry_refetches_total",
			Help: "Bookings refetches triggered by newly expired unpaid tickets",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_http_requests_total",
			Help: "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"method", "route"}),
		ticketStreams: f.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_ticket_streams",
			Help: "Connected ticket list event streams",
		}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) SeatToggled(changed bool) {
	if changed {
		m.seatToggles.WithLabelValues("changed").Inc()
		return
	}
	m.seatToggles.WithLabelValues("ignored").Inc()
}

func (m *Metrics) Submission(outcome string) { m.submissions.WithLabelValues(outcome).Inc() }

func (m *Metrics) Payment(err error) {
	if err != nil {
		m.payments.WithLabelValues("error").Inc()
		return
	}
	m.payments.WithLabelValues("ok").Inc()
}

func (m *Metrics) ExpiryRefetch() { m.expiryRefetches.Inc() }

// StreamOpened and StreamClosed track SSE ticket streams.
func (m *Metrics) StreamOpened() { m.ticketStreams.Inc() }
func (m *Metrics) StreamClosed() { m.ticketStreams.Dec() }

// HTTPRequest records one served request.  route is the echo route pattern,
// never the raw path, to keep label cardinality bounded.
func (m *Metrics) HTTPRequest(method, route string, status int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveCache exports the query cache counters.  stats is read at scrape
// time.
func (m *Metrics) ObserveCache(stats func() querycache.Stats) {
	counter := func(name, help string, pick func(querycache.Stats) uint64) {
		m.reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: name,
			Help: help,
		}, func() float64 { return float64(pick(stats())) }))
	}
	counter("gateway_query_cache_hits_total", "Query cache hits", func(s querycache.Stats) uint64 { return s.Hits })
	counter("gateway_query_cache_misses_total", "Query cache misses", func(s querycache.Stats) uint64 { return s.Misses })
	counter("gateway_query_cache_shared_total", "Callers that joined an in-flight fetch", func(s querycache.Stats) uint64 { return s.Shared })
	counter("gateway_query_cache_timeouts_total", "Callers that gave up after the pending timeout", func(s querycache.Stats) uint64 { return s.Timeouts })
	counter("gateway_query_cache_errors_total", "Failed fetches", func(s querycache.Stats) uint64 { return s.Errors })
}

// ObserveGauge exports an arbitrary value read at scrape time, such as the
// clock subscriber count or the number of in-flight fetches.
func (m *Metrics) ObserveGauge(name, help string, read func() float64) {
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, read))
}
