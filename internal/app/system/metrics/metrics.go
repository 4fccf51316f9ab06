// Package metrics exposes Prometheus counters for HTTP traffic and the
// membership flows.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors registered for one process.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec

	InvitesSent     prometheus.Counter
	InvitesAccepted prometheus.Counter
	InviteEmailFail prometheus.Counter
	Transfers       prometheus.Counter
	TransferRetries prometheus.Counter
	Registrations   prometheus.Counter
	Logins          *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowbase",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "flowbase",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		InvitesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flowbase", Subsystem: "workspace", Name: "invites_sent_total",
			Help: "Workspace invitations created.",
		}),
		InvitesAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flowbase", Subsystem: "workspace", Name: "invites_accepted_total",
			Help: "Workspace invitations accepted.",
		}),
		InviteEmailFail: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flowbase", Subsystem: "workspace", Name: "invite_email_failures_total",
			Help: "Invitations persisted whose email could not be delivered.",
		}),
		Transfers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flowbase", Subsystem: "workspace", Name: "ownership_transfers_total",
			Help: "Completed ownership transfers.",
		}),
		TransferRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flowbase", Subsystem: "workspace", Name: "ownership_transfer_retries_total",
			Help: "Transfers retried after a concurrent membership change.",
		}),
		Registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "flowbase", Subsystem: "auth", Name: "registrations_total",
			Help: "Accounts registered.",
		}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowbase", Subsystem: "auth", Name: "logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		m.requests, m.duration,
		m.InvitesSent, m.InvitesAccepted, m.InviteEmailFail,
		m.Transfers, m.TransferRetries,
		m.Registrations, m.Logins,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency by chi route pattern.
// Unmatched routes are reported as "unmatched" to bound label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
