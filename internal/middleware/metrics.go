package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	leadEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtivo_lead_events_total",
			Help: "Lead mutations by kind",
		},
		[]string{"event"},
	)

	logins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtivo_logins_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)
)

// routeLabel prefers the chi route pattern so ids do not explode the label set.
func routeLabel(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// Metrics records request counts and latencies.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newStatusRecorder(w)

		next.ServeHTTP(rec, r)

		route := routeLabel(r)
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// RecordLeadEvent counts a lead mutation such as "created" or "note_added".
func RecordLeadEvent(event string) {
	leadEvents.WithLabelValues(event).Inc()
}

// RecordLogin counts a login attempt; result is "success", "failure" or "error".
func RecordLogin(result string) {
	logins.WithLabelValues(result).Inc()
}
