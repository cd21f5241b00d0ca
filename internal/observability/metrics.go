// Package observability exposes the console's Prometheus metrics: HTTP traffic, REST
// API calls and record mutations, served from a private registry.
package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/backoffice-console/backoffice/internal/records"
)

var latencyBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// Metrics owns the console registry. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
	apiCalls     *prometheus.CounterVec
	apiLatency   *prometheus.HistogramVec
	mutations    *prometheus.CounterVec
}

// NewMetrics builds a registry with runtime collectors and the console series.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_http_requests_total",
			Help: "Console requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		httpLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backoffice_http_request_duration_seconds",
			Help:    "Console request latency by route.",
			Buckets: latencyBuckets,
		}, []string{"route"}),
		apiCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_api_calls_total",
			Help: "REST API calls by resource, method and outcome.",
		}, []string{"resource", "method", "outcome"}),
		apiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backoffice_api_call_duration_seconds",
			Help:    "REST API call latency by resource.",
			Buckets: latencyBuckets,
		}, []string{"resource"}),
		mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "backoffice_record_mutations_total",
			Help: "Record create, update and delete attempts by resource and outcome.",
		}, []string{"resource", "op", "outcome"}),
	}
}

// Handler serves the registry, or 503 on a nil *Metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware counts requests by chi route pattern so ids never become labels.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpLatency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveCall records one REST API call. It satisfies apiclient.Observer.
func (m *Metrics) ObserveCall(resource, method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.apiCalls.WithLabelValues(resource, method, outcome).Inc()
	m.apiLatency.WithLabelValues(resource).Observe(elapsed.Seconds())
}

// MutationHook counts record mutations by outcome.
func (m *Metrics) MutationHook() records.MutationHook {
	return records.MutationHookFunc(func(_ context.Context, mut records.Mutation) {
		if m == nil {
			return
		}
		outcome := "success"
		if mut.Err != nil {
			outcome = "failure"
		}
		m.mutations.WithLabelValues(mut.Resource, string(mut.Op), outcome).Inc()
	})
}
