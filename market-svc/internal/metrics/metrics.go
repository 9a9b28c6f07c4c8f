// Package metrics holds the Prometheus collectors for the marketplace service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "market",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	OrdersCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "market",
		Subsystem: "ledger",
		Name:      "orders_created_total",
		Help:      "Orders persisted, including those whose fan-out later failed.",
	})

	StatusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "market",
			Subsystem: "ledger",
			Name:      "status_transitions_total",
			Help:      "Order status transitions by target status and outcome.",
		},
		[]string{"status", "outcome"},
	)

	FanoutFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "market",
		Subsystem: "ledger",
		Name:      "fanout_failures_total",
		Help:      "Order creations whose index fan-out exhausted its retries.",
	})

	IndexRepairs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "market",
			Subsystem: "reconciler",
			Name:      "repairs_total",
			Help:      "Index entries and counters restored by reconciliation.",
		},
		[]string{"kind"},
	)
)

var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	Registry.MustRegister(RequestDuration, OrdersCreated, StatusTransitions, FanoutFailures, IndexRepairs)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request latency labelled by the matched route template.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		RequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}
