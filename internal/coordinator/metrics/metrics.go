// Package metrics exposes the coordinator's Prometheus instrumentation.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TokensIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "caseflow_tokens_issued_total",
		Help: "Access tokens issued, by grant type.",
	}, []string{"grant_type"})

	ProcessesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caseflow_processes_started_total",
		Help: "Process instances started.",
	})

	ProcessesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caseflow_processes_completed_total",
		Help: "Process instances completed.",
	})

	TasksClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caseflow_tasks_claimed_total",
		Help: "Tasks claimed.",
	})

	TasksCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "caseflow_tasks_completed_total",
		Help: "Tasks completed.",
	})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "caseflow_http_request_duration_seconds",
		Help:    "HTTP request latency, by method, route pattern, and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Handler serves the /metrics scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HTTPMiddleware records request latency. The matched mux pattern, not the
// raw path, becomes the route label so cardinality stays bounded.
func HTTPMiddleware(mux *http.ServeMux) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			_, route := mux.Handler(r)
			if route == "" {
				route = "unmatched"
			}
			httpDuration.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).
				Observe(time.Since(start).Seconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
