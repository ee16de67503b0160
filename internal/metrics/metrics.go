package metrics

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ErlanBelekov/gallerio/internal/health"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Auth metrics

	AuthOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gallerio",
		Name:      "auth_operations_total",
		Help:      "Authentication operations, by operation and outcome.",
	}, []string{"operation", "outcome"})

	EmailsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gallerio",
		Name:      "emails_total",
		Help:      "Outbound emails, by delivery outcome.",
	}, []string{"outcome"})

	// Reaper metrics

	ResetCodesSweptTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gallerio",
		Name:      "reset_codes_swept_total",
		Help:      "Expired password reset codes cleared by the reaper.",
	})

	SweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "gallerio",
		Name:      "reset_code_sweep_duration_seconds",
		Help:      "Time taken for one reset code sweep.",
		Buckets:   prometheus.DefBuckets,
	})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gallerio",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gallerio",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		AuthOperationsTotal,
		EmailsTotal,
		ResetCodesSweptTotal,
		SweepDuration,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

// ObserveAuth counts one auth operation outcome.
func ObserveAuth(operation, outcome string) {
	AuthOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// NewServer serves /metrics plus liveness and readiness probes.
func NewServer(addr string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", probe(checker.Liveness))
	mux.HandleFunc("/readyz", probe(checker.Readiness))
	return &http.Server{Addr: addr, Handler: mux}
}

func probe(check func(context.Context) health.HealthResult) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := check(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if result.Status != "up" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(result)
	}
}
