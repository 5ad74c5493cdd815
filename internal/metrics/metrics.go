// Package metrics exposes Prometheus metrics for the API and the payout pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snakepill_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snakepill_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snakepill_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Eligibility reconciler
	EligibilityRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snakepill_eligibility_runs_total",
			Help: "Total number of eligibility reconciliation runs",
		},
		[]string{"status"}, // "success", "error", "skipped"
	)

	EligibilityRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "snakepill_eligibility_run_duration_seconds",
			Help:    "Duration of eligibility reconciliation runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~17m
		},
	)

	EligibilityChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snakepill_eligibility_checks_total",
			Help: "Total number of per-wallet eligibility checks",
		},
		[]string{"outcome"}, // "eligible", "removed", "unchanged", "error"
	)

	EligibleWallets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snakepill_eligible_wallets",
			Help: "Number of wallets found eligible by the last reconciliation run",
		},
	)

	// Tax distributor
	DistributionRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snakepill_distribution_runs_total",
			Help: "Total number of tax distribution runs",
		},
		[]string{"outcome"}, // "completed", "insufficient_balance", "no_recipients", "too_small", "error"
	)

	PaymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snakepill_payments_total",
			Help: "Total number of SOL transfers attempted",
		},
		[]string{"status"},
	)

	DistributedSOLTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snakepill_distributed_sol_total",
			Help: "Total SOL paid out to eligible wallets",
		},
	)

	DBConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "snakepill_db_connections",
			Help: "PostgreSQL pool connections by state",
		},
		[]string{"state"},
	)
)

// Middleware returns a chi middleware that records HTTP metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		// Route pattern keeps wallet addresses out of the label set.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// RecordPayment records the outcome of one transfer.
func RecordPayment(err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	PaymentsTotal.WithLabelValues(status).Inc()
}
