package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Credential metrics

	LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "identity",
		Name:      "logins_total",
		Help:      "Total login attempts, by outcome.",
	}, []string{"outcome"})

	OtpIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "identity",
		Name:      "otp_issued_total",
		Help:      "Total one-time codes issued, by purpose.",
	}, []string{"purpose"})

	OtpVerificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "identity",
		Name:      "otp_verifications_total",
		Help:      "Total one-time code verifications, by outcome.",
	}, []string{"outcome"})

	RecoveryRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "identity",
		Name:      "recovery_requests_total",
		Help:      "Total password recovery links issued.",
	})

	PasswordResetsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "identity",
		Name:      "password_resets_total",
		Help:      "Total successful password resets via recovery link.",
	})

	// Invite metrics

	InvitesCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "identity",
		Name:      "invites_created_total",
		Help:      "Total invites created.",
	})

	InvitesResolvedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "identity",
		Name:      "invites_resolved_total",
		Help:      "Total invites moved to a terminal status.",
	}, []string{"status"})

	// Housekeeping metrics

	HousekeepingDeletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "identity",
		Name:      "housekeeping_deleted_total",
		Help:      "Total rows removed by the housekeeping sweeper, by table.",
	}, []string{"table"})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "identity",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "identity",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		LoginsTotal,
		OtpIssuedTotal,
		OtpVerificationsTotal,
		RecoveryRequestsTotal,
		PasswordResetsTotal,
		InvitesCreatedTotal,
		InvitesResolvedTotal,
		HousekeepingDeletedTotal,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

// Handler serves the prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency, labelled by the matched
// route pattern rather than the raw URL so cardinality stays bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		path := r.Pattern
		if path == "" {
			path = "unknown"
		}
		status := strconv.Itoa(rec.status)
		duration := time.Since(start).Seconds()

		HTTPRequestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
		HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
	})
}
