package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "matapang",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	// SubmissionTransitions counts submission status changes.
	SubmissionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matapang",
		Name:      "submission_transitions_total",
		Help:      "Submission status transitions by resulting status.",
	}, []string{"status"})

	// ApprovalDecisions counts approval decisions by level and outcome.
	ApprovalDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matapang",
		Name:      "approval_decisions_total",
		Help:      "Approval decisions recorded, by decision.",
	}, []string{"decision"})

	// FormSaves counts builder saves by outcome (saved, rejected).
	FormSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matapang",
		Name:      "form_saves_total",
		Help:      "Form builder save attempts by outcome.",
	}, []string{"outcome"})

	// ApproverLookups counts approver directory lookups by result (hit, miss, error).
	ApproverLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matapang",
		Name:      "approver_lookups_total",
		Help:      "Approver directory lookups by result.",
	}, []string{"result"})

	// NotifyClients tracks connected websocket clients.
	NotifyClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "matapang",
		Name:      "notify_clients",
		Help:      "Connected notification websocket clients.",
	})
)

// Handler exposes the Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RegisterMetricsEndpoint exposes Prometheus metrics on /metrics for gin engines.
func RegisterMetricsEndpoint(router *gin.Engine) {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Instrument records request latency labelled with the chi route pattern.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}
