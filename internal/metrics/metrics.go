package metrics

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ModelBuilds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "starling_model_builds_total",
		Help: "Total model builds",
	}, []string{"model"})
	ModelBuildDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "starling_model_build_duration_seconds",
		Help:    "Model build duration seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})
	Recommendations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "starling_recommendations_total",
		Help: "Total recommendation queries served",
	}, []string{"kind"})
	RecommendationErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "starling_recommendation_errors_total",
		Help: "Total recommendation queries that failed",
	}, []string{"kind", "reason"})
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "starling_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"route", "status"})
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "starling_http_request_duration_seconds",
		Help:    "HTTP request duration seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "starling_command_runs_total",
		Help: "Total CLI command runs",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "starling_command_errors_total",
		Help: "Total CLI command failures",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(ModelBuilds, ModelBuildDuration, Recommendations, RecommendationErrors,
		HTTPRequests, HTTPDuration, CommandRuns, CommandErrors)
}

// Handler exposes the default registry.
func Handler() http.Handler { return promhttp.Handler() }

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, mux) }()
}

// ObserveModelBuild counts a build and records its duration.
func ObserveModelBuild(model string, start time.Time) {
	ModelBuilds.WithLabelValues(model).Inc()
	ModelBuildDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())
}

func IncRecommendation(kind string) { Recommendations.WithLabelValues(kind).Inc() }

func IncRecommendationError(kind, reason string) {
	RecommendationErrors.WithLabelValues(kind, reason).Inc()
}

// ObserveHTTP records a finished request.
func ObserveHTTP(route string, status int, start time.Time) {
	HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
}

func IncCommandRun(cmd string)   { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }
