package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// ReviewSessionsCompleted 复习会话完结计数，label: completed_success / completed_fail
	ReviewSessionsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_sessions_completed_total",
			Help: "Completed review sessions by terminal status",
		},
		[]string{"status"},
	)

	// SnapshotRuns 快照任务轮次计数，label: success / partial / error
	SnapshotRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapshot_runs_total",
			Help: "Snapshot job runs by aggregate result",
		},
		[]string{"result"},
	)

	// LLMRequests AI调用计数，kind: judge / generate / extract / chat，outcome: ok / error / fallback
	LLMRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "LLM calls by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(ReviewSessionsCompleted)
	prometheus.MustRegister(SnapshotRuns)
	prometheus.MustRegister(LLMRequests)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
