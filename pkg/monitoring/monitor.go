package monitoring

import (
	"strconv"
	"sync"
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
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 学习状态变更次数（按操作）
	StateMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "h2ala_state_mutations_total",
			Help: "Number of learner state mutations",
		},
		[]string{"op", "result"},
	)

	SnapshotSaveDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "h2ala_snapshot_save_seconds",
			Help:    "Duration of snapshot writes to the state slot",
			Buckets: prometheus.DefBuckets,
		},
	)

	SnapshotSaveFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "h2ala_snapshot_save_failures_total",
			Help: "Number of failed snapshot writes",
		},
	)

	InboxConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "h2ala_inbox_connections",
			Help: "Number of open student inbox websockets",
		},
	)

	AIRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "h2ala_ai_requests_total",
			Help: "Calls to the AI backend",
		},
		[]string{"kind", "result"},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			StateMutations,
			SnapshotSaveDuration,
			SnapshotSaveFailures,
			InboxConnections,
			AIRequests,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
