package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HttpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
	HttpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
	AuthOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_operations_total",
		Help: "Auth operations by operation and outcome",
	}, []string{"operation", "outcome"})
	NotifyEmailsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_emails_total",
		Help: "Outbound emails by driver and outcome",
	}, []string{"driver", "outcome"})
)

func init() {
	prometheus.MustRegister(HttpRequestsTotal, HttpRequestDuration, AuthOperationsTotal, NotifyEmailsTotal)
}

// Auth 记录一次认证操作，outcome 为 "ok" 或简短的失败原因。
func Auth(operation, outcome string) {
	AuthOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// Email 记录一次邮件发送结果。
func Email(driver string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	NotifyEmailsTotal.WithLabelValues(driver, outcome).Inc()
}

// GinMiddleware 统计基础请求指标，供 Prometheus 拉取。
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		labels := prometheus.Labels{"method": c.Request.Method, "path": path, "status": status}
		HttpRequestsTotal.With(labels).Inc()
		HttpRequestDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}
