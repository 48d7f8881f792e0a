package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "REST 请求耗时（秒），不含 WebSocket 会话。",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route", "code"},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "REST 请求次数。",
		},
		[]string{"method", "route", "code"},
	)

	wsUpgrades = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "websocket_connections_total",
			Help:      "编辑器 WebSocket 连接次数，按路由区分。",
		},
		[]string{"route"},
	)
)

// GinMiddleware 采集 REST 请求指标。
// 未匹配的路由记为 "unmatched"；/metrics 自身不计入。
// WebSocket 会话持续时间与请求耗时不可比，只计连接次数，会话数量见 editor.sessions_active。
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "/metrics" {
			c.Next()
			return
		}
		if route == "" {
			route = "unmatched"
		}
		if c.IsWebsocket() {
			wsUpgrades.WithLabelValues(route).Inc()
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		code := strconv.Itoa(c.Writer.Status())
		httpSeconds.WithLabelValues(c.Request.Method, route, code).Observe(time.Since(start).Seconds())
		httpRequests.WithLabelValues(c.Request.Method, route, code).Inc()
	}
}

// Handler 暴露默认注册表。
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
