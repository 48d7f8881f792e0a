package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeEditor/internal/api/middleware"
	"resumeEditor/internal/config"
	"resumeEditor/internal/metrics"
)

// NewRouter 构建 Gin 路由引擎并挂载通用中间件、健康检查与指标端点。
func NewRouter(cfg config.APIConfig, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	router := gin.New()
	router.Use(
		middleware.CorrelationIDMiddleware(),
		middleware.SlogLoggerMiddleware(logger),
		metrics.GinMiddleware(),
		middleware.Recovery(),
		middleware.BodyLimit(cfg.BodyLimitBytes),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", middleware.InternalSecretMiddleware(cfg.MetricsSecret), metrics.Handler())

	return router
}
