package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const requestLoggerKey = "requestLogger"

// 这些路径由探针与抓取器高频访问，只在 debug 级别记录。
var quietPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// SlogLoggerMiddleware 为每个请求派生带 correlation_id 的 logger，并在结束时按状态码选择级别输出访问日志。
// WebSocket 连接在会话结束时才会走到这里，latency 即会话时长。
func SlogLoggerMiddleware(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		reqLog := base.With(
			slog.String("correlation_id", GetCorrelationID(c)),
			slog.String("method", c.Request.Method),
			slog.String("route", route),
		)
		c.Set(requestLoggerKey, reqLog)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		}
		if userID := c.GetString(UserIDKey); userID != "" {
			attrs = append(attrs, slog.String("user_id", userID))
		}
		if c.IsWebsocket() {
			attrs = append(attrs, slog.Bool("websocket", true))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}

		reqLog.Log(c.Request.Context(), accessLevel(route, status), "request completed", attrs...)
	}
}

func accessLevel(route string, status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest && status != http.StatusNotFound:
		return slog.LevelWarn
	}
	if _, ok := quietPaths[route]; ok {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// LoggerFromContext 返回当前请求的 logger；中间件未挂载时退回 slog.Default()。
func LoggerFromContext(c *gin.Context) *slog.Logger {
	if l, ok := c.Value(requestLoggerKey).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}
