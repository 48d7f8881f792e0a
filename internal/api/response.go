package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeEditor/internal/ai"
	"resumeEditor/internal/api/middleware"
	"resumeEditor/internal/resume"
	"resumeEditor/internal/resumes"
)

const (
	msgUnauthenticated = "User not authenticated"
	msgResumeNotFound  = "Resume not found"
	msgGeneric         = "Something went wrong. Please try again."
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msgUnauthenticated})
}

func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)   { Error(c, http.StatusConflict, msg) }
func Internal(c *gin.Context, msg string)   { Error(c, http.StatusInternalServerError, msg) }

// ValidationFailed 返回 400 以及逐字段的错误信息。
func ValidationFailed(c *gin.Context, verr *resume.ValidationError) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   verr.Error(),
		"section": verr.Section,
		"fields":  verr.Fields,
	})
}

// respondError 把服务层错误映射为 HTTP 响应。未识别的错误记录日志并返回通用 500。
func respondError(c *gin.Context, err error, action string) {
	var verr *resume.ValidationError
	switch {
	case errors.As(err, &verr):
		ValidationFailed(c, verr)
	case errors.Is(err, resumes.ErrNotFound):
		NotFound(c, msgResumeNotFound)
	case errors.Is(err, resumes.ErrPDFNotReady):
		Conflict(c, "PDF is not ready yet")
	case errors.Is(err, ai.ErrQuotaExceeded):
		Error(c, http.StatusTooManyRequests, "Summary generation limit reached. Please try again later.")
	default:
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			Error(c, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		middleware.LoggerFromContext(c).Error(action+" failed", slog.Any("error", err))
		Internal(c, msgGeneric)
	}
}
