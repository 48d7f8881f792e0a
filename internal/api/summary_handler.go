package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resumeEditor/internal/ai"
	"resumeEditor/internal/api/middleware"
	"resumeEditor/internal/metrics"
	"resumeEditor/internal/resume"
)

// SummaryHandler 根据表单内容生成简历摘要。
type SummaryHandler struct {
	generator ai.SummaryGenerator
}

// NewSummaryHandler 构造 SummaryHandler。generator 为空时接口返回 503。
func NewSummaryHandler(generator ai.SummaryGenerator) *SummaryHandler {
	return &SummaryHandler{generator: generator}
}

// GenerateSummary 接收除摘要外的简历内容，返回生成的摘要文本。
func (h *SummaryHandler) GenerateSummary(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	if h.generator == nil {
		Error(c, http.StatusServiceUnavailable, "Summary generation is not available")
		return
	}

	var values resume.Values
	if !bindJSON(c, &values) {
		return
	}

	summary, err := h.generator.GenerateSummary(c.Request.Context(), userID, values.WithoutSummary())
	if err != nil {
		outcome := metrics.OutcomeFailure
		if errors.Is(err, ai.ErrQuotaExceeded) {
			outcome = metrics.OutcomeQuota
		}
		metrics.ObserveSummary(outcome)
		respondError(c, err, "generate summary")
		return
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		metrics.ObserveSummary(metrics.OutcomeFailure)
		middleware.LoggerFromContext(c).Error("generate summary failed", slog.Any("error", ai.ErrEmptyResponse))
		Internal(c, msgGeneric)
		return
	}

	metrics.ObserveSummary(metrics.OutcomeSuccess)
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}
