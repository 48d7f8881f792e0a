package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

func TestTaskOutcome(t *testing.T) {
	ctx := context.Background()
	require.Equal(t, OutcomeSuccess, taskOutcome(ctx, nil))
	require.Equal(t, OutcomeSkipped, taskOutcome(ctx, fmt.Errorf("bad payload: %w", asynq.SkipRetry)))
	// 上下文里没有重试信息时按普通失败处理。
	require.Equal(t, OutcomeFailure, taskOutcome(ctx, errors.New("upload failed")))
}

func TestGinMiddleware_Exposition(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/v1/resumes/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", Handler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/resumes/r42", nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	require.Contains(t, body, `resume_editor_http_requests_total{code="204",method="GET",route="/v1/resumes/:id"}`)
	require.NotContains(t, body, "r42")
	require.False(t, strings.Contains(body, `route="/metrics"`))
}
