package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeEditor/internal/api/middleware"
	"resumeEditor/internal/preview"
	"resumeEditor/internal/resume"
	"resumeEditor/internal/resumes"
)

// ResumeService 是处理器依赖的简历服务。
type ResumeService interface {
	List(ctx context.Context, userID string) (*resumes.ListResult, error)
	Get(ctx context.Context, userID, id string) (*resumes.Resume, error)
	Save(ctx context.Context, userID string, in resumes.SaveInput) (*resumes.Resume, error)
	Delete(ctx context.Context, userID, id string) error
	RequestPDF(ctx context.Context, userID, id string) (string, error)
	PDFLink(ctx context.Context, userID, id string) (string, error)
}

// ResumeHandler 负责处理与简历相关的 API 请求。
type ResumeHandler struct {
	service ResumeService
}

// NewResumeHandler 构造 ResumeHandler。
func NewResumeHandler(service ResumeService) *ResumeHandler {
	return &ResumeHandler{service: service}
}

// ListResumes 返回当前用户的全部简历，按最近修改排序。
func (h *ResumeHandler) ListResumes(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	res, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "list resumes")
		return
	}
	if res.Resumes == nil {
		res.Resumes = []resumes.Resume{}
	}
	c.JSON(http.StatusOK, res)
}

// GetResume 返回单份简历。
func (h *ResumeHandler) GetResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	r, err := h.service.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "get resume")
		return
	}
	c.JSON(http.StatusOK, r)
}

// CreateResume 保存一份新的简历。
func (h *ResumeHandler) CreateResume(c *gin.Context) {
	h.save(c, "", http.StatusCreated)
}

// UpdateResume 整体替换一份已有简历。
func (h *ResumeHandler) UpdateResume(c *gin.Context) {
	h.save(c, c.Param("id"), http.StatusOK)
}

func (h *ResumeHandler) save(c *gin.Context, id string, status int) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	var values resume.Values
	if !bindJSON(c, &values) {
		return
	}

	r, err := h.service.Save(c.Request.Context(), userID, resumes.SaveInput{
		ID:          id,
		Values:      values,
		PhotoChange: resume.PhotoChangeFor(values.Photo),
	})
	if err != nil {
		respondError(c, err, "save resume")
		return
	}
	c.JSON(status, r)
}

// DeleteResume 删除简历及其存储对象。
func (h *ResumeHandler) DeleteResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err, "delete resume")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": "Resume deleted successfully"})
}

// PreviewResume 渲染 HTML 预览，mode 可为 screen、print、thumbnail。
func (h *ResumeHandler) PreviewResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	r, err := h.service.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "preview resume")
		return
	}

	var buf bytes.Buffer
	if err := preview.Render(&buf, r.Values, preview.Options{Mode: preview.ParseMode(c.Query("mode"))}); err != nil {
		respondError(c, err, "render preview")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

// PrintResume 投递 PDF 生成任务，完成后通过 WebSocket 通知。
func (h *ResumeHandler) PrintResume(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	taskID, err := h.service.RequestPDF(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "request pdf")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"task_id":        taskID,
		"correlation_id": middleware.GetCorrelationID(c),
	})
}

// GetPrintLink 返回已生成 PDF 的临时下载地址。
func (h *ResumeHandler) GetPrintLink(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	url, err := h.service.PDFLink(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "pdf link")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// bindJSON 解析请求体，失败时直接写回 400 或 413。
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			Error(c, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		BadRequest(c, "invalid request body")
		return false
	}
	return true
}

func userIDFromContext(c *gin.Context) (string, bool) {
	value, exists := c.Get(middleware.UserIDKey)
	if !exists {
		return "", false
	}
	id, ok := value.(string)
	return id, ok && id != ""
}
