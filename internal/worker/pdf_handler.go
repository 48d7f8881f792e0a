package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	"resumeEditor/internal/errcode"
	"resumeEditor/internal/preview"
	"resumeEditor/internal/resume"
	"resumeEditor/internal/resumes"
	"resumeEditor/internal/storage"
	"resumeEditor/internal/tasks"
)

// ResumeSource 是 PDF 任务需要的简历服务子集。
type ResumeSource interface {
	Get(ctx context.Context, userID, id string) (*resumes.Resume, error)
	AttachPDF(ctx context.Context, userID, id, key string) error
}

// ObjectStore 是 PDF 任务需要的对象存储子集。
type ObjectStore interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	ReadObject(ctx context.Context, objectKey string, maxBytes int64) ([]byte, string, error)
	DeleteObject(ctx context.Context, objectKey string) error
}

// RenderFunc 把打印 HTML 转成 PDF。
type RenderFunc func(ctx context.Context, html string) ([]byte, error)

// PDFTaskHandler 负责消费 PDF 生成任务。
type PDFTaskHandler struct {
	resumes   ResumeSource
	storage   ObjectStore
	publisher Publisher
	render    RenderFunc
	logger    *slog.Logger
}

// NewPDFTaskHandler 创建任务处理器。
func NewPDFTaskHandler(
	resumes ResumeSource,
	storage ObjectStore,
	publisher Publisher,
	render RenderFunc,
	logger *slog.Logger,
) *PDFTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFTaskHandler{
		resumes:   resumes,
		storage:   storage,
		publisher: publisher,
		render:    render,
		logger:    logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *PDFTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.PDFGeneratePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return fmt.Errorf("unmarshal pdf payload: %v: %w", err, asynq.SkipRetry)
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("resume_id", payload.ResumeID),
		slog.String("user_id", payload.UserID),
	)
	log.Info("starting pdf generation task")

	r, err := h.resumes.Get(ctx, payload.UserID, payload.ResumeID)
	if err != nil {
		if errors.Is(err, resumes.ErrNotFound) {
			log.Warn("resume not found, skipping task")
			return nil
		}
		log.Error("load resume failed", slog.Any("error", err))
		return err
	}

	defer func() {
		if retErr == nil {
			return
		}
		if !isFinalAsynqAttempt(ctx) {
			return
		}

		notify := PDFGenerationNotifyMessage{
			Status:        NotifyError,
			ResumeID:      payload.ResumeID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errcode.SystemError,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := publishPDFGenerationNotify(ctx, h.publisher, payload.UserID, notify); err != nil {
			log.Error("publish pdf error notification failed", slog.Any("error", err))
		}
	}()

	values := r.Values
	photoSrc, missingKeys := h.inlinePhoto(ctx, log, payload.UserID, values.Photo)
	if len(missingKeys) > 0 {
		values.Photo = nil
	}
	html, err := preview.RenderString(values, preview.Options{Mode: preview.ModePrint, PhotoSrc: photoSrc})
	if err != nil {
		log.Error("render print html failed", slog.Any("error", err))
		return err
	}

	pdfBytes, err := h.render(ctx, html)
	if err != nil {
		log.Error("render pdf failed", slog.Any("error", err))
		return err
	}

	objectName := storage.NewPDFKey(payload.UserID, payload.ResumeID)
	if err := h.storage.UploadFile(ctx, objectName, bytes.NewReader(pdfBytes), int64(len(pdfBytes)), "application/pdf"); err != nil {
		log.Error("upload pdf failed", slog.Any("error", err))
		return err
	}

	if err := h.resumes.AttachPDF(ctx, payload.UserID, payload.ResumeID, objectName); err != nil {
		if errors.Is(err, resumes.ErrNotFound) {
			// 生成期间简历已被删除。
			log.Warn("resume deleted during generation, dropping pdf")
			if derr := h.storage.DeleteObject(ctx, objectName); derr != nil {
				log.Warn("delete orphaned pdf failed", slog.Any("error", derr))
			}
			return nil
		}
		log.Error("attach pdf failed", slog.Any("error", err))
		return err
	}

	notify := PDFGenerationNotifyMessage{
		Status:        NotifyCompleted,
		ResumeID:      payload.ResumeID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
	}
	if len(missingKeys) > 0 {
		notify.ErrorCode = errcode.ResourceMissing
		notify.ErrorMessage = "photo is missing, generated without it"
		notify.MissingKeys = missingKeys
		log.Warn("pdf generated with missing photo", slog.Any("missing_keys", missingKeys))
	}
	if err := publishPDFGenerationNotify(ctx, h.publisher, payload.UserID, notify); err != nil {
		// PDF 已就绪，通知失败不重跑整个任务。
		log.Error("publish redis notification failed", slog.Any("error", err))
	}

	log.Info("pdf generation task completed", slog.Int("bytes", len(pdfBytes)))
	return nil
}

// inlinePhoto 读取照片并转成 data URI，打印页面因此不依赖签名链接。
// 照片缺失时返回其 key，文档照常生成。
func (h *PDFTaskHandler) inlinePhoto(ctx context.Context, log *slog.Logger, userID string, p *resume.Photo) (string, []string) {
	if p == nil || p.Key == "" {
		return "", nil
	}
	if !storage.IsOwnedKey(userID, p.Key) {
		log.Warn("photo key does not belong to resume owner, skipping", slog.String("key", p.Key))
		return "", []string{p.Key}
	}
	data, contentType, err := h.storage.ReadObject(ctx, p.Key, resume.MaxPhotoBytes)
	if err != nil {
		if !errors.Is(err, storage.ErrObjectNotFound) {
			log.Warn("read photo failed", slog.String("key", p.Key), slog.Any("error", err))
		}
		return "", []string{p.Key}
	}
	if contentType == "" {
		contentType = p.ContentType
	}
	return resume.DataURI(contentType, data), nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
