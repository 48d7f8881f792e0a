package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"resumeEditor/internal/storage"
	"resumeEditor/internal/tasks"
)

// ObjectDeleter 删除存储对象，不存在视为成功。
type ObjectDeleter interface {
	DeleteObject(ctx context.Context, objectKey string) error
}

// ObjectDeleteHandler 消费补偿删除任务：保存或删除简历时未能清理的对象。
type ObjectDeleteHandler struct {
	storage ObjectDeleter
	logger  *slog.Logger
}

// NewObjectDeleteHandler 创建补偿删除处理器。
func NewObjectDeleteHandler(storage ObjectDeleter, logger *slog.Logger) *ObjectDeleteHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ObjectDeleteHandler{storage: storage, logger: logger}
}

// ProcessTask 实现 asynq.Handler。删除失败返回错误交给队列重试。
func (h *ObjectDeleteHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.ObjectDeletePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error("unmarshal task payload failed", slog.Any("error", err))
		return fmt.Errorf("unmarshal delete payload: %v: %w", err, asynq.SkipRetry)
	}

	log := h.logger.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("object_key", payload.ObjectKey),
	)
	// 只清理本服务生成的照片与 PDF 对象。
	if !storage.IsManagedKey(payload.ObjectKey) {
		log.Error("refuse to delete unmanaged object key")
		return fmt.Errorf("unmanaged object key %q: %w", payload.ObjectKey, asynq.SkipRetry)
	}
	if err := h.storage.DeleteObject(ctx, payload.ObjectKey); err != nil {
		log.Warn("delete object failed, will retry", slog.Any("error", err))
		return err
	}
	log.Info("orphaned object deleted")
	return nil
}
