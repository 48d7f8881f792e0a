package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypePDFGenerate = "pdf:generate"
	TypePhotoDelete = "photo:delete"
)

// PDFGeneratePayload 描述生成 PDF 所需的最小信息。
type PDFGeneratePayload struct {
	ResumeID      string `json:"resume_id"`
	UserID        string `json:"user_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewPDFGenerateTask 构造一个新的简历 PDF 生成任务。
func NewPDFGenerateTask(resumeID, userID, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(PDFGeneratePayload{
		ResumeID:      resumeID,
		UserID:        userID,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal pdf payload: %w", err)
	}
	return asynq.NewTask(TypePDFGenerate, payload, asynq.MaxRetry(5)), nil
}

// ObjectDeletePayload 描述一次需要补偿删除的对象。
type ObjectDeletePayload struct {
	ObjectKey     string `json:"object_key"`
	CorrelationID string `json:"correlation_id"`
}

// NewObjectDeleteTask 构造对象清理任务。删除失败不阻塞主流程，由队列重试。
func NewObjectDeleteTask(objectKey, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ObjectDeletePayload{
		ObjectKey:     objectKey,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal delete payload: %w", err)
	}
	return asynq.NewTask(TypePhotoDelete, payload, asynq.MaxRetry(10)), nil
}
