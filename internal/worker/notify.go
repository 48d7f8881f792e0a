package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// 通知状态。
const (
	NotifyCompleted = "completed"
	NotifyError     = "error"
)

// PDFGenerationNotifyMessage 通过 Redis Pub/Sub 转发给编辑会话。
// 字段名与前端解析保持一致。
type PDFGenerationNotifyMessage struct {
	Kind          string   `json:"kind"`
	Status        string   `json:"status"`
	ResumeID      string   `json:"resume_id"`
	CorrelationID string   `json:"correlation_id"`
	ErrorCode     int      `json:"error_code"`
	ErrorMessage  string   `json:"error_message"`
	MissingKeys   []string `json:"missing_keys,omitempty"`
}

// Publisher 是 *redis.Client 的发布子集。
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// NotifyChannel 返回用户的通知频道，与 WebSocket 订阅端一致。
func NotifyChannel(userID string) string {
	return "user_notify:" + userID
}

func publishPDFGenerationNotify(ctx context.Context, publisher Publisher, userID string, notify PDFGenerationNotifyMessage) error {
	notify.Kind = "pdf_generation"
	data, err := json.Marshal(notify)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := NotifyChannel(userID)
	if err := publisher.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}
